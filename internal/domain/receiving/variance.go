package receiving

// VarianceSummary is the derived expected/scanned/variance view of a task.
// It is never stored; recompute it from the current snapshot.
type VarianceSummary struct {
	TotalExpected int `json:"totalExpected"`
	TotalScanned  int `json:"totalScanned"`
	TotalVariance int `json:"totalVariance"`
}

// Summarize computes the variance summary for a task.
// A nil task yields the zero summary. Unplanned lines (nil ExpectedQty)
// contribute to TotalScanned but not to TotalExpected.
func Summarize(task *ReceivingTask) VarianceSummary {
	var s VarianceSummary
	if task == nil {
		return s
	}
	for i := range task.Lines {
		line := &task.Lines[i]
		if line.ExpectedQty != nil {
			s.TotalExpected += *line.ExpectedQty
		}
		s.TotalScanned += line.ScannedQty
	}
	s.TotalVariance = s.TotalScanned - s.TotalExpected
	return s
}

// LineClass classifies a line's captured quantity against its expectation.
type LineClass string

const (
	ClassOK    LineClass = "OK"
	ClassUnder LineClass = "UNDER"
	ClassOver  LineClass = "OVER"
	ClassNA    LineClass = "NA"
)

// ClassifyLine classifies a line given a pending (not yet confirmed) delta.
// Capture UIs use pendingDelta to preview the effect of an in-progress entry;
// pass 0 to classify the confirmed state.
func ClassifyLine(line ReceivingLine, pendingDelta int) LineClass {
	if line.ExpectedQty == nil {
		return ClassNA
	}
	after := line.ScannedQty + pendingDelta
	switch {
	case after == *line.ExpectedQty:
		return ClassOK
	case after < *line.ExpectedQty:
		return ClassUnder
	default:
		return ClassOver
	}
}
