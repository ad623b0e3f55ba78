package receiving

import "fmt"

// Capabilities is the set of actions currently legal for a bound task,
// together with a human-readable reason when commit is blocked.
type Capabilities struct {
	CanScan          bool   `json:"canScan"`
	CanManualReceive bool   `json:"canManualReceive"`
	CanEditMeta      bool   `json:"canEditMeta"`
	CanCommit        bool   `json:"canCommit"`
	BlockedReason    string `json:"blockedReason,omitempty"`
}

// ResolveCapabilities derives the capability set from the task snapshot and
// the session's in-flight flags. It is a pure, total function: no I/O, defined
// for every input, including a nil task.
//
// The rules form a small state machine:
//   - no task bound: everything disabled
//   - terminal task: everything disabled, permanently (absorbing state)
//   - commit in flight: everything disabled until the round trip resolves
//   - dirty manual draft: capture stays enabled (it can resolve the draft),
//     commit is blocked so displayed numbers cannot diverge from submitted ones
//   - otherwise: commit requires at least one captured unit
func ResolveCapabilities(task *ReceivingTask, commitInFlight, draftDirty bool, summary VarianceSummary) Capabilities {
	if task == nil {
		return Capabilities{BlockedReason: "no task bound"}
	}
	if task.IsTerminal() {
		return Capabilities{BlockedReason: fmt.Sprintf("task is %s", task.Status)}
	}
	if commitInFlight {
		return Capabilities{BlockedReason: "commit in progress"}
	}
	caps := Capabilities{
		CanScan:          true,
		CanManualReceive: true,
		CanEditMeta:      true,
	}
	if draftDirty {
		caps.BlockedReason = "unsubmitted manual input must be applied first"
		return caps
	}
	if summary.TotalScanned <= 0 {
		caps.BlockedReason = "no quantity captured yet"
		return caps
	}
	caps.CanCommit = true
	return caps
}
