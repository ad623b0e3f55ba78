package receiving

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"inbound/internal/core/apperror"
	"inbound/internal/core/id"
	"inbound/pkg/logger"
)

var tracer = otel.Tracer("inbound/receiving")

// LineMeta is a metadata-only update for a line: batch and shelf-life dates,
// no quantity change.
type LineMeta struct {
	BatchCode      string
	ProductionDate *time.Time
	ExpiryDate     *time.Time
}

// Session owns one bound receiving task and all ephemeral capture state:
// the manual draft buffer, the scan history ring, the active-item pointer,
// per-line saving flags and the commit-in-flight flag.
//
// The authoritative task is only ever replaced wholesale from collaborator
// responses. One session serves one operator; operations on different lines
// may run concurrently, operations on the same line are serialized by the
// per-line saving flag.
type Session struct {
	applier   CaptureApplier
	committer Committer
	notifier  *Notifier

	mu             sync.Mutex
	task           *ReceivingTask
	draft          *DraftBuffer
	history        *ScanHistory
	activeItem     *id.ID
	saving         map[id.ID]bool
	commitInFlight bool

	// Collaborator errors are attached to the scope that issued the call so
	// unrelated UI surfaces are not disturbed.
	scanErr   error
	lineErrs  map[id.ID]error
	commitErr error
}

// NewSession creates a session wired to the persistence collaborators.
func NewSession(applier CaptureApplier, committer Committer) *Session {
	return &Session{
		applier:   applier,
		committer: committer,
		notifier:  NewNotifier(),
		draft:     NewDraftBuffer(),
		history:   NewScanHistory(),
		saving:    make(map[id.ID]bool),
		lineErrs:  make(map[id.ID]error),
	}
}

// Notifier returns the session's task-event notifier for subscription.
func (s *Session) Notifier() *Notifier {
	return s.notifier
}

// Bind loads a task into the session and resets all ephemeral per-task state.
// The scan history survives rebinding: it is a session-local audit ring.
func (s *Session) Bind(task *ReceivingTask) error {
	if task == nil {
		return apperror.NewValidation("task is required")
	}
	s.mu.Lock()
	if s.commitInFlight {
		s.mu.Unlock()
		return apperror.NewValidation("commit in progress")
	}
	s.task = task
	s.draft = NewDraftBuffer()
	s.activeItem = nil
	s.saving = make(map[id.ID]bool)
	s.scanErr = nil
	s.lineErrs = make(map[id.ID]error)
	s.commitErr = nil
	s.mu.Unlock()

	s.notifier.Publish(TaskEvent{Kind: EventTaskBound, TaskID: task.ID, Task: task})
	return nil
}

// Unbind discards the bound task and its ephemeral state.
func (s *Session) Unbind() {
	s.mu.Lock()
	if s.task == nil {
		s.mu.Unlock()
		return
	}
	taskID := s.task.ID
	s.task = nil
	s.draft = NewDraftBuffer()
	s.activeItem = nil
	s.saving = make(map[id.ID]bool)
	s.scanErr = nil
	s.lineErrs = make(map[id.ID]error)
	s.commitErr = nil
	s.mu.Unlock()

	s.notifier.Publish(TaskEvent{Kind: EventTaskUnbound, TaskID: taskID})
}

// Task returns the current authoritative snapshot, or nil when unbound.
// Callers must treat it as read-only.
func (s *Session) Task() *ReceivingTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.task
}

// ActiveItem returns the last successfully scanned item, for UI highlighting.
func (s *Session) ActiveItem() *id.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeItem
}

// Capabilities resolves the currently legal actions for the bound task.
func (s *Session) Capabilities() Capabilities {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ResolveCapabilities(s.task, s.commitInFlight, s.draft.Dirty(), Summarize(s.task))
}

// Variance returns the derived variance summary for the bound task.
func (s *Session) Variance() VarianceSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Summarize(s.task)
}

// History returns a copy of the capture audit ring, oldest first.
func (s *Session) History() []HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Entries()
}

// ScanError returns the standing task-level scan error, if any.
func (s *Session) ScanError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scanErr
}

// LineError returns the last manual/meta save error for a line, if any.
func (s *Session) LineError(itemID id.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lineErrs[itemID]
}

// CommitError returns the last commit failure, if any.
func (s *Session) CommitError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commitErr
}

// --- Capture channel: scan ---

// Scan applies one decoded barcode record to the bound task as an incremental
// quantity delta. Every attempt, including locally rejected ones, is recorded
// in the history ring.
func (s *Session) Scan(ctx context.Context, rec ScanRecord) error {
	s.mu.Lock()
	if s.task == nil {
		s.failScanLocked(rec, rec.Qty, "no task bound")
		s.mu.Unlock()
		return apperror.NewValidation("no task bound")
	}
	if s.task.IsTerminal() {
		status := s.task.Status
		s.failScanLocked(rec, rec.Qty, "task is "+string(status))
		s.mu.Unlock()
		return apperror.NewTerminalState(string(status))
	}
	if s.commitInFlight {
		s.failScanLocked(rec, rec.Qty, "commit in progress")
		s.mu.Unlock()
		return apperror.NewValidation("commit in progress")
	}
	if rec.ItemID == nil || id.IsNil(*rec.ItemID) {
		const msg = "missing item identifier in code"
		s.failScanLocked(rec, rec.Qty, msg)
		err := apperror.NewValidation(msg).WithDetail("raw", rec.Raw)
		s.scanErr = err
		s.mu.Unlock()
		return err
	}
	item := *rec.ItemID
	qty := rec.Qty
	if qty == 0 {
		qty = 1
	}
	if qty < 0 {
		s.failScanLocked(rec, qty, "quantity must be positive")
		s.mu.Unlock()
		return apperror.NewValidation("quantity must be positive").WithDetail("item_id", item.String())
	}
	if s.saving[item] {
		s.failScanLocked(rec, qty, "capture already in progress for this item")
		s.mu.Unlock()
		return apperror.NewValidation("capture already in progress for this item").
			WithDetail("item_id", item.String())
	}
	s.saving[item] = true
	taskID := s.task.ID
	s.mu.Unlock()

	req := CaptureRequest{
		ItemID:         item,
		QtyDelta:       qty,
		BatchCode:      rec.BatchCode,
		ProductionDate: rec.ProductionDate,
		ExpiryDate:     rec.ExpiryDate,
	}
	snapshot, err := s.apply(ctx, "receiving.scan", taskID, req)

	s.mu.Lock()
	delete(s.saving, item)
	if err != nil {
		s.history.Append(HistoryEntry{RawInput: rec.Raw, ItemID: &item, Qty: qty, Error: err.Error()})
		colErr := apperror.NewCollaborator("scan capture", err).WithDetail("item_id", item.String())
		s.scanErr = colErr
		s.mu.Unlock()
		return colErr
	}
	s.task = snapshot
	s.activeItem = &item
	s.scanErr = nil
	s.history.Append(HistoryEntry{RawInput: rec.Raw, ItemID: &item, Qty: qty, OK: true})
	s.mu.Unlock()

	s.notifier.Publish(TaskEvent{Kind: EventCaptureApplied, TaskID: taskID, Task: snapshot})
	logger.Debug(ctx, "scan capture applied", "task_id", taskID, "item_id", item, "qty", qty)
	return nil
}

// failScanLocked records a locally rejected scan attempt. Caller holds s.mu.
func (s *Session) failScanLocked(rec ScanRecord, qty int, reason string) {
	s.history.Append(HistoryEntry{RawInput: rec.Raw, ItemID: rec.ItemID, Qty: qty, Error: reason})
}

// --- Capture channel: manual entry ---

// SetManualInput buffers the operator's typed quantity for a line.
// Typing makes the draft dirty immediately; only a successful submit of that
// line clears it.
func (s *Session) SetManualInput(itemID id.ID, raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft.Set(itemID, raw)
}

// ManualInput returns the buffered input for a line.
func (s *Session) ManualInput(itemID id.ID) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.Get(itemID)
}

// ClearManualInput discards the buffered input for a line without submitting.
func (s *Session) ClearManualInput(itemID id.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft.ClearLine(itemID)
}

// DraftDirty reports whether any line has unsubmitted manual input.
func (s *Session) DraftDirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.Dirty()
}

// SubmitManual submits the buffered quantity for one planned line as a delta.
// An empty buffer defaults to the remainder (expected minus scanned); a zero
// remainder is rejected with "nothing to receive". The line's existing batch
// and date metadata ride along so a manual receipt does not drop previously
// captured metadata. On failure the buffered input stays intact for retry.
func (s *Session) SubmitManual(ctx context.Context, itemID id.ID) error {
	s.mu.Lock()
	if s.task == nil {
		s.mu.Unlock()
		return apperror.NewValidation("no task bound")
	}
	if s.task.IsTerminal() {
		status := s.task.Status
		s.mu.Unlock()
		return apperror.NewTerminalState(string(status))
	}
	if s.commitInFlight {
		s.mu.Unlock()
		return apperror.NewValidation("commit in progress")
	}
	line := s.task.Line(itemID)
	if line == nil {
		s.mu.Unlock()
		return apperror.NewNotFound("receiving line", itemID.String())
	}
	raw := s.draft.Get(itemID)
	var qty int
	if raw == "" {
		remainder := 0
		if line.ExpectedQty != nil {
			remainder = *line.ExpectedQty - line.ScannedQty
		}
		if remainder <= 0 {
			s.mu.Unlock()
			return apperror.NewValidation("nothing to receive").WithDetail("item_id", itemID.String())
		}
		qty = remainder
	} else {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.mu.Unlock()
			return apperror.NewValidation("quantity must be a whole number").
				WithDetail("item_id", itemID.String()).
				WithDetail("value", raw)
		}
		if n <= 0 {
			s.mu.Unlock()
			return apperror.NewValidation("quantity must be positive").
				WithDetail("item_id", itemID.String()).
				WithDetail("value", raw)
		}
		qty = n
	}
	if s.saving[itemID] {
		s.mu.Unlock()
		return apperror.NewValidation("capture already in progress for this line").
			WithDetail("item_id", itemID.String())
	}
	req := CaptureRequest{
		ItemID:         itemID,
		QtyDelta:       qty,
		BatchCode:      line.BatchCode,
		ProductionDate: line.ProductionDate,
		ExpiryDate:     line.ExpiryDate,
	}
	s.saving[itemID] = true
	taskID := s.task.ID
	s.mu.Unlock()

	snapshot, err := s.apply(ctx, "receiving.manual", taskID, req)

	s.mu.Lock()
	delete(s.saving, itemID)
	shown := raw
	if shown == "" {
		shown = strconv.Itoa(qty)
	}
	if err != nil {
		s.history.Append(HistoryEntry{RawInput: shown, ItemID: &itemID, Qty: qty, Error: err.Error()})
		colErr := apperror.NewCollaborator("manual capture", err).WithDetail("item_id", itemID.String())
		s.lineErrs[itemID] = colErr
		s.mu.Unlock()
		return colErr
	}
	s.task = snapshot
	s.draft.MarkSubmitted(itemID)
	delete(s.lineErrs, itemID)
	s.history.Append(HistoryEntry{RawInput: shown, ItemID: &itemID, Qty: qty, OK: true})
	s.mu.Unlock()

	s.notifier.Publish(TaskEvent{Kind: EventCaptureApplied, TaskID: taskID, Task: snapshot})
	logger.Debug(ctx, "manual capture applied", "task_id", taskID, "item_id", itemID, "qty", qty)
	return nil
}

// --- Line meta editor ---

// EditLineMeta updates batch/production/expiry metadata without changing
// quantity. It reuses the capture contract with a zero delta, so the server
// sees one uniform apply operation regardless of channel. Blocked entirely
// on terminal tasks, without a collaborator call.
func (s *Session) EditLineMeta(ctx context.Context, itemID id.ID, meta LineMeta) error {
	s.mu.Lock()
	if s.task == nil {
		s.mu.Unlock()
		return apperror.NewValidation("no task bound")
	}
	if s.task.IsTerminal() {
		status := s.task.Status
		s.mu.Unlock()
		return apperror.NewTerminalState(string(status))
	}
	if s.commitInFlight {
		s.mu.Unlock()
		return apperror.NewValidation("commit in progress")
	}
	if s.task.Line(itemID) == nil {
		s.mu.Unlock()
		return apperror.NewNotFound("receiving line", itemID.String())
	}
	if s.saving[itemID] {
		s.mu.Unlock()
		return apperror.NewValidation("capture already in progress for this line").
			WithDetail("item_id", itemID.String())
	}
	req := CaptureRequest{
		ItemID:         itemID,
		QtyDelta:       0,
		BatchCode:      meta.BatchCode,
		ProductionDate: meta.ProductionDate,
		ExpiryDate:     meta.ExpiryDate,
	}
	s.saving[itemID] = true
	taskID := s.task.ID
	s.mu.Unlock()

	snapshot, err := s.apply(ctx, "receiving.meta", taskID, req)

	s.mu.Lock()
	delete(s.saving, itemID)
	if err != nil {
		colErr := apperror.NewCollaborator("line meta update", err).WithDetail("item_id", itemID.String())
		s.lineErrs[itemID] = colErr
		s.mu.Unlock()
		return colErr
	}
	s.task = snapshot
	delete(s.lineErrs, itemID)
	s.mu.Unlock()

	s.notifier.Publish(TaskEvent{Kind: EventCaptureApplied, TaskID: taskID, Task: snapshot})
	logger.Debug(ctx, "line meta updated", "task_id", taskID, "item_id", itemID)
	return nil
}

// apply runs one capture round trip inside a span.
func (s *Session) apply(ctx context.Context, op string, taskID id.ID, req CaptureRequest) (*ReceivingTask, error) {
	ctx, span := tracer.Start(ctx, op,
		trace.WithAttributes(
			attribute.String("task.id", taskID.String()),
			attribute.String("item.id", req.ItemID.String()),
			attribute.Int("qty.delta", req.QtyDelta),
		))
	defer span.End()

	snapshot, err := s.applier.Apply(ctx, taskID, req)
	if err != nil {
		span.RecordError(err)
	}
	return snapshot, err
}
