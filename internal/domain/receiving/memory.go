package receiving

import (
	"context"
	"sync"

	"inbound/internal/core/apperror"
	"inbound/internal/core/id"
)

// MemoryCollaborator is an in-memory reference implementation of the
// persistence and commit contracts. It models the server's side of the
// protocol: it owns running totals, returns full snapshots, and enforces
// hard validation on commit with structured errors. Used by tests and the
// spike; it is not the production backend.
type MemoryCollaborator struct {
	mu        sync.Mutex
	tasks     map[id.ID]*ReceivingTask
	committed map[id.ID]string // task id -> idempotency token of the accepted commit
}

// NewMemoryCollaborator creates an empty collaborator.
func NewMemoryCollaborator() *MemoryCollaborator {
	return &MemoryCollaborator{
		tasks:     make(map[id.ID]*ReceivingTask),
		committed: make(map[id.ID]string),
	}
}

// Put seeds or replaces a task.
func (m *MemoryCollaborator) Put(task *ReceivingTask) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[task.ID] = task.Clone()
}

// Get returns a snapshot of a stored task.
func (m *MemoryCollaborator) Get(taskID id.ID) (*ReceivingTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[taskID]
	if !ok {
		return nil, apperror.NewNotFound("receiving task", taskID.String())
	}
	return task.Clone(), nil
}

// Apply implements CaptureApplier. The delta is added to the server-held
// running total; scanning an item the task has no line for creates an
// unplanned line. Metadata fields are applied when present.
func (m *MemoryCollaborator) Apply(ctx context.Context, taskID id.ID, req CaptureRequest) (*ReceivingTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.tasks[taskID]
	if !ok {
		return nil, apperror.NewNotFound("receiving task", taskID.String())
	}
	if task.IsTerminal() {
		return nil, apperror.NewTerminalState(string(task.Status))
	}
	if req.QtyDelta < 0 {
		return nil, apperror.NewValidation("quantity delta must not be negative").
			WithDetail("item_id", req.ItemID.String())
	}

	line := task.Line(req.ItemID)
	if line == nil {
		task.Lines = append(task.Lines, ReceivingLine{ItemID: req.ItemID})
		line = &task.Lines[len(task.Lines)-1]
	}
	line.ScannedQty += req.QtyDelta
	if req.BatchCode != "" {
		line.BatchCode = req.BatchCode
	}
	if req.ProductionDate != nil {
		line.ProductionDate = req.ProductionDate
	}
	if req.ExpiryDate != nil {
		line.ExpiryDate = req.ExpiryDate
	}

	if task.Status == StatusDraft && Summarize(task).TotalScanned > 0 {
		task.Status = StatusScanned
	}
	return task.Clone(), nil
}

// Commit implements Committer. It re-runs hard validation server-side and
// fails with a structured error when the task does not pass, regardless of
// what the client believed. A replay with the accepted token returns the
// committed snapshot instead of failing.
func (m *MemoryCollaborator) Commit(ctx context.Context, taskID id.ID, req CommitRequest) (*ReceivingTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if req.IdempotencyToken == "" {
		return nil, apperror.NewValidation("idempotency token is required")
	}
	task, ok := m.tasks[taskID]
	if !ok {
		return nil, apperror.NewNotFound("receiving task", taskID.String())
	}
	if task.Status == StatusCommitted {
		if m.committed[taskID] == req.IdempotencyToken {
			return task.Clone(), nil
		}
		return nil, apperror.NewTerminalState(string(StatusCommitted))
	}
	if task.IsTerminal() {
		return nil, apperror.NewTerminalState(string(task.Status))
	}
	if blocked := HardBlockedLines(task); len(blocked) > 0 {
		return nil, apperror.NewCommitBlocked(blockSummary(blocked)).
			WithDetail("lines", blocked)
	}
	if Summarize(task).TotalScanned <= 0 {
		return nil, apperror.NewValidation("no quantity captured")
	}

	task.Status = StatusCommitted
	m.committed[taskID] = req.IdempotencyToken
	return task.Clone(), nil
}

// Ensure interface compliance at compile time.
var _ Collaborator = (*MemoryCollaborator)(nil)
