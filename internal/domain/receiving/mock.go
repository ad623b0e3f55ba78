package receiving

import (
	"context"

	"inbound/internal/core/apperror"
	"inbound/internal/core/id"
)

// MockCollaborator is a test implementation of the persistence contracts.
// Use in unit tests to script collaborator behavior per call.
type MockCollaborator struct {
	ApplyFunc  func(ctx context.Context, taskID id.ID, req CaptureRequest) (*ReceivingTask, error)
	CommitFunc func(ctx context.Context, taskID id.ID, req CommitRequest) (*ReceivingTask, error)
}

// Apply implements CaptureApplier.
func (m *MockCollaborator) Apply(ctx context.Context, taskID id.ID, req CaptureRequest) (*ReceivingTask, error) {
	if m.ApplyFunc != nil {
		return m.ApplyFunc(ctx, taskID, req)
	}
	return nil, apperror.NewNotFound("receiving task", taskID.String())
}

// Commit implements Committer.
func (m *MockCollaborator) Commit(ctx context.Context, taskID id.ID, req CommitRequest) (*ReceivingTask, error) {
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx, taskID, req)
	}
	return nil, apperror.NewNotFound("receiving task", taskID.String())
}

// Ensure compile-time interface compliance.
var _ Collaborator = (*MockCollaborator)(nil)
