package receiving

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inbound/internal/core/apperror"
	"inbound/internal/core/id"
)

func TestCommit_HardBlockOnMissingBatch(t *testing.T) {
	// Scenario: planned line requiring a batch, none captured yet.
	item := id.New()
	task := newTestTask(ReceivingLine{ItemID: item, ExpectedQty: intp(10), RequiresBatch: true})
	commits := 0
	mock := &MockCollaborator{
		CommitFunc: func(ctx context.Context, taskID id.ID, req CommitRequest) (*ReceivingTask, error) {
			commits++
			return task, nil
		},
	}
	s := NewSession(mock, mock)
	require.NoError(t, s.Bind(task))

	_, err := s.Commit(context.Background(), CommitOptions{})

	require.Error(t, err)
	assert.True(t, apperror.IsCommitBlocked(err))
	assert.Contains(t, err.Error(), "batch")
	assert.Zero(t, commits, "hard block must reject before any network call")

	blocked := s.HardBlockedLines()
	require.Len(t, blocked, 1)
	assert.Equal(t, item, blocked[0].ItemID)
	assert.Contains(t, blocked[0].MissingFields, "batch")
}

func TestCommit_HardBlockIndependentOfQuantity(t *testing.T) {
	// A zero-quantity planned line that requires dates still blocks.
	item := id.New()
	other := id.New()
	task := newTestTask(
		ReceivingLine{ItemID: item, ExpectedQty: intp(0), RequiresDates: true},
		ReceivingLine{ItemID: other, ExpectedQty: intp(2), ScannedQty: 2},
	)
	s, _ := boundSession(task)

	_, err := s.Commit(context.Background(), CommitOptions{})

	assert.True(t, apperror.IsCommitBlocked(err))
	assert.Contains(t, err.Error(), "production date")
}

func TestCommit_FullWorkflowAfterResolvingBlock(t *testing.T) {
	// Scenario: resolve the batch block by a manual submit, then commit
	// passes without mismatch confirmation (10 == 10).
	item := id.New()
	task := newTestTask(ReceivingLine{ItemID: item, ExpectedQty: intp(10), RequiresBatch: true})
	s, _ := boundSession(task)

	require.NoError(t, s.EditLineMeta(context.Background(), item, LineMeta{BatchCode: "B1"}))
	s.SetManualInput(item, "10")
	require.NoError(t, s.SubmitManual(context.Background(), item))

	require.Empty(t, s.HardBlockedLines())
	require.Empty(t, s.MismatchLines())
	assert.Equal(t, 10, s.Task().Line(item).ScannedQty)

	committed, err := s.Commit(context.Background(), CommitOptions{})
	require.NoError(t, err)
	assert.Equal(t, StatusCommitted, committed.Status)
	assert.Nil(t, s.Task(), "session torn down after commit")
}

func TestCommit_MismatchRequiresConfirmation(t *testing.T) {
	// Scenario: expected 5, scanned 7 -> first attempt held for
	// confirmation, confirmed attempt commits.
	item := id.New()
	task := newTestTask(ReceivingLine{ItemID: item, ExpectedQty: intp(5), ScannedQty: 7})
	task.Status = StatusScanned
	s, _ := boundSession(task)

	_, err := s.Commit(context.Background(), CommitOptions{})
	require.Error(t, err)
	assert.True(t, apperror.IsConfirmationRequired(err))

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	mismatches, ok := appErr.Details["mismatches"].([]MismatchLine)
	require.True(t, ok)
	require.Len(t, mismatches, 1)
	assert.Equal(t, MismatchLine{ItemID: item, Expected: 5, Actual: 7}, mismatches[0])

	committed, err := s.Commit(context.Background(), CommitOptions{ConfirmMismatch: true})
	require.NoError(t, err)
	assert.Equal(t, StatusCommitted, committed.Status)
}

func TestCommit_DirtyDraftRejectedBeforeAnythingElse(t *testing.T) {
	item := id.New()
	task := newTestTask(ReceivingLine{ItemID: item, ExpectedQty: intp(5), ScannedQty: 5})
	task.Status = StatusScanned
	commits := 0
	mock := &MockCollaborator{
		CommitFunc: func(ctx context.Context, taskID id.ID, req CommitRequest) (*ReceivingTask, error) {
			commits++
			return task, nil
		},
	}
	s := NewSession(mock, mock)
	require.NoError(t, s.Bind(task))

	s.SetManualInput(item, "6")
	_, err := s.Commit(context.Background(), CommitOptions{})

	assert.True(t, apperror.IsValidation(err))
	assert.Contains(t, err.Error(), "unsubmitted manual input")
	assert.Zero(t, commits)
}

func TestCommit_NothingCaptured(t *testing.T) {
	task := newTestTask(ReceivingLine{ItemID: id.New()})
	s, _ := boundSession(task)

	_, err := s.Commit(context.Background(), CommitOptions{})

	assert.True(t, apperror.IsValidation(err))
	assert.Contains(t, err.Error(), "no quantity captured")
}

func TestCommit_AlreadyCommittedRejectedLocally(t *testing.T) {
	item := id.New()
	task := newTestTask(ReceivingLine{ItemID: item, ExpectedQty: intp(1), ScannedQty: 1})
	task.Status = StatusCommitted
	commits := 0
	mock := &MockCollaborator{
		CommitFunc: func(ctx context.Context, taskID id.ID, req CommitRequest) (*ReceivingTask, error) {
			commits++
			return task, nil
		},
	}
	s := NewSession(mock, mock)
	require.NoError(t, s.Bind(task))

	_, err := s.Commit(context.Background(), CommitOptions{})

	assert.True(t, apperror.IsTerminalState(err))
	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, "already committed", appErr.Details["reason"])
	assert.Zero(t, commits, "never re-sent to the collaborator")
}

func TestCommit_SecondInvocationAfterSuccessIsLocalReject(t *testing.T) {
	// Idempotence: two sequential commits never produce two terminal
	// transitions; the second is rejected locally because the session
	// unbound the committed task.
	item := id.New()
	task := newTestTask(ReceivingLine{ItemID: item, ExpectedQty: intp(2), ScannedQty: 2})
	task.Status = StatusScanned
	commits := 0
	mem := NewMemoryCollaborator()
	mem.Put(task)
	mock := &MockCollaborator{
		CommitFunc: func(ctx context.Context, taskID id.ID, req CommitRequest) (*ReceivingTask, error) {
			commits++
			return mem.Commit(ctx, taskID, req)
		},
	}
	s := NewSession(mem, mock)
	require.NoError(t, s.Bind(task))

	_, err := s.Commit(context.Background(), CommitOptions{})
	require.NoError(t, err)

	_, err = s.Commit(context.Background(), CommitOptions{})
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
	assert.Equal(t, 1, commits)
}

func TestCommit_CollaboratorFailureKeepsTaskRetryable(t *testing.T) {
	item := id.New()
	task := newTestTask(ReceivingLine{ItemID: item, ExpectedQty: intp(3), ScannedQty: 3})
	task.Status = StatusScanned
	fail := true
	mem := NewMemoryCollaborator()
	mem.Put(task)
	mock := &MockCollaborator{
		CommitFunc: func(ctx context.Context, taskID id.ID, req CommitRequest) (*ReceivingTask, error) {
			if fail {
				return nil, errors.New("ledger writer unavailable")
			}
			return mem.Commit(ctx, taskID, req)
		},
	}
	s := NewSession(mem, mock)
	require.NoError(t, s.Bind(task))

	_, err := s.Commit(context.Background(), CommitOptions{})
	require.Error(t, err)
	assert.True(t, apperror.IsCollaborator(err))
	assert.Error(t, s.CommitError())

	// Task still bound in its prior non-terminal status; capture and
	// commit both remain possible.
	got := s.Task()
	require.NotNil(t, got)
	assert.Equal(t, StatusScanned, got.Status)
	assert.True(t, s.Capabilities().CanCommit)

	fail = false
	committed, err := s.Commit(context.Background(), CommitOptions{})
	require.NoError(t, err)
	assert.Equal(t, StatusCommitted, committed.Status)
}

func TestCommit_TokenForwardedToCollaborator(t *testing.T) {
	item := id.New()
	task := newTestTask(ReceivingLine{ItemID: item, ExpectedQty: intp(1), ScannedQty: 1})
	task.Status = StatusScanned
	var gotToken string
	mock := &MockCollaborator{
		CommitFunc: func(ctx context.Context, taskID id.ID, req CommitRequest) (*ReceivingTask, error) {
			gotToken = req.IdempotencyToken
			done := task.Clone()
			done.Status = StatusCommitted
			return done, nil
		},
	}
	s := NewSession(mock, mock)
	require.NoError(t, s.Bind(task))

	_, err := s.Commit(context.Background(), CommitOptions{IdempotencyToken: "tok-1"})
	require.NoError(t, err)
	assert.Equal(t, "tok-1", gotToken)
}

func TestCommit_GeneratesTokenWhenNoneSupplied(t *testing.T) {
	item := id.New()
	task := newTestTask(ReceivingLine{ItemID: item, ExpectedQty: intp(1), ScannedQty: 1})
	task.Status = StatusScanned
	var gotToken string
	mock := &MockCollaborator{
		CommitFunc: func(ctx context.Context, taskID id.ID, req CommitRequest) (*ReceivingTask, error) {
			gotToken = req.IdempotencyToken
			done := task.Clone()
			done.Status = StatusCommitted
			return done, nil
		},
	}
	s := NewSession(mock, mock)
	require.NoError(t, s.Bind(task))

	_, err := s.Commit(context.Background(), CommitOptions{})
	require.NoError(t, err)
	assert.NotEmpty(t, gotToken)
}

func TestCommit_EmitsTaskCommittedEvent(t *testing.T) {
	item := id.New()
	task := newTestTask(ReceivingLine{ItemID: item, ExpectedQty: intp(2), ScannedQty: 2})
	task.Status = StatusScanned
	s, _ := boundSession(task)

	var events []TaskEvent
	s.Notifier().Subscribe(func(e TaskEvent) {
		if e.Kind == EventTaskCommitted {
			events = append(events, e)
		}
	})

	_, err := s.Commit(context.Background(), CommitOptions{})
	require.NoError(t, err)

	require.Len(t, events, 1)
	assert.Equal(t, task.ID, events[0].TaskID)
	require.NotNil(t, events[0].Task)
	assert.Equal(t, StatusCommitted, events[0].Task.Status)
}

func TestComputeMismatches_OnlyPlannedLines(t *testing.T) {
	matched := id.New()
	short := id.New()
	task := newTestTask(
		ReceivingLine{ItemID: matched, ExpectedQty: intp(4), ScannedQty: 4},
		ReceivingLine{ItemID: short, ExpectedQty: intp(6), ScannedQty: 1},
		ReceivingLine{ItemID: id.New(), ScannedQty: 50}, // unplanned, ignored
	)

	got := ComputeMismatches(task)

	require.Len(t, got, 1)
	assert.Equal(t, MismatchLine{ItemID: short, Expected: 6, Actual: 1}, got[0])
}
