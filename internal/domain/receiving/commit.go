package receiving

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"inbound/internal/core/apperror"
	"inbound/internal/core/id"
	"inbound/pkg/logger"
)

// CommitOptions controls one commit attempt.
type CommitOptions struct {
	// ConfirmMismatch acknowledges the expected/actual diff for this attempt.
	// Without it, a task with mismatched planned lines is held for
	// confirmation instead of being committed.
	ConfirmMismatch bool

	// IdempotencyToken overrides the generated commit token.
	IdempotencyToken string
}

// BlockedLine names a planned line that hard-blocks commit and the required
// fields it is missing.
type BlockedLine struct {
	ItemID        id.ID    `json:"itemId"`
	MissingFields []string `json:"missingFields"`
}

// MismatchLine is one planned line whose captured quantity differs from its
// expected quantity. The UI presents these as a diff requiring explicit
// operator confirmation.
type MismatchLine struct {
	ItemID   id.ID `json:"itemId"`
	Expected int   `json:"expected"`
	Actual   int   `json:"actual"`
}

// HardBlockedLines computes the planned lines that block commit: required
// batch or production date missing. Evaluated independently of scanned
// quantity - a zero-quantity planned line that requires batch/date still
// blocks, matching the server's own validation.
func HardBlockedLines(task *ReceivingTask) []BlockedLine {
	if task == nil {
		return nil
	}
	var out []BlockedLine
	for i := range task.Lines {
		line := &task.Lines[i]
		if !line.Planned() {
			continue
		}
		var missing []string
		if line.RequiresBatch && strings.TrimSpace(line.BatchCode) == "" {
			missing = append(missing, "batch")
		}
		if line.RequiresDates && line.ProductionDate == nil {
			missing = append(missing, "production date")
		}
		if len(missing) > 0 {
			out = append(out, BlockedLine{ItemID: line.ItemID, MissingFields: missing})
		}
	}
	return out
}

// ComputeMismatches returns the planned lines whose scanned quantity differs
// from the expected quantity.
func ComputeMismatches(task *ReceivingTask) []MismatchLine {
	if task == nil {
		return nil
	}
	var out []MismatchLine
	for i := range task.Lines {
		line := &task.Lines[i]
		if !line.Planned() {
			continue
		}
		if line.ScannedQty != *line.ExpectedQty {
			out = append(out, MismatchLine{
				ItemID:   line.ItemID,
				Expected: *line.ExpectedQty,
				Actual:   line.ScannedQty,
			})
		}
	}
	return out
}

// HardBlockedLines returns the hard-block list for the bound task.
func (s *Session) HardBlockedLines() []BlockedLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return HardBlockedLines(s.task)
}

// MismatchLines returns the mismatch diff for the bound task.
func (s *Session) MismatchLines() []MismatchLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ComputeMismatches(s.task)
}

// Commit is the terminal action of the workflow. Gates, in order:
//
//  1. unsubmitted manual input rejects locally
//  2. hard-blocked planned lines (missing required batch/date) reject locally
//  3. quantity mismatches require explicit confirmation via options
//  4. nothing captured rejects locally
//
// Once gates pass, the commit collaborator is invoked exactly once with an
// idempotency token. On success the task becomes COMMITTED server-side and
// the session is torn down: a fresh task must be explicitly bound before
// further action. On failure the task keeps its prior status and both capture
// and commit stay retryable. Re-invoking commit on an already committed task
// is rejected locally, never re-sent.
func (s *Session) Commit(ctx context.Context, opts CommitOptions) (*ReceivingTask, error) {
	s.mu.Lock()
	if s.task == nil {
		s.mu.Unlock()
		return nil, apperror.NewValidation("no task bound")
	}
	if s.task.Status == StatusCommitted {
		taskID := s.task.ID
		s.mu.Unlock()
		return nil, apperror.NewTerminalState(string(StatusCommitted)).
			WithDetail("reason", "already committed").
			WithDetail("task_id", taskID.String())
	}
	if s.task.IsTerminal() {
		status := s.task.Status
		s.mu.Unlock()
		return nil, apperror.NewTerminalState(string(status))
	}
	if s.commitInFlight {
		s.mu.Unlock()
		return nil, apperror.NewValidation("commit already in progress")
	}
	if s.draft.Dirty() {
		s.mu.Unlock()
		return nil, apperror.NewValidation("unsubmitted manual input exists")
	}
	if blocked := HardBlockedLines(s.task); len(blocked) > 0 {
		s.mu.Unlock()
		return nil, apperror.NewCommitBlocked(blockSummary(blocked)).
			WithDetail("lines", blocked)
	}
	if mismatches := ComputeMismatches(s.task); len(mismatches) > 0 && !opts.ConfirmMismatch {
		s.mu.Unlock()
		return nil, apperror.NewConfirmationRequired(
			fmt.Sprintf("%d line(s) differ from expected quantity", len(mismatches))).
			WithDetail("mismatches", mismatches)
	}
	if Summarize(s.task).TotalScanned <= 0 {
		s.mu.Unlock()
		return nil, apperror.NewValidation("no quantity captured yet")
	}

	token := opts.IdempotencyToken
	if token == "" {
		token = commitToken(s.task.ID, time.Now())
	}
	taskID := s.task.ID
	s.commitInFlight = true
	s.mu.Unlock()

	ctx, span := tracer.Start(ctx, "receiving.commit",
		trace.WithAttributes(
			attribute.String("task.id", taskID.String()),
			attribute.String("commit.token", token),
		))
	snapshot, err := s.committer.Commit(ctx, taskID, CommitRequest{IdempotencyToken: token})
	if err != nil {
		span.RecordError(err)
	}
	span.End()

	s.mu.Lock()
	s.commitInFlight = false
	if err != nil {
		colErr := apperror.NewCollaborator("commit", err).WithDetail("task_id", taskID.String())
		s.commitErr = colErr
		s.mu.Unlock()
		logger.Warn(ctx, "receiving commit failed", "task_id", taskID, "error", err)
		return nil, colErr
	}

	// Tear down the capture session: the committed task id must not be
	// reused for a new receiving event by accident.
	s.task = nil
	s.draft = NewDraftBuffer()
	s.activeItem = nil
	s.saving = make(map[id.ID]bool)
	s.scanErr = nil
	s.lineErrs = make(map[id.ID]error)
	s.commitErr = nil
	s.mu.Unlock()

	s.notifier.Publish(TaskEvent{Kind: EventTaskCommitted, TaskID: taskID, Task: snapshot})
	logger.Info(ctx, "receiving task committed", "task_id", taskID, "token", token)
	return snapshot, nil
}

// blockSummary names the first few offending lines and their missing fields.
func blockSummary(blocked []BlockedLine) string {
	const maxNamed = 3
	parts := make([]string, 0, maxNamed)
	for i, b := range blocked {
		if i == maxNamed {
			break
		}
		parts = append(parts, fmt.Sprintf("item %s missing %s",
			b.ItemID, strings.Join(b.MissingFields, ", ")))
	}
	summary := fmt.Sprintf("commit blocked: %s", strings.Join(parts, "; "))
	if len(blocked) > maxNamed {
		summary += fmt.Sprintf(" (and %d more)", len(blocked)-maxNamed)
	}
	return summary
}

// commitToken derives an idempotency/trace token from the task id and the
// wall clock, so one commit attempt maps to one token.
func commitToken(taskID id.ID, now time.Time) string {
	sum := sha256.Sum256([]byte(taskID.String() + "|" + strconv.FormatInt(now.UnixNano(), 10)))
	return hex.EncodeToString(sum[:])
}
