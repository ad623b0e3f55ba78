package receiving

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"inbound/internal/core/id"
)

func allDisabled(c Capabilities) bool {
	return !c.CanScan && !c.CanManualReceive && !c.CanEditMeta && !c.CanCommit
}

func TestResolveCapabilities_NoTaskBound(t *testing.T) {
	got := ResolveCapabilities(nil, false, false, VarianceSummary{})

	assert.True(t, allDisabled(got))
	assert.Equal(t, "no task bound", got.BlockedReason)
}

func TestResolveCapabilities_TerminalStatuses(t *testing.T) {
	for _, status := range []TaskStatus{StatusCommitted, StatusCanceled, StatusClosed} {
		task := newTestTask(ReceivingLine{ItemID: id.New(), ExpectedQty: intp(1), ScannedQty: 1})
		task.Status = status

		got := ResolveCapabilities(task, false, false, Summarize(task))

		assert.True(t, allDisabled(got), "status %s", status)
		assert.Contains(t, got.BlockedReason, string(status))
	}
}

func TestResolveCapabilities_CommitInFlight(t *testing.T) {
	task := newTestTask(ReceivingLine{ItemID: id.New(), ExpectedQty: intp(1), ScannedQty: 1})
	task.Status = StatusScanned

	got := ResolveCapabilities(task, true, false, Summarize(task))

	assert.True(t, allDisabled(got))
	assert.Equal(t, "commit in progress", got.BlockedReason)
}

func TestResolveCapabilities_DirtyDraftBlocksCommitOnly(t *testing.T) {
	task := newTestTask(ReceivingLine{ItemID: id.New(), ExpectedQty: intp(5), ScannedQty: 5})
	task.Status = StatusScanned

	got := ResolveCapabilities(task, false, true, Summarize(task))

	// Capture stays enabled: it is what resolves the draft.
	assert.True(t, got.CanScan)
	assert.True(t, got.CanManualReceive)
	assert.True(t, got.CanEditMeta)
	assert.False(t, got.CanCommit)
	assert.Equal(t, "unsubmitted manual input must be applied first", got.BlockedReason)
}

func TestResolveCapabilities_NothingCaptured(t *testing.T) {
	task := newTestTask(ReceivingLine{ItemID: id.New(), ExpectedQty: intp(5)})

	got := ResolveCapabilities(task, false, false, Summarize(task))

	assert.True(t, got.CanScan)
	assert.True(t, got.CanManualReceive)
	assert.True(t, got.CanEditMeta)
	assert.False(t, got.CanCommit)
	assert.NotEmpty(t, got.BlockedReason)
}

func TestResolveCapabilities_OpenIdle(t *testing.T) {
	task := newTestTask(ReceivingLine{ItemID: id.New(), ExpectedQty: intp(5), ScannedQty: 5})
	task.Status = StatusScanned

	got := ResolveCapabilities(task, false, false, Summarize(task))

	assert.True(t, got.CanScan)
	assert.True(t, got.CanManualReceive)
	assert.True(t, got.CanEditMeta)
	assert.True(t, got.CanCommit)
	assert.Empty(t, got.BlockedReason)
}

func TestResolveCapabilities_CommittedIsAbsorbing(t *testing.T) {
	task := newTestTask(ReceivingLine{ItemID: id.New(), ExpectedQty: intp(3), ScannedQty: 3})
	task.Status = StatusCommitted

	// No combination of flags re-enables anything for a committed task.
	for _, inFlight := range []bool{false, true} {
		for _, dirty := range []bool{false, true} {
			got := ResolveCapabilities(task, inFlight, dirty, Summarize(task))
			assert.True(t, allDisabled(got), "inFlight=%v dirty=%v", inFlight, dirty)
		}
	}
}

func TestResolveCapabilities_DirtyDraftAlwaysBlocksCommit(t *testing.T) {
	// Property: canCommit is false whenever the draft is dirty, regardless
	// of scanned totals or status.
	tasks := []*ReceivingTask{
		newTestTask(ReceivingLine{ItemID: id.New(), ExpectedQty: intp(1), ScannedQty: 1}),
		newTestTask(ReceivingLine{ItemID: id.New(), ScannedQty: 40}),
		newTestTask(),
	}
	for _, task := range tasks {
		task.Status = StatusScanned
		got := ResolveCapabilities(task, false, true, Summarize(task))
		assert.False(t, got.CanCommit)
	}
}
