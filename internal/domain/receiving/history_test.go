package receiving

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanHistory_AppendAssignsIDAndTimestamp(t *testing.T) {
	h := NewScanHistory()
	h.Append(HistoryEntry{RawInput: "x", OK: true})

	last, ok := h.Last()
	require.True(t, ok)
	assert.False(t, last.Timestamp.IsZero())
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", last.ID.String())
}

func TestScanHistory_EvictsOldestFirst(t *testing.T) {
	h := NewScanHistory()
	for i := 0; i < HistoryCap+1; i++ {
		h.Append(HistoryEntry{RawInput: strconv.Itoa(i), OK: true})
	}

	entries := h.Entries()
	require.Len(t, entries, HistoryCap)
	// Entry "0" was evicted; the window is 1..100 oldest-first.
	assert.Equal(t, "1", entries[0].RawInput)
	assert.Equal(t, strconv.Itoa(HistoryCap), entries[len(entries)-1].RawInput)
}

func TestScanHistory_EntriesReturnsCopy(t *testing.T) {
	h := NewScanHistory()
	h.Append(HistoryEntry{RawInput: "a", OK: true})

	entries := h.Entries()
	entries[0].RawInput = "mutated"

	fresh := h.Entries()
	assert.Equal(t, "a", fresh[0].RawInput)
}
