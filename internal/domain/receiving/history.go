package receiving

import (
	"time"

	"inbound/internal/core/id"
)

// HistoryCap is the maximum number of entries the scan history retains.
const HistoryCap = 100

// HistoryEntry is one client-local audit record of a capture attempt.
// Entries are never persisted server-side.
type HistoryEntry struct {
	ID        id.ID     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	RawInput  string    `json:"rawInput"`
	ItemID    *id.ID    `json:"itemId,omitempty"`
	Qty       int       `json:"qty"`
	OK        bool      `json:"ok"`
	Error     string    `json:"error,omitempty"`
}

// ScanHistory is an append-only ring of the most recent capture attempts.
// When the cap is exceeded the oldest entry is evicted first. Appends are the
// only mutation, so any capture channel may record without coordination.
type ScanHistory struct {
	cap     int
	entries []HistoryEntry
}

// NewScanHistory creates an empty history with the default cap.
func NewScanHistory() *ScanHistory {
	return &ScanHistory{cap: HistoryCap}
}

// Append records an entry, assigning ID and timestamp when unset,
// and trims the oldest entries beyond the cap.
func (h *ScanHistory) Append(e HistoryEntry) {
	if id.IsNil(e.ID) {
		e.ID = id.New()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	h.entries = append(h.entries, e)
	if len(h.entries) > h.cap {
		h.entries = h.entries[len(h.entries)-h.cap:]
	}
}

// Entries returns a copy of the retained entries in append order
// (oldest first).
func (h *ScanHistory) Entries() []HistoryEntry {
	out := make([]HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Len returns the number of retained entries.
func (h *ScanHistory) Len() int {
	return len(h.entries)
}

// Last returns the most recent entry, or false when the history is empty.
func (h *ScanHistory) Last() (HistoryEntry, bool) {
	if len(h.entries) == 0 {
		return HistoryEntry{}, false
	}
	return h.entries[len(h.entries)-1], true
}
