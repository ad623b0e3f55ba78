package receiving

import (
	"strings"

	"inbound/internal/core/id"
)

// DraftBuffer holds typed-but-unsubmitted manual quantities per line.
// It is ephemeral, per-task, never persisted: created when a task is bound and
// discarded when the task is unbound or committed.
type DraftBuffer struct {
	inputs map[id.ID]string
	// submitted tracks the last value successfully applied per line, so
	// retyping an already-applied value does not count as dirty.
	submitted map[id.ID]string
}

// NewDraftBuffer creates an empty draft buffer.
func NewDraftBuffer() *DraftBuffer {
	return &DraftBuffer{
		inputs:    make(map[id.ID]string),
		submitted: make(map[id.ID]string),
	}
}

// Set records the operator's typed input for a line.
func (b *DraftBuffer) Set(itemID id.ID, raw string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		delete(b.inputs, itemID)
		return
	}
	b.inputs[itemID] = raw
}

// Get returns the buffered input for a line, or empty string.
func (b *DraftBuffer) Get(itemID id.ID) string {
	return b.inputs[itemID]
}

// MarkSubmitted records that the line's buffered value was successfully
// applied, and clears the buffered input for that line. Only a successful
// submit may clear dirtiness for a line.
func (b *DraftBuffer) MarkSubmitted(itemID id.ID) {
	if v, ok := b.inputs[itemID]; ok {
		b.submitted[itemID] = v
		delete(b.inputs, itemID)
	}
}

// ClearLine discards the buffered input for one line without submitting it.
func (b *DraftBuffer) ClearLine(itemID id.ID) {
	delete(b.inputs, itemID)
}

// Clear discards all buffered input and submission tracking.
func (b *DraftBuffer) Clear() {
	b.inputs = make(map[id.ID]string)
	b.submitted = make(map[id.ID]string)
}

// LineDirty reports whether the line has unsubmitted non-empty input
// differing from its last submitted value.
func (b *DraftBuffer) LineDirty(itemID id.ID) bool {
	v, ok := b.inputs[itemID]
	if !ok || v == "" {
		return false
	}
	return v != b.submitted[itemID]
}

// Dirty reports whether any line would, if submitted, change committed state.
func (b *DraftBuffer) Dirty() bool {
	for itemID := range b.inputs {
		if b.LineDirty(itemID) {
			return true
		}
	}
	return false
}
