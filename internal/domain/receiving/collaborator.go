package receiving

import (
	"context"
	"time"

	"inbound/internal/core/id"
)

// CaptureRequest is one incremental update to a task line. QtyDelta is always
// a delta, never an absolute value: the server owns running totals. A zero
// delta with metadata fields is a meta-only edit.
type CaptureRequest struct {
	ItemID         id.ID      `json:"itemId"`
	QtyDelta       int        `json:"qtyDelta"`
	BatchCode      string     `json:"batchCode,omitempty"`
	ProductionDate *time.Time `json:"productionDate,omitempty"`
	ExpiryDate     *time.Time `json:"expiryDate,omitempty"`
}

// CommitRequest carries the idempotency/trace token for the terminal commit.
type CommitRequest struct {
	IdempotencyToken string `json:"idempotencyToken"`
}

// ScanRecord is a decoded barcode payload. The workflow never parses raw
// scanner input itself; a Decoder collaborator produces this record.
// A nil ItemID means the code carried no usable item identifier.
type ScanRecord struct {
	ItemID         *id.ID     `json:"itemId,omitempty"`
	Qty            int        `json:"qty"`
	BatchCode      string     `json:"batchCode,omitempty"`
	ProductionDate *time.Time `json:"productionDate,omitempty"`
	ExpiryDate     *time.Time `json:"expiryDate,omitempty"`
	Raw            string     `json:"raw"`
}

// CaptureApplier is the persistence collaborator for capture operations.
// Apply must be idempotent per call and must return the full authoritative
// task snapshot, not a partial diff.
type CaptureApplier interface {
	Apply(ctx context.Context, taskID id.ID, req CaptureRequest) (*ReceivingTask, error)
}

// Committer finalizes a task. It must fail with a structured error, not a
// silent no-op, when the task does not meet server-side hard validation -
// the client's own gate checks are a UX optimization, not a substitute.
type Committer interface {
	Commit(ctx context.Context, taskID id.ID, req CommitRequest) (*ReceivingTask, error)
}

// Collaborator bundles the two persistence contracts a session needs.
type Collaborator interface {
	CaptureApplier
	Committer
}

// Decoder produces parsed scan records from raw scanner input.
type Decoder interface {
	Decode(raw string) (ScanRecord, error)
}
