// Package receiving implements the receiving task commit workflow: incremental
// quantity capture through scan and manual channels against one bound task,
// followed by a single gated, irreversible commit.
//
// The server is the sole source of truth for quantities and status. A
// ReceivingTask held by this package is always a snapshot returned by the
// persistence collaborator; it is replaced wholesale and never field-mutated
// by the client.
package receiving

import (
	"time"

	"inbound/internal/core/id"
)

// TaskStatus is the lifecycle state of a receiving task.
type TaskStatus string

const (
	StatusDraft     TaskStatus = "DRAFT"
	StatusScanned   TaskStatus = "SCANNED"
	StatusCommitted TaskStatus = "COMMITTED"
	StatusCanceled  TaskStatus = "CANCELED"
	StatusClosed    TaskStatus = "CLOSED"
)

// Terminal reports whether the status permits no further mutation.
func (s TaskStatus) Terminal() bool {
	switch s {
	case StatusCommitted, StatusCanceled, StatusClosed:
		return true
	}
	return false
}

// SourceType identifies the document a receiving task originates from.
type SourceType string

const (
	SourcePurchaseOrder SourceType = "PURCHASE_ORDER"
	SourceOrderReturn   SourceType = "ORDER_RETURN"
)

// ReceivingTask is the aggregate root for one inbound receiving event.
// Created by the order/task-creation collaborator, mutated only through
// capture operations until committed, never deleted client-side.
type ReceivingTask struct {
	ID          id.ID      `json:"id"`
	SourceType  SourceType `json:"sourceType"`
	SourceID    *id.ID     `json:"sourceId,omitempty"`
	WarehouseID id.ID      `json:"warehouseId"`
	Status      TaskStatus `json:"status"`

	// Lines are unique by ItemID for planned lines.
	Lines []ReceivingLine `json:"lines"`
}

// ReceivingLine is one expected-or-actual item within a task.
type ReceivingLine struct {
	ItemID   id.ID  `json:"itemId"`
	POLineID *id.ID `json:"poLineId,omitempty"`

	BatchCode      string     `json:"batchCode,omitempty"`
	ProductionDate *time.Time `json:"productionDate,omitempty"`
	ExpiryDate     *time.Time `json:"expiryDate,omitempty"`

	// ExpectedQty is nil for lines that were not planned. Unplanned lines
	// are never subject to hard validation gates.
	ExpectedQty *int `json:"expectedQty,omitempty"`

	// ScannedQty is server-confirmed and monotonically non-decreasing.
	// Advanced only by applying a non-negative delta through a capture
	// operation; the client never computes it locally.
	ScannedQty int `json:"scannedQty"`

	// Status is a free-form server status string.
	Status string `json:"status,omitempty"`

	// Server policy flags (e.g. shelf-life-tracked items).
	RequiresBatch bool `json:"requiresBatch"`
	RequiresDates bool `json:"requiresDates"`
}

// Planned reports whether the line has an expected quantity.
// A line explicitly planned at zero is still a planned line.
func (l *ReceivingLine) Planned() bool {
	return l.ExpectedQty != nil
}

// IsTerminal reports whether the task is in a terminal status.
func (t *ReceivingTask) IsTerminal() bool {
	return t.Status.Terminal()
}

// Line returns the line for itemID, or nil when the task has none.
func (t *ReceivingTask) Line(itemID id.ID) *ReceivingLine {
	for i := range t.Lines {
		if t.Lines[i].ItemID == itemID {
			return &t.Lines[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the task. Collaborator implementations use it
// to hand out snapshots that callers cannot alias into shared state.
func (t *ReceivingTask) Clone() *ReceivingTask {
	if t == nil {
		return nil
	}
	cp := *t
	cp.SourceID = copyIDPtr(t.SourceID)
	cp.Lines = make([]ReceivingLine, len(t.Lines))
	for i, l := range t.Lines {
		cl := l
		cl.POLineID = copyIDPtr(l.POLineID)
		cl.ProductionDate = copyTimePtr(l.ProductionDate)
		cl.ExpiryDate = copyTimePtr(l.ExpiryDate)
		cl.ExpectedQty = copyIntPtr(l.ExpectedQty)
		cp.Lines[i] = cl
	}
	return &cp
}

func copyIDPtr(v *id.ID) *id.ID {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func copyTimePtr(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func copyIntPtr(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
