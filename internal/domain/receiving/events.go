package receiving

import (
	"time"

	"inbound/internal/core/id"
)

// EventKind identifies what changed on a task.
type EventKind string

const (
	EventTaskBound      EventKind = "task_bound"
	EventTaskUnbound    EventKind = "task_unbound"
	EventCaptureApplied EventKind = "capture_applied"
	EventTaskCommitted  EventKind = "task_committed"
)

// TaskEvent is a typed task-changed notification. External consumers (list
// views, dashboards) subscribe to refresh without coupling to the session.
// Task is the post-change snapshot; nil for unbind events.
type TaskEvent struct {
	Kind   EventKind
	TaskID id.ID
	Task   *ReceivingTask
	At     time.Time
}

// Listener receives task events. Listeners run synchronously on the
// publishing goroutine and must not block.
type Listener func(TaskEvent)

// Notifier fans task events out to registered listeners.
type Notifier struct {
	listeners []Listener
}

// NewNotifier creates an empty notifier.
func NewNotifier() *Notifier {
	return &Notifier{}
}

// Subscribe registers a listener for all task events.
func (n *Notifier) Subscribe(l Listener) {
	n.listeners = append(n.listeners, l)
}

// Publish delivers an event to all listeners, stamping At when unset.
func (n *Notifier) Publish(e TaskEvent) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	for _, l := range n.listeners {
		l(e)
	}
}
