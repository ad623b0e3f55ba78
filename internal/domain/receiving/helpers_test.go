package receiving

import (
	"inbound/internal/core/id"
)

func intp(v int) *int { return &v }

func newTestTask(lines ...ReceivingLine) *ReceivingTask {
	return &ReceivingTask{
		ID:          id.New(),
		SourceType:  SourcePurchaseOrder,
		WarehouseID: id.New(),
		Status:      StatusDraft,
		Lines:       lines,
	}
}

// boundSession returns a session over a memory collaborator with the task
// seeded and bound.
func boundSession(task *ReceivingTask) (*Session, *MemoryCollaborator) {
	mem := NewMemoryCollaborator()
	mem.Put(task)
	s := NewSession(mem, mem)
	if err := s.Bind(task); err != nil {
		panic(err)
	}
	return s, mem
}
