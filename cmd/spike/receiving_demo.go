package main

import (
	"context"
	"encoding/json"
	"fmt"

	"inbound/internal/core/id"
	"inbound/internal/domain/receiving"
)

// Walks the receiving workflow end to end against the in-memory collaborator:
// bind, scan, manual entry, metadata fix, mismatch confirmation, commit.
func main() {
	ctx := context.Background()

	widget := id.New()
	gadget := id.New()
	task := &receiving.ReceivingTask{
		ID:          id.New(),
		SourceType:  receiving.SourcePurchaseOrder,
		WarehouseID: id.New(),
		Status:      receiving.StatusDraft,
		Lines: []receiving.ReceivingLine{
			{ItemID: widget, ExpectedQty: intp(5)},
			{ItemID: gadget, ExpectedQty: intp(10), RequiresBatch: true},
		},
	}

	mem := receiving.NewMemoryCollaborator()
	mem.Put(task)

	session := receiving.NewSession(mem, mem)
	session.Notifier().Subscribe(func(e receiving.TaskEvent) {
		fmt.Printf("event: %s task=%s\n", e.Kind, e.TaskID)
	})

	if err := session.Bind(task); err != nil {
		panic(err)
	}

	// Scan the widget three times through the structured decoder.
	decoder := receiving.KeyedDecoder{}
	for i := 0; i < 3; i++ {
		rec, err := decoder.Decode("ITM=" + widget.String() + ";QTY=1")
		if err != nil {
			panic(err)
		}
		if err := session.Scan(ctx, rec); err != nil {
			panic(err)
		}
	}

	fmt.Println("After scanning:")
	dump(session.Variance())
	dump(session.Capabilities())

	// Manually receive the full expected quantity of the gadget.
	session.SetManualInput(gadget, "10")
	if err := session.SubmitManual(ctx, gadget); err != nil {
		panic(err)
	}

	// First commit attempt: the gadget line still has no batch.
	if _, err := session.Commit(ctx, receiving.CommitOptions{}); err != nil {
		fmt.Println("commit blocked:", err)
	}

	if err := session.EditLineMeta(ctx, gadget, receiving.LineMeta{BatchCode: "B-2026-08"}); err != nil {
		panic(err)
	}

	// Second attempt: widget is 3 of 5, so confirmation is required.
	if _, err := session.Commit(ctx, receiving.CommitOptions{}); err != nil {
		fmt.Println("confirmation required:", err)
		for _, m := range session.MismatchLines() {
			fmt.Printf("  item %s expected %d actual %d\n", m.ItemID, m.Expected, m.Actual)
		}
	}

	committed, err := session.Commit(ctx, receiving.CommitOptions{ConfirmMismatch: true})
	if err != nil {
		panic(err)
	}

	fmt.Println("Committed snapshot:")
	dump(committed)

	fmt.Println("Capture history:")
	for _, h := range session.History() {
		fmt.Printf("  ok=%v input=%q qty=%d err=%q\n", h.OK, h.RawInput, h.Qty, h.Error)
	}
}

func dump(v any) {
	bytes, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(bytes))
}

func intp(v int) *int { return &v }
