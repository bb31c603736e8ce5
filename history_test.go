package aegis

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryHistoryRecordAndGetHistory(t *testing.T) {
	h := NewInMemoryHistory()
	ctx := context.Background()

	older := ExecutionRecord{WorkflowName: "nightly", StartedAt: time.Now().Add(-time.Hour)}
	newer := ExecutionRecord{WorkflowName: "nightly", StartedAt: time.Now()}

	if err := h.Record(ctx, older); err != nil {
		t.Fatal(err)
	}
	if err := h.Record(ctx, newer); err != nil {
		t.Fatal(err)
	}

	recs, err := h.GetHistory(ctx, "nightly")
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Fatalf("len(recs) = %d, want 2", len(recs))
	}
	if !recs[0].StartedAt.Equal(newer.StartedAt) {
		t.Error("expected newest-first ordering")
	}
}

func TestInMemoryHistoryGetAll(t *testing.T) {
	h := NewInMemoryHistory()
	ctx := context.Background()
	h.Record(ctx, ExecutionRecord{WorkflowName: "a", StartedAt: time.Now()})
	h.Record(ctx, ExecutionRecord{WorkflowName: "b", StartedAt: time.Now()})

	all, err := h.GetAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("len(all) = %d, want 2 workflow groups", len(all))
	}
}

func TestInMemoryHistoryGetRecentRespectsLimit(t *testing.T) {
	h := NewInMemoryHistory()
	ctx := context.Background()
	base := time.Now()
	for i := 0; i < 5; i++ {
		h.Record(ctx, ExecutionRecord{
			WorkflowName: "wf",
			StartedAt:    base.Add(time.Duration(i) * time.Minute),
		})
	}

	recent, err := h.GetRecent(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 2 {
		t.Fatalf("len(recent) = %d, want 2", len(recent))
	}
	if !recent[0].StartedAt.After(recent[1].StartedAt) {
		t.Error("expected newest-first ordering across workflows")
	}
}
