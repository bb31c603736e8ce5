package aegis

import (
	"context"
	"fmt"
	"testing"
)

func TestEventLogBoundedCapacity(t *testing.T) {
	log := NewEventLog(3)
	for i := 0; i < 5; i++ {
		log.OnEvent(context.Background(), WorkflowEvent{EventType: fmt.Sprintf("e%d", i)})
	}

	recent := log.GetRecent(10, "")
	if len(recent) != 3 {
		t.Fatalf("len(recent) = %d, want 3 (capacity)", len(recent))
	}
	// newest first: e4, e3, e2
	want := []string{"e4", "e3", "e2"}
	for i, ev := range recent {
		if ev.EventType != want[i] {
			t.Errorf("recent[%d] = %s, want %s", i, ev.EventType, want[i])
		}
	}
}

func TestEventLogDefaultCapacity(t *testing.T) {
	log := NewEventLog(0)
	if log.maxSize != 100 {
		t.Errorf("default maxSize = %d, want 100", log.maxSize)
	}
}

func TestEventLogFilterByType(t *testing.T) {
	log := NewEventLog(10)
	log.OnEvent(context.Background(), WorkflowEvent{EventType: EventWorkflowStarted})
	log.OnEvent(context.Background(), WorkflowEvent{EventType: EventStepCompleted})
	log.OnEvent(context.Background(), WorkflowEvent{EventType: EventStepCompleted})

	recent := log.GetRecent(10, EventStepCompleted)
	if len(recent) != 2 {
		t.Fatalf("len(recent) = %d, want 2", len(recent))
	}
	for _, ev := range recent {
		if ev.EventType != EventStepCompleted {
			t.Errorf("unexpected event type %s in filtered results", ev.EventType)
		}
	}
}

func TestEventLogLimitTruncates(t *testing.T) {
	log := NewEventLog(10)
	for i := 0; i < 5; i++ {
		log.OnEvent(context.Background(), WorkflowEvent{EventType: fmt.Sprintf("e%d", i)})
	}
	recent := log.GetRecent(2, "")
	if len(recent) != 2 {
		t.Fatalf("len(recent) = %d, want 2", len(recent))
	}
	if recent[0].EventType != "e4" || recent[1].EventType != "e3" {
		t.Errorf("recent = %v, want [e4 e3]", recent)
	}
}
