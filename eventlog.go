package aegis

import (
	"container/ring"
	"context"
	"sync"
)

// EventLog is a bounded in-memory ring buffer of recent workflow events.
// It implements EventListener so it can be registered directly on an
// EventEmitter.
type EventLog struct {
	mu      sync.Mutex
	buf     *ring.Ring
	size    int
	maxSize int
}

// NewEventLog returns an EventLog holding at most maxSize events. maxSize
// <= 0 defaults to 100, per spec.
func NewEventLog(maxSize int) *EventLog {
	if maxSize <= 0 {
		maxSize = 100
	}
	return &EventLog{buf: ring.New(maxSize), maxSize: maxSize}
}

// OnEvent appends event to the log, evicting the oldest entry once full.
func (l *EventLog) OnEvent(_ context.Context, event WorkflowEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf.Value = event
	l.buf = l.buf.Next()
	if l.size < l.maxSize {
		l.size++
	}
}

// GetRecent returns the most recent events, newest first, truncated to
// limit and optionally filtered by eventType.
func (l *EventLog) GetRecent(limit int, eventType string) []WorkflowEvent {
	if limit <= 0 {
		return nil
	}
	l.mu.Lock()
	all := make([]WorkflowEvent, 0, l.size)
	l.buf.Do(func(v any) {
		if v == nil {
			return
		}
		all = append(all, v.(WorkflowEvent))
	})
	l.mu.Unlock()

	// ring.Do walks oldest-to-newest starting at the current cursor
	// (the next slot to be overwritten); reverse to get newest-first.
	newestFirst := make([]WorkflowEvent, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		newestFirst = append(newestFirst, all[i])
	}

	out := make([]WorkflowEvent, 0, limit)
	for _, e := range newestFirst {
		if eventType != "" && e.EventType != eventType {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out
}
