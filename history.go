package aegis

import (
	"context"
	"sort"
	"sync"
	"time"
)

// StepRecord is the durable projection of a StepResult: it carries the
// attempt count rather than per-attempt detail.
type StepRecord struct {
	StepType   string
	Service    string
	Success    bool
	Skipped    bool
	DurationMS float64
	Error      string
	Attempts   int
}

// ExecutionRecord is a single persisted workflow run.
type ExecutionRecord struct {
	WorkflowName string
	StartedAt    time.Time
	CompletedAt  *time.Time
	Success      bool
	Steps        []StepRecord
}

// HistoryStore records ExecutionRecords and serves them back, most recent
// first. Two implementations satisfy it: InMemoryHistory and the durable
// SQLite-backed store in store/sqlite.
type HistoryStore interface {
	Record(ctx context.Context, execution ExecutionRecord) error
	GetHistory(ctx context.Context, workflowName string) ([]ExecutionRecord, error)
	GetAll(ctx context.Context) (map[string][]ExecutionRecord, error)
	GetRecent(ctx context.Context, limit int) ([]ExecutionRecord, error)
}

// InMemoryHistory is a HistoryStore backed by a mutex-guarded map. It
// applies no retention pruning.
type InMemoryHistory struct {
	mu      sync.Mutex
	records map[string][]ExecutionRecord
}

// NewInMemoryHistory returns an empty InMemoryHistory.
func NewInMemoryHistory() *InMemoryHistory {
	return &InMemoryHistory{records: make(map[string][]ExecutionRecord)}
}

func (h *InMemoryHistory) Record(_ context.Context, execution ExecutionRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records[execution.WorkflowName] = append(h.records[execution.WorkflowName], execution)
	return nil
}

func (h *InMemoryHistory) GetHistory(_ context.Context, workflowName string) ([]ExecutionRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	recs := h.records[workflowName]
	out := make([]ExecutionRecord, len(recs))
	copy(out, recs)
	sortNewestFirst(out)
	return out, nil
}

func (h *InMemoryHistory) GetAll(_ context.Context) (map[string][]ExecutionRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string][]ExecutionRecord, len(h.records))
	for k, v := range h.records {
		cp := make([]ExecutionRecord, len(v))
		copy(cp, v)
		sortNewestFirst(cp)
		out[k] = cp
	}
	return out, nil
}

func (h *InMemoryHistory) GetRecent(_ context.Context, limit int) ([]ExecutionRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var all []ExecutionRecord
	for _, v := range h.records {
		all = append(all, v...)
	}
	sortNewestFirst(all)
	if limit >= 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func sortNewestFirst(recs []ExecutionRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].StartedAt.After(recs[j].StartedAt)
	})
}
