package aegis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestEngineRunDelegatesToRunner(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"routes": []string{"/ping"}})
	}))
	defer srv.Close()

	cfg := &Config{
		Identity: Identity{Name: "Aegis", Version: "test"},
		Services: map[string]ServiceEntry{"qa": {Key: "qa", Name: "QA", URL: srv.URL}},
		Workflows: map[string]WorkflowDef{
			"nightly": {Name: "nightly", Steps: []StepDef{{Type: "discover", Service: "qa"}}},
		},
		Logger: discardLogger(),
	}

	history := NewInMemoryHistory()
	engine := New(cfg, WithEngineHistory(history))
	result := engine.Run(context.Background(), "nightly")

	if !result.Success() {
		t.Fatalf("expected success, got %+v", result)
	}
	recs, err := history.GetHistory(context.Background(), "nightly")
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Errorf("expected the engine's history option to be wired through to the runner")
	}
}
