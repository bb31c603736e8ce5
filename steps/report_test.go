package steps

import (
	"context"
	"testing"

	"github.com/jblacketter/aegis"
)

func TestReportStepSummarizesPriorResults(t *testing.T) {
	factory, ok := aegis.LookupStepKind("report")
	if !ok {
		t.Fatal("report step kind not registered")
	}
	handler := factory(aegis.ServiceEntry{Name: "Reporter"})

	rc := &aegis.RunContext{StepResults: []aegis.StepResult{
		{StepType: "discover", Success: true, DurationMS: 10},
		{StepType: "test", Success: false, Error: "boom", DurationMS: 20},
		{StepType: "submit_bugs", Skipped: true},
	}}

	result := handler.Execute(context.Background(), rc)
	if !result.Success {
		t.Fatalf("report step itself should always succeed: %+v", result)
	}

	summary := result.Data["summary"].(map[string]any)
	if summary["total"] != 3 || summary["passed"] != 1 || summary["failed"] != 1 || summary["skipped"] != 1 {
		t.Errorf("summary = %+v, want total=3 passed=1 failed=1 skipped=1", summary)
	}
	if result.Data["total_duration_ms"] != float64(30) {
		t.Errorf("total_duration_ms = %v, want 30", result.Data["total_duration_ms"])
	}
}
