package steps

import (
	"context"

	"github.com/jblacketter/aegis"
)

// runTestsStep triggers a downstream test run.
type runTestsStep struct {
	baseStep
}

func newRunTestsStep(entry aegis.ServiceEntry) aegis.StepHandler {
	return runTestsStep{newBaseStep(entry)}
}

func (runTestsStep) StepType() string { return "test" }

func (s runTestsStep) Execute(ctx context.Context, _ *aegis.RunContext) aegis.StepResult {
	data, err := s.post(ctx, "/api/runs", map[string]any{})
	if err != nil {
		return aegis.StepResult{StepType: s.StepType(), Service: s.entry.Name, Success: false, Error: err.Error()}
	}
	failures, _ := data["failures"].([]any)
	return aegis.StepResult{
		StepType: s.StepType(),
		Service:  s.entry.Name,
		Success:  true,
		Data: map[string]any{
			"total":    data["total"],
			"passed":   data["passed"],
			"failed":   data["failed"],
			"failures": failures,
		},
	}
}

func init() {
	aegis.RegisterStepKind("test", newRunTestsStep)
}
