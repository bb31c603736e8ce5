package steps

import (
	"context"

	"github.com/jblacketter/aegis"
)

// verifyStep triggers a downstream verification-only test run.
type verifyStep struct {
	baseStep
}

func newVerifyStep(entry aegis.ServiceEntry) aegis.StepHandler {
	return verifyStep{newBaseStep(entry)}
}

func (verifyStep) StepType() string { return "verify" }

func (s verifyStep) Execute(ctx context.Context, _ *aegis.RunContext) aegis.StepResult {
	data, err := s.post(ctx, "/api/runs", map[string]any{"verify_only": true})
	if err != nil {
		return aegis.StepResult{StepType: s.StepType(), Service: s.entry.Name, Success: false, Error: err.Error()}
	}
	failures, _ := data["failures"].([]any)
	return aegis.StepResult{
		StepType: s.StepType(),
		Service:  s.entry.Name,
		Success:  true,
		Data: map[string]any{
			"total":       data["total"],
			"passed":      data["passed"],
			"failed":      data["failed"],
			"failures":    failures,
			"verify_only": true,
		},
	}
}

func init() {
	aegis.RegisterStepKind("verify", newVerifyStep)
}
