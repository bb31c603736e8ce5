package steps

import (
	"context"

	"github.com/jblacketter/aegis"
)

// submitBugsStep collects failures observed by earlier steps in the run
// and files them with a bug-tracking service.
type submitBugsStep struct {
	baseStep
}

func newSubmitBugsStep(entry aegis.ServiceEntry) aegis.StepHandler {
	return submitBugsStep{newBaseStep(entry)}
}

func (submitBugsStep) StepType() string { return "submit_bugs" }

func (s submitBugsStep) Execute(ctx context.Context, rc *aegis.RunContext) aegis.StepResult {
	var failures []any
	for _, r := range rc.StepResults {
		if fs, ok := r.Data["failures"].([]any); ok {
			failures = append(failures, fs...)
		}
	}

	if len(failures) == 0 {
		return aegis.StepResult{
			StepType: s.StepType(),
			Service:  s.entry.Name,
			Success:  true,
			Data:     map[string]any{"submitted": 0, "message": "No failures to submit"},
		}
	}

	data, err := s.post(ctx, "/api/v1/reports", map[string]any{"failures": failures})
	if err != nil {
		return aegis.StepResult{StepType: s.StepType(), Service: s.entry.Name, Success: false, Error: err.Error()}
	}
	return aegis.StepResult{
		StepType: s.StepType(),
		Service:  s.entry.Name,
		Success:  true,
		Data: map[string]any{
			"submitted": len(failures),
			"response":  data,
		},
	}
}

func init() {
	aegis.RegisterStepKind("submit_bugs", newSubmitBugsStep)
}
