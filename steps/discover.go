package steps

import (
	"context"

	"github.com/jblacketter/aegis"
)

// discoverStep calls a service's route-discovery endpoint.
type discoverStep struct {
	baseStep
}

func newDiscoverStep(entry aegis.ServiceEntry) aegis.StepHandler {
	return discoverStep{newBaseStep(entry)}
}

func (discoverStep) StepType() string { return "discover" }

func (s discoverStep) Execute(ctx context.Context, _ *aegis.RunContext) aegis.StepResult {
	data, err := s.get(ctx, "/api/routes")
	if err != nil {
		return aegis.StepResult{StepType: s.StepType(), Service: s.entry.Name, Success: false, Error: err.Error()}
	}
	routes, _ := data["routes"].([]any)
	return aegis.StepResult{
		StepType: s.StepType(),
		Service:  s.entry.Name,
		Success:  true,
		Data: map[string]any{
			"routes":      routes,
			"route_count": len(routes),
		},
	}
}

func init() {
	aegis.RegisterStepKind("discover", newDiscoverStep)
}
