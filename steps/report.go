package steps

import (
	"context"

	"github.com/jblacketter/aegis"
)

// reportStep is internal: it makes no HTTP call and instead summarizes the
// run's prior step results into a structured report.
type reportStep struct {
	entry aegis.ServiceEntry
}

func newReportStep(entry aegis.ServiceEntry) aegis.StepHandler {
	return reportStep{entry: entry}
}

func (reportStep) StepType() string { return "report" }

func (s reportStep) Execute(_ context.Context, rc *aegis.RunContext) aegis.StepResult {
	var passed, failed, skipped int
	var totalDuration float64
	steps := make([]map[string]any, 0, len(rc.StepResults))
	for _, r := range rc.StepResults {
		switch {
		case r.Skipped:
			skipped++
		case r.Success:
			passed++
		default:
			failed++
		}
		totalDuration += r.DurationMS
		steps = append(steps, map[string]any{
			"step_type":   r.StepType,
			"service":     r.Service,
			"success":     r.Success,
			"skipped":     r.Skipped,
			"duration_ms": r.DurationMS,
			"error":       r.Error,
		})
	}

	return aegis.StepResult{
		StepType: s.StepType(),
		Service:  s.entry.Name,
		Success:  true,
		Data: map[string]any{
			"summary": map[string]any{
				"total":   len(rc.StepResults),
				"passed":  passed,
				"failed":  failed,
				"skipped": skipped,
			},
			"total_duration_ms": totalDuration,
			"steps":             steps,
		},
	}
}

func init() {
	aegis.RegisterStepKind("report", newReportStep)
}
