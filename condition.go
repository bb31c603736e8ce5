package aegis

import "log/slog"

// ConditionEvaluator decides, given a condition tag and the accumulated
// StepResults of the current run, whether a step must be skipped.
type ConditionEvaluator struct {
	logger *slog.Logger
}

// NewConditionEvaluator returns a ConditionEvaluator. A nil logger falls
// back to a discard logger.
func NewConditionEvaluator(logger *slog.Logger) *ConditionEvaluator {
	if logger == nil {
		logger = discardLogger()
	}
	return &ConditionEvaluator{logger: logger}
}

// ShouldSkip evaluates condition against the prior step results of the
// current run. An empty condition never skips.
func (c *ConditionEvaluator) ShouldSkip(condition string, results []StepResult) bool {
	switch condition {
	case "":
		return false
	case "has_failures":
		for _, r := range results {
			if r.HasFailures() {
				return false
			}
		}
		return true
	case "on_success":
		for _, r := range results {
			if !r.Success {
				return true
			}
		}
		return false
	case "on_failure":
		for _, r := range results {
			if !r.Success {
				return false
			}
		}
		return true
	case "always":
		return false
	default:
		c.logger.Warn("unknown condition, running step anyway", "condition", condition)
		return false
	}
}
