package aegis

import "context"

// StepHandler performs one unit of work against a downstream service and
// reports the outcome as a StepResult. Implementations must catch any
// transport-level or remote error themselves and report it via
// StepResult.Error rather than returning a Go error — the runner never
// sees handler-level errors directly.
type StepHandler interface {
	StepType() string
	Execute(ctx context.Context, rc *RunContext) StepResult
}

// StepFactory constructs a StepHandler bound to a specific ServiceEntry.
type StepFactory func(entry ServiceEntry) StepHandler

var stepRegistry = map[string]StepFactory{}

// RegisterStepKind adds a step type to the global StepKind registry. Called
// from package init for each built-in handler; tests may register
// additional fakes under test-only type tags.
func RegisterStepKind(stepType string, factory StepFactory) {
	stepRegistry[stepType] = factory
}

// LookupStepKind returns the factory registered for stepType, if any.
func LookupStepKind(stepType string) (StepFactory, bool) {
	f, ok := stepRegistry[stepType]
	return f, ok
}
