package aegis

import "fmt"

// ErrUnknownWorkflow describes a Run call with a name absent from the
// configured WorkflowDef set. Run does not return it; its message becomes
// the Error of the synthetic failing StepResult.
type ErrUnknownWorkflow struct {
	Name string
}

func (e *ErrUnknownWorkflow) Error() string {
	return fmt.Sprintf("Unknown workflow: %s", e.Name)
}

// ErrUnknownService describes a StepDef that references a service key
// not present in the ServiceRegistry. Its message becomes the Error of the
// step's failing StepResult.
type ErrUnknownService struct {
	Service string
}

func (e *ErrUnknownService) Error() string {
	return fmt.Sprintf("Unknown service: %s", e.Service)
}

// ErrUnknownStepType describes a StepDef that references a step type with
// no registered StepFactory. Its message becomes the Error of the step's
// failing StepResult.
type ErrUnknownStepType struct {
	Type string
}

func (e *ErrUnknownStepType) Error() string {
	return fmt.Sprintf("Unknown step type: %s", e.Type)
}

// ErrConfigNotFound is returned when LoadConfig cannot locate a config
// file by walking upward from the start directory.
type ErrConfigNotFound struct {
	Filename string
}

func (e *ErrConfigNotFound) Error() string {
	return fmt.Sprintf("could not find %s in any ancestor directory", e.Filename)
}

// ErrHTTP wraps a non-2xx response from a downstream service call.
type ErrHTTP struct {
	Status int
	Body   string
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}
