package aegis

// RunContext is the shared per-run mapping carrying accumulated
// StepResults, visible to condition evaluation and later handlers. It is
// owned by the running workflow, appended to in declaration order, and
// discarded when the run completes.
type RunContext struct {
	StepResults []StepResult
}

// newRunContext returns an empty RunContext.
func newRunContext() *RunContext {
	return &RunContext{StepResults: []StepResult{}}
}

// append records a completed step result in the context, in order.
func (rc *RunContext) append(r StepResult) {
	rc.StepResults = append(rc.StepResults, r)
}

// snapshot returns prior results visible to condition evaluation and to a
// step about to execute — used so parallel batch peers never see each
// other's in-flight results.
func (rc *RunContext) snapshot() []StepResult {
	cp := make([]StepResult, len(rc.StepResults))
	copy(cp, rc.StepResults)
	return cp
}
