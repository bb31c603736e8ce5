package aegis

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"
)

// PipelineRunner orchestrates workflow execution: batching, conditional
// skipping, per-step retry and timeout, parallel fan-out, event emission,
// and history recording.
type PipelineRunner struct {
	workflows map[string]WorkflowDef
	registry  *ServiceRegistry
	condition *ConditionEvaluator
	emitter   *EventEmitter
	history   HistoryStore
	tracer    Tracer
	logger    *slog.Logger
}

// PipelineOption configures a PipelineRunner.
type PipelineOption func(*PipelineRunner)

// WithHistory attaches a HistoryStore. Without one, runs are not persisted.
func WithHistory(h HistoryStore) PipelineOption {
	return func(p *PipelineRunner) { p.history = h }
}

// WithEmitter attaches an EventEmitter. Without one, events are not
// emitted anywhere (an internal no-op emitter is still used so the
// runner's logic does not need nil checks).
func WithEmitter(e *EventEmitter) PipelineOption {
	return func(p *PipelineRunner) { p.emitter = e }
}

// WithTracer attaches optional span instrumentation.
func WithTracer(t Tracer) PipelineOption {
	return func(p *PipelineRunner) { p.tracer = t }
}

// WithPipelineLogger sets the structured logger used for warnings (e.g.
// unknown conditions) and history-persistence failures.
func WithPipelineLogger(l *slog.Logger) PipelineOption {
	return func(p *PipelineRunner) { p.logger = l }
}

// NewPipelineRunner builds a runner over the given workflows and services.
func NewPipelineRunner(workflows map[string]WorkflowDef, services map[string]ServiceEntry, opts ...PipelineOption) *PipelineRunner {
	p := &PipelineRunner{
		workflows: workflows,
		registry:  NewServiceRegistry(services),
		logger:    discardLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.emitter == nil {
		p.emitter = NewEventEmitter(p.logger)
	}
	p.condition = NewConditionEvaluator(p.logger)
	return p
}

// batch is a maximal run of consecutive parallel steps, or a single
// non-parallel step.
type batch struct {
	steps    []StepDef
	parallel bool
}

// buildBatches partitions steps into contiguous batches per spec §4.3: a
// non-parallel step flushes any open parallel run; a trailing parallel run
// is flushed at the end.
func buildBatches(steps []StepDef) []batch {
	var batches []batch
	var open []StepDef
	for _, s := range steps {
		if s.Parallel {
			open = append(open, s)
			continue
		}
		if len(open) > 0 {
			batches = append(batches, batch{steps: open, parallel: true})
			open = nil
		}
		batches = append(batches, batch{steps: []StepDef{s}, parallel: false})
	}
	if len(open) > 0 {
		batches = append(batches, batch{steps: open, parallel: true})
	}
	return batches
}

// Run executes the named workflow and returns a structured result. It
// never returns an error: unknown workflows are reported as a synthetic
// failing StepResult, per spec.
func (p *PipelineRunner) Run(ctx context.Context, name string) WorkflowResult {
	workflow, ok := p.workflows[name]
	if !ok {
		return WorkflowResult{
			WorkflowName: name,
			Steps: []StepResult{{
				StepType: "error",
				Service:  "aegis",
				Success:  false,
				Error:    (&ErrUnknownWorkflow{Name: name}).Error(),
			}},
		}
	}

	if p.tracer != nil {
		var span Span
		ctx, span = p.tracer.Start(ctx, "workflow.run", StringAttr("workflow.name", name))
		defer span.End()
	}

	rc := newRunContext()
	result := WorkflowResult{WorkflowName: name}
	startedAt := NowUTC()

	p.emitter.Emit(ctx, WorkflowEvent{
		EventType:    EventWorkflowStarted,
		Timestamp:    startedAt,
		WorkflowName: name,
		Data:         map[string]any{"step_count": len(workflow.Steps)},
	})

	failureEmitted := false
	for _, b := range buildBatches(workflow.Steps) {
		var results []StepResult
		if b.parallel {
			results = p.runParallel(ctx, b.steps, rc)
		} else {
			results = []StepResult{p.resolveAndExecute(ctx, b.steps[0], rc.snapshot())}
		}
		for _, r := range results {
			rc.append(r)
			result.Steps = append(result.Steps, r)
			if r.Skipped {
				continue
			}
			p.emitter.Emit(ctx, WorkflowEvent{
				EventType:    EventStepCompleted,
				Timestamp:    NowUTC(),
				WorkflowName: name,
				Data: map[string]any{
					"step_type":   r.StepType,
					"service":     r.Service,
					"success":     r.Success,
					"duration_ms": r.DurationMS,
				},
			})
			if !r.Success && !failureEmitted {
				failureEmitted = true
				errMsg := r.Error
				if errMsg == "" {
					errMsg = "Unknown error"
				}
				p.emitter.Emit(ctx, WorkflowEvent{
					EventType:    EventFailureDetected,
					Timestamp:    NowUTC(),
					WorkflowName: name,
					Data: map[string]any{
						"step_type": r.StepType,
						"service":   r.Service,
						"error":     errMsg,
					},
				})
			}
		}
	}

	completedAt := NowUTC()
	passed, failed := 0, 0
	for _, s := range result.Steps {
		if s.Skipped {
			continue
		}
		if s.Success {
			passed++
		} else {
			failed++
		}
	}
	success := result.Success()
	p.emitter.Emit(ctx, WorkflowEvent{
		EventType:    EventWorkflowCompleted,
		Timestamp:    completedAt,
		WorkflowName: name,
		Data: map[string]any{
			"success":            success,
			"total_duration_ms":  float64(completedAt.Sub(startedAt)) / float64(time.Millisecond),
			"steps_passed":       passed,
			"steps_failed":       failed,
		},
	})

	if p.history != nil {
		record := ExecutionRecord{
			WorkflowName: name,
			StartedAt:    startedAt,
			CompletedAt:  &completedAt,
			Success:      success,
		}
		for _, s := range result.Steps {
			attempts := len(s.Attempts)
			if attempts == 0 {
				attempts = 1
			}
			record.Steps = append(record.Steps, StepRecord{
				StepType:   s.StepType,
				Service:    s.Service,
				Success:    s.Success,
				Skipped:    s.Skipped,
				DurationMS: s.DurationMS,
				Error:      s.Error,
				Attempts:   attempts,
			})
		}
		if err := p.history.Record(ctx, record); err != nil {
			p.logger.Error("history persistence failed", "workflow", name, "error", err)
		}
	}

	return result
}

// runParallel launches every step in the batch concurrently against a
// shared snapshot of the context taken before the batch started, and waits
// for all to complete. Results preserve the batch's declaration order.
func (p *PipelineRunner) runParallel(ctx context.Context, steps []StepDef, rc *RunContext) []StepResult {
	snapshot := rc.snapshot()
	results := make([]StepResult, len(steps))
	var wg sync.WaitGroup
	wg.Add(len(steps))
	for i, s := range steps {
		go func(i int, s StepDef) {
			defer wg.Done()
			results[i] = p.resolveAndExecute(ctx, s, snapshot)
		}(i, s)
	}
	wg.Wait()
	return results
}

// resolveAndExecute implements spec §4.4.
func (p *PipelineRunner) resolveAndExecute(ctx context.Context, step StepDef, priorResults []StepResult) StepResult {
	step = step.WithDefaults()

	if p.condition.ShouldSkip(step.Condition, priorResults) {
		return StepResult{
			StepType: step.Type,
			Service:  step.Service,
			Success:  true,
			Skipped:  true,
			Data:     map[string]any{"message": fmt.Sprintf("Skipped: condition '%s' not met", step.Condition)},
		}
	}

	entry, ok := p.registry.Get(step.Service)
	if !ok {
		return StepResult{
			StepType: step.Type,
			Service:  step.Service,
			Success:  false,
			Error:    (&ErrUnknownService{Service: step.Service}).Error(),
		}
	}

	factory, ok := LookupStepKind(step.Type)
	if !ok {
		return StepResult{
			StepType: step.Type,
			Service:  entry.Name,
			Success:  false,
			Error:    (&ErrUnknownStepType{Type: step.Type}).Error(),
		}
	}

	handler := factory(entry)
	rc := &RunContext{StepResults: priorResults}
	if p.tracer == nil {
		return p.executeWithRetry(ctx, handler, step, entry.Name, rc)
	}
	ctx, span := p.tracer.Start(ctx, "step.execute", StringAttr("step.type", step.Type), StringAttr("service.name", entry.Name))
	defer span.End()
	result := p.executeWithRetry(ctx, handler, step, entry.Name, rc)
	span.SetAttr(BoolAttr("step.success", result.Success), IntAttr("step.attempt", len(result.Attempts)))
	return result
}

// executeWithRetry implements spec §4.5: exponential backoff between
// attempts, and a hard per-step timeout that synthesizes a failing result
// when it fires.
func (p *PipelineRunner) executeWithRetry(ctx context.Context, handler StepHandler, step StepDef, serviceName string, rc *RunContext) StepResult {
	maxAttempts := step.Retries + 1
	var attempts []Attempt
	var last StepResult

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		start := time.Now()
		result := p.executeOnce(ctx, handler, step, serviceName, rc)
		elapsedMS := float64(time.Since(start)) / float64(time.Millisecond)
		result.DurationMS = elapsedMS

		attempts = append(attempts, Attempt{
			Attempt:    attempt,
			Success:    result.Success,
			Error:      result.Error,
			DurationMS: elapsedMS,
		})
		last = result

		if result.Success || attempt == maxAttempts {
			break
		}

		delay := time.Duration(math.Pow(2, float64(attempt-1)) * step.RetryDelaySeconds * float64(time.Second))
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			last.Error = ctx.Err().Error()
			attempts[len(attempts)-1].Error = last.Error
			last.Attempts = attempts
			return last
		case <-timer.C:
		}
	}

	last.Attempts = attempts
	return last
}

// executeOnce runs a single attempt, bounding it by the step's hard
// timeout. When the timeout fires, a synthetic failing StepResult is
// returned instead of the handler's (possibly still in-flight) outcome.
func (p *PipelineRunner) executeOnce(ctx context.Context, handler StepHandler, step StepDef, serviceName string, rc *RunContext) StepResult {
	timeout := time.Duration(step.TimeoutSeconds * float64(time.Second))
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan StepResult, 1)
	go func() {
		done <- handler.Execute(attemptCtx, rc)
	}()

	select {
	case r := <-done:
		return r
	case <-attemptCtx.Done():
		return StepResult{
			StepType: step.Type,
			Service:  serviceName,
			Success:  false,
			Error:    fmt.Sprintf("Step timed out after %gs", step.TimeoutSeconds),
		}
	}
}
