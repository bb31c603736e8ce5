package aegis

import "context"

// Engine is the public entry point: constructed once from a Config and
// optional collaborators, its sole operation is Run. Step kinds are
// registered globally by blank-importing the packages that implement
// them (see package steps) — the engine itself is agnostic to which
// kinds exist.
type Engine struct {
	runner *PipelineRunner
}

// EngineOption configures an Engine at construction time.
type EngineOption func(*engineConfig)

type engineConfig struct {
	history HistoryStore
	emitter *EventEmitter
	tracer  Tracer
}

// WithEngineHistory attaches a HistoryStore to the engine.
func WithEngineHistory(h HistoryStore) EngineOption {
	return func(c *engineConfig) { c.history = h }
}

// WithEngineEmitter attaches an EventEmitter to the engine.
func WithEngineEmitter(e *EventEmitter) EngineOption {
	return func(c *engineConfig) { c.emitter = e }
}

// WithEngineTracer attaches optional span instrumentation.
func WithEngineTracer(t Tracer) EngineOption {
	return func(c *engineConfig) { c.tracer = t }
}

// New builds an Engine from a Config, per spec §6: "Engine is constructed
// from {config, history?, emitter?}".
func New(cfg *Config, opts ...EngineOption) *Engine {
	ec := &engineConfig{}
	for _, opt := range opts {
		opt(ec)
	}

	var pipelineOpts []PipelineOption
	if ec.history != nil {
		pipelineOpts = append(pipelineOpts, WithHistory(ec.history))
	}
	if ec.emitter != nil {
		pipelineOpts = append(pipelineOpts, WithEmitter(ec.emitter))
	}
	if ec.tracer != nil {
		pipelineOpts = append(pipelineOpts, WithTracer(ec.tracer))
	}
	pipelineOpts = append(pipelineOpts, WithPipelineLogger(cfg.Logger))

	return &Engine{runner: NewPipelineRunner(cfg.Workflows, cfg.Services, pipelineOpts...)}
}

// Run executes the named workflow and returns its structured result. It
// never returns an error — unknown workflows surface as a synthetic
// failing StepResult within the WorkflowResult itself.
func (e *Engine) Run(ctx context.Context, workflowName string) WorkflowResult {
	return e.runner.Run(ctx, workflowName)
}
