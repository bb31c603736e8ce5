// Package aegis implements a control-plane workflow orchestrator: it runs
// named, declarative workflows of ordered steps, each invoking a downstream
// HTTP service and contributing results to a shared per-run context.
package aegis
