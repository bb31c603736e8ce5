package aegis

import (
	"context"
	"log/slog"
)

// discardHandler is a slog.Handler that drops every record, used as the
// default when a component is constructed without an explicit logger.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

var discardLog = slog.New(discardHandler{})

// discardLogger returns the shared no-op logger.
func discardLogger() *slog.Logger {
	return discardLog
}
