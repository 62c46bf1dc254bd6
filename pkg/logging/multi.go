package logging

import (
	"context"
	"errors"
	"log/slog"
)

// Sink is one destination of a MultiHandler. Records below Floor are not
// passed to Handler even when Handler itself would accept them.
type Sink struct {
	Handler slog.Handler
	Floor   Level
}

// MultiHandler fans each record out to several sinks, each with its own
// minimum level. nt uses it to send everything to the log file while only
// warnings reach the terminal.
type MultiHandler struct {
	sinks []Sink
}

// NewMultiHandler returns a handler over sinks. Sinks with a nil Handler
// are dropped.
func NewMultiHandler(sinks ...Sink) *MultiHandler {
	kept := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s.Handler != nil {
			kept = append(kept, s)
		}
	}
	return &MultiHandler{sinks: kept}
}

func (s Sink) enabled(ctx context.Context, level slog.Level) bool {
	return level >= s.Floor && s.Handler.Enabled(ctx, level)
}

// Enabled reports whether any sink takes records at level.
func (h *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, s := range h.sinks {
		if s.enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle writes r to every sink that takes its level. A failing sink does
// not stop the others; their errors are joined.
func (h *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, s := range h.sinks {
		if !s.enabled(ctx, r.Level) {
			continue
		}
		if err := s.Handler.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WithAttrs applies attrs to every sink.
func (h *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.derive(func(sh slog.Handler) slog.Handler { return sh.WithAttrs(attrs) })
}

// WithGroup applies the group to every sink.
func (h *MultiHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return h.derive(func(sh slog.Handler) slog.Handler { return sh.WithGroup(name) })
}

func (h *MultiHandler) derive(fn func(slog.Handler) slog.Handler) *MultiHandler {
	sinks := make([]Sink, len(h.sinks))
	for i, s := range h.sinks {
		sinks[i] = Sink{Handler: fn(s.Handler), Floor: s.Floor}
	}
	return &MultiHandler{sinks: sinks}
}
