package batch

import (
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Option is a functional option for configuring an [Orchestrator] via [New].
type Option func(*options) error

type options struct {
	logger      *slog.Logger
	tp          trace.TracerProvider
	itemTimeout time.Duration
}

// WithLogger injects a custom [slog.Logger].
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		o.logger = logger
		return nil
	}
}

// WithTracerProvider records a span per batch and per item.
// The default is a no-op provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) error {
		if tp == nil {
			return errors.New("tracer provider must not be nil")
		}
		o.tp = tp
		return nil
	}
}

// WithItemTimeout bounds each item's transfer. Zero disables the bound.
func WithItemTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return errors.New("item timeout must not be negative")
		}
		o.itemTimeout = d
		return nil
	}
}
