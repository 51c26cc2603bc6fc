package recount

import (
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// Progress receives run progress signals. Start is called once with the
// number of selected subjects, Advance once per completed subject and Finish
// once at the end of a successful run.
type Progress interface {
	Start(total int)
	Advance()
	Finish()
}

type nopProgress struct{}

func (nopProgress) Start(int) {}
func (nopProgress) Advance()  {}
func (nopProgress) Finish()   {}

// Resolver maps a subject kind name or alias to the canonical kind stored on
// subjects.
type Resolver interface {
	Resolve(name string) (string, error)
}

// Option configures an Engine.
type Option func(*Engine)

// WithProgress sets the progress sink.
func WithProgress(progress Progress) Option {
	return func(e *Engine) {
		if progress != nil {
			e.progress = progress
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithTracerProvider sets the provider used for run and subject spans.
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(e *Engine) {
		if provider != nil {
			e.tracer = provider.Tracer(tracerName)
		}
	}
}

// WithPageSize bounds how many events are read per page.
func WithPageSize(size int) Option {
	return func(e *Engine) {
		if size > 0 {
			e.pageSize = size
		}
	}
}
