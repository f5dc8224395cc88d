// Package ops provides a best-effort job event publisher.
//
// Events pass through a sampler and a circuit breaker before reaching the
// sink. Delivery failures are logged and counted but never returned: a job
// must not fail because its telemetry could not be delivered.
package ops

import (
	"context"
	"log/slog"
	"time"

	audit "smileid/pkg/platform/audit"
)

// Publisher fronts a sink with sampling and a circuit breaker.
type Publisher struct {
	sink    audit.Publisher
	sampler *Sampler
	breaker *CircuitBreaker
	metrics *Metrics
	logger  *slog.Logger
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets a logger for delivery failures.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// WithSampler replaces the default keep-everything sampler.
func WithSampler(s *Sampler) Option {
	return func(p *Publisher) {
		p.sampler = s
	}
}

// WithCircuitBreaker replaces the default circuit breaker.
func WithCircuitBreaker(cb *CircuitBreaker) Option {
	return func(p *Publisher) {
		p.breaker = cb
	}
}

// New creates a publisher delivering to sink.
func New(sink audit.Publisher, opts ...Option) *Publisher {
	p := &Publisher{
		sink:    sink,
		sampler: NewSampler(1),
		breaker: NewCircuitBreaker(5, time.Minute),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit delivers the event if it survives sampling and the breaker is closed.
// It always returns nil.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if !p.sampler.ShouldSample(event.Action) {
		p.metrics.incSampled()
		return nil
	}
	if !p.breaker.Allow() {
		p.metrics.incDropped()
		return nil
	}

	if err := p.sink.Emit(ctx, event); err != nil {
		p.breaker.RecordFailure()
		p.metrics.incFailures()
		p.metrics.setBreakerState(p.breaker.IsOpen())
		if p.logger != nil {
			p.logger.WarnContext(ctx, "job event delivery failed",
				"action", event.Action,
				"job_id", event.JobID,
				"error", err,
			)
		}
		return nil
	}

	p.breaker.RecordSuccess()
	p.metrics.setBreakerState(false)
	p.metrics.incTracked()
	return nil
}
