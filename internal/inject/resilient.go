package inject

import (
	"context"
	"time"

	"github.com/davfehr/typestream/internal/resilience"
)

// Resilient wraps one or more typing backends in a failover group with
// per-backend circuit breakers. When the primary tool keeps failing (its
// daemon died, the display went away) the breaker opens and instructions are
// routed to the next backend instead of spawning a doomed subprocess per
// keystroke batch.
type Resilient struct {
	group *resilience.FallbackGroup[Injector]
}

var _ Injector = (*Resilient)(nil)

// NewResilient builds a failover injector with primary as the first backend.
func NewResilient(primaryName string, primary Injector) *Resilient {
	return &Resilient{
		group: resilience.NewFallbackGroup(primary, primaryName, resilience.FallbackConfig{
			CircuitBreaker: resilience.CircuitBreakerConfig{
				MaxFailures:  3,
				ResetTimeout: 10 * time.Second,
			},
		}),
	}
}

// AddFallback appends another backend, tried after the ones already
// registered.
func (r *Resilient) AddFallback(name string, in Injector) {
	r.group.AddFallback(name, in)
}

// Inject routes the instruction to the first healthy backend.
func (r *Resilient) Inject(ctx context.Context, in Instruction) error {
	return r.group.Execute(func(backend Injector) error {
		return backend.Inject(ctx, in)
	})
}
