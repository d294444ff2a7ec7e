package resilience

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrAllFailed is returned when every backend in a [FallbackGroup] either
// failed or was skipped behind an open circuit breaker.
var ErrAllFailed = errors.New("all backends failed")

// FallbackConfig configures the circuit breaker created for each backend
// registered in a [FallbackGroup].
type FallbackConfig struct {
	CircuitBreaker CircuitBreakerConfig
}

// member is one registered backend and the breaker guarding it.
type member[T any] struct {
	name    string
	backend T
	breaker *CircuitBreaker
}

// FallbackGroup routes calls to an ordered list of interchangeable
// backends: the primary first, then each fallback in registration order.
// A backend that fails passes the call to the next one; a backend whose
// breaker is open is skipped without being tried at all, so a typing tool
// with a dead daemon costs nothing per call while its breaker cools down.
//
// Assemble the group up front ([NewFallbackGroup] plus
// [FallbackGroup.AddFallback]); once assembled it is safe for concurrent
// use.
type FallbackGroup[T any] struct {
	members []member[T]
	cfg     FallbackConfig
}

// NewFallbackGroup creates a group with primary as its first backend.
func NewFallbackGroup[T any](primary T, primaryName string, cfg FallbackConfig) *FallbackGroup[T] {
	fg := &FallbackGroup[T]{cfg: cfg}
	fg.add(primaryName, primary)
	return fg
}

// AddFallback registers another backend, tried after all previously
// registered ones.
func (fg *FallbackGroup[T]) AddFallback(name string, backend T) {
	fg.add(name, backend)
}

func (fg *FallbackGroup[T]) add(name string, backend T) {
	cbCfg := fg.cfg.CircuitBreaker
	cbCfg.Name = name
	fg.members = append(fg.members, member[T]{
		name:    name,
		backend: backend,
		breaker: NewCircuitBreaker(cbCfg),
	})
}

// Execute runs fn against each backend in order until one succeeds.
// Returns [ErrAllFailed] wrapping the last error when none does.
func (fg *FallbackGroup[T]) Execute(fn func(T) error) error {
	var lastErr error
	for i := range fg.members {
		m := &fg.members[i]
		err := m.breaker.Execute(func() error { return fn(m.backend) })
		if err == nil {
			return nil
		}
		lastErr = err
		if errors.Is(err, ErrCircuitOpen) {
			slog.Debug("skipping backend, circuit open", "backend", m.name)
		} else {
			slog.Warn("backend failed, trying next", "backend", m.name, "error", err)
		}
	}
	return fmt.Errorf("%w: %v", ErrAllFailed, lastErr)
}

// ExecuteWithResult is [FallbackGroup.Execute] for calls that produce a
// value. It is a package-level function because Go does not support
// method-level type parameters.
func ExecuteWithResult[T, R any](fg *FallbackGroup[T], fn func(T) (R, error)) (R, error) {
	var out R
	err := fg.Execute(func(backend T) error {
		r, err := fn(backend)
		if err != nil {
			return err
		}
		out = r
		return nil
	})
	if err != nil {
		var zero R
		return zero, err
	}
	return out, nil
}
