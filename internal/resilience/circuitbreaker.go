// Package resilience provides the circuit breaker and backend failover
// primitives behind the daemon's degraded modes.
//
// A dictation session calls out to processes and stores that can die under
// it mid-utterance: the ydotool daemon exits and every keystroke batch
// starts failing, or the dictionary store drops its connection. A
// [CircuitBreaker] stops the session from paying a fresh subprocess spawn
// or connection timeout per word once a dependency is clearly down, and a
// [FallbackGroup] reroutes work to the next healthy backend while the
// broken one recovers.
//
// All types are safe for concurrent use.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by [CircuitBreaker.Execute] while the breaker
// is open and its reset timeout has not yet elapsed.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the operating mode of a [CircuitBreaker].
type State int

const (
	// StateClosed forwards every call; the dependency is presumed healthy.
	StateClosed State = iota

	// StateOpen rejects every call with [ErrCircuitOpen]. Entered after too
	// many consecutive failures; left when the reset timeout elapses.
	StateOpen

	// StateHalfOpen admits a bounded number of probe calls to test whether
	// the dependency recovered. Enough successes close the breaker; a
	// single failure re-opens it.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig holds the tuning knobs for a [CircuitBreaker]. The
// zero value of each field selects its default.
type CircuitBreakerConfig struct {
	// Name labels the breaker in log output ("ydotool", "dictionary").
	Name string

	// MaxFailures is how many consecutive failures trip the breaker from
	// closed to open. Default: 5.
	MaxFailures int

	// ResetTimeout is how long a tripped breaker rejects calls before
	// admitting recovery probes. Default: 30s.
	ResetTimeout time.Duration

	// HalfOpenMax bounds the number of probe calls admitted in the
	// half-open state. Default: 3.
	HalfOpenMax int
}

// CircuitBreaker is a three-state breaker (closed, open, half-open) guarding
// one dependency. Construct with [NewCircuitBreaker].
type CircuitBreaker struct {
	name         string
	maxFailures  int
	resetTimeout time.Duration
	halfOpenMax  int

	mu        sync.Mutex
	state     State
	failures  int       // consecutive failures while closed
	openedAt  time.Time // time of the failure that opened the breaker
	probes    int       // probe calls admitted this half-open round
	probeWins int       // probe calls that succeeded this half-open round
}

// NewCircuitBreaker builds a breaker from cfg, filling zero fields with
// defaults.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMax <= 0 {
		cfg.HalfOpenMax = 3
	}
	return &CircuitBreaker{
		name:         cfg.Name,
		maxFailures:  cfg.MaxFailures,
		resetTimeout: cfg.ResetTimeout,
		halfOpenMax:  cfg.HalfOpenMax,
	}
}

// Execute runs fn if the breaker admits the call, then folds fn's outcome
// back into the breaker state. While open it returns [ErrCircuitOpen]
// without touching fn.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	probe, err := cb.admit()
	if err != nil {
		return err
	}
	err = fn()
	cb.observe(err, probe)
	return err
}

// admit decides whether a call may proceed, reporting whether it counts as
// a half-open probe.
func (cb *CircuitBreaker) admit() (probe bool, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if time.Since(cb.openedAt) < cb.resetTimeout {
			return false, ErrCircuitOpen
		}
		cb.state = StateHalfOpen
		cb.probes = 0
		cb.probeWins = 0
		slog.Info("circuit breaker admitting recovery probes", "breaker", cb.name)

	case StateHalfOpen:
		if cb.probes >= cb.halfOpenMax {
			// Probe budget spent; wait for the in-flight probes to settle.
			return false, ErrCircuitOpen
		}
	}

	if cb.state == StateHalfOpen {
		cb.probes++
		return true, nil
	}
	return false, nil
}

// observe records a call outcome.
func (cb *CircuitBreaker) observe(callErr error, probe bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if callErr != nil {
		if probe {
			// One failed probe is enough evidence the dependency is still
			// down.
			cb.state = StateOpen
			cb.openedAt = time.Now()
			cb.failures = cb.maxFailures
			slog.Warn("circuit breaker re-opened by failed probe", "breaker", cb.name)
			return
		}
		cb.failures++
		if cb.failures >= cb.maxFailures {
			cb.state = StateOpen
			cb.openedAt = time.Now()
			slog.Warn("circuit breaker opened",
				"breaker", cb.name, "consecutive_failures", cb.failures)
		}
		return
	}

	if probe {
		cb.probeWins++
		if cb.probeWins >= cb.halfOpenMax {
			cb.state = StateClosed
			cb.failures = 0
			cb.probes = 0
			cb.probeWins = 0
			slog.Info("circuit breaker closed after recovery probes", "breaker", cb.name)
		}
		return
	}
	cb.failures = 0
}

// State reports the breaker's effective state: an open breaker whose reset
// timeout has elapsed reads as half-open even though the transition is
// applied on the next [CircuitBreaker.Execute].
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen && time.Since(cb.openedAt) >= cb.resetTimeout {
		return StateHalfOpen
	}
	return cb.state
}

// Reset forces the breaker back to closed, discarding all failure history.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = StateClosed
	cb.failures = 0
	cb.probes = 0
	cb.probeWins = 0
	slog.Info("circuit breaker manually reset", "breaker", cb.name)
}
