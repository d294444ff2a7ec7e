package resilience

import (
	"errors"
	"testing"
	"time"
)

// errDaemonGone stands in for a typing backend whose daemon died: every
// exec of the tool fails until the daemon is restarted.
var errDaemonGone = errors.New("ydotool: socket /run/user/1000/.ydotool_socket: connection refused")

// flakyBackend fails its first failUntil calls, then recovers.
type flakyBackend struct {
	calls     int
	failUntil int
}

func (f *flakyBackend) typeText() error {
	f.calls++
	if f.calls <= f.failUntil {
		return errDaemonGone
	}
	return nil
}

func TestNewCircuitBreakerDefaults(t *testing.T) {
	t.Parallel()
	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "ydotool"})
	if cb.maxFailures != 5 {
		t.Errorf("maxFailures = %d, want 5", cb.maxFailures)
	}
	if cb.resetTimeout != 30*time.Second {
		t.Errorf("resetTimeout = %v, want 30s", cb.resetTimeout)
	}
	if cb.halfOpenMax != 3 {
		t.Errorf("halfOpenMax = %d, want 3", cb.halfOpenMax)
	}
	if cb.State() != StateClosed {
		t.Errorf("initial state = %v, want closed", cb.State())
	}
}

func TestExecuteForwardsWhileClosed(t *testing.T) {
	t.Parallel()
	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "ydotool", MaxFailures: 3})
	backend := &flakyBackend{}
	if err := cb.Execute(backend.typeText); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if backend.calls != 1 {
		t.Fatalf("backend calls = %d, want 1", backend.calls)
	}
}

func TestDeadBackendTripsBreaker(t *testing.T) {
	t.Parallel()
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:         "ydotool",
		MaxFailures:  3,
		ResetTimeout: time.Hour,
	})
	backend := &flakyBackend{failUntil: 100}

	for i := 0; i < 3; i++ {
		if err := cb.Execute(backend.typeText); !errors.Is(err, errDaemonGone) {
			t.Fatalf("call %d: err = %v, want daemon error", i, err)
		}
	}
	if cb.State() != StateOpen {
		t.Fatalf("state = %v, want open after 3 consecutive failures", cb.State())
	}

	// Once open the breaker must not exec the tool again.
	err := cb.Execute(backend.typeText)
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
	if backend.calls != 3 {
		t.Fatalf("backend calls = %d, want 3 (no call while open)", backend.calls)
	}
}

func TestIntermittentFailuresDoNotTrip(t *testing.T) {
	t.Parallel()
	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "dictionary", MaxFailures: 3})

	// Two dropped store queries, then one that goes through: the counter
	// resets, so two more failures still leave the breaker closed.
	_ = cb.Execute(func() error { return errDaemonGone })
	_ = cb.Execute(func() error { return errDaemonGone })
	_ = cb.Execute(func() error { return nil })
	_ = cb.Execute(func() error { return errDaemonGone })
	_ = cb.Execute(func() error { return errDaemonGone })

	if cb.State() != StateClosed {
		t.Fatalf("state = %v, want closed (success resets the failure count)", cb.State())
	}
}

func TestBreakerAdmitsProbesAfterResetTimeout(t *testing.T) {
	t.Parallel()
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:         "ydotool",
		MaxFailures:  2,
		ResetTimeout: 10 * time.Millisecond,
		HalfOpenMax:  2,
	})
	_ = cb.Execute(func() error { return errDaemonGone })
	_ = cb.Execute(func() error { return errDaemonGone })
	if cb.State() != StateOpen {
		t.Fatal("expected open")
	}

	time.Sleep(15 * time.Millisecond)

	if cb.State() != StateHalfOpen {
		t.Fatalf("state = %v, want half-open after reset timeout", cb.State())
	}
}

func TestRestartedDaemonClosesBreaker(t *testing.T) {
	t.Parallel()
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:         "ydotool",
		MaxFailures:  2,
		ResetTimeout: 10 * time.Millisecond,
		HalfOpenMax:  2,
	})
	// Daemon dies: two failures trip the breaker. After the timeout it is
	// restarted and probes succeed.
	backend := &flakyBackend{failUntil: 2}
	_ = cb.Execute(backend.typeText)
	_ = cb.Execute(backend.typeText)

	time.Sleep(15 * time.Millisecond)

	for i := 0; i < 2; i++ {
		if err := cb.Execute(backend.typeText); err != nil {
			t.Fatalf("probe %d: %v", i, err)
		}
	}
	if cb.State() != StateClosed {
		t.Fatalf("state = %v, want closed after successful probes", cb.State())
	}
}

func TestFailedProbeReopensBreaker(t *testing.T) {
	t.Parallel()
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:         "ydotool",
		MaxFailures:  2,
		ResetTimeout: 10 * time.Millisecond,
		HalfOpenMax:  3,
	})
	backend := &flakyBackend{failUntil: 100}
	_ = cb.Execute(backend.typeText)
	_ = cb.Execute(backend.typeText)

	time.Sleep(15 * time.Millisecond)

	// The daemon is still down: the first probe fails and the breaker must
	// stop admitting calls again.
	if err := cb.Execute(backend.typeText); !errors.Is(err, errDaemonGone) {
		t.Fatalf("probe err = %v, want daemon error", err)
	}
	calls := backend.calls
	if err := cb.Execute(backend.typeText); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen after failed probe", err)
	}
	if backend.calls != calls {
		t.Fatalf("backend called %d times after re-open, want no further calls", backend.calls-calls)
	}
}

func TestManualReset(t *testing.T) {
	t.Parallel()
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:         "dictionary",
		MaxFailures:  2,
		ResetTimeout: time.Hour,
	})
	_ = cb.Execute(func() error { return errDaemonGone })
	_ = cb.Execute(func() error { return errDaemonGone })
	if cb.State() != StateOpen {
		t.Fatal("expected open")
	}

	cb.Reset()
	if cb.State() != StateClosed {
		t.Fatalf("state = %v, want closed after Reset", cb.State())
	}
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("Execute after Reset: %v", err)
	}
}

func TestStateString(t *testing.T) {
	t.Parallel()
	tests := []struct {
		state State
		want  string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half-open"},
		{State(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
