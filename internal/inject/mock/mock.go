// Package mock provides a call-recording Injector for tests.
package mock

import (
	"context"
	"strconv"
	"sync"

	"github.com/davfehr/typestream/internal/inject"
)

// Injector records every instruction it receives and can replay the screen
// text they would produce.
type Injector struct {
	mu sync.Mutex

	// InjectErr, when set, is returned from every Inject call.
	InjectErr error

	// Calls holds every instruction received, in order.
	Calls []inject.Instruction
}

var _ inject.Injector = (*Injector)(nil)

func (m *Injector) Inject(_ context.Context, in inject.Instruction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InjectErr != nil {
		return m.InjectErr
	}
	m.Calls = append(m.Calls, in)
	return nil
}

// Screen replays the recorded instructions against an empty screen and
// returns the resulting text.
func (m *Injector) Screen() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	screen := []rune{}
	for _, in := range m.Calls {
		if n := len(screen) - in.DeleteCount; n >= 0 {
			screen = screen[:n]
		} else {
			screen = screen[:0]
		}
		screen = append(screen, []rune(in.Text)...)
	}
	return string(screen)
}

// CallCount returns the number of recorded instructions.
func (m *Injector) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// Strings renders the recorded instructions compactly for assertions.
func (m *Injector) Strings() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Calls))
	for i, in := range m.Calls {
		out[i] = "del=" + strconv.Itoa(in.DeleteCount) + " type=" + in.Text
	}
	return out
}
