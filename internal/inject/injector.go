package inject

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
)

// ErrNoBackend indicates that no supported typing tool is installed.
var ErrNoBackend = errors.New("inject: no injection backend available (install ydotool or xdotool)")

// Injector performs a delete-then-type instruction at the current cursor.
// The delete must complete before the insert starts; no other writer may
// interleave between the two.
type Injector interface {
	Inject(ctx context.Context, in Instruction) error
}

// Detect picks the best available backend: ydotool when its daemon is
// running (works natively on Wayland), otherwise xdotool (X11 and
// XWayland). When both tools are installed the second becomes a failover
// behind a [Resilient] wrapper.
func Detect(ctx context.Context, log *slog.Logger) (Injector, error) {
	haveYdotool := false
	if _, err := exec.LookPath("ydotool"); err == nil {
		if err := exec.CommandContext(ctx, "pgrep", "-x", "ydotoold").Run(); err == nil {
			haveYdotool = true
		} else {
			log.Info("ydotool found but ydotoold daemon not running, trying xdotool")
		}
	}
	_, xdoErr := exec.LookPath("xdotool")
	haveXdotool := xdoErr == nil

	switch {
	case haveYdotool && haveXdotool:
		log.Info("text injection backend selected", "backend", "ydotool", "fallback", "xdotool")
		r := NewResilient("ydotool", &Ydotool{})
		r.AddFallback("xdotool", &Xdotool{})
		return r, nil
	case haveYdotool:
		log.Info("text injection backend selected", "backend", "ydotool")
		return &Ydotool{}, nil
	case haveXdotool:
		log.Info("text injection backend selected", "backend", "xdotool")
		return &Xdotool{}, nil
	default:
		return nil, ErrNoBackend
	}
}

// Ydotool types through the ydotool CLI. Requires the ydotoold daemon.
type Ydotool struct{}

var _ Injector = (*Ydotool)(nil)

func (y *Ydotool) Inject(ctx context.Context, in Instruction) error {
	for i := 0; i < in.DeleteCount; i++ {
		// Keycode 14 is KEY_BACKSPACE; ydotool key takes press/release
		// pairs.
		if out, err := exec.CommandContext(ctx, "ydotool", "key", "14:1", "14:0").CombinedOutput(); err != nil {
			return fmt.Errorf("inject: ydotool backspace: %w: %s", err, out)
		}
	}
	if in.Text == "" {
		return nil
	}
	if out, err := exec.CommandContext(ctx, "ydotool", "type", "--key-delay=0", "--", in.Text).CombinedOutput(); err != nil {
		return fmt.Errorf("inject: ydotool type: %w: %s", err, out)
	}
	return nil
}

// Xdotool types through the xdotool CLI.
type Xdotool struct{}

var _ Injector = (*Xdotool)(nil)

func (x *Xdotool) Inject(ctx context.Context, in Instruction) error {
	if in.DeleteCount > 0 {
		args := []string{"key", "--delay", "0", "--repeat", strconv.Itoa(in.DeleteCount), "BackSpace"}
		if out, err := exec.CommandContext(ctx, "xdotool", args...).CombinedOutput(); err != nil {
			return fmt.Errorf("inject: xdotool backspace: %w: %s", err, out)
		}
	}
	if in.Text == "" {
		return nil
	}
	if out, err := exec.CommandContext(ctx, "xdotool", "type", "--clearmodifiers", "--delay", "0", "--", in.Text).CombinedOutput(); err != nil {
		return fmt.Errorf("inject: xdotool type: %w: %s", err, out)
	}
	return nil
}
