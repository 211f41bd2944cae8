package gpio

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultPulse is how long the power key is held. The modem toggles its
// power state on every press of at least a second.
const DefaultPulse = 2 * time.Second

// PowerKey switches the modem through its power key. The key toggles, so
// PowerKey keeps track of the state it last drove the modem into and only
// presses the key when a transition is needed.
type PowerKey struct {
	mu     sync.Mutex
	line   Line
	pulse  time.Duration
	on     bool
	logger *slog.Logger
}

type PowerKeyOption func(*PowerKey)

// WithPulse sets how long the key is held.
func WithPulse(d time.Duration) PowerKeyOption {
	return func(k *PowerKey) {
		if d > 0 {
			k.pulse = d
		}
	}
}

// WithInitialState declares whether the modem is powered when the
// PowerKey is created. The default is off.
func WithInitialState(on bool) PowerKeyOption {
	return func(k *PowerKey) {
		k.on = on
	}
}

func WithLogger(l *slog.Logger) PowerKeyOption {
	return func(k *PowerKey) {
		if l != nil {
			k.logger = l
		}
	}
}

// NewPowerKey creates a PowerKey on line.
func NewPowerKey(line Line, opts ...PowerKeyOption) *PowerKey {
	k := &PowerKey{
		line:   line,
		pulse:  DefaultPulse,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

func (k *PowerKey) PowerOn(ctx context.Context) error {
	return k.drive(ctx, true)
}

func (k *PowerKey) PowerOff(ctx context.Context) error {
	return k.drive(ctx, false)
}

// Assume records that the modem is known to be on or off without pressing
// the key, for example after it answered a probe.
func (k *PowerKey) Assume(on bool) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.on != on {
		k.logger.Debug("Power state corrected", "on", on)
	}
	k.on = on
}

// On reports the state the modem was last driven into.
func (k *PowerKey) On() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.on
}

func (k *PowerKey) drive(ctx context.Context, on bool) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.on == on {
		return nil
	}
	if err := k.press(ctx); err != nil {
		return err
	}
	k.on = on
	k.logger.Info("Power key pressed", "on", on)
	return nil
}

// press holds the key for the pulse duration. The key is always released,
// also when ctx ends early; a cut-short press does not toggle the modem.
func (k *PowerKey) press(ctx context.Context) error {
	if err := k.line.High(); err != nil {
		return fmt.Errorf("press power key: %w", err)
	}

	timer := time.NewTimer(k.pulse)
	defer timer.Stop()

	var waitErr error
	select {
	case <-timer.C:
	case <-ctx.Done():
		waitErr = ctx.Err()
	}

	if err := k.line.Low(); err != nil {
		return fmt.Errorf("release power key: %w", err)
	}
	return waitErr
}
