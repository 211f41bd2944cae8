package modem

import (
	"context"
	"fmt"
	"time"

	"i4.energy/across/sim868/at"
)

const (
	// echoSettle follows the priming ATE1 write; the modem's parser may be
	// out of step after power-on and needs a write before it answers.
	echoSettle = 2 * time.Second
	// bootSettle follows a power cycle.
	bootSettle = 8 * time.Second
)

// Startup probes the modem until it answers AT with OK, power-cycling it
// between attempts. It returns the number of probes sent.
//
// With the default configuration Startup never gives up: the modem is
// expected to come up eventually on unattended hardware. A positive
// StartupAttempts bounds the loop and yields ErrModemUnresponsive. The
// context is checked between attempts only.
func (m *Modem) Startup(ctx context.Context) (int, error) {
	m.enter(StatePoweringUp)

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, fmt.Errorf("startup: %w", err)
		}

		if err := m.engine.WriteLine(at.EchoOn); err != nil {
			m.logger.Warn("Priming write failed", "error", err)
		}
		m.clock.Sleep(echoSettle)

		res := m.engine.Execute(at.Cmd(at.Probe))
		if res.OK() {
			assumePower(m.power, true)
			m.logger.Info("Modem is ready", "attempt", attempt)
			m.enter(StateReady)
			return attempt, nil
		}

		if limit := m.config.StartupAttempts; limit > 0 && attempt >= limit {
			return attempt, fmt.Errorf("%w after %d attempts", ErrModemUnresponsive, attempt)
		}

		m.logger.Info("Modem is starting up, please wait", "attempt", attempt, "outcome", res.Outcome.String())
		if err := m.powerCycle(ctx); err != nil {
			m.logger.Warn("Power cycle failed", "error", err)
		}
		m.clock.Sleep(bootSettle)
	}
}

// powerCycle switches the modem off and on again. For a toggling key the
// silent modem is taken as off, so the cycle is a single press.
func (m *Modem) powerCycle(ctx context.Context) error {
	assumePower(m.power, false)
	if err := m.power.PowerOff(ctx); err != nil {
		return fmt.Errorf("power off: %w", err)
	}
	if err := m.power.PowerOn(ctx); err != nil {
		return fmt.Errorf("power on: %w", err)
	}
	return nil
}
