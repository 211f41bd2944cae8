package modem

import (
	"context"
	"time"

	"i4.energy/across/sim868/at"
)

// registrationRetryDelay separates failed registration polls.
const registrationRetryDelay = 5 * time.Second

// NetworkReport describes a RegisterNetwork run.
type NetworkReport struct {
	// Registered is true when AT+CGREG? reported 0,1.
	Registered bool
	// Attempts is the number of registration polls sent.
	Attempts int
	// Steps holds the configuration sequence that followed.
	Steps []Step
}

// Failed returns the configuration steps that did not reply OK.
func (r NetworkReport) Failed() []Step {
	var failed []Step
	for _, s := range r.Steps {
		if !s.Result.OK() {
			failed = append(failed, s)
		}
	}
	return failed
}

// networkSequence follows the registration poll.
func networkSequence(apn string) []at.Command {
	return []at.Command{
		at.Cmd(at.SimStatus),
		at.Cmd(at.SignalQuality),
		at.Cmd(at.Operator),
		at.Cmd(at.GPRSAttached),
		at.Cmd(at.PDPContext),
		at.Cmd(at.TaskAPN),
		at.Cmd(at.SetTaskAPN(apn)),
		at.Cmd(at.BringUpWireless),
		at.Cmd(at.LocalIP),
	}
}

// RegisterNetwork polls the registration status, then issues the GPRS
// configuration sequence with the configured APN.
//
// The sequence runs whether or not registration was ever reported and
// continues past failed steps; every result is returned in the report. In
// strict mode an unregistered modem yields ErrNotRegistered and the first
// failed step stops the sequence with ErrStepFailed.
func (m *Modem) RegisterNetwork(ctx context.Context) (NetworkReport, error) {
	var report NetworkReport

	poll := at.Cmd(at.RegistrationStatus).Expecting(at.Registered)
	for attempt := 1; attempt <= m.config.RegistrationAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Attempts = attempt
		if m.engine.ExecuteBool(poll) {
			report.Registered = true
			m.logger.Info("Modem is online", "attempt", attempt)
			break
		}
		m.logger.Info("Modem is offline, please wait", "attempt", attempt)
		m.clock.Sleep(registrationRetryDelay)
	}

	if report.Registered {
		m.enter(StateNetworkRegistered)
	} else {
		m.enter(StateNetworkUnregistered)
		if m.config.Strict {
			return report, ErrNotRegistered
		}
	}

	steps, err := m.run(ctx, networkSequence(m.config.APN))
	report.Steps = steps
	if failed := report.Failed(); len(failed) > 0 {
		m.logger.Warn("Network configuration incomplete", "failed", len(failed), "total", len(steps))
	}
	return report, err
}

// ConfigureBearer sets up bearer profile 1 (GPRS with the configured APN)
// used by the HTTP application, then opens and queries it. Like the
// network sequence it does not stop on failure unless strict.
func (m *Modem) ConfigureBearer(ctx context.Context) ([]Step, error) {
	return m.run(ctx, []at.Command{
		at.Cmd(at.BearerGPRS),
		at.Cmd(at.BearerAPN(m.config.APN)),
		at.Cmd(at.BearerOpen),
		at.Cmd(at.BearerQuery),
	})
}
