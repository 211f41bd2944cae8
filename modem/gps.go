package modem

import (
	"context"
	"fmt"
	"time"

	"i4.energy/across/sim868/at"
)

const (
	// gnssAttempts is the number of AT+CGNSINF queries in one session.
	gnssAttempts = 9
	// gnssFixLimit ends the session once more fixes than this are recorded.
	gnssFixLimit = 3
	gnssInterval = 2 * time.Second
)

// GPSReport holds the replies of a PollGPS session.
type GPSReport struct {
	// Attempts is the number of AT+CGNSINF queries sent.
	Attempts int
	// Fixes are the raw AT+CGNSINF replies that carried a position.
	Fixes []string
}

// PollGPS powers the GNSS engine up and queries it until it has a few
// fixes or the attempts run out. GNSS power is switched off on every exit
// path, including cancellation.
//
// A reply with empty fields (",,,,") means the receiver has no fix yet. An
// empty or undecodable reply is treated the same way. ErrNoFix is returned
// when the session ends without a single fix.
func (m *Modem) PollGPS(ctx context.Context) (GPSReport, error) {
	var report GPSReport

	m.engine.Execute(at.Cmd(at.GNSSPowerOn))
	m.enter(StateGpsActive)
	defer func() {
		m.engine.Execute(at.Cmd(at.GNSSPowerOff))
		m.enter(StateReady)
	}()
	m.clock.Sleep(gnssInterval)

	for attempt := 1; attempt <= gnssAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Attempts = attempt

		res := m.engine.Send(at.GNSSInfo, 0)
		if !res.OK() || res.Contains(at.NoFix) {
			m.logger.Info("GPS is not ready", "attempt", attempt)
			if attempt < gnssAttempts {
				m.clock.Sleep(gnssInterval)
			}
			continue
		}

		report.Fixes = append(report.Fixes, res.Text())
		m.logger.Info("GPS info", "attempt", attempt, "fix", res.Text())
		if len(report.Fixes) > gnssFixLimit {
			break
		}
	}

	if len(report.Fixes) == 0 {
		m.logger.Warn("GPS positioning failed, check the GPS antenna", "attempts", report.Attempts)
		return report, fmt.Errorf("%w after %d attempts", ErrNoFix, report.Attempts)
	}
	return report, nil
}
