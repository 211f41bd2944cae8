package modem

import (
	"context"
	"fmt"
	"time"

	"i4.energy/across/sim868/at"
)

// DefaultCallDuration is how long Call holds the line when no duration is
// given.
const DefaultCallDuration = 10 * time.Second

// Call dials number with the hands-free audio path, holds the call for
// hold, then hangs up. The hang-up is sent even when dialing was not
// accepted, in which case ErrCallFailed is returned.
func (m *Modem) Call(ctx context.Context, number string, hold time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if hold <= 0 {
		hold = DefaultCallDuration
	}

	m.engine.Execute(at.Cmd(at.AudioHandsfree))
	dialed := m.engine.ExecuteBool(at.Cmd(at.Dial(number)))
	if dialed {
		m.logger.Info("Call established", "number", number, "hold", hold)
	} else {
		m.logger.Warn("Dial not accepted", "number", number)
	}
	m.clock.Sleep(hold)
	m.engine.Execute(at.Cmd(at.HangUp))

	if !dialed {
		return fmt.Errorf("%w: %s", ErrCallFailed, number)
	}
	return nil
}
