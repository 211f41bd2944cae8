package modem

import (
	"context"
	"fmt"

	"i4.energy/across/sim868/at"
)

// SendSMS sends a text message to number in text mode.
//
// The body is written byte for byte after the modem's ">" prompt and
// terminated with Ctrl-Z. The submit acknowledgement (+CMGS: <ref> and OK)
// is collected for SMSSubmitTimeout so the next command cannot run into
// it; its classification against OK is returned. Delivery to the recipient
// happens asynchronously and is not observed.
func (m *Modem) SendSMS(ctx context.Context, number, message string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	m.engine.Execute(at.Cmd(at.TextMode))
	if !m.engine.ExecuteBool(at.Cmd(at.SendSMS(number)).Expecting(at.Prompt)) {
		m.logger.Warn("SMS not sent, no input prompt", "number", number)
		return Result{}, fmt.Errorf("%w: %s", ErrNoPrompt, at.Prompt)
	}

	if err := m.engine.Write([]byte(message)); err != nil {
		return Result{}, fmt.Errorf("write SMS body: %w", err)
	}
	if err := m.engine.Write([]byte(at.CtrlZ)); err != nil {
		return Result{}, fmt.Errorf("write SMS terminator: %w", err)
	}

	ack := Match(m.engine.Collect(m.config.SMSSubmitTimeout), at.OK)
	if ack.OK() {
		m.logger.Info("SMS submitted", "number", number, "bytes", len(message))
	} else {
		m.logger.Warn("SMS submit not acknowledged", "number", number, "outcome", ack.Outcome.String(), "response", ack.Text())
	}
	return ack, nil
}
