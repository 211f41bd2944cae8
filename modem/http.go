package modem

import (
	"context"
	"fmt"
	"time"

	"i4.energy/across/sim868/at"
)

const (
	getActionTimeout  = 5 * time.Second
	readTimeout       = 8 * time.Second
	promptTimeout     = 3 * time.Second
	uploadLatency     = 8 * time.Second
	uploadWait        = 5 * time.Second
	postActionTimeout = 8 * time.Second
)

// DefaultContentType is the Content-Type of HTTPPost when none is given.
const DefaultContentType = "application/x-www-form-urlencoded"

func (m *Modem) openHTTP(url string) {
	m.engine.Execute(at.Cmd(at.HTTPInit))
	m.enter(StateHttpSessionOpen)
	m.engine.Execute(at.Cmd(at.HTTPBearerCID))
	m.engine.Execute(at.Cmd(at.HTTPURL(url)))
}

func (m *Modem) closeHTTP() {
	m.engine.Execute(at.Cmd(at.HTTPTerm))
	m.enter(StateReady)
}

// HTTPGet fetches url through the modem's HTTP application and returns the
// raw AT+HTTPREAD reply. The reply still carries the modem's framing
// (+HTTPREAD: <len> and the final OK) around the body.
//
// The HTTP context is terminated on every path. The bearer must already be
// open; see ConfigureBearer.
func (m *Modem) HTTPGet(ctx context.Context, url string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.openHTTP(url)
	defer m.closeHTTP()

	action := at.Cmd(at.HTTPGetAction).Expecting(at.HTTPOK).Within(getActionTimeout)
	if !m.engine.ExecuteBool(action) {
		m.logger.Warn("HTTP GET failed", "url", url)
		return nil, fmt.Errorf("%w: GET %s", ErrHTTPActionFailed, url)
	}

	body := m.engine.Send(at.HTTPRead, readTimeout)
	m.logger.Info("HTTP GET succeeded", "url", url, "bytes", len(body.Raw))
	return body.Raw, nil
}

// HTTPPost uploads payload to url. An empty contentType selects
// DefaultContentType.
//
// When the modem never prints the DOWNLOAD prompt the payload is not
// written, no action is issued, and ErrNoPrompt is returned. In that case
// the HTTP context is left open unless the modem is strict; the next
// AT+HTTPINIT will then fail until AT+HTTPTERM is sent.
func (m *Modem) HTTPPost(ctx context.Context, url, contentType string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if contentType == "" {
		contentType = DefaultContentType
	}

	m.openHTTP(url)
	m.engine.Execute(at.Cmd(at.HTTPContent(contentType)))

	data := at.Cmd(at.HTTPData(len(payload), uploadLatency)).Expecting(at.Download).Within(promptTimeout)
	if !m.engine.ExecuteBool(data) {
		m.logger.Warn("HTTP POST failed, no upload prompt", "url", url)
		if m.config.Strict {
			m.closeHTTP()
		}
		return fmt.Errorf("%w: %s", ErrNoPrompt, at.Download)
	}

	if err := m.engine.Write(payload); err != nil {
		m.closeHTTP()
		return fmt.Errorf("upload payload: %w", err)
	}
	m.clock.Sleep(uploadWait)
	if ack := Match(m.engine.Collect(0), at.OK); ack.OK() {
		m.logger.Debug("Upload acknowledged", "bytes", len(payload))
	}

	action := at.Cmd(at.HTTPPostAct).Expecting(at.HTTPOK).Within(postActionTimeout)
	ok := m.engine.ExecuteBool(action)
	m.closeHTTP()
	if !ok {
		m.logger.Warn("HTTP POST failed", "url", url)
		return fmt.Errorf("%w: POST %s", ErrHTTPActionFailed, url)
	}
	m.logger.Info("HTTP POST succeeded", "url", url, "bytes", len(payload))
	return nil
}
