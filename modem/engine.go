package modem

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"i4.energy/across/sim868/at"
)

const (
	// DefaultPollInterval is how long the collector sleeps when no byte is
	// available. It bounds the overshoot past a collection deadline.
	DefaultPollInterval = 5 * time.Millisecond
)

// Engine runs AT transactions: write a command line, collect whatever the
// modem sends until the deadline, and classify it against the expected
// substring.
//
// Replies are delimited by time only. The engine never waits for a final
// result code, so a transaction always lasts exactly its window (plus at
// most one poll interval) whatever the modem sends.
//
// The engine keeps no state between transactions. Callers sequence their
// own commands; the engine only guarantees that two transactions never
// overlap on the line.
type Engine struct {
	mu      sync.Mutex
	port    Transport
	clock   Clock
	logger  *slog.Logger
	timeout time.Duration
	poll    time.Duration
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithClock sets the time source used for deadlines and poll sleeps.
func WithClock(c Clock) EngineOption {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithLogger sets the logger transactions are reported to.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithDefaultTimeout sets the window used for commands without a timeout.
func WithDefaultTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithPollInterval sets the collector's sleep between empty polls.
func WithPollInterval(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.poll = d
		}
	}
}

// NewEngine creates an Engine on port.
func NewEngine(port Transport, opts ...EngineOption) *Engine {
	e := &Engine{
		port:    port,
		clock:   SystemClock(),
		logger:  slog.Default(),
		timeout: at.DefaultTimeout,
		poll:    DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute writes cmd followed by CRLF, collects the reply for the command's
// window and classifies it against cmd.Expect.
func (e *Engine) Execute(cmd at.Command) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := e.clock.Now()
	if _, err := e.port.Write(cmd.Wire()); err != nil {
		err = fmt.Errorf("write command %q: %w", cmd.Text, err)
		e.logger.Error("Command not sent", "command", cmd.Text, "error", err)
		return Result{Outcome: Empty, Err: err}
	}

	res := Match(e.collect(e.window(cmd.Timeout)), cmd.Expect)
	e.report(cmd, res, e.clock.Now().Sub(start))
	return res
}

// ExecuteBool is Execute reduced to whether the reply matched.
func (e *Engine) ExecuteBool(cmd at.Command) bool {
	return e.Execute(cmd).OK()
}

// Send writes text as a command line and returns whatever arrives within
// timeout (the engine default when zero). Any non-empty, decodable reply
// counts as Matched.
func (e *Engine) Send(text string, timeout time.Duration) Result {
	return e.Execute(at.Command{Text: text, Timeout: timeout})
}

// WriteLine writes text followed by CRLF without collecting a reply.
func (e *Engine) WriteLine(text string) error {
	return e.Write([]byte(text + at.CRLF))
}

// Write writes p unchanged. It is used for payloads that follow an input
// prompt; the bytes are never re-encoded.
func (e *Engine) Write(p []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.port.Write(p); err != nil {
		return fmt.Errorf("write %d bytes: %w", len(p), err)
	}
	return nil
}

// Collect gathers bytes for timeout (the engine default when zero) without
// writing anything first.
func (e *Engine) Collect(timeout time.Duration) []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.collect(e.window(timeout))
}

func (e *Engine) window(d time.Duration) time.Duration {
	if d <= 0 {
		return e.timeout
	}
	return d
}

// collect busy-polls the transport until timeout has elapsed.
func (e *Engine) collect(timeout time.Duration) []byte {
	var buf []byte
	start := e.clock.Now()
	for e.clock.Now().Sub(start) < timeout {
		n, err := e.port.Buffered()
		if err != nil {
			e.logger.Debug("Poll failed", "error", err)
		}
		if n <= 0 {
			e.clock.Sleep(e.poll)
			continue
		}
		for ; n > 0; n-- {
			b, err := e.port.ReadByte()
			if err != nil {
				e.logger.Debug("Read failed", "error", err)
				e.clock.Sleep(e.poll)
				break
			}
			buf = append(buf, b)
		}
	}
	return buf
}

func (e *Engine) report(cmd at.Command, res Result, elapsed time.Duration) {
	lines := at.Lines(res.Raw)
	attrs := []any{
		"command", cmd.Text,
		"expect", cmd.Expect,
		"outcome", res.Outcome.String(),
		"elapsed", elapsed,
	}

	switch res.Outcome {
	case Matched:
		e.logger.Debug("Command matched", append(attrs, "lines", lines)...)
	case Unmatched:
		e.logger.Warn("Unexpected response", append(attrs,
			"final", at.FinalCode(lines),
			"response", fmt.Sprintf("%q", res.Raw),
		)...)
	default:
		e.logger.Warn("No response", attrs...)
	}
}
