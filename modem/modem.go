package modem

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"i4.energy/across/sim868/at"
)

// Modem is a SIM868-class cellular/GNSS/Bluetooth modem driven by AT
// commands. It bundles the transaction engine with the collaborators every
// procedure needs (power control, clock, logger, configuration) so the
// whole hardware context is constructed once and passed explicitly.
//
// Procedures issue one transaction at a time. Running two procedures
// concurrently on the same Modem interleaves their commands on the line;
// callers that accept requests concurrently must serialize them.
type Modem struct {
	// transport provides the physical connection to the modem
	transport Transport
	// engine runs every AT transaction on transport
	engine *Engine
	power  Power
	clock  Clock
	logger *slog.Logger
	config Config

	mu     sync.Mutex
	closed bool
}

// State names the phases the procedures drive the modem through. It is
// used for logging only: the Modem never tracks or enforces it.
type State int

const (
	StateOff State = iota
	StatePoweringUp
	StateReady
	StateNetworkUnregistered
	StateNetworkRegistered
	StateGpsActive
	StateHttpSessionOpen
)

func (s State) String() string {
	switch s {
	case StateOff:
		return "off"
	case StatePoweringUp:
		return "powering-up"
	case StateReady:
		return "ready"
	case StateNetworkUnregistered:
		return "network-unregistered"
	case StateNetworkRegistered:
		return "network-registered"
	case StateGpsActive:
		return "gps-active"
	case StateHttpSessionOpen:
		return "http-session-open"
	default:
		return "unknown"
	}
}

// New creates a Modem with the given configuration. It dials the transport
// but sends nothing; call Startup to bring the modem up.
func New(ctx context.Context, config Config) (*Modem, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	config.setDefaults()

	transport, err := config.Dialer.Dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("dial modem: %w", err)
	}
	if transport == nil {
		return nil, ErrNotInitialized
	}

	return &Modem{
		transport: transport,
		engine: NewEngine(transport,
			WithClock(config.Clock),
			WithLogger(config.Logger.With("component", "engine")),
			WithDefaultTimeout(config.ATTimeout),
			WithPollInterval(config.PollInterval),
		),
		power:  config.Power,
		clock:  config.Clock,
		logger: config.Logger,
		config: config,
	}, nil
}

// Engine returns the transaction engine for ad-hoc commands.
func (m *Modem) Engine() *Engine {
	return m.engine
}

// Exec runs a single transaction. It is the pass-through used by the
// operator console and the HTTP API.
func (m *Modem) Exec(cmd at.Command) Result {
	return m.engine.Execute(cmd)
}

// PowerOff switches the modem off.
func (m *Modem) PowerOff(ctx context.Context) error {
	if err := m.power.PowerOff(ctx); err != nil {
		return fmt.Errorf("power off: %w", err)
	}
	m.enter(StateOff)
	return nil
}

// Close releases the transport. After calling Close the modem cannot be
// reused.
func (m *Modem) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrAlreadyClosed
	}
	m.closed = true
	return m.transport.Close()
}

func (m *Modem) String() string {
	return fmt.Sprintf("modem(apn=%s strict=%t)", m.config.APN, m.config.Strict)
}

func (m *Modem) enter(s State) {
	m.logger.Info("Modem state", "state", s.String())
}

// run executes cmds in order. Failures are logged and recorded; in strict
// mode the first failure stops the sequence.
func (m *Modem) run(ctx context.Context, cmds []at.Command) ([]Step, error) {
	steps := make([]Step, 0, len(cmds))
	for _, cmd := range cmds {
		if err := ctx.Err(); err != nil {
			return steps, err
		}
		res := m.engine.Execute(cmd)
		steps = append(steps, Step{Command: cmd.Text, Result: res})
		if !res.OK() && m.config.Strict {
			return steps, fmt.Errorf("%w: %s", ErrStepFailed, cmd.Text)
		}
	}
	return steps, nil
}

// Step is one command of a fixed sequence and its result.
type Step struct {
	Command string
	Result  Result
}
