package modem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
)

//go:generate go tool mockgen -destination=mock_modem.go -package=modem . Transport,Dialer,Power

// Transport is the byte channel to the modem.
//
// Availability and reading are two separate steps: a byte reported by
// Buffered is guaranteed to be returned by a following ReadByte, because the
// modem is the only producer on the line. Buffered never blocks for longer
// than the implementation's polling granularity.
type Transport interface {
	io.Writer
	io.ByteReader
	io.Closer

	// Buffered reports how many bytes can be read without blocking.
	Buffered() (int, error)
}

// Dialer opens a Transport to the modem.
//
// Dialer abstracts how the modem connection is created (for example, via a
// serial port or a test double) and is used during modem construction only.
// Once a Transport is obtained, the Dialer is no longer needed.
type Dialer interface {
	// Dial is responsible for creating and returning a connected Transport.
	// It should respect cancellation provided by the context.
	Dial(ctx context.Context) (Transport, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context) (Transport, error)

func (f DialerFunc) Dial(ctx context.Context) (Transport, error) {
	return f(ctx)
}

// serialPollTimeout bounds a single read attempt on the serial port.
const serialPollTimeout = time.Millisecond

// SerialDialer opens the modem over a serial port using go.bug.st/serial.
type SerialDialer struct {
	PortName string
	BaudRate int
	// Mode overrides BaudRate and the default 8N1 framing when set.
	Mode *serial.Mode
}

func (d SerialDialer) Dial(ctx context.Context) (Transport, error) {
	if ctx == nil {
		return nil, errors.New("modem: context is nil")
	}
	if d.PortName == "" {
		return nil, ErrNoPortName
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mode := d.Mode
	if mode == nil {
		baud := d.BaudRate
		if baud == 0 {
			baud = 115200
		}
		mode = &serial.Mode{
			BaudRate: baud,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		}
	}

	port, err := serial.Open(d.PortName, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.PortName, err)
	}
	if err := port.SetReadTimeout(serialPollTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", d.PortName, err)
	}
	return &serialTransport{port: port}, nil
}

// serialTransport turns the blocking Read of a serial.Port into the
// check-then-read contract of Transport by keeping a small pending buffer.
type serialTransport struct {
	port    serial.Port
	scratch [256]byte
	pending []byte
}

func (t *serialTransport) Write(p []byte) (int, error) {
	return t.port.Write(p)
}

func (t *serialTransport) Buffered() (int, error) {
	if len(t.pending) > 0 {
		return len(t.pending), nil
	}
	n, err := t.port.Read(t.scratch[:])
	t.pending = append(t.pending, t.scratch[:n]...)
	return len(t.pending), err
}

func (t *serialTransport) ReadByte() (byte, error) {
	if len(t.pending) == 0 {
		return 0, ErrNoData
	}
	b := t.pending[0]
	t.pending = t.pending[1:]
	return b, nil
}

func (t *serialTransport) Close() error {
	return t.port.Close()
}
