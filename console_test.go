package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/mock/gomock"
	"i4.energy/across/sim868/gpio"
	"i4.energy/across/sim868/modem"
)

// toggleLine is a power key wired to a modem that switches state on every
// release of the key.
type toggleLine struct {
	mu   sync.Mutex
	high bool
	on   bool
}

func (l *toggleLine) High() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.high = true
	return nil
}

func (l *toggleLine) Low() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.high {
		l.on = !l.on
	}
	l.high = false
	return nil
}

func (l *toggleLine) On() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.on
}

func TestConsole(t *testing.T) {
	t.Run("forwards lines until the input ends", func(t *testing.T) {
		m, transport := newTestModem(t, false)
		transport.Respond("AT", "AT\r\nOK\r\n")
		transport.Respond("AT+CPIN?", "\r\n+CME ERROR: 10\r\n")

		var out bytes.Buffer
		console := &Console{
			Logger: slog.New(slog.DiscardHandler),
			Modem:  m,
			In:     strings.NewReader("AT\n\n  AT+CPIN?  \nAT+GSN\n"),
			Out:    &out,
		}

		if err := console.Run(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		assertLines := []string{
			"AT\r\nOK",
			"AT+CPIN? back:\t\r\n+CME ERROR: 10",
			"AT+GSN no response",
		}
		for _, want := range assertLines {
			if !strings.Contains(out.String(), want) {
				t.Errorf("expected %q in output:\n%s", want, out.String())
			}
		}
		if got := transport.Commands(); len(got) != 3 {
			t.Errorf("expected 3 commands, got %q", got)
		}
	})

	t.Run("interrupt powers the modem off", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		power := modem.NewMockPower(ctrl)
		power.EXPECT().PowerOff(gomock.Any()).Return(nil)

		clock := modem.NewTestClock()
		transport := modem.NewTestTransport(clock)
		config, _ := modem.NewConfigBuilder().
			WithDialer(modem.DialerFunc(func(context.Context) (modem.Transport, error) {
				return transport, nil
			})).
			WithPower(power).
			WithClock(clock).
			WithLogger(slog.New(slog.DiscardHandler)).
			Build()
		m, err := modem.New(context.Background(), config)
		if err != nil {
			t.Fatal(err)
		}

		in, w := io.Pipe()
		t.Cleanup(func() { w.Close() })

		var out bytes.Buffer
		console := &Console{
			Logger: slog.New(slog.DiscardHandler),
			Modem:  m,
			In:     in,
			Out:    &out,
		}

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		if err := console.Run(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out.String(), "Modem powered off") {
			t.Errorf("unexpected output:\n%s", out.String())
		}
	})

	t.Run("interrupt powers off a modem that was on at boot", func(t *testing.T) {
		line := &toggleLine{on: true}
		clock := modem.NewTestClock()
		transport := modem.NewTestTransport(clock)
		transport.Respond("AT", "AT\r\nOK\r\n")

		config, _ := modem.NewConfigBuilder().
			WithDialer(modem.DialerFunc(func(context.Context) (modem.Transport, error) {
				return transport, nil
			})).
			WithPower(gpio.NewPowerKey(line, gpio.WithPulse(time.Millisecond))).
			WithClock(clock).
			WithLogger(slog.New(slog.DiscardHandler)).
			Build()
		m, err := modem.New(context.Background(), config)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := m.Startup(context.Background()); err != nil {
			t.Fatal(err)
		}

		in, w := io.Pipe()
		t.Cleanup(func() { w.Close() })

		console := &Console{
			Logger: slog.New(slog.DiscardHandler),
			Modem:  m,
			In:     in,
			Out:    io.Discard,
		}

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		if err := console.Run(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if line.On() {
			t.Error("expected the modem to be switched off")
		}
	})
}
