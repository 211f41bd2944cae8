package modem_test

import (
	"context"
	"log/slog"
	"testing"

	"go.uber.org/mock/gomock"
	"i4.energy/across/sim868/at"
	"i4.energy/across/sim868/modem"
)

// fixture is a Modem wired to a scripted transport and a virtual clock.
type fixture struct {
	modem     *modem.Modem
	transport *modem.TestTransport
	clock     *modem.TestClock
	power     *modem.MockPower
}

func newFixture(t *testing.T, configure func(*modem.ConfigBuilder)) *fixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	clock := modem.NewTestClock()
	transport := modem.NewTestTransport(clock)
	power := modem.NewMockPower(ctrl)

	b := modem.NewConfigBuilder().
		WithDialer(modem.DialerFunc(func(context.Context) (modem.Transport, error) {
			return transport, nil
		})).
		WithPower(power).
		WithClock(clock).
		WithLogger(slog.New(slog.DiscardHandler))
	if configure != nil {
		configure(b)
	}
	config, err := b.Build()
	if err != nil {
		t.Fatalf("unexpected error from Build(): %v", err)
	}

	m, err := modem.New(context.Background(), config)
	if err != nil {
		t.Fatalf("unexpected error from New(): %v", err)
	}
	t.Cleanup(func() { m.Close() })

	return &fixture{modem: m, transport: transport, clock: clock, power: power}
}

// respondOK scripts a plain OK for every command.
func (f *fixture) respondOK(cmds ...string) *fixture {
	for _, cmd := range cmds {
		f.transport.Respond(cmd, cmd+at.CRLF+at.CRLF+at.OK+at.CRLF)
	}
	return f
}

func assertCommands(t *testing.T, got []string, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d commands %q, got %d %q", len(want), want, len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("command %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}
