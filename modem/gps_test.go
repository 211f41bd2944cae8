package modem_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"i4.energy/across/sim868/at"
	"i4.energy/across/sim868/modem"
)

const (
	noFix = "\r\n+CGNSINF: 1,0,20240101120000.000,,,,0.00,0.0,0,,,,,,0,0,,,,,\r\n\r\nOK\r\n"
	fix   = "\r\n+CGNSINF: 1,1,20240101120000.000,31.230416,121.473701,4.5,0.00,0.0,1,,1.1,1.4,0.9,,8,6,,,42,,\r\n\r\nOK\r\n"
)

func TestPollGPS(t *testing.T) {
	t.Run("no fix after nine attempts", func(t *testing.T) {
		f := newFixture(t, nil).respondOK(at.GNSSPowerOn, at.GNSSPowerOff)
		f.transport.Respond(at.GNSSInfo, noFix)

		report, err := f.modem.PollGPS(context.Background())

		if !errors.Is(err, modem.ErrNoFix) {
			t.Errorf("expected ErrNoFix, got %v", err)
		}
		if report.Attempts != 9 || f.transport.Count(at.GNSSInfo) != 9 {
			t.Errorf("expected 9 queries, got %d", f.transport.Count(at.GNSSInfo))
		}
		cmds := f.transport.Commands()
		if cmds[0] != at.GNSSPowerOn || cmds[len(cmds)-1] != at.GNSSPowerOff {
			t.Errorf("expected the session to be bracketed by power commands, got %q", cmds)
		}
		if f.transport.Count(at.GNSSPowerOff) != 1 {
			t.Errorf("expected a single power-off, got %d", f.transport.Count(at.GNSSPowerOff))
		}
	})

	t.Run("stops once more than three fixes are recorded", func(t *testing.T) {
		f := newFixture(t, nil).respondOK(at.GNSSPowerOn, at.GNSSPowerOff)
		f.transport.Respond(at.GNSSInfo, fix)

		report, err := f.modem.PollGPS(context.Background())

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if report.Attempts != 4 || len(report.Fixes) != 4 {
			t.Errorf("expected 4 attempts and 4 fixes, got %d and %d", report.Attempts, len(report.Fixes))
		}
		if report.Fixes[0] != fix {
			t.Errorf("expected the raw reply, got %q", report.Fixes[0])
		}
		if f.transport.Count(at.GNSSPowerOff) != 1 {
			t.Error("expected GNSS power-off")
		}
	})

	t.Run("fix after warm-up", func(t *testing.T) {
		f := newFixture(t, nil).respondOK(at.GNSSPowerOn, at.GNSSPowerOff)
		f.transport.Respond(at.GNSSInfo, noFix, noFix, "", fix)

		report, err := f.modem.PollGPS(context.Background())

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if report.Attempts != 7 || len(report.Fixes) != 4 {
			t.Errorf("expected 7 attempts and 4 fixes, got %+v", report)
		}
	})

	t.Run("last attempt is not followed by a pause", func(t *testing.T) {
		f := newFixture(t, nil)
		f.transport.Respond(at.GNSSInfo, noFix)

		f.modem.PollGPS(context.Background())

		// power-on, settle, nine queries with eight pauses, power-off
		want := 2*time.Second + 2*time.Second + 9*2*time.Second + 8*2*time.Second + 2*time.Second
		if got := f.clock.Elapsed(); got != want {
			t.Errorf("expected %v, got %v", want, got)
		}
	})

	t.Run("power-off on cancellation", func(t *testing.T) {
		f := newFixture(t, nil)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := f.modem.PollGPS(ctx)

		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		assertCommands(t, f.transport.Commands(), at.GNSSPowerOn, at.GNSSPowerOff)
	})
}
