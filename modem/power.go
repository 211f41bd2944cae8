package modem

import "context"

// Power switches the modem's supply. PowerOn and PowerOff drive the modem
// to a known state; implementations decide how that maps onto the power
// key or enable line.
type Power interface {
	PowerOn(ctx context.Context) error
	PowerOff(ctx context.Context) error
}

// nopPower is used when no power controller is wired. Startup then keeps
// probing without being able to cycle the modem.
type nopPower struct{}

func (nopPower) PowerOn(context.Context) error  { return nil }
func (nopPower) PowerOff(context.Context) error { return nil }

// PowerTracker is implemented by Power controllers that track the modem's
// power state themselves, such as a toggling power key. Startup reports
// what it observed on the line so the tracked state follows the hardware:
// a modem that answered is on, a modem that did not is treated as off.
type PowerTracker interface {
	Assume(on bool)
}

func assumePower(p Power, on bool) {
	if t, ok := p.(PowerTracker); ok {
		t.Assume(on)
	}
}
