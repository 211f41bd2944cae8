package modem

import (
	"context"
	"time"

	"i4.energy/across/sim868/at"
)

const (
	btTimeout     = 3 * time.Second
	btScanSeconds = 10
	btScanTimeout = 8 * time.Second
)

// ScanBluetooth powers up the modem's Bluetooth radio, reports its host
// name and status, scans for nearby devices and powers the radio off again.
// The scan reply is returned unparsed; devices reported after the scan
// window are not collected.
func (m *Modem) ScanBluetooth(ctx context.Context) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	m.engine.Execute(at.Cmd(at.BTPowerOn).Within(btTimeout))
	defer m.engine.Execute(at.Cmd(at.BTPowerOff))

	m.engine.Execute(at.Cmd(at.BTHost).Within(btTimeout))
	m.engine.Execute(at.Cmd(at.BTStatus).Within(btTimeout))
	scan := m.engine.Execute(at.Cmd(at.BTScan(btScanSeconds)).Within(btScanTimeout))
	m.logger.Info("Bluetooth scan finished", "outcome", scan.Outcome.String())
	return scan, nil
}
