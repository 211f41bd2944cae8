// Package gpio drives the output lines wired to the modem board: the power
// key and the status LED. Lines are controlled through the sysfs GPIO
// interface.
package gpio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// SysfsRoot is the default sysfs GPIO directory.
const SysfsRoot = "/sys/class/gpio"

// exportSettle gives udev time to create the pin's attribute files.
const exportSettle = 100 * time.Millisecond

// Line is a digital output.
type Line interface {
	High() error
	Low() error
}

// Pin is a sysfs GPIO configured as an output.
type Pin struct {
	root string
	num  int
}

// Open exports pin num under root if needed and configures it as an
// output. An empty root selects SysfsRoot.
func Open(root string, num int) (*Pin, error) {
	if root == "" {
		root = SysfsRoot
	}
	if num < 0 {
		return nil, fmt.Errorf("gpio: invalid pin %d", num)
	}

	p := &Pin{root: root, num: num}
	if _, err := os.Stat(p.path("value")); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(filepath.Join(root, "export"), []byte(strconv.Itoa(num)), 0644); err != nil {
			return nil, fmt.Errorf("gpio: export %d: %w", num, err)
		}
		time.Sleep(exportSettle)
	}
	if err := os.WriteFile(p.path("direction"), []byte("out"), 0644); err != nil {
		return nil, fmt.Errorf("gpio: set direction of %d: %w", num, err)
	}
	return p, nil
}

func (p *Pin) High() error { return p.set(1) }
func (p *Pin) Low() error  { return p.set(0) }

// Close unexports the pin.
func (p *Pin) Close() error {
	if err := os.WriteFile(filepath.Join(p.root, "unexport"), []byte(strconv.Itoa(p.num)), 0644); err != nil {
		return fmt.Errorf("gpio: unexport %d: %w", p.num, err)
	}
	return nil
}

func (p *Pin) String() string {
	return fmt.Sprintf("gpio%d", p.num)
}

func (p *Pin) set(v int) error {
	if err := os.WriteFile(p.path("value"), []byte(strconv.Itoa(v)), 0644); err != nil {
		return fmt.Errorf("gpio: write %s: %w", p, err)
	}
	return nil
}

func (p *Pin) path(attr string) string {
	return filepath.Join(p.root, "gpio"+strconv.Itoa(p.num), attr)
}
