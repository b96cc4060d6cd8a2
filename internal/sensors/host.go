package sensors

import (
	"fmt"
	"time"

	"github.com/relabs-tech/env_monitor/internal/bme280"
	"periph.io/x/conn/v3/i2c"
	"tinygo.org/x/drivers"
)

var (
	// periph buses are driven through the TinyGo transaction interface:
	// write w then, after a repeated start, read len(r) bytes.
	_ drivers.I2C = i2c.Bus(nil)

	_ bme280.Host = (*I2CHost)(nil)
)

// I2CHost adapts a drivers.I2C bus to bme280.Host.
type I2CHost struct {
	bus   drivers.I2C
	start time.Time
}

// NewI2CHost returns a host whose uptime starts now.
func NewI2CHost(bus drivers.I2C) *I2CHost {
	return &I2CHost{bus: bus, start: time.Now()}
}

func (h *I2CHost) ReadReg(addr uint16, reg byte) (byte, error) {
	var b [1]byte
	if err := h.bus.Tx(addr, []byte{reg}, b[:]); err != nil {
		return 0, fmt.Errorf("i2c read 0x%02X@0x%02X: %w", reg, addr, err)
	}
	return b[0], nil
}

func (h *I2CHost) ReadRegs(addr uint16, reg byte, buf []byte) error {
	if err := h.bus.Tx(addr, []byte{reg}, buf); err != nil {
		return fmt.Errorf("i2c read %d bytes 0x%02X@0x%02X: %w", len(buf), reg, addr, err)
	}
	return nil
}

func (h *I2CHost) WriteReg(addr uint16, reg, val byte) error {
	if err := h.bus.Tx(addr, []byte{reg, val}, nil); err != nil {
		return fmt.Errorf("i2c write 0x%02X=0x%02X@0x%02X: %w", reg, val, addr, err)
	}
	return nil
}

func (h *I2CHost) Sleep(d time.Duration) { time.Sleep(d) }

// Uptime is monotonic: time.Since uses the monotonic clock reading.
func (h *I2CHost) Uptime() time.Duration { return time.Since(h.start) }
