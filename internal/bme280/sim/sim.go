// Package sim simulates a BME280 at register level behind a Tx-style I²C
// bus, the shape shared by periph.io i2c.Bus and tinygo drivers.I2C:
//
//	Tx(addr uint16, w, r []byte) error
//
// The default register image is the Bosch datasheet worked example
// (25.08 °C, 1006.53 hPa). Faults can be injected per register.
package sim

import (
	"errors"
	"fmt"
	"sync"

	"tinygo.org/x/drivers"
)

var _ drivers.I2C = (*Chip)(nil)

// ErrNACK is returned for transactions addressed to another device.
var ErrNACK = errors.New("sim: no acknowledge")

// ErrInjected is the default error returned by injected faults.
var ErrInjected = errors.New("sim: injected bus fault")

const (
	regCalibPrimary   = 0x88
	regChipID         = 0xD0
	regReset          = 0xE0
	regCalibSecondary = 0xE1
	regCtrlHum        = 0xF2
	regStatus         = 0xF3
	regCtrlMeas       = 0xF4
	regConfig         = 0xF5
	regData           = 0xF7

	chipID       = 0x60
	resetCommand = 0xB6
	measuring    = 0x08
)

// DatasheetPrimary is calib00..calib25 encoding T1=27504 T2=26435 T3=-1000
// P1=36477 P2=-10685 P3=3024 P4=2855 P5=140 P6=-7 P7=15500 P8=-14600
// P9=6000 H1=75.
var DatasheetPrimary = [26]byte{
	0x70, 0x6B, 0x43, 0x67, 0x18, 0xFC, 0x7D, 0x8E, 0x43, 0xD6, 0xD0, 0x0B, 0x27,
	0x0B, 0x8C, 0x00, 0xF9, 0xFF, 0x8C, 0x3C, 0xF8, 0xC6, 0x70, 0x17, 0x00, 0x4B,
}

// DatasheetSecondary is calib26..calib32 encoding H2=362 H3=0 H4=313 H5=50 H6=30.
var DatasheetSecondary = [7]byte{0x6A, 0x01, 0x00, 0x13, 0x29, 0x03, 0x1E}

// Default raw ADC values: pressure 415148, temperature 519888, humidity 29000.
const (
	DefaultRawPressure    = 415148
	DefaultRawTemperature = 519888
	DefaultRawHumidity    = 29000
)

// Write records one register write.
type Write struct {
	Reg byte
	Val byte
}

type fault struct {
	remaining int // <0: permanent
	err       error
}

// Chip is a simulated BME280. The zero value is not usable; use New.
type Chip struct {
	mu sync.Mutex

	addr uint16
	regs [256]byte
	raw  [8]byte

	// MeasuringPolls is the number of status reads reporting "measuring"
	// after a forced-mode trigger.
	MeasuringPolls int
	pending        int
	stuck          bool

	readFaults  map[byte]*fault
	writeFaults map[byte]*fault
	writes      []Write
	triggers    int
}

// New returns a chip answering at addr with the datasheet register image.
func New(addr uint16) *Chip {
	c := &Chip{
		addr:           addr,
		MeasuringPolls: 1,
		readFaults:     map[byte]*fault{},
		writeFaults:    map[byte]*fault{},
	}
	c.regs[regChipID] = chipID
	c.SetCalibration(DatasheetPrimary, DatasheetSecondary)
	c.SetRaw(DefaultRawPressure, DefaultRawTemperature, DefaultRawHumidity)
	return c
}

// Address returns the bus address the chip answers on.
func (c *Chip) Address() uint16 { return c.addr }

// SetChipID overrides the identity register.
func (c *Chip) SetChipID(id byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.regs[regChipID] = id
}

// SetCalibration replaces both calibration blocks.
func (c *Chip) SetCalibration(primary [26]byte, secondary [7]byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	copy(c.regs[regCalibPrimary:], primary[:])
	copy(c.regs[regCalibSecondary:], secondary[:])
}

// SetRaw sets the ADC values latched by the next completed measurement.
func (c *Chip) SetRaw(pressure, temperature uint32, humidity uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.raw = [8]byte{
		byte(pressure >> 12), byte(pressure >> 4), byte(pressure<<4) & 0xF0,
		byte(temperature >> 12), byte(temperature >> 4), byte(temperature<<4) & 0xF0,
		byte(humidity >> 8), byte(humidity),
	}
}

// SetStuck keeps the measuring bit set forever when true.
func (c *Chip) SetStuck(stuck bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stuck = stuck
}

// FailReads makes the next n reads starting at reg fail with err. n < 0
// fails forever. A nil err uses ErrInjected.
func (c *Chip) FailReads(reg byte, n int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readFaults[reg] = newFault(n, err)
}

// FailWrites makes the next n writes to reg fail. See FailReads.
func (c *Chip) FailWrites(reg byte, n int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeFaults[reg] = newFault(n, err)
}

// ClearFaults removes every injected fault and the stuck flag.
func (c *Chip) ClearFaults() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readFaults = map[byte]*fault{}
	c.writeFaults = map[byte]*fault{}
	c.stuck = false
}

// Writes returns the register writes seen so far.
func (c *Chip) Writes() []Write {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Write(nil), c.writes...)
}

// Triggers returns how many forced-mode measurements were started.
func (c *Chip) Triggers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.triggers
}

// Register returns the current value of reg.
func (c *Chip) Register(reg byte) byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.regs[reg]
}

func newFault(n int, err error) *fault {
	if err == nil {
		err = ErrInjected
	}
	return &fault{remaining: n, err: err}
}

// take consumes one occurrence of a fault registered for reg.
func take(faults map[byte]*fault, reg byte) error {
	f, ok := faults[reg]
	if !ok {
		return nil
	}
	if f.remaining == 0 {
		delete(faults, reg)
		return nil
	}
	if f.remaining > 0 {
		f.remaining--
	}
	return f.err
}

// Tx implements the I²C transaction. w[0] is the register pointer; further
// bytes in w are (value, register, value, ...) as the BME280 expects for
// multi-register writes. r is filled with auto-increment from the pointer.
func (c *Chip) Tx(addr uint16, w, r []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if addr != c.addr {
		return ErrNACK
	}
	if len(w) == 0 {
		if len(r) != 0 {
			return fmt.Errorf("sim: read without register pointer")
		}
		return nil
	}

	if len(w) > 1 {
		if len(w)%2 != 0 {
			return fmt.Errorf("sim: odd write length %d", len(w))
		}
		for i := 0; i < len(w); i += 2 {
			if err := c.write(w[i], w[i+1]); err != nil {
				return err
			}
		}
	}

	if len(r) > 0 {
		reg := w[0]
		if err := take(c.readFaults, reg); err != nil {
			return err
		}
		for i := range r {
			r[i] = c.read(reg + byte(i))
		}
	}
	return nil
}

func (c *Chip) write(reg, val byte) error {
	if err := take(c.writeFaults, reg); err != nil {
		return err
	}
	c.writes = append(c.writes, Write{Reg: reg, Val: val})

	switch reg {
	case regReset:
		if val == resetCommand {
			c.regs[regCtrlHum] = 0
			c.regs[regCtrlMeas] = 0
			c.regs[regConfig] = 0
			c.regs[regStatus] = 0
			c.pending = 0
		}
	case regCtrlHum, regConfig:
		c.regs[reg] = val
	case regCtrlMeas:
		c.regs[reg] = val
		if mode := val & 0x03; mode == 0x01 || mode == 0x02 {
			c.triggers++
			c.pending = c.MeasuringPolls
			c.regs[regStatus] |= measuring
			if c.pending == 0 && !c.stuck {
				c.complete()
			}
		}
	}
	return nil
}

func (c *Chip) read(reg byte) byte {
	if reg == regStatus && c.regs[regStatus]&measuring != 0 && !c.stuck {
		v := c.regs[regStatus]
		c.pending--
		if c.pending <= 0 {
			c.complete()
		}
		return v
	}
	return c.regs[reg]
}

// complete latches the raw sample and returns to sleep mode.
func (c *Chip) complete() {
	copy(c.regs[regData:], c.raw[:])
	c.regs[regStatus] &^= measuring
	c.regs[regCtrlMeas] &^= 0x03
	c.pending = 0
}
