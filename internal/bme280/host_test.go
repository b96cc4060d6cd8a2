package bme280

import (
	"time"

	"github.com/relabs-tech/env_monitor/internal/bme280/sim"
)

// testBus routes transactions to simulated chips by address.
type testBus map[uint16]*sim.Chip

func (b testBus) Tx(addr uint16, w, r []byte) error {
	c, ok := b[addr]
	if !ok {
		return sim.ErrNACK
	}
	return c.Tx(addr, w, r)
}

// testHost implements Host over a testBus with a virtual clock.
type testHost struct {
	bus testBus
	now time.Duration
}

func newTestHost(chips ...*sim.Chip) *testHost {
	h := &testHost{bus: testBus{}}
	for _, c := range chips {
		h.bus[c.Address()] = c
	}
	return h
}

func (h *testHost) ReadReg(addr uint16, reg byte) (byte, error) {
	var b [1]byte
	err := h.bus.Tx(addr, []byte{reg}, b[:])
	return b[0], err
}

func (h *testHost) ReadRegs(addr uint16, reg byte, buf []byte) error {
	return h.bus.Tx(addr, []byte{reg}, buf)
}

func (h *testHost) WriteReg(addr uint16, reg, val byte) error {
	return h.bus.Tx(addr, []byte{reg, val}, nil)
}

func (h *testHost) Sleep(d time.Duration) { h.now += d }
func (h *testHost) Uptime() time.Duration { return h.now }

// tick advances the clock by one second and ticks d.
func (h *testHost) tick(d *Driver) {
	h.now += time.Second
	d.Tick()
}

func datasheetCalibration() Calibration {
	c, err := ParseCalibration(sim.DatasheetPrimary[:], sim.DatasheetSecondary[:])
	if err != nil {
		panic(err)
	}
	return c
}
