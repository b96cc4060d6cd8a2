// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package bme280 drives a Bosch BME280 temperature/humidity/pressure sensor
// over I²C from a host-provided register capability. The driver is ticked
// once per second by its owner:
//
//	d := bme280.New(host, bme280.Config{})
//	for range ticker.C {
//		d.Tick()
//		st := d.Status()
//	}
//
// Each tick either attempts initialisation (detect, reset, load calibration,
// configure) or, every MeasureInterval, runs one forced-mode measurement
// cycle with local retries. Persistent failure drops the driver back to
// Uninitialized so the next tick rebuilds all state from scratch.
//
// Tick never returns an error. Failures are recorded and surface through
// Status. Tick and Status must not be called concurrently.
package bme280

import (
	"fmt"
	"time"

	logger "github.com/d2r2/go-logger"
)

var lg = logger.NewPackageLogger("bme280",
	logger.InfoLevel,
	// logger.DebugLevel,
)

// Host is the capability the driver needs from its environment: register
// access on a 7-bit bus address, a blocking delay and a monotonic clock.
type Host interface {
	ReadReg(addr uint16, reg byte) (byte, error)
	ReadRegs(addr uint16, reg byte, buf []byte) error
	WriteReg(addr uint16, reg, val byte) error
	Sleep(d time.Duration)
	Uptime() time.Duration
}

// State is the acquisition state.
type State uint8

const (
	Uninitialized State = iota
	Detecting
	Configuring
	Ready
	Degraded // initialised, at least one failed cycle since the last success
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Detecting:
		return "detecting"
	case Configuring:
		return "configuring"
	case Ready:
		return "ready"
	case Degraded:
		return "degraded"
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// Config controls timing and recovery. All fields are optional.
type Config struct {
	// Addresses are probed in order. Default 0x76, 0x77.
	Addresses []uint16
	// ResetSettle is waited after the soft reset. Default 10 ms.
	ResetSettle time.Duration
	// PollAttempts bounds the status polls per measurement. Default 10.
	PollAttempts int
	// PollInterval is slept before each status poll. Default 5 ms.
	PollInterval time.Duration
	// CycleAttempts is the number of measurements tried per cycle. Default 3.
	CycleAttempts int
	// RetryDelay separates attempts within a cycle. Default 10 ms.
	RetryDelay time.Duration
	// MeasureInterval is the minimum uptime between two cycles. Default 10 s.
	MeasureInterval time.Duration
	// MaxFailedCycles consecutive failed cycles force re-initialisation.
	// Default 3.
	MaxFailedCycles int
}

func (c Config) withDefaults() Config {
	if len(c.Addresses) == 0 {
		c.Addresses = []uint16{AddressPrimary, AddressSecondary}
	}
	if c.ResetSettle <= 0 {
		c.ResetSettle = 10 * time.Millisecond
	}
	if c.PollAttempts <= 0 {
		c.PollAttempts = 10
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Millisecond
	}
	if c.CycleAttempts <= 0 {
		c.CycleAttempts = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 10 * time.Millisecond
	}
	if c.MeasureInterval <= 0 {
		c.MeasureInterval = 10 * time.Second
	}
	if c.MaxFailedCycles <= 0 {
		c.MaxFailedCycles = 3
	}
	return c
}

// CycleResult describes one completed measurement cycle.
type CycleResult struct {
	Attempts  int
	Reading   Reading // zero unless Err is None
	Err       Kind
	Failures  int  // consecutive failed cycles after this one
	Escalated bool // the driver dropped back to Uninitialized
}

// Stats are monotonically increasing counters since New.
type Stats struct {
	Inits        uint64 // successful initialisations
	InitFailures uint64
	Cycles       uint64
	FailedCycles uint64
	Reinits      uint64 // escalations to Uninitialized
}

// Driver owns the acquisition state of one sensor.
type Driver struct {
	host Host
	cfg  Config

	state State
	addr  uint16
	cal   Calibration // meaningful only while Ready or Degraded

	reading     Reading
	haveReading bool
	failures    int
	lastErr     Kind

	attempted bool          // a cycle ran since the last initialisation
	lastCycle time.Duration // host uptime at the last cycle start

	stats   Stats
	onCycle func(CycleResult)
}

// New returns a driver in the Uninitialized state. It does not touch the bus.
func New(host Host, cfg Config) *Driver {
	return &Driver{host: host, cfg: cfg.withDefaults()}
}

// OnCycle registers fn to be called synchronously at the end of every
// measurement cycle. Passing nil removes the hook.
func (d *Driver) OnCycle(fn func(CycleResult)) { d.onCycle = fn }

// State returns the current acquisition state.
func (d *Driver) State() State { return d.state }

// Address returns the detected bus address, or 0 when uninitialised.
func (d *Driver) Address() uint16 { return d.addr }

// Stats returns a copy of the driver counters.
func (d *Driver) Stats() Stats { return d.stats }

// Tick advances the state machine. Call it once per second.
func (d *Driver) Tick() {
	switch d.state {
	case Uninitialized:
		d.initialize()
	case Ready, Degraded:
		now := d.host.Uptime()
		if d.attempted && now-d.lastCycle < d.cfg.MeasureInterval {
			return
		}
		d.attempted = true
		d.lastCycle = now
		d.cycle()
	}
}

func (d *Driver) transition(to State) {
	if d.state == to {
		return
	}
	lg.Debugf("state %s -> %s", d.state, to)
	d.state = to
}

func (d *Driver) initialize() {
	d.transition(Detecting)
	addr, err := d.detect()
	if err != nil {
		d.initFailed(err)
		return
	}

	d.transition(Configuring)
	cal, err := d.resetAndCalibrate(addr)
	if err != nil {
		d.initFailed(err)
		return
	}
	if err := d.configure(addr); err != nil {
		d.initFailed(err)
		return
	}

	d.addr = addr
	d.cal = cal
	d.failures = 0
	d.lastErr = None
	d.haveReading = false
	d.attempted = false
	d.stats.Inits++
	d.transition(Ready)
	lg.Infof("BME280 ready at 0x%02X", addr)
}

func (d *Driver) initFailed(err error) {
	d.lastErr = KindOf(err)
	d.stats.InitFailures++
	d.transition(Uninitialized)
	lg.Debugf("init failed: %v", err)
}

// detect probes the candidate addresses in order and accepts the first one
// answering with the BME280 chip id.
func (d *Driver) detect() (uint16, error) {
	var last error
	for _, addr := range d.cfg.Addresses {
		id, err := d.host.ReadReg(addr, RegChipID)
		if err != nil {
			last = fmt.Errorf("0x%02X: %w", addr, err)
			continue
		}
		if id == ChipID {
			return addr, nil
		}
		last = fmt.Errorf("0x%02X: chip id 0x%02X, want 0x%02X", addr, id, ChipID)
	}
	return 0, newError(NotDetected, "detect", last)
}

func (d *Driver) resetAndCalibrate(addr uint16) (Calibration, error) {
	if err := d.host.WriteReg(addr, regReset, resetCommand); err != nil {
		return Calibration{}, newError(CalibReadFail, "soft reset", err)
	}
	d.host.Sleep(d.cfg.ResetSettle)

	var primary [calibPrimaryLen]byte
	var secondary [calibSecondaryLen]byte
	if err := d.host.ReadRegs(addr, regCalibPrimary, primary[:]); err != nil {
		return Calibration{}, newError(CalibReadFail, "read calibration 0x88", err)
	}
	if err := d.host.ReadRegs(addr, regCalibSecondary, secondary[:]); err != nil {
		return Calibration{}, newError(CalibReadFail, "read calibration 0xE1", err)
	}
	return ParseCalibration(primary[:], secondary[:])
}

// configure leaves the device in sleep mode with x1 oversampling. ctrl_hum
// only takes effect after a subsequent ctrl_meas write, so it goes first.
func (d *Driver) configure(addr uint16) error {
	writes := []struct {
		reg, val byte
	}{
		{regCtrlHum, osrsX1},
		{regCtrlMeas, ctrlMeasSleep},
		{regConfig, configDefault},
	}
	for _, w := range writes {
		if err := d.host.WriteReg(addr, w.reg, w.val); err != nil {
			return newError(ConfigFail, fmt.Sprintf("write 0x%02X", w.reg), err)
		}
	}
	return nil
}

func (d *Driver) cycle() {
	var (
		r       Reading
		err     error
		attempt int
	)
	for attempt = 1; attempt <= d.cfg.CycleAttempts; attempt++ {
		if attempt > 1 {
			d.host.Sleep(d.cfg.RetryDelay)
		}
		if r, err = d.measure(); err == nil {
			break
		}
		lg.Debugf("attempt %d/%d: %v", attempt, d.cfg.CycleAttempts, err)
	}
	if attempt > d.cfg.CycleAttempts {
		attempt = d.cfg.CycleAttempts
	}

	d.stats.Cycles++
	res := CycleResult{Attempts: attempt}
	if err == nil {
		d.reading = r
		d.haveReading = true
		d.failures = 0
		d.lastErr = None
		d.transition(Ready)
		res.Reading = r
	} else {
		d.stats.FailedCycles++
		d.failures++
		d.haveReading = false
		d.lastErr = KindOf(err)
		res.Err = d.lastErr
		if d.failures >= d.cfg.MaxFailedCycles {
			lg.Errorf("%d consecutive failed cycles, last: %v; re-initialising", d.failures, err)
			d.escalate()
			res.Escalated = true
		} else {
			d.transition(Degraded)
		}
	}
	res.Failures = d.failures

	if d.onCycle != nil {
		d.onCycle(res)
	}
}

// escalate discards everything learned from the device. The last error and
// failure count stay visible until initialisation succeeds again.
func (d *Driver) escalate() {
	d.stats.Reinits++
	d.addr = 0
	d.cal = Calibration{}
	d.reading = Reading{}
	d.haveReading = false
	d.attempted = false
	d.lastCycle = 0
	d.transition(Uninitialized)
}

// measure runs one forced-mode conversion and returns a range-checked reading.
func (d *Driver) measure() (Reading, error) {
	if err := d.host.WriteReg(d.addr, regCtrlMeas, ctrlMeasForced); err != nil {
		return Reading{}, newError(TrigFail, "trigger", err)
	}
	if err := d.waitReady(); err != nil {
		return Reading{}, err
	}

	var buf [dataLen]byte
	if err := d.host.ReadRegs(d.addr, regData, buf[:]); err != nil {
		return Reading{}, newError(RawFail, "read data", err)
	}

	r, err := d.cal.Compensate(unpackRaw(buf[:]))
	if err != nil {
		return Reading{}, newError(Press0, "compensate", err)
	}
	if err := r.CheckRange(); err != nil {
		return Reading{}, err
	}
	return r, nil
}

// waitReady polls the measuring bit. A failed status read counts as a busy
// poll; only exhausting the bound is an error.
func (d *Driver) waitReady() error {
	var last error
	for i := 0; i < d.cfg.PollAttempts; i++ {
		d.host.Sleep(d.cfg.PollInterval)
		st, err := d.host.ReadReg(d.addr, regStatus)
		if err != nil {
			last = err
			continue
		}
		if st&statusMeasuring == 0 {
			return nil
		}
	}
	if last == nil {
		last = fmt.Errorf("still measuring after %d polls", d.cfg.PollAttempts)
	}
	return newError(Timeout, "wait ready", last)
}
