// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"time"

	"github.com/relabs-tech/env_monitor/internal/bme280"
	"github.com/relabs-tech/env_monitor/internal/config"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// Session is an open bus with a BME280 driver attached to it.
type Session struct {
	Bus    i2c.BusCloser
	Host   *I2CHost
	Driver *bme280.Driver
}

// Close releases the bus.
func (s *Session) Close() error {
	return s.Bus.Close()
}

// DriverConfig maps application configuration to driver tunables.
func DriverConfig(cfg *config.Config) bme280.Config {
	return bme280.Config{
		Addresses:       cfg.BME280Addresses,
		MeasureInterval: time.Duration(cfg.MeasureInterval) * time.Second,
	}
}

// OpenBME280 initializes periph, opens the configured I²C bus and creates a
// driver. The driver does not touch the bus until its first Tick.
func OpenBME280(cfg *config.Config) (*Session, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}

	bus, err := i2creg.Open(cfg.I2CBus)
	if err != nil {
		return nil, fmt.Errorf("BME280 I2C open %q: %w", cfg.I2CBus, err)
	}

	h := NewI2CHost(bus)
	return &Session{
		Bus:    bus,
		Host:   h,
		Driver: bme280.New(h, DriverConfig(cfg)),
	}, nil
}

// Probe returns the first address in addrs answering with the BME280 chip id.
func Probe(h *I2CHost, addrs []uint16) (uint16, error) {
	for _, addr := range addrs {
		id, err := h.ReadReg(addr, bme280.RegChipID)
		if err == nil && id == bme280.ChipID {
			return addr, nil
		}
	}
	return 0, fmt.Errorf("no BME280 at %s", formatAddrs(addrs))
}

func formatAddrs(addrs []uint16) string {
	s := ""
	for i, a := range addrs {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("0x%02X", a)
	}
	return s
}
