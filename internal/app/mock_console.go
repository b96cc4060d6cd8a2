// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/relabs-tech/env_monitor/internal/bme280"
	"github.com/relabs-tech/env_monitor/internal/bme280/sim"
	"github.com/relabs-tech/env_monitor/internal/env"
	"github.com/relabs-tech/env_monitor/internal/sensors"
)

// Faults understood by RunMockConsole.
var mockFaults = map[string]func(*sim.Chip){
	"none":      func(*sim.Chip) {},
	"absent":    func(c *sim.Chip) { c.SetChipID(0x58) },
	"stuck":     func(c *sim.Chip) { c.SetStuck(true) },
	"data":      func(c *sim.Chip) { c.FailReads(0xF7, -1, nil) },
	"flaky":     func(c *sim.Chip) { c.FailReads(0xF7, 2, nil) },
	"hot":       func(c *sim.Chip) { c.SetRaw(sim.DefaultRawPressure, 725824, sim.DefaultRawHumidity) },
	"calib":     func(c *sim.Chip) { c.FailReads(0x88, 3, nil) },
	"ctrl_meas": func(c *sim.Chip) { c.FailWrites(0xF4, 7, nil) },
}

// MockFaults lists the accepted fault names.
func MockFaults() []string {
	names := make([]string, 0, len(mockFaults))
	for n := range mockFaults {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// RunMockConsole runs the driver against a simulated sensor and prints the
// SENSOR payload after every tick. MeasureInterval is shortened so retries
// and escalation can be watched live.
func RunMockConsole(fault string, tick time.Duration) error {
	inject, ok := mockFaults[fault]
	if !ok {
		return fmt.Errorf("unknown fault %q, want one of %v", fault, MockFaults())
	}

	chip := sim.New(bme280.AddressPrimary)
	inject(chip)

	d := bme280.New(sensors.NewI2CHost(chip), bme280.Config{MeasureInterval: 2 * tick})
	d.OnCycle(func(res bme280.CycleResult) {
		fmt.Printf("  cycle: attempts=%d err=%q failures=%d escalated=%v\n",
			res.Attempts, res.Err, res.Failures, res.Escalated)
	})

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for t := range ticker.C {
		d.Tick()
		payload, err := json.Marshal(env.NewPayload(t, d.Status()))
		if err != nil {
			return err
		}
		fmt.Printf("%-13s %s\n", d.State(), payload)
	}
	return nil
}
