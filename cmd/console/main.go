// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"
	"strings"
	"time"

	logger "github.com/d2r2/go-logger"

	"github.com/relabs-tech/env_monitor/internal/app"
)

func main() {
	fault := flag.String("fault", "none", "simulated fault: "+strings.Join(app.MockFaults(), ", "))
	tick := flag.Duration("tick", time.Second, "tick period")
	debug := flag.Bool("debug", false, "log driver state transitions")
	flag.Parse()

	defer logger.FinalizeLogger()
	if *debug {
		if err := logger.ChangePackageLogLevel("bme280", logger.DebugLevel); err != nil {
			log.Printf("console: debug logging: %v", err)
		}
	}

	log.Printf("starting env-monitor (mock console, fault=%s)", *fault)

	if err := app.RunMockConsole(*fault, *tick); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
