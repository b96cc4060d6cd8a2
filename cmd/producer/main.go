package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/takama/daemon"

	"github.com/relabs-tech/env_monitor/internal/app"
	"github.com/relabs-tech/env_monitor/internal/config"
)

const (
	name        = "env-monitor"
	description = "BME280 environment monitor (MQTT telemetry, Prometheus metrics)"
)

// Service has embedded daemon
type Service struct {
	daemon.Daemon
}

// Manage by daemon commands or run the producer
func (service *Service) Manage() (string, error) {
	configPath := flag.String("config", "./env_config.txt", "path to configuration file")
	flag.Parse()

	usage := "Usage: " + name + " [-config file] install | remove | start | stop | status"
	// if received any kind of command, do it
	if flag.NArg() > 0 {
		switch flag.Arg(0) {
		case "install":
			return service.Install("-config", *configPath)
		case "remove":
			return service.Remove()
		case "start":
			return service.Start()
		case "stop":
			return service.Stop()
		case "status":
			return service.Status()
		default:
			return usage, nil
		}
	}

	if err := config.InitGlobal(*configPath); err != nil {
		return "failed to load config", err
	}

	if err := app.RunProducer(); err != nil {
		return "producer stopped", err
	}
	return "producer stopped", nil
}

func main() {
	srv, err := daemon.New(name, description, daemon.SystemDaemon)
	if err != nil {
		log.Fatalf("daemon: %v", err)
	}
	service := &Service{srv}
	status, err := service.Manage()
	if err != nil {
		fmt.Fprintln(os.Stderr, status, "\nError:", err)
		os.Exit(1)
	}
	fmt.Println(status)
}
