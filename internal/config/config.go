package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Config holds all application configuration values.
type Config struct {
	// Sensor
	I2CBus          string   // periph bus name, "" selects the first bus
	BME280Addresses []uint16 // probed in order
	TickIntervalMS  int      // driver tick period, milliseconds
	MeasureInterval int      // seconds between measurement cycles

	// MQTT
	MQTTBroker           string
	MQTTClientIDProducer string
	MQTTClientIDWeb      string
	MQTTClientIDConsole  string

	// Telemetry
	DeviceTopic string // published as tele/<topic>/SENSOR
	TelePeriod  int    // seconds between SENSOR publications

	// HTTP
	MetricsAddr   string // producer listen address for /metrics and /api/status
	WebServerPort int

	// Display
	DisplayEnabled bool
	DisplayI2CAddr uint16

	// Register debug tool
	RegisterDebugPort int
	// RegisterDebugAllowWrites lists writable registers, e.g. "0xF2,0xF4-0xF5".
	// Empty means the tool is read-only.
	RegisterDebugAllowWrites string
}

// Defaults returns a Config with every optional field set.
func Defaults() *Config {
	return &Config{
		BME280Addresses:      []uint16{0x76, 0x77},
		TickIntervalMS:       1000,
		MeasureInterval:      10,
		MQTTClientIDProducer: "env-producer",
		MQTTClientIDWeb:      "env-web",
		MQTTClientIDConsole:  "env-console",
		TelePeriod:           10,
		MetricsAddr:          ":9280",
		WebServerPort:        8080,
		DisplayI2CAddr:       0x3C,
		RegisterDebugPort:    8081,
	}
}

// SensorTopic returns the Tasmota-style telemetry topic for the device.
func (c *Config) SensorTopic() string {
	return "tele/" + c.DeviceTopic + "/SENSOR"
}

// Package-level singleton state:
//   - globalConfig is unexported so it can only be set through InitGlobal.
//   - configOnce makes InitGlobal idempotent.
//   - configMu guards reads in Get against the one-time write.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()
	return Parse(file)
}

// Parse reads KEY=VALUE lines. Blank lines and lines starting with # are
// ignored. Keys not present keep their default.
func Parse(r io.Reader) (*Config, error) {
	cfg := Defaults()
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Validate required fields
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// Sensor
	case "I2C_BUS":
		c.I2CBus = value
	case "BME280_ADDRESSES":
		addrs, err := parseAddresses(value)
		if err != nil {
			return fmt.Errorf("invalid BME280_ADDRESSES %q: %w", value, err)
		}
		c.BME280Addresses = addrs
	case "TICK_INTERVAL_MS":
		ms, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid TICK_INTERVAL_MS %q: %w", value, err)
		}
		if ms < 10 || ms > 60000 {
			return fmt.Errorf("TICK_INTERVAL_MS must be 10-60000, got %d", ms)
		}
		c.TickIntervalMS = ms
	case "MEASURE_INTERVAL_S":
		s, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid MEASURE_INTERVAL_S %q: %w", value, err)
		}
		if s < 1 {
			return fmt.Errorf("MEASURE_INTERVAL_S must be at least 1, got %d", s)
		}
		c.MeasureInterval = s

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value

	// Telemetry
	case "DEVICE_TOPIC":
		if strings.ContainsAny(value, "/+#") {
			return fmt.Errorf("DEVICE_TOPIC must be a single topic level, got %q", value)
		}
		c.DeviceTopic = value
	case "TELE_PERIOD_S":
		s, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid TELE_PERIOD_S %q: %w", value, err)
		}
		// Same bounds Tasmota accepts for TelePeriod.
		if s < 10 || s > 3600 {
			return fmt.Errorf("TELE_PERIOD_S must be 10-3600, got %d", s)
		}
		c.TelePeriod = s

	// HTTP
	case "METRICS_ADDR":
		c.MetricsAddr = value
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port

	// Display
	case "DISPLAY_ENABLED":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_ENABLED %q: %w", value, err)
		}
		c.DisplayEnabled = b
	case "DISPLAY_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_I2C_ADDR %q: %w", value, err)
		}
		c.DisplayI2CAddr = uint16(addr)

	// Register debug
	case "REGISTER_DEBUG_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid REGISTER_DEBUG_PORT %q: %w", value, err)
		}
		c.RegisterDebugPort = port
	case "REGISTER_DEBUG_ALLOW_WRITES":
		if _, err := ParseRegisterRanges(value); err != nil {
			return fmt.Errorf("invalid REGISTER_DEBUG_ALLOW_WRITES %q: %w", value, err)
		}
		c.RegisterDebugAllowWrites = value

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.DeviceTopic == "" {
		return fmt.Errorf("DEVICE_TOPIC is required")
	}
	return nil
}

// parseAddresses parses a comma separated list of 7-bit I2C addresses.
func parseAddresses(s string) ([]uint16, error) {
	var out []uint16
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		v, err := strconv.ParseUint(f, 0, 16)
		if err != nil {
			return nil, err
		}
		if v > 0x7F {
			return nil, fmt.Errorf("address 0x%X is not a 7-bit address", v)
		}
		out = append(out, uint16(v))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no address given")
	}
	return out, nil
}

// RegisterRange is an inclusive register interval.
type RegisterRange struct {
	From, To byte
}

// ParseRegisterRanges parses "0xF2,0xF4-0xF5" style lists.
func ParseRegisterRanges(s string) ([]RegisterRange, error) {
	var out []RegisterRange
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(f, "-")
		from, err := strconv.ParseUint(strings.TrimSpace(lo), 0, 8)
		if err != nil {
			return nil, err
		}
		to := from
		if isRange {
			if to, err = strconv.ParseUint(strings.TrimSpace(hi), 0, 8); err != nil {
				return nil, err
			}
		}
		if to < from {
			return nil, fmt.Errorf("range %q is reversed", f)
		}
		out = append(out, RegisterRange{From: byte(from), To: byte(to)})
	}
	return out, nil
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once so only the first call loads the file.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
