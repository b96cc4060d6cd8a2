package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sample = `# env monitor
MQTT_BROKER=tcp://localhost:1883
DEVICE_TOPIC=bme280_lab

I2C_BUS=/dev/i2c-1
BME280_ADDRESSES=0x77, 0x76
TELE_PERIOD_S=30
DISPLAY_ENABLED=true
DISPLAY_I2C_ADDR=0x3D
REGISTER_DEBUG_ALLOW_WRITES=0xF2,0xF4-0xF5
`

func TestParse(t *testing.T) {
	cfg, err := Parse(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.MQTTBroker != "tcp://localhost:1883" {
		t.Errorf("MQTTBroker = %q", cfg.MQTTBroker)
	}
	if got := cfg.SensorTopic(); got != "tele/bme280_lab/SENSOR" {
		t.Errorf("SensorTopic = %q", got)
	}
	if len(cfg.BME280Addresses) != 2 || cfg.BME280Addresses[0] != 0x77 || cfg.BME280Addresses[1] != 0x76 {
		t.Errorf("BME280Addresses = %#v", cfg.BME280Addresses)
	}
	if cfg.TelePeriod != 30 || !cfg.DisplayEnabled || cfg.DisplayI2CAddr != 0x3D {
		t.Errorf("cfg = %+v", cfg)
	}
	// Defaults survive for keys not in the file.
	if cfg.TickIntervalMS != 1000 || cfg.MeasureInterval != 10 || cfg.MetricsAddr != ":9280" {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"missing broker", "DEVICE_TOPIC=x\n", "MQTT_BROKER is required"},
		{"missing topic", "MQTT_BROKER=tcp://b:1883\n", "DEVICE_TOPIC is required"},
		{"unknown key", "MQTT_BROKER=b\nFOO=1\n", "config line 2: unknown config key"},
		{"no equals", "MQTT_BROKER\n", "invalid config line 1"},
		{"topic with level", "DEVICE_TOPIC=a/b\n", "single topic level"},
		{"tele period", "TELE_PERIOD_S=5\n", "TELE_PERIOD_S must be 10-3600"},
		{"address width", "BME280_ADDRESSES=0x176\n", "not a 7-bit address"},
		{"bool", "DISPLAY_ENABLED=maybe\n", "invalid DISPLAY_ENABLED"},
		{"reversed range", "REGISTER_DEBUG_ALLOW_WRITES=0xF5-0xF2\n", "reversed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestParseRegisterRanges(t *testing.T) {
	got, err := ParseRegisterRanges("0xF2, 0xF4-0xF5,")
	if err != nil {
		t.Fatal(err)
	}
	want := []RegisterRange{{0xF2, 0xF2}, {0xF4, 0xF5}}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("range %d = %v, want %v", i, got[i], want[i])
		}
	}

	if r, err := ParseRegisterRanges(""); err != nil || len(r) != 0 {
		t.Errorf("empty list = %v, %v", r, err)
	}
}

func TestInitGlobal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "env_config.txt")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := InitGlobal(path); err != nil {
		t.Fatalf("InitGlobal: %v", err)
	}
	if Get() == nil || Get().DeviceTopic != "bme280_lab" {
		t.Errorf("Get = %+v", Get())
	}
	// Later calls are no-ops.
	if err := InitGlobal(filepath.Join(t.TempDir(), "missing.txt")); err != nil {
		t.Errorf("second InitGlobal: %v", err)
	}
	if Get().DeviceTopic != "bme280_lab" {
		t.Errorf("config replaced by second InitGlobal")
	}
}
