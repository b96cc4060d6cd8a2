package app

import (
	"strings"
	"testing"

	"github.com/relabs-tech/env_monitor/internal/bme280"
)

func TestStatusLines(t *testing.T) {
	ok := Snapshot{
		State:  "ready",
		Status: bme280.Status{OK: true, Reading: bme280.Reading{Temperature: 25.08, Humidity: 49.43, Pressure: 1006.53}},
	}
	lines := statusLines(ok)
	want := []string{"T:  25.08 C", "H:  49.43 %", "P: 1006.53 hPa", "Ready"}
	if strings.Join(lines, "|") != strings.Join(want, "|") {
		t.Errorf("lines = %q, want %q", lines, want)
	}

	bad := Snapshot{State: "degraded", Status: bme280.Status{Error: bme280.Timeout, FailCount: 2}}
	lines = statusLines(bad)
	if lines[2] != "Timeout" || lines[3] != "Fails: 2" {
		t.Errorf("error lines = %q", lines)
	}
}

func TestRenderLines(t *testing.T) {
	blank := renderLines(nil)
	for i, b := range blank.Pix {
		if b != 0 {
			t.Fatalf("blank image has pixels set at byte %d", i)
		}
	}

	img := renderLines([]string{"T:  25.08 C"})
	set := 0
	for _, b := range img.Pix {
		if b != 0 {
			set++
		}
	}
	if set == 0 {
		t.Errorf("no pixels drawn")
	}
	if img.Bounds().Dx() != 128 || img.Bounds().Dy() != 64 {
		t.Errorf("bounds = %v", img.Bounds())
	}
}
