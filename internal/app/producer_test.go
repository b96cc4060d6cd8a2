package app

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relabs-tech/env_monitor/internal/bme280"
	"github.com/relabs-tech/env_monitor/internal/bme280/sim"
	"github.com/relabs-tech/env_monitor/internal/env"
	"github.com/relabs-tech/env_monitor/internal/sensors"
)

type message struct {
	topic   string
	payload []byte
}

type fakePublisher struct {
	sent []message
}

func (p *fakePublisher) Publish(topic string, payload []byte) error {
	p.sent = append(p.sent, message{topic, payload})
	return nil
}

type fakeShower struct {
	shown []Snapshot
}

func (f *fakeShower) Show(s Snapshot) error {
	f.shown = append(f.shown, s)
	return nil
}

func newTestProducer(chip *sim.Chip) (*producer, *fakePublisher) {
	pub := &fakePublisher{}
	d := bme280.New(sensors.NewI2CHost(chip), bme280.Config{})
	return newProducer(d, pub, "tele/lab/SENSOR", 10*time.Second), pub
}

func TestProducerPublishCadence(t *testing.T) {
	p, pub := newTestProducer(sim.New(bme280.AddressPrimary))
	show := &fakeShower{}
	p.display = show

	t0 := time.Date(2026, 1, 2, 3, 4, 5, 0, time.Local)
	for i := 0; i < 21; i++ {
		p.step(t0.Add(time.Duration(i) * time.Second))
	}

	// Published at t0, t0+10s and t0+20s.
	if len(pub.sent) != 3 {
		t.Fatalf("published %d messages, want 3", len(pub.sent))
	}
	if len(show.shown) != 21 {
		t.Errorf("display updated %d times, want 21", len(show.shown))
	}
	for i, m := range pub.sent {
		if m.topic != "tele/lab/SENSOR" {
			t.Errorf("message %d topic = %q", i, m.topic)
		}
		if problems := env.Validate(m.payload); len(problems) > 0 {
			t.Errorf("message %d invalid: %v", i, problems)
		}
	}

	// The first publication happens right after init: no reading yet.
	var first env.Payload
	if err := json.Unmarshal(pub.sent[0].payload, &first); err != nil {
		t.Fatal(err)
	}
	if first.CustomSensor.OK || first.CustomSensor.Error != bme280.NoData {
		t.Errorf("first payload = %+v, want NoData", first.CustomSensor)
	}
	if first.Time != "2026-01-02T03:04:05" {
		t.Errorf("first payload time = %q", first.Time)
	}

	var second env.Payload
	if err := json.Unmarshal(pub.sent[1].payload, &second); err != nil {
		t.Fatal(err)
	}
	if !second.CustomSensor.OK || second.CustomSensor.Reading.Pressure != 1006.53 {
		t.Errorf("second payload = %+v", second.CustomSensor)
	}
}

func TestProducerStatusEndpoint(t *testing.T) {
	p, _ := newTestProducer(sim.New(bme280.AddressSecondary))

	rec := httptest.NewRecorder()
	p.cache.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("before first tick: code = %d", rec.Code)
	}

	now := time.Now()
	p.step(now)
	p.step(now.Add(time.Second))

	rec = httptest.NewRecorder()
	p.cache.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	var snap struct {
		Status  map[string]any `json:"status"`
		State   string         `json:"state"`
		Address string         `json:"address"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
		t.Fatal(err)
	}
	if snap.State != "ready" || snap.Address != "0x77" {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.Status["Temperature"] != 25.08 {
		t.Errorf("status = %v", snap.Status)
	}
}

func TestMetricsFromCycles(t *testing.T) {
	chip := sim.New(bme280.AddressPrimary)
	p, _ := newTestProducer(chip)
	reg := prometheus.NewRegistry()
	m := newMetrics(reg)
	p.driver.OnCycle(m.observeCycle)

	now := time.Now()
	p.step(now)
	p.step(now.Add(time.Second))

	body := scrape(t, reg)
	for _, want := range []string{
		"bme280_temperature_celsius 25.08",
		"bme280_pressure_hpa 1006.53",
		"bme280_reading_valid 1",
		`bme280_cycles_total{result="ok"} 1`,
		"bme280_consecutive_failures 0",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}

	m.observeCycle(bme280.CycleResult{Attempts: 3, Err: bme280.Timeout, Failures: 3, Escalated: true})
	body = scrape(t, reg)
	for _, want := range []string{
		"bme280_reading_valid 0",
		`bme280_cycles_total{result="Timeout"} 1`,
		"bme280_consecutive_failures 3",
		"bme280_reinits_total 1",
		// The last good value stays exported.
		"bme280_temperature_celsius 25.08",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func scrape(t *testing.T, reg *prometheus.Registry) string {
	t.Helper()
	srv := httptest.NewServer(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}
