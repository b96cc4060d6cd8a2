package app

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/relabs-tech/env_monitor/internal/bme280"
)

// metrics are the Prometheus collectors exported by the producer.
type metrics struct {
	temperature prometheus.Gauge
	humidity    prometheus.Gauge
	pressure    prometheus.Gauge
	valid       prometheus.Gauge
	failures    prometheus.Gauge
	cycles      *prometheus.CounterVec
	reinits     prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		temperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bme280_temperature_celsius",
			Help: "Last valid temperature reading.",
		}),
		humidity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bme280_humidity_percent",
			Help: "Last valid relative humidity reading.",
		}),
		pressure: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bme280_pressure_hpa",
			Help: "Last valid pressure reading.",
		}),
		valid: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bme280_reading_valid",
			Help: "1 if the last measurement cycle produced a reading.",
		}),
		failures: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bme280_consecutive_failures",
			Help: "Failed measurement cycles since the last success.",
		}),
		cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bme280_cycles_total",
				Help: "Measurement cycles by result.",
			},
			[]string{"result"},
		),
		reinits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bme280_reinits_total",
			Help: "Re-initialisations after repeated cycle failures.",
		}),
	}
	reg.MustRegister(m.temperature, m.humidity, m.pressure, m.valid, m.failures, m.cycles, m.reinits)
	return m
}

// observeCycle is installed as the driver's cycle hook.
func (m *metrics) observeCycle(res bme280.CycleResult) {
	m.failures.Set(float64(res.Failures))
	if res.Escalated {
		m.reinits.Inc()
	}
	if res.Err != bme280.None {
		m.valid.Set(0)
		m.cycles.With(prometheus.Labels{"result": string(res.Err)}).Inc()
		return
	}
	m.valid.Set(1)
	m.cycles.With(prometheus.Labels{"result": "ok"}).Inc()
	m.temperature.Set(res.Reading.Temperature)
	m.humidity.Set(res.Reading.Humidity)
	m.pressure.Set(res.Reading.Pressure)
}
