package app

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relabs-tech/env_monitor/internal/bme280"
	"github.com/relabs-tech/env_monitor/internal/config"
	"github.com/relabs-tech/env_monitor/internal/env"
	"github.com/relabs-tech/env_monitor/internal/sensors"
)

// publisher sends one retained telemetry message.
type publisher interface {
	Publish(topic string, payload []byte) error
}

type mqttPublisher struct {
	client mqtt.Client
}

func (p mqttPublisher) Publish(topic string, payload []byte) error {
	token := p.client.Publish(topic, 0, true, payload)
	token.Wait()
	return token.Error()
}

// statusShower renders a snapshot somewhere local, e.g. an OLED.
type statusShower interface {
	Show(Snapshot) error
}

// producer owns the driver. step is the only place Tick is called.
type producer struct {
	driver     *bme280.Driver
	cache      *statusCache
	pub        publisher
	topic      string
	telePeriod time.Duration
	lastTele   time.Time
	display    statusShower
}

func newProducer(d *bme280.Driver, pub publisher, topic string, telePeriod time.Duration) *producer {
	return &producer{
		driver:     d,
		cache:      &statusCache{},
		pub:        pub,
		topic:      topic,
		telePeriod: telePeriod,
	}
}

func (p *producer) step(now time.Time) {
	p.driver.Tick()
	snap := p.cache.update(p.driver, now)

	if p.display != nil {
		if err := p.display.Show(snap); err != nil {
			log.Printf("producer: display error: %v", err)
		}
	}

	if !p.lastTele.IsZero() && now.Sub(p.lastTele) < p.telePeriod {
		return
	}
	p.lastTele = now

	payload, err := json.Marshal(env.NewPayload(now, snap.Status))
	if err != nil {
		log.Printf("producer: json marshal error: %v", err)
		return
	}
	if err := p.pub.Publish(p.topic, payload); err != nil {
		log.Printf("producer: MQTT publish error (%s): %v", p.topic, err)
	}
}

// RunProducer drives the sensor, publishes telemetry and serves /metrics and
// /api/status until SIGINT or SIGTERM.
func RunProducer() error {
	log.Println("starting env-monitor producer")

	cfg := config.Get()

	session, err := sensors.OpenBME280(cfg)
	if err != nil {
		return err
	}
	defer session.Close()

	// --- connect to MQTT ---
	lwt := "tele/" + cfg.DeviceTopic + "/LWT"
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDProducer).
		SetAutoReconnect(true).
		SetWill(lwt, "Offline", 1, true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT connect error: %w", token.Error())
	}
	defer client.Disconnect(250)
	client.Publish(lwt, 1, true, "Online").Wait()
	log.Printf("producer: connected to MQTT broker at %s", cfg.MQTTBroker)

	p := newProducer(session.Driver, mqttPublisher{client}, cfg.SensorTopic(),
		time.Duration(cfg.TelePeriod)*time.Second)

	reg := prometheus.NewRegistry()
	m := newMetrics(reg)
	session.Driver.OnCycle(m.observeCycle)

	if cfg.DisplayEnabled {
		disp, err := openDisplay(session.Bus, cfg.DisplayI2CAddr)
		if err != nil {
			log.Printf("producer: display disabled: %v", err)
		} else {
			p.display = disp
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.Handle("/api/status", p.cache)
	srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
	go func() {
		log.Printf("producer: metrics listening on %s", cfg.MetricsAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("producer: http server error: %v", err)
		}
	}()
	defer srv.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(time.Duration(cfg.TickIntervalMS) * time.Millisecond)
	defer ticker.Stop()

	log.Printf("producer: publishing to %s every %ds", p.topic, cfg.TelePeriod)
	for {
		select {
		case t := <-ticker.C:
			p.step(t)
		case sig := <-sigCh:
			log.Printf("producer: got signal %v, shutting down", sig)
			return nil
		}
	}
}
