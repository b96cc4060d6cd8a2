package app

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/env_monitor/internal/config"
	"github.com/relabs-tech/env_monitor/internal/env"
)

// telemetryCache holds the last SENSOR payload received over MQTT.
type telemetryCache struct {
	mu      sync.RWMutex
	last    env.Payload
	haveMsg bool
}

func (c *telemetryCache) store(p env.Payload) {
	c.mu.Lock()
	c.last = p
	c.haveMsg = true
	c.mu.Unlock()
}

func (c *telemetryCache) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.haveMsg {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(c.last); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}

// handleSensorMessage decodes one SENSOR payload into the cache and pushes
// it to websocket clients.
func handleSensorMessage(cache *telemetryCache, hub *streamHub, payload []byte) {
	if problems := env.Validate(payload); len(problems) > 0 {
		log.Printf("web: dropping invalid payload: %v", problems)
		return
	}
	var p env.Payload
	if err := json.Unmarshal(payload, &p); err != nil {
		log.Printf("web: MQTT payload unmarshal error: %v", err)
		return
	}
	cache.store(p)
	hub.broadcast(payload)
}

func RunWeb() error {
	cfg := config.Get()
	cache := &telemetryCache{}
	hub := newStreamHub()

	// 1) Connect to MQTT broker
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDWeb)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("web: connected to MQTT broker at %s", cfg.MQTTBroker)

	// 2) Subscribe to the SENSOR topic
	topic := cfg.SensorTopic()
	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		handleSensorMessage(cache, hub, msg.Payload())
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("web: subscribed to MQTT topic %s", topic)

	// 3) JSON API and live stream
	http.Handle("/api/status", cache)
	http.Handle("/ws", hub)

	// 4) Static files from ./web as the root
	fs := http.FileServer(http.Dir("web"))
	http.Handle("/", fs)

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Printf("web: server listening on %s", addr)
	return http.ListenAndServe(addr, nil)
}
