package app

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/env_monitor/internal/config"
	"github.com/relabs-tech/env_monitor/internal/env"
)

// formatPayload renders one SENSOR message as a console line.
func formatPayload(raw []byte) string {
	if problems := env.Validate(raw); len(problems) > 0 {
		return fmt.Sprintf("[INVALID] %v  raw=%s", problems, raw)
	}
	var p env.Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Sprintf("[INVALID] %v", err)
	}
	st := p.CustomSensor
	if !st.OK {
		return fmt.Sprintf("[BME280] %s  error=%s fails=%d", p.Time, st.Error, st.FailCount)
	}
	return fmt.Sprintf(
		"[BME280] %s  T=%6.2f°C  H=%6.2f%%  P=%7.2fhPa",
		p.Time, st.Reading.Temperature, st.Reading.Humidity, st.Reading.Pressure,
	)
}

func RunConsoleMQTT() error {
	cfg := config.Get()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDConsole)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	topic := cfg.SensorTopic()
	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		fmt.Println(formatPayload(msg.Payload()))
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: subscribed to %s", topic)

	lwt := "tele/" + cfg.DeviceTopic + "/LWT"
	lwtToken := client.Subscribe(lwt, 0, func(_ mqtt.Client, msg mqtt.Message) {
		fmt.Printf("[LWT   ] %s\n", msg.Payload())
	})
	lwtToken.Wait()
	if lwtToken.Error() != nil {
		return lwtToken.Error()
	}

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}
