package config

import (
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// NewMQTT connects the device ingest broker. Returns (nil, nil) when no
// broker is configured; MQTT ingest is then disabled.
func NewMQTT(cfg *Config) (mqtt.Client, error) {
	if cfg.MQTTBroker == "" {
		return nil, nil
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	return client, nil
}
