package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPPort         string
	PostgresDSN      string
	RabbitMQURL      string
	MQTTBroker       string
	MQTTClientID     string
	EventTTL         time.Duration
	SweepInterval    time.Duration
	MaxListEvents    int
	SubscriberBuffer int
}

func Load() *Config {
	return &Config{
		HTTPPort:         getEnv("HTTP_PORT", "8080"),
		PostgresDSN:      os.Getenv("POSTGRES_DSN"),
		RabbitMQURL:      os.Getenv("RABBITMQ_URL"),
		MQTTBroker:       os.Getenv("MQTT_BROKER"),
		MQTTClientID:     getEnv("MQTT_CLIENT_ID", "atj-server"),
		EventTTL:         getEnvDuration("EVENT_TTL", 2*time.Hour),
		SweepInterval:    getEnvDuration("SWEEP_INTERVAL", time.Minute),
		MaxListEvents:    getEnvInt("MAX_LIST_EVENTS", 500),
		SubscriberBuffer: getEnvInt("SUBSCRIBER_BUFFER", 64),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return fallback
}
