package main

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strconv"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type reportMessage struct {
	Type      string  `json:"type"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp int64   `json:"timestamp"`
}

var eventTypes = []string{"traffic_jam", "accident", "construction", "police"}

// Reports cluster around central Jakarta so radius queries against a local
// server have something to find.
const (
	centerLat = -6.2088
	centerLon = 106.8456
)

func randomDeviceID() string {
	return fmt.Sprintf("device-%04d", rand.Intn(10000))
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <interval_seconds>\n", os.Args[0])
		os.Exit(1)
	}

	intervalSec, err := strconv.Atoi(os.Args[1])
	if err != nil || intervalSec <= 0 {
		fmt.Fprintf(os.Stderr, "error: interval must be a positive integer\n")
		os.Exit(1)
	}

	broker := "tcp://localhost:1883"
	if v := os.Getenv("MQTT_BROKER"); v != "" {
		broker = v
	}

	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID("atj-mock-reporter")

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalf("mqtt connect: %v", token.Error())
	}
	defer client.Disconnect(250)

	devicePool := make([]string, 5)
	for i := range devicePool {
		devicePool[i] = randomDeviceID()
	}

	log.Printf("connected to %s, reporting every %ds...", broker, intervalSec)
	log.Printf("device pool: %v", devicePool)

	ticker := time.NewTicker(time.Duration(intervalSec) * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		device := devicePool[rand.Intn(len(devicePool))]

		// ~10km jitter around the city center
		lat := centerLat + (rand.Float64()-0.5)*0.18
		lon := centerLon + (rand.Float64()-0.5)*0.18

		msg := reportMessage{
			Type:      eventTypes[rand.Intn(len(eventTypes))],
			Latitude:  lat,
			Longitude: lon,
			Timestamp: time.Now().UnixMilli(),
		}

		payload, _ := json.Marshal(msg)
		topic := fmt.Sprintf("atj/report/%s", device)

		token := client.Publish(topic, 1, false, payload)
		token.Wait()

		log.Printf("published to %s: %s", topic, payload)
	}
}
