package subscriber

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/duongvyyyx/anti-traffic-jam/module/core/domain"
)

// Roadside units and in-vehicle devices publish reports to
// atj/report/<device_id>; the device id segment is the reporter identity.
const topicPattern = "atj/report/+"

type reportService interface {
	Report(ctx context.Context, cand *domain.ReportCandidate) (*domain.TrafficEvent, error)
}

type reportMessage struct {
	Type      string  `json:"type"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp int64   `json:"timestamp,omitempty"`
}

type ReportSubscriber struct {
	client    mqtt.Client
	reportSvc reportService
}

func NewReportSubscriber(client mqtt.Client, reportSvc reportService) *ReportSubscriber {
	return &ReportSubscriber{client: client, reportSvc: reportSvc}
}

func (s *ReportSubscriber) Start() error {
	token := s.client.Subscribe(topicPattern, 1, s.handleMessage)
	token.Wait()
	return token.Error()
}

func (s *ReportSubscriber) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	var raw reportMessage
	if err := json.Unmarshal(msg.Payload(), &raw); err != nil {
		log.Printf("invalid report message on %s: %v", msg.Topic(), err)
		return
	}

	deviceID := deviceIDFromTopic(msg.Topic())
	if deviceID == "" {
		log.Printf("report without device id on %s", msg.Topic())
		return
	}

	cand := &domain.ReportCandidate{
		Type:      domain.EventType(raw.Type),
		Latitude:  raw.Latitude,
		Longitude: raw.Longitude,
		Timestamp: raw.Timestamp,
		UserID:    deviceID,
	}

	if _, err := s.reportSvc.Report(context.Background(), cand); err != nil {
		log.Printf("report from %s rejected: %v", deviceID, err)
	}
}

func deviceIDFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 {
		return ""
	}
	return parts[2]
}
