package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/duongvyyyx/anti-traffic-jam/module/core/domain"
	"github.com/duongvyyyx/anti-traffic-jam/module/core/internal/repository/publisher"
)

var _ publisher.EventPublisher = (*EventPublisher)(nil)

const (
	exchangeName = "atj.events"
	queueName    = "traffic_events"
)

type EventPublisher struct {
	ch *amqp.Channel
}

func NewEventPublisher(conn *amqp.Connection) (*EventPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchangeName, "fanout", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(queueName, "", exchangeName, false, nil); err != nil {
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	return &EventPublisher{ch: ch}, nil
}

type eventMessage struct {
	Kind  string               `json:"kind"`
	ID    string               `json:"id"`
	Event *domain.TrafficEvent `json:"event,omitempty"`
}

func (p *EventPublisher) PublishInsert(ctx context.Context, ev *domain.TrafficEvent) error {
	return p.publish(ctx, eventMessage{Kind: "insert", ID: ev.ID, Event: ev})
}

func (p *EventPublisher) PublishExpire(ctx context.Context, eventID string) error {
	return p.publish(ctx, eventMessage{Kind: "expire", ID: eventID})
}

func (p *EventPublisher) publish(ctx context.Context, msg eventMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal event message: %w", err)
	}

	return p.ch.PublishWithContext(ctx, exchangeName, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}
