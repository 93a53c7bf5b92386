package publisher

import (
	"context"

	"github.com/duongvyyyx/anti-traffic-jam/module/core/domain"
)

// EventPublisher bridges the in-process fan-out to external consumers
// (push-notification workers, dashboards).
type EventPublisher interface {
	PublishInsert(ctx context.Context, ev *domain.TrafficEvent) error
	PublishExpire(ctx context.Context, eventID string) error
}
