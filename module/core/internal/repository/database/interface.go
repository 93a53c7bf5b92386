package database

import (
	"context"

	"github.com/duongvyyyx/anti-traffic-jam/module/core/domain"
)

// EventArchive is a write-behind record of reports. The in-memory store is
// authoritative; the archive exists so a restart within the event horizon
// can replay recent reports.
type EventArchive interface {
	Insert(ctx context.Context, ev *domain.TrafficEvent) error
	DeleteExpired(ctx context.Context, beforeMillis int64) (int64, error)
	ListSince(ctx context.Context, sinceMillis int64) ([]domain.TrafficEvent, error)
}
