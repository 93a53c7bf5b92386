package service

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/duongvyyyx/anti-traffic-jam/module/core/domain"
	"github.com/duongvyyyx/anti-traffic-jam/module/core/internal/geoindex"
	"github.com/duongvyyyx/anti-traffic-jam/module/core/internal/hub"
	"github.com/duongvyyyx/anti-traffic-jam/module/core/internal/metrics"
	"github.com/duongvyyyx/anti-traffic-jam/module/core/internal/store"
)

// QueryService owns the read path: radius queries and live subscriptions.
// It only reads shared state and never blocks a concurrent report beyond the
// index's read lock.
type QueryService struct {
	store *store.EventStore
	index *geoindex.Grid
	hub   *hub.Hub
	now   func() time.Time
}

func NewQueryService(st *store.EventStore, idx *geoindex.Grid, h *hub.Hub) *QueryService {
	return &QueryService{store: st, index: idx, hub: h, now: time.Now}
}

// WithClock overrides the time source. Test hook.
func (s *QueryService) WithClock(now func() time.Time) *QueryService {
	s.now = now
	return s
}

// EventsNear returns the active events within q.RadiusKm of the center,
// newest first, capped at the store's list maximum.
func (s *QueryService) EventsNear(ctx context.Context, q domain.RadiusQuery) ([]*domain.TrafficEvent, error) {
	if !domain.ValidCoordinate(q.Latitude, q.Longitude) {
		return nil, domain.InvalidCoordinateError(q.Latitude, q.Longitude)
	}
	if q.RadiusKm < 0 || math.IsNaN(q.RadiusKm) || math.IsInf(q.RadiusKm, 0) {
		return nil, domain.InvalidCoordinateError(q.Latitude, q.Longitude)
	}
	metrics.RadiusQueriesTotal.Inc()

	now := s.now()
	ids := s.index.QueryRadius(q.Latitude, q.Longitude, q.RadiusKm)
	return s.materialize(ids, now), nil
}

// ListActive is the uncentered feed: every active event, newest first.
func (s *QueryService) ListActive(ctx context.Context) []*domain.TrafficEvent {
	return s.store.ListActive(s.now())
}

// Subscribe opens a live feed and returns the handle together with the
// initial snapshot of active events matching the filter. filter may be nil
// to receive everything.
func (s *QueryService) Subscribe(filter *domain.Filter) (*hub.Subscription, []*domain.TrafficEvent) {
	sub, ids := s.hub.Subscribe(filter)
	return sub, s.materialize(ids, s.now())
}

// materialize resolves ids against the canonical store, dropping any that
// expired or were swept between the index read and now.
func (s *QueryService) materialize(ids []string, now time.Time) []*domain.TrafficEvent {
	events := make([]*domain.TrafficEvent, 0, len(ids))
	for _, id := range ids {
		ev, err := s.store.GetActive(id, now)
		if err != nil {
			continue
		}
		events = append(events, ev)
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].Timestamp > events[j].Timestamp
	})

	if limit := s.store.MaxList(); len(events) > limit {
		events = events[:limit]
	}
	return events
}
