package service

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/duongvyyyx/anti-traffic-jam/module/core/domain"
	"github.com/duongvyyyx/anti-traffic-jam/module/core/internal/geoindex"
	"github.com/duongvyyyx/anti-traffic-jam/module/core/internal/hub"
	"github.com/duongvyyyx/anti-traffic-jam/module/core/internal/metrics"
	"github.com/duongvyyyx/anti-traffic-jam/module/core/internal/repository/database"
	"github.com/duongvyyyx/anti-traffic-jam/module/core/internal/repository/publisher"
	"github.com/duongvyyyx/anti-traffic-jam/module/core/internal/store"
)

const DefaultSweepInterval = time.Minute

// ReportService owns the write path: validate, commit to the store, then
// index, then fan out. Archive and broker are write-behind and best-effort;
// their failures never fail a report.
type ReportService struct {
	store   *store.EventStore
	index   *geoindex.Grid
	hub     *hub.Hub
	archive database.EventArchive
	pub     publisher.EventPublisher
	now     func() time.Time
}

func NewReportService(st *store.EventStore, idx *geoindex.Grid, h *hub.Hub, archive database.EventArchive, pub publisher.EventPublisher) *ReportService {
	return &ReportService{
		store:   st,
		index:   idx,
		hub:     h,
		archive: archive,
		pub:     pub,
		now:     time.Now,
	}
}

// WithClock overrides the time source. Test hook.
func (s *ReportService) WithClock(now func() time.Time) *ReportService {
	s.now = now
	return s
}

// Report validates the candidate, assigns id and server timestamp, and
// commits in strict order: store, index, hub. A validation failure creates
// nothing; the index and hub are only touched after the store commit, so a
// reader can never observe a partially-indexed event.
func (s *ReportService) Report(ctx context.Context, cand *domain.ReportCandidate) (*domain.TrafficEvent, error) {
	if !cand.Type.IsValid() {
		metrics.ReportsRejectedTotal.Inc()
		return nil, domain.InvalidTypeError(cand.Type)
	}
	if !domain.ValidCoordinate(cand.Latitude, cand.Longitude) {
		metrics.ReportsRejectedTotal.Inc()
		return nil, domain.InvalidCoordinateError(cand.Latitude, cand.Longitude)
	}

	id := cand.ID
	if id == "" {
		id = uuid.New().String()
	}

	// client timestamps are advisory only; the server clock is authoritative
	ev := &domain.TrafficEvent{
		ID:         id,
		Type:       cand.Type,
		Latitude:   cand.Latitude,
		Longitude:  cand.Longitude,
		Timestamp:  s.now().UTC().UnixMilli(),
		ReporterID: cand.UserID,
	}

	s.store.Insert(ev)
	s.index.Add(ev.ID, ev.Latitude, ev.Longitude)
	s.hub.NotifyInsert(ev)
	metrics.ReportsTotal.WithLabelValues(string(ev.Type)).Inc()

	if s.archive != nil {
		if err := s.archive.Insert(ctx, ev); err != nil {
			log.Printf("archive insert %s: %v", ev.ID, err)
		}
	}
	if s.pub != nil {
		if err := s.pub.PublishInsert(ctx, ev); err != nil {
			log.Printf("publish insert %s: %v", ev.ID, err)
		}
	}

	return ev, nil
}

// Sweep removes every event past the TTL and propagates the removals.
// Returns the number of events removed.
func (s *ReportService) Sweep(ctx context.Context) int {
	now := s.now()
	expired := s.store.SweepExpired(now)
	for _, ev := range expired {
		s.index.Remove(ev.ID)
		s.hub.NotifyExpire(ev.ID)
		if s.pub != nil {
			if err := s.pub.PublishExpire(ctx, ev.ID); err != nil {
				log.Printf("publish expire %s: %v", ev.ID, err)
			}
		}
	}
	if len(expired) > 0 {
		metrics.EventsExpiredTotal.Add(float64(len(expired)))
	}

	if s.archive != nil {
		cutoff := now.Add(-s.store.TTL()).UnixMilli()
		if _, err := s.archive.DeleteExpired(ctx, cutoff); err != nil {
			log.Printf("archive sweep: %v", err)
		}
	}
	return len(expired)
}

// RunSweeper runs Sweep on the given interval until ctx is cancelled.
func (s *ReportService) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(ctx); n > 0 {
				log.Printf("swept %d expired events", n)
			}
		}
	}
}

// Restore replays archived events newer than the TTL into the store and
// index. Called once at startup, before any subscriber exists.
func (s *ReportService) Restore(ctx context.Context) (int, error) {
	if s.archive == nil {
		return 0, nil
	}
	since := s.now().Add(-s.store.TTL()).UnixMilli()
	events, err := s.archive.ListSince(ctx, since)
	if err != nil {
		return 0, err
	}
	for i := range events {
		ev := events[i]
		s.store.Insert(&ev)
		s.index.Add(ev.ID, ev.Latitude, ev.Longitude)
		s.hub.NotifyInsert(&ev)
	}
	return len(events), nil
}
