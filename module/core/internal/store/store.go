package store

import (
	"sort"
	"sync"
	"time"

	"github.com/duongvyyyx/anti-traffic-jam/module/core/domain"
)

const (
	DefaultTTL     = 2 * time.Hour
	DefaultMaxList = 500
)

// EventStore holds the canonical TrafficEvent records. It is keyed by event
// id on a sync.Map so inserts, reads and sweeps on unrelated events never
// serialize against each other.
type EventStore struct {
	events  sync.Map // id -> *domain.TrafficEvent
	ttl     time.Duration
	maxList int
}

func New(ttl time.Duration, maxList int) *EventStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxList <= 0 {
		maxList = DefaultMaxList
	}
	return &EventStore{ttl: ttl, maxList: maxList}
}

func (s *EventStore) TTL() time.Duration { return s.ttl }

func (s *EventStore) MaxList() int { return s.maxList }

// Insert stores the canonical record. The service has already validated the
// candidate and assigned id and timestamp.
func (s *EventStore) Insert(ev *domain.TrafficEvent) {
	s.events.Store(ev.ID, ev)
}

func (s *EventStore) Get(id string) (*domain.TrafficEvent, error) {
	v, ok := s.events.Load(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return v.(*domain.TrafficEvent), nil
}

// GetActive is Get plus the lazy expiry filter: an expired record still
// awaiting the sweep is reported as not found.
func (s *EventStore) GetActive(id string, now time.Time) (*domain.TrafficEvent, error) {
	ev, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if ev.Age(now) >= s.ttl {
		return nil, domain.ErrNotFound
	}
	return ev, nil
}

// ListActive returns all non-expired events, newest first, capped at the
// configured maximum.
func (s *EventStore) ListActive(now time.Time) []*domain.TrafficEvent {
	var active []*domain.TrafficEvent
	s.events.Range(func(_, v any) bool {
		ev := v.(*domain.TrafficEvent)
		if ev.Age(now) < s.ttl {
			active = append(active, ev)
		}
		return true
	})

	sort.Slice(active, func(i, j int) bool {
		return active[i].Timestamp > active[j].Timestamp
	})

	if len(active) > s.maxList {
		active = active[:s.maxList]
	}
	return active
}

// SweepExpired physically removes expired records and returns them so the
// caller can propagate the removals to the index and subscribers.
func (s *EventStore) SweepExpired(now time.Time) []*domain.TrafficEvent {
	var expired []*domain.TrafficEvent
	s.events.Range(func(k, v any) bool {
		ev := v.(*domain.TrafficEvent)
		if ev.Age(now) >= s.ttl {
			s.events.Delete(k)
			expired = append(expired, ev)
		}
		return true
	})
	return expired
}

func (s *EventStore) Len() int {
	n := 0
	s.events.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
