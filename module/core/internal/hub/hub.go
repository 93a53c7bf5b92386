package hub

import (
	"sync"
	"sync/atomic"

	"github.com/duongvyyyx/anti-traffic-jam/module/core/domain"
)

const DefaultBuffer = 64

type UpdateKind string

const (
	UpdateInsert UpdateKind = "insert"
	UpdateExpire UpdateKind = "expire"
)

// Update is one incremental change delivered to a subscriber. Event is set
// for inserts; ID is always set.
type Update struct {
	Kind  UpdateKind
	ID    string
	Event *domain.TrafficEvent
}

type point struct {
	lat float64
	lon float64
}

// Hub fans out inserts and expiries to live subscribers. It holds only event
// ids and coordinates, never canonical records; expiry matching uses the
// coordinates remembered at insert time so a subscriber that saw an event
// also sees its removal.
type Hub struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]*Subscription
	coords map[string]point
	buffer int
	drops  atomic.Uint64
}

func New(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		subs:   make(map[uint64]*Subscription),
		coords: make(map[string]point),
		buffer: buffer,
	}
}

// Subscription is a registered live feed. Updates are read from Updates();
// Cancel is idempotent and safe after the hub already dropped the handle.
type Subscription struct {
	id      uint64
	filter  *domain.Filter
	updates chan Update
	hub     *Hub
}

func (s *Subscription) Updates() <-chan Update { return s.updates }

func (s *Subscription) Cancel() { s.hub.unsubscribe(s.id) }

// Subscribe registers a subscriber and returns the ids of live events
// currently matching the filter. Registration and snapshot happen under one
// lock, so every later insert is delivered exactly once and every event
// already notified is in the snapshot — no missed window, no duplicates.
func (h *Hub) Subscribe(filter *domain.Filter) (*Subscription, []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	sub := &Subscription{
		id:      h.nextID,
		filter:  filter,
		updates: make(chan Update, h.buffer),
		hub:     h,
	}
	h.subs[sub.id] = sub

	var snapshot []string
	for id, p := range h.coords {
		if filter.Matches(p.lat, p.lon) {
			snapshot = append(snapshot, id)
		}
	}
	return sub, snapshot
}

func (h *Hub) unsubscribe(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub, ok := h.subs[id]
	if !ok {
		return
	}
	delete(h.subs, id)
	close(sub.updates)
}

// NotifyInsert pushes the event to every subscriber whose filter matches.
// Called by the service after the store and index commits.
func (h *Hub) NotifyInsert(ev *domain.TrafficEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.coords[ev.ID] = point{lat: ev.Latitude, lon: ev.Longitude}
	for _, sub := range h.subs {
		if sub.filter.Matches(ev.Latitude, ev.Longitude) {
			h.enqueue(sub, Update{Kind: UpdateInsert, ID: ev.ID, Event: ev})
		}
	}
}

// NotifyExpire pushes a removal to every subscriber whose filter matched the
// event's coordinates.
func (h *Hub) NotifyExpire(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	p, ok := h.coords[id]
	if !ok {
		return
	}
	delete(h.coords, id)
	for _, sub := range h.subs {
		if sub.filter.Matches(p.lat, p.lon) {
			h.enqueue(sub, Update{Kind: UpdateExpire, ID: id})
		}
	}
}

// enqueue never blocks ingestion: when a subscriber's queue is full the
// oldest undelivered update is dropped to make room. Runs under h.mu, so
// there is never a concurrent enqueuer on the same channel.
func (h *Hub) enqueue(sub *Subscription, u Update) {
	for {
		select {
		case sub.updates <- u:
			return
		default:
		}
		select {
		case <-sub.updates:
			h.drops.Add(1)
		default:
		}
	}
}

// Drops is the total number of updates discarded due to slow subscribers.
func (h *Hub) Drops() uint64 { return h.drops.Load() }

func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
