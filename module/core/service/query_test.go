package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/duongvyyyx/anti-traffic-jam/module/core/domain"
)

func TestEventsNear_InvalidCenter(t *testing.T) {
	f := newFixture(nil, nil)

	cases := []domain.RadiusQuery{
		{Latitude: 91, Longitude: 0, RadiusKm: 1},
		{Latitude: 0, Longitude: -181, RadiusKm: 1},
		{Latitude: math.NaN(), Longitude: 0, RadiusKm: 1},
		{Latitude: 0, Longitude: 0, RadiusKm: -1},
		{Latitude: 0, Longitude: 0, RadiusKm: math.Inf(1)},
	}
	for _, q := range cases {
		if _, err := f.query.EventsNear(context.Background(), q); !errors.Is(err, domain.ErrInvalidCoordinate) {
			t.Errorf("query %+v: expected ErrInvalidCoordinate, got %v", q, err)
		}
	}
}

func TestEventsNear_NewestFirst(t *testing.T) {
	f := newFixture(nil, nil)

	first, _ := f.report.Report(context.Background(), candidate())
	f.clock.Advance(time.Minute)
	second, _ := f.report.Report(context.Background(), candidate())
	f.clock.Advance(time.Minute)
	third, _ := f.report.Report(context.Background(), candidate())

	events, err := f.query.EventsNear(context.Background(), domain.RadiusQuery{
		Latitude: -6.2088, Longitude: 106.8456, RadiusKm: 5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	for i, want := range []string{third.ID, second.ID, first.ID} {
		if events[i].ID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, events[i].ID)
		}
	}
}

func TestEventsNear_NeverReturnsExpired(t *testing.T) {
	f := newFixture(nil, nil)

	if _, err := f.report.Report(context.Background(), candidate()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// no sweep has run; the lazy filter alone must hide the event
	f.clock.Advance(2*time.Hour + time.Second)

	events, err := f.query.EventsNear(context.Background(), domain.RadiusQuery{
		Latitude: -6.2088, Longitude: 106.8456, RadiusKm: 10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events past the horizon, got %d", len(events))
	}
}

func TestEventsNear_RespectsRadius(t *testing.T) {
	f := newFixture(nil, nil)

	near := candidate()
	near.ID = "near"
	far := candidate()
	far.ID = "far"
	far.Latitude = -6.2088 + 1 // ~111 km north

	if _, err := f.report.Report(context.Background(), near); err != nil {
		t.Fatal(err)
	}
	if _, err := f.report.Report(context.Background(), far); err != nil {
		t.Fatal(err)
	}

	events, err := f.query.EventsNear(context.Background(), domain.RadiusQuery{
		Latitude: -6.2088, Longitude: 106.8456, RadiusKm: 10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 || events[0].ID != "near" {
		t.Fatalf("expected only the near event, got %v", events)
	}
}

func TestListActive_CapAndOrder(t *testing.T) {
	f := newFixture(nil, nil)

	for i := 0; i < 3; i++ {
		if _, err := f.report.Report(context.Background(), candidate()); err != nil {
			t.Fatal(err)
		}
		f.clock.Advance(time.Second)
	}

	events := f.query.ListActive(context.Background())
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	for i := 1; i < len(events); i++ {
		if events[i-1].Timestamp < events[i].Timestamp {
			t.Fatal("expected newest-first ordering")
		}
	}
}

func TestSubscribe_SnapshotContainsEarlierReports(t *testing.T) {
	f := newFixture(nil, nil)

	ev, err := f.report.Report(context.Background(), candidate())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sub, snapshot := f.query.Subscribe(nil)
	defer sub.Cancel()

	if len(snapshot) != 1 || snapshot[0].ID != ev.ID {
		t.Fatalf("expected snapshot with %s, got %v", ev.ID, snapshot)
	}

	select {
	case u := <-sub.Updates():
		t.Fatalf("snapshot event must not also arrive as a notification: %+v", u)
	default:
	}
}

func TestSubscribe_FilteredSnapshot(t *testing.T) {
	f := newFixture(nil, nil)

	near := candidate()
	near.ID = "near"
	far := candidate()
	far.ID = "far"
	far.Latitude = 40

	if _, err := f.report.Report(context.Background(), near); err != nil {
		t.Fatal(err)
	}
	if _, err := f.report.Report(context.Background(), far); err != nil {
		t.Fatal(err)
	}

	sub, snapshot := f.query.Subscribe(&domain.Filter{
		Latitude: -6.2088, Longitude: 106.8456, RadiusKm: 10,
	})
	defer sub.Cancel()

	if len(snapshot) != 1 || snapshot[0].ID != "near" {
		t.Fatalf("expected filtered snapshot [near], got %v", snapshot)
	}
}
