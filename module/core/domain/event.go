package domain

import (
	"math"
	"time"
)

type EventType string

const (
	EventTrafficJam   EventType = "traffic_jam"
	EventAccident     EventType = "accident"
	EventConstruction EventType = "construction"
	EventPolice       EventType = "police"
)

func (t EventType) IsValid() bool {
	switch t {
	case EventTrafficJam, EventAccident, EventConstruction, EventPolice:
		return true
	}
	return false
}

// TrafficEvent is the canonical record. It is never mutated after creation;
// the store owns it and every other component holds only the id and
// coordinates.
type TrafficEvent struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Timestamp  int64     `json:"timestamp"` // epoch milliseconds, UTC, server-assigned
	ReporterID string    `json:"userId"`
}

func (e *TrafficEvent) Time() time.Time {
	return time.UnixMilli(e.Timestamp).UTC()
}

func (e *TrafficEvent) Age(now time.Time) time.Duration {
	return now.Sub(e.Time())
}

// ReportCandidate is a report as received from a caller, before the service
// assigns id and timestamp. Timestamp is advisory only and never trusted for
// expiry filtering.
type ReportCandidate struct {
	ID        string    `json:"id,omitempty"`
	Type      EventType `json:"type"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp int64     `json:"timestamp,omitempty"`
	UserID    string    `json:"userId,omitempty"`
}

func ValidCoordinate(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lon) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// RadiusQuery selects events within RadiusKm of a center point.
type RadiusQuery struct {
	Latitude  float64
	Longitude float64
	RadiusKm  float64
}

// Filter restricts a live subscription to a radius around a center.
// A nil *Filter matches every event.
type Filter struct {
	Latitude  float64
	Longitude float64
	RadiusKm  float64
}

func (f *Filter) Matches(lat, lon float64) bool {
	if f == nil {
		return true
	}
	return Haversine(f.Latitude, f.Longitude, lat, lon) <= f.RadiusKm
}

const earthRadiusKm = 6371.0

// Haversine returns the great-circle distance in kilometers between two
// points on the WGS 84 sphere approximation.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
