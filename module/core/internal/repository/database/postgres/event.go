package postgres

import (
	"context"
	"database/sql"

	"github.com/duongvyyyx/anti-traffic-jam/module/core/domain"
	"github.com/duongvyyyx/anti-traffic-jam/module/core/internal/repository/database"
)

var _ database.EventArchive = (*EventRepo)(nil)

type EventRepo struct {
	db *sql.DB
}

func NewEventRepo(db *sql.DB) *EventRepo {
	return &EventRepo{db: db}
}

func (r *EventRepo) Insert(ctx context.Context, ev *domain.TrafficEvent) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO traffic_events (id, type, latitude, longitude, timestamp, reporter_id) VALUES ($1, $2, $3, $4, $5, $6)`,
		ev.ID, string(ev.Type), ev.Latitude, ev.Longitude, ev.Timestamp, ev.ReporterID,
	)
	return err
}

func (r *EventRepo) DeleteExpired(ctx context.Context, beforeMillis int64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM traffic_events WHERE timestamp < $1`,
		beforeMillis,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *EventRepo) ListSince(ctx context.Context, sinceMillis int64) ([]domain.TrafficEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, type, latitude, longitude, timestamp, reporter_id FROM traffic_events WHERE timestamp >= $1 ORDER BY timestamp DESC`,
		sinceMillis,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []domain.TrafficEvent
	for rows.Next() {
		var ev domain.TrafficEvent
		var typ string
		if err := rows.Scan(&ev.ID, &typ, &ev.Latitude, &ev.Longitude, &ev.Timestamp, &ev.ReporterID); err != nil {
			return nil, err
		}
		ev.Type = domain.EventType(typ)
		results = append(results, ev)
	}
	return results, rows.Err()
}
