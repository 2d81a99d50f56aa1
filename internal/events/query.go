package events

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

type Event struct {
	ID         int64          `json:"id"`
	BookingID  string         `json:"bookingId"`
	EventType  string         `json:"eventType"`
	Summary    string         `json:"summary"`
	Actor      string         `json:"actor"`
	OccurredAt time.Time      `json:"occurredAt"`
	Data       map[string]any `json:"data,omitempty"`
}

type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func ListByBooking(ctx context.Context, db Querier, bookingID string) ([]Event, error) {
	const q = `
SELECT id, booking_id, event_type, summary, actor, occurred_at, COALESCE(data, '{}'::jsonb)
FROM booking_events
WHERE booking_id = $1
ORDER BY id ASC
`
	rows, err := db.Query(ctx, q, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.BookingID, &e.EventType, &e.Summary, &e.Actor, &e.OccurredAt, &e.Data); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
