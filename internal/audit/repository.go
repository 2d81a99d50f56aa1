package audit

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
)

// Insert records who asked for a change. paymentID may be nil for
// booking-only actions.
func Insert(ctx context.Context, tx pgx.Tx, bookingID string, paymentID *string, action, actor string, metadata any) error {
	var s *string
	if metadata != nil {
		b, err := json.Marshal(metadata)
		if err != nil {
			return err
		}
		str := string(b)
		s = &str
	}
	const q = `
INSERT INTO audit_logs (booking_id, payment_id, action, actor, metadata)
VALUES ($1, $2, $3, $4, CAST($5 AS jsonb))
`
	_, err := tx.Exec(ctx, q, bookingID, paymentID, action, actor, s)
	return err
}
