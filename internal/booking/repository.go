package booking

import (
	"context"

	"github.com/jackc/pgx/v5"
)

const selectColumns = `
SELECT id, status, payment_status, user_ref, hotel_ref, room_ref,
       check_in_date, check_out_date, created_at, updated_at, version
FROM bookings
`

// Querier is satisfied by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func Get(ctx context.Context, q Querier, id string) (*Booking, error) {
	return scan(q.QueryRow(ctx, selectColumns+`WHERE id = $1`, id))
}

func Insert(ctx context.Context, tx pgx.Tx, b *Booking) error {
	const q = `
INSERT INTO bookings (id, status, payment_status, user_ref, hotel_ref, room_ref, check_in_date, check_out_date, created_at, updated_at, version)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9, 1)
RETURNING created_at, updated_at, version
`
	return tx.QueryRow(ctx, q,
		b.ID, string(b.Status), string(b.PaymentStatus), b.UserRef, b.HotelRef, b.RoomRef,
		b.CheckInDate, b.CheckOutDate, b.CreatedAt,
	).Scan(&b.CreatedAt, &b.UpdatedAt, &b.Version)
}

// UpdateStatus writes both status fields if the stored version still matches
// b.Version. It reports false when the row was changed concurrently.
func UpdateStatus(ctx context.Context, tx pgx.Tx, b *Booking) (bool, error) {
	const q = `
UPDATE bookings
SET status = $1, payment_status = $2, updated_at = NOW(), version = version + 1
WHERE id = $3 AND version = $4
RETURNING updated_at, version
`
	err := tx.QueryRow(ctx, q, string(b.Status), string(b.PaymentStatus), b.ID, b.Version).Scan(&b.UpdatedAt, &b.Version)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func scan(row pgx.Row) (*Booking, error) {
	var b Booking
	var status, paymentStatus string
	if err := row.Scan(
		&b.ID, &status, &paymentStatus, &b.UserRef, &b.HotelRef, &b.RoomRef,
		&b.CheckInDate, &b.CheckOutDate, &b.CreatedAt, &b.UpdatedAt, &b.Version,
	); err != nil {
		return nil, err
	}
	b.Status = Status(status)
	b.PaymentStatus = PaymentStatus(paymentStatus)
	return &b, nil
}
