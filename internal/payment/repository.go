package payment

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const selectColumns = `
SELECT id, booking_id, status, amount::text, method, paid_at, created_at, updated_at, version
FROM payments
`

type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func Get(ctx context.Context, q Querier, id string) (*Payment, error) {
	return scan(q.QueryRow(ctx, selectColumns+`WHERE id = $1`, id))
}

// GetByBooking returns the payment owned by bookingID. pgx.ErrNoRows means
// the booking has no payment record yet.
func GetByBooking(ctx context.Context, q Querier, bookingID string) (*Payment, error) {
	return scan(q.QueryRow(ctx, selectColumns+`WHERE booking_id = $1`, bookingID))
}

func Insert(ctx context.Context, tx pgx.Tx, p *Payment) error {
	const q = `
INSERT INTO payments (id, booking_id, status, amount, method, paid_at, created_at, updated_at, version)
VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $7, 1)
RETURNING created_at, updated_at, version
`
	return tx.QueryRow(ctx, q,
		p.ID, p.BookingRef, string(p.Status), p.Amount.String(), p.Method, p.PaidAt, p.CreatedAt,
	).Scan(&p.CreatedAt, &p.UpdatedAt, &p.Version)
}

// UpdateStatus writes status and paid_at if the stored version still matches
// p.Version. It reports false when the row was changed concurrently.
func UpdateStatus(ctx context.Context, tx pgx.Tx, p *Payment) (bool, error) {
	const q = `
UPDATE payments
SET status = $1, paid_at = $2, updated_at = NOW(), version = version + 1
WHERE id = $3 AND version = $4
RETURNING updated_at, version
`
	err := tx.QueryRow(ctx, q, string(p.Status), p.PaidAt, p.ID, p.Version).Scan(&p.UpdatedAt, &p.Version)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func scan(row pgx.Row) (*Payment, error) {
	var p Payment
	var status, amount string
	var paidAt *time.Time
	if err := row.Scan(&p.ID, &p.BookingRef, &status, &amount, &p.Method, &paidAt, &p.CreatedAt, &p.UpdatedAt, &p.Version); err != nil {
		return nil, err
	}
	amt, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, err
	}
	p.Status = Status(status)
	p.Amount = amt
	p.PaidAt = paidAt
	return &p, nil
}
