package pgstore

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"hotelsync/internal/audit"
	"hotelsync/internal/booking"
	"hotelsync/internal/events"
	"hotelsync/internal/payment"
	"hotelsync/internal/statussync"
	"hotelsync/pkg/db"
)

// Store persists booking/payment pairs in Postgres. Reads use a repeatable
// read snapshot; writes rely on version columns for conflict detection.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

var snapshot = pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}

func (s *Store) LoadByBooking(ctx context.Context, bookingID string) (statussync.Pair, error) {
	var out statussync.Pair
	err := db.WithTxOptions(ctx, s.pool, snapshot, func(tx pgx.Tx) error {
		var err error
		out, err = loadPair(ctx, tx, bookingID)
		return err
	})
	return out, err
}

func (s *Store) LoadByPayment(ctx context.Context, paymentID string) (statussync.Pair, error) {
	var out statussync.Pair
	err := db.WithTxOptions(ctx, s.pool, snapshot, func(tx pgx.Tx) error {
		p, err := payment.Get(ctx, tx, paymentID)
		if err != nil {
			return notFound(err, statussync.PaymentNotFound(paymentID))
		}
		out, err = loadPair(ctx, tx, p.BookingRef)
		return err
	})
	return out, err
}

func loadPair(ctx context.Context, tx pgx.Tx, bookingID string) (statussync.Pair, error) {
	b, err := booking.Get(ctx, tx, bookingID)
	if err != nil {
		return statussync.Pair{}, notFound(err, statussync.BookingNotFound(bookingID))
	}
	out := statussync.Pair{Booking: *b}
	p, err := payment.GetByBooking(ctx, tx, bookingID)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
	case err != nil:
		return statussync.Pair{}, err
	default:
		out.Payment = p
	}
	return out, nil
}

func (s *Store) Commit(ctx context.Context, m statussync.Mutation) (statussync.Pair, error) {
	out := m.After
	b := out.Booking
	var pm *payment.Payment
	if out.Payment != nil {
		cp := *out.Payment
		pm = &cp
	}

	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if m.CreateBooking {
			if err := booking.Insert(ctx, tx, &b); err != nil {
				return mapWriteErr(err, "booking", b.ID)
			}
		} else {
			ok, err := booking.UpdateStatus(ctx, tx, &b)
			if err := versioned(ok, err, "booking", b.ID); err != nil {
				return err
			}
		}

		var paymentID *string
		if pm != nil {
			id := pm.ID
			paymentID = &id
			switch {
			case m.CreatePayment:
				if err := payment.Insert(ctx, tx, pm); err != nil {
					return mapWriteErr(err, "payment", pm.ID)
				}
			case m.PaymentChanged:
				ok, err := payment.UpdateStatus(ctx, tx, pm)
				if err := versioned(ok, err, "payment", pm.ID); err != nil {
					return err
				}
			}
		}

		for _, ev := range m.Events {
			if err := events.Insert(ctx, tx, b.ID, ev.Type, ev.Summary, ev.Actor, ev.OccurredAt, ev.Data); err != nil {
				return err
			}
		}
		return audit.Insert(ctx, tx, b.ID, paymentID, m.Action, m.Actor, map[string]any{
			"confirmed":     m.Confirmed,
			"bookingStatus": b.Status,
			"paymentStatus": b.PaymentStatus,
		})
	})
	if err != nil {
		return statussync.Pair{}, err
	}
	return statussync.Pair{Booking: b, Payment: pm}, nil
}

func (s *Store) Events(ctx context.Context, bookingID string) ([]statussync.Event, error) {
	rows, err := events.ListByBooking(ctx, s.pool, bookingID)
	if err != nil {
		return nil, err
	}
	out := make([]statussync.Event, 0, len(rows))
	for _, r := range rows {
		out = append(out, statussync.Event{
			Type:       r.EventType,
			Summary:    r.Summary,
			Actor:      r.Actor,
			OccurredAt: r.OccurredAt.UTC(),
			Data:       r.Data,
		})
	}
	return out, nil
}

// notFound maps a missing row to nf and passes other errors through.
func notFound(err error, nf *statussync.Error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return nf
	}
	return err
}

// versioned reports a zero-row versioned UPDATE as a Conflict.
func versioned(ok bool, err error, entity, id string) error {
	if err != nil {
		return err
	}
	if !ok {
		return statussync.Conflict(entity, id)
	}
	return nil
}

// mapWriteErr turns a duplicate insert into a Conflict; another request
// created the same row first.
func mapWriteErr(err error, entity, id string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		e := statussync.Conflict(entity, id)
		e.Err = err
		return e
	}
	return err
}
