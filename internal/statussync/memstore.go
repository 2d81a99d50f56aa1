package statussync

import (
	"context"
	"sync"
	"time"

	"hotelsync/internal/booking"
	"hotelsync/internal/payment"
)

// MemStore is a Store kept in process memory. It enforces the same version
// checks as the Postgres store and is used by tests and STORE=memory.
type MemStore struct {
	mu        sync.RWMutex
	bookings  map[string]booking.Booking
	payments  map[string]payment.Payment
	byBooking map[string]string
	events    map[string][]Event
	now       func() time.Time
}

func NewMemStore() *MemStore {
	return &MemStore{
		bookings:  make(map[string]booking.Booking),
		payments:  make(map[string]payment.Payment),
		byBooking: make(map[string]string),
		events:    make(map[string][]Event),
		now:       time.Now,
	}
}

func (s *MemStore) LoadByBooking(_ context.Context, bookingID string) (Pair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load(bookingID)
}

func (s *MemStore) LoadByPayment(_ context.Context, paymentID string) (Pair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payments[paymentID]
	if !ok {
		return Pair{}, PaymentNotFound(paymentID)
	}
	return s.load(p.BookingRef)
}

func (s *MemStore) load(bookingID string) (Pair, error) {
	b, ok := s.bookings[bookingID]
	if !ok {
		return Pair{}, BookingNotFound(bookingID)
	}
	out := Pair{Booking: b}
	if pid, ok := s.byBooking[bookingID]; ok {
		p := s.payments[pid]
		out.Payment = &p
	}
	return out.clone(), nil
}

func (s *MemStore) Commit(_ context.Context, m Mutation) (Pair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	b := m.After.Booking
	if m.CreateBooking {
		if _, exists := s.bookings[b.ID]; exists {
			return Pair{}, Conflict("booking", b.ID)
		}
		b.CreatedAt, b.UpdatedAt, b.Version = now, now, 1
	} else {
		stored, ok := s.bookings[b.ID]
		if !ok {
			return Pair{}, BookingNotFound(b.ID)
		}
		if stored.Version != b.Version {
			return Pair{}, Conflict("booking", b.ID)
		}
		b.CreatedAt, b.UpdatedAt, b.Version = stored.CreatedAt, now, stored.Version+1
	}

	var pm *payment.Payment
	if m.After.Payment != nil {
		p := *m.After.Payment
		switch {
		case m.CreatePayment:
			if _, exists := s.byBooking[b.ID]; exists {
				return Pair{}, Conflict("payment", p.ID)
			}
			p.CreatedAt, p.UpdatedAt, p.Version = now, now, 1
		case m.PaymentChanged:
			stored, ok := s.payments[p.ID]
			if !ok {
				return Pair{}, PaymentNotFound(p.ID)
			}
			if stored.Version != p.Version {
				return Pair{}, Conflict("payment", p.ID)
			}
			p.CreatedAt, p.UpdatedAt, p.Version = stored.CreatedAt, now, stored.Version+1
		}
		pm = &p
	}

	// All checks passed; apply both rows together.
	s.bookings[b.ID] = b
	if pm != nil && (m.CreatePayment || m.PaymentChanged) {
		s.payments[pm.ID] = *pm
		s.byBooking[b.ID] = pm.ID
	}
	s.events[b.ID] = append(s.events[b.ID], m.Events...)
	return Pair{Booking: b, Payment: pm}.clone(), nil
}

func (s *MemStore) Events(_ context.Context, bookingID string) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Event, len(s.events[bookingID]))
	copy(out, s.events[bookingID])
	return out, nil
}
