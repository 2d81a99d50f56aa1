package statussync

import (
	"context"
	"time"
)

const (
	EventBookingCreated       = "BOOKING_CREATED"
	EventPaymentOpened        = "PAYMENT_OPENED"
	EventStatusChanged        = "STATUS_CHANGED"
	EventPaymentStatusChanged = "PAYMENT_STATUS_CHANGED"
	EventPaymentVoided        = "PAYMENT_VOIDED"
	EventAutoConfirmed        = "BOOKING_AUTO_CONFIRMED"
)

// Event is one entry on a booking's timeline.
type Event struct {
	Type       string         `json:"eventType"`
	Summary    string         `json:"summary"`
	Actor      string         `json:"actor"`
	OccurredAt time.Time      `json:"occurredAt"`
	Data       map[string]any `json:"data,omitempty"`
}

// Mutation is everything one request commits. Versions on After are the
// versions that were read; the store rejects the write with a Conflict error
// when the stored rows no longer carry them.
type Mutation struct {
	After         Pair
	CreateBooking bool
	CreatePayment bool
	// PaymentChanged is false when only the booking row needs writing.
	PaymentChanged bool
	Action         string
	Actor          string
	Confirmed      bool
	Events         []Event
}

// Store loads and commits booking/payment pairs. Implementations must apply
// a Mutation atomically and return the committed pair with new versions.
type Store interface {
	LoadByBooking(ctx context.Context, bookingID string) (Pair, error)
	LoadByPayment(ctx context.Context, paymentID string) (Pair, error)
	Commit(ctx context.Context, m Mutation) (Pair, error)
	Events(ctx context.Context, bookingID string) ([]Event, error)
}

// Locker serializes requests for the same booking.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// Notifier receives committed changes. Errors are logged, never surfaced.
type Notifier interface {
	Publish(ctx context.Context, c Change) error
}

// Change is the notification payload for one committed transition.
type Change struct {
	BookingID             string    `json:"bookingId"`
	PaymentID             string    `json:"paymentId,omitempty"`
	Action                string    `json:"action"`
	BookingStatus         string    `json:"bookingStatus"`
	PaymentStatus         string    `json:"paymentStatus"`
	PreviousBookingStatus string    `json:"previousBookingStatus,omitempty"`
	PreviousPaymentStatus string    `json:"previousPaymentStatus,omitempty"`
	Actor                 string    `json:"actor"`
	OccurredAt            time.Time `json:"occurredAt"`
}
