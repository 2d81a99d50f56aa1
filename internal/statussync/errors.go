package statussync

import "fmt"

type Kind string

const (
	KindInvalidTransition   Kind = "INVALID_TRANSITION"
	KindPaymentLocked       Kind = "PAYMENT_LOCKED"
	KindIrreversiblePayment Kind = "IRREVERSIBLE_PAYMENT"
	KindConflict            Kind = "CONFLICT"
	KindNotFound            Kind = "NOT_FOUND"
	KindInvalidInput        Kind = "INVALID_INPUT"
)

// Reason codes narrow a Kind so callers can render a precise message.
const (
	ReasonUnreachable      = "TARGET_UNREACHABLE"
	ReasonBookingCancelled = "BOOKING_CANCELLED"
	ReasonAmbiguousDelta   = "AMBIGUOUS_DELTA"
	ReasonPaidLocksBooking = "PAID_LOCKS_BOOKING"
	ReasonPaidToUnsettled  = "PAID_TO_UNSETTLED"
	ReasonStaleVersion     = "STALE_VERSION"
	ReasonBookingNotFound  = "BOOKING_NOT_FOUND"
	ReasonPaymentNotFound  = "PAYMENT_NOT_FOUND"
	ReasonInvalidInput     = "INVALID_INPUT"
)

// Error is the single error type returned by the engine and its stores.
type Error struct {
	Kind    Kind
	Reason  string
	Message string
	Err     error
}

var (
	ErrInvalidTransition   = &Error{Kind: KindInvalidTransition}
	ErrPaymentLocked       = &Error{Kind: KindPaymentLocked}
	ErrIrreversiblePayment = &Error{Kind: KindIrreversiblePayment}
	ErrConflict            = &Error{Kind: KindConflict}
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrInvalidInput        = &Error{Kind: KindInvalidInput}
)

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind so errors.Is(err, ErrConflict) works for any reason.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Reason == "" || t.Reason == e.Reason)
}

// Retryable reports whether re-reading and resubmitting the same request
// may succeed. Only stale-version conflicts qualify.
func (e *Error) Retryable() bool { return e.Kind == KindConflict }

func newError(kind Kind, reason, format string, args ...any) *Error {
	return &Error{Kind: kind, Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// Conflict builds the error stores return when a versioned write loses a race.
func Conflict(entity, id string) *Error {
	return newError(KindConflict, ReasonStaleVersion, "%s %s was modified concurrently; reload and retry", entity, id)
}

func BookingNotFound(id string) *Error {
	return newError(KindNotFound, ReasonBookingNotFound, "booking %s not found", id)
}

func PaymentNotFound(id string) *Error {
	return newError(KindNotFound, ReasonPaymentNotFound, "payment %s not found", id)
}
