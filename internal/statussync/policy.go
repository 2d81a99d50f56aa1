package statussync

import (
	"fmt"

	"hotelsync/internal/booking"
	"hotelsync/internal/payment"
)

// Pair is one consistent snapshot of a booking and its payment, if any.
type Pair struct {
	Booking booking.Booking  `json:"booking"`
	Payment *payment.Payment `json:"payment,omitempty"`
}

func (p Pair) clone() Pair {
	out := Pair{Booking: p.Booking}
	if p.Payment != nil {
		pm := *p.Payment
		if pm.PaidAt != nil {
			t := *pm.PaidAt
			pm.PaidAt = &t
		}
		out.Payment = &pm
	}
	return out
}

// Delta is a proposed change to exactly one of the two status fields.
type Delta struct {
	BookingStatus *booking.Status
	PaymentStatus *payment.Status
}

func BookingDelta(to booking.Status) Delta { return Delta{BookingStatus: &to} }

func PaymentDelta(to payment.Status) Delta { return Delta{PaymentStatus: &to} }

type Verdict int

const (
	Allow Verdict = iota
	AllowWithForcedSideEffect
	RequireConfirmation
	Reject
)

func (v Verdict) String() string {
	switch v {
	case Allow:
		return "Allow"
	case AllowWithForcedSideEffect:
		return "AllowWithForcedSideEffect"
	case RequireConfirmation:
		return "RequireConfirmation"
	case Reject:
		return "Reject"
	default:
		return fmt.Sprintf("Verdict(%d)", int(v))
	}
}

// Effect is a change to the other entity that the policy forces.
type Effect string

const (
	// EffectVoidPayment resets the payment (if any) and the booking mirror to Unpaid.
	EffectVoidPayment Effect = "VOID_PAYMENT"
	// EffectAutoConfirm moves the booking to Confirmed.
	EffectAutoConfirm Effect = "AUTO_CONFIRM_BOOKING"
)

type Decision struct {
	Verdict Verdict
	// Noop is set when the target equals the current state.
	Noop    bool
	Effects []Effect
	Prompt  string
	Err     *Error
}

func allow() Decision { return Decision{Verdict: Allow} }

func noop() Decision { return Decision{Verdict: Allow, Noop: true} }

func reject(err *Error) Decision { return Decision{Verdict: Reject, Err: err} }

func forced(effects ...Effect) Decision {
	return Decision{Verdict: AllowWithForcedSideEffect, Effects: effects}
}

// paymentEdgesNeedingConfirmation are the payment moves the caller must
// re-assert. Paid to Unpaid is listed in the caller-facing table too but is
// rejected before the gate is consulted.
var paymentEdgesNeedingConfirmation = map[payment.Status]map[payment.Status]bool{
	payment.StatusUnpaid: {payment.StatusPaid: true},
}

// Decide evaluates d against cur. It is the only place the cross-entity
// transition rules live; the machines apply whatever it returns.
func Decide(cur Pair, d Delta) Decision {
	switch {
	case d.BookingStatus != nil && d.PaymentStatus == nil:
		return decideBooking(cur, *d.BookingStatus)
	case d.PaymentStatus != nil && d.BookingStatus == nil:
		return decidePayment(cur, *d.PaymentStatus)
	default:
		return reject(newError(KindInvalidTransition, ReasonAmbiguousDelta, "exactly one of booking status or payment status must change"))
	}
}

func decideBooking(cur Pair, to booking.Status) Decision {
	b := cur.Booking
	if to == b.Status {
		return noop()
	}
	if b.PaymentStatus == booking.PaymentPaid {
		return reject(newError(KindPaymentLocked, ReasonPaidLocksBooking,
			"booking %s is fully paid; its status cannot change from %s", b.ID, b.Status))
	}
	if !booking.CanTransition(b.Status, to) {
		return reject(newError(KindInvalidTransition, ReasonUnreachable,
			"booking %s cannot move from %s to %s", b.ID, b.Status, to))
	}
	if to == booking.StatusCancelled && hasPaymentState(cur) {
		return forced(EffectVoidPayment)
	}
	return allow()
}

// hasPaymentState reports whether voiding would change anything.
func hasPaymentState(cur Pair) bool {
	if cur.Booking.PaymentStatus != booking.PaymentUnpaid {
		return true
	}
	return cur.Payment != nil && (cur.Payment.Status != payment.StatusUnpaid || cur.Payment.PaidAt != nil)
}

func decidePayment(cur Pair, to payment.Status) Decision {
	p := cur.Payment
	if p == nil {
		return reject(newError(KindNotFound, ReasonPaymentNotFound, "booking %s has no payment record", cur.Booking.ID))
	}
	if to == p.Status {
		return noop()
	}
	if p.Status == payment.StatusPaid && !to.Settled() {
		return reject(newError(KindIrreversiblePayment, ReasonPaidToUnsettled,
			"payment %s is Paid and cannot be reverted to %s; use a refund instead", p.ID, to))
	}
	if to.Settled() && cur.Booking.Status == booking.StatusCancelled {
		return reject(newError(KindInvalidTransition, ReasonBookingCancelled,
			"booking %s is cancelled; payment %s cannot move to %s", cur.Booking.ID, p.ID, to))
	}

	dec := allow()
	if to == payment.StatusPaid && cur.Booking.Status != booking.StatusConfirmed {
		dec = forced(EffectAutoConfirm)
	}
	if paymentEdgesNeedingConfirmation[p.Status][to] {
		dec.Verdict = RequireConfirmation
		dec.Prompt = paymentPrompt(cur, to)
	}
	return dec
}

func paymentPrompt(cur Pair, to payment.Status) string {
	msg := fmt.Sprintf("Change payment %s from %s to %s?", cur.Payment.ID, cur.Payment.Status, to)
	if to == payment.StatusPaid {
		msg += fmt.Sprintf(" Booking %s will be marked Paid and Confirmed.", cur.Booking.ID)
	}
	return msg
}

// AllowedBookingTargets lists the booking statuses a request could move to
// from cur without being rejected.
func AllowedBookingTargets(cur Pair) []booking.Status {
	var out []booking.Status
	for _, to := range []booking.Status{booking.StatusPending, booking.StatusConfirmed, booking.StatusCancelled} {
		if d := Decide(cur, BookingDelta(to)); d.Verdict != Reject && !d.Noop {
			out = append(out, to)
		}
	}
	return out
}

// AllowedPaymentTargets is AllowedBookingTargets for the payment side.
func AllowedPaymentTargets(cur Pair) []payment.Status {
	var out []payment.Status
	for _, to := range []payment.Status{payment.StatusPending, payment.StatusUnpaid, payment.StatusDeposit, payment.StatusPaid} {
		if d := Decide(cur, PaymentDelta(to)); d.Verdict != Reject && !d.Noop {
			out = append(out, to)
		}
	}
	return out
}
