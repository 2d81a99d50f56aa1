package statussync

import (
	"time"

	"hotelsync/internal/booking"
	"hotelsync/internal/payment"
)

// applyBooking returns the pair after a booking status move allowed by dec.
func applyBooking(cur Pair, to booking.Status, dec Decision, now time.Time) Pair {
	next := cur.clone()
	next.Booking.Status = to
	applyEffects(&next, dec.Effects, now)
	return next
}

// applyPayment returns the pair after a payment status move allowed by dec.
// The booking mirror always follows the payment; booking status only moves
// when the policy forced it.
func applyPayment(cur Pair, to payment.Status, dec Decision, now time.Time) Pair {
	next := cur.clone()
	next.Payment.SetStatus(to, now)
	next.Booking.PaymentStatus = to.Project()
	applyEffects(&next, dec.Effects, now)
	return next
}

func applyEffects(p *Pair, effects []Effect, now time.Time) {
	for _, e := range effects {
		switch e {
		case EffectVoidPayment:
			p.Booking.PaymentStatus = booking.PaymentUnpaid
			if p.Payment != nil {
				p.Payment.SetStatus(payment.StatusUnpaid, now)
			}
		case EffectAutoConfirm:
			p.Booking.Status = booking.StatusConfirmed
		}
	}
}

// changeEvents describes the difference between two pairs as timeline entries.
func changeEvents(before, after Pair, effects []Effect) []Event {
	var out []Event
	if before.Booking.Status != after.Booking.Status {
		typ, summary := EventStatusChanged, "Booking status changed"
		if hasEffect(effects, EffectAutoConfirm) {
			typ, summary = EventAutoConfirmed, "Booking confirmed by full payment"
		}
		out = append(out, Event{Type: typ, Summary: summary, Data: map[string]any{
			"from": before.Booking.Status, "to": after.Booking.Status,
		}})
	}
	if before.Payment != nil && after.Payment != nil && before.Payment.Status != after.Payment.Status {
		typ, summary := EventPaymentStatusChanged, "Payment status changed"
		if hasEffect(effects, EffectVoidPayment) {
			typ, summary = EventPaymentVoided, "Payment voided by cancellation"
		}
		out = append(out, Event{Type: typ, Summary: summary, Data: map[string]any{
			"paymentId": after.Payment.ID, "from": before.Payment.Status, "to": after.Payment.Status,
		}})
	} else if before.Booking.PaymentStatus != after.Booking.PaymentStatus {
		out = append(out, Event{Type: EventPaymentVoided, Summary: "Booking payment status reset by cancellation", Data: map[string]any{
			"from": before.Booking.PaymentStatus, "to": after.Booking.PaymentStatus,
		}})
	}
	return out
}

func hasEffect(effects []Effect, want Effect) bool {
	for _, e := range effects {
		if e == want {
			return true
		}
	}
	return false
}
