package statussync

import (
	"fmt"

	"hotelsync/internal/booking"
)

// CheckInvariants validates a pair as a whole: each entity on its own plus
// the projection linking them and the cancelled/paid exclusions.
func CheckInvariants(p Pair) error {
	b := p.Booking
	if err := b.Validate(); err != nil {
		return err
	}
	if b.Status == booking.StatusCancelled && b.PaymentStatus != booking.PaymentUnpaid {
		return fmt.Errorf("booking %s: cancelled with payment status %s", b.ID, b.PaymentStatus)
	}
	if b.PaymentStatus == booking.PaymentPaid && b.Status != booking.StatusConfirmed {
		return fmt.Errorf("booking %s: paid but %s", b.ID, b.Status)
	}
	if p.Payment == nil {
		if b.PaymentStatus != booking.PaymentUnpaid {
			return fmt.Errorf("booking %s: payment status %s without a payment record", b.ID, b.PaymentStatus)
		}
		return nil
	}
	if p.Payment.BookingRef != b.ID {
		return fmt.Errorf("payment %s belongs to booking %s, not %s", p.Payment.ID, p.Payment.BookingRef, b.ID)
	}
	if want := p.Payment.Status.Project(); b.PaymentStatus != want {
		return fmt.Errorf("booking %s: payment status %s does not mirror payment %s (%s)", b.ID, b.PaymentStatus, p.Payment.ID, p.Payment.Status)
	}
	return p.Payment.Validate()
}
