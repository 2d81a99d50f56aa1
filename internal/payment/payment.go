package payment

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"hotelsync/internal/booking"
)

type Status string

const (
	StatusPending Status = "Pending"
	StatusUnpaid  Status = "Unpaid"
	StatusDeposit Status = "Deposit"
	StatusPaid    Status = "Paid"
)

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusUnpaid, StatusDeposit, StatusPaid:
		return Status(s), nil
	default:
		return "", fmt.Errorf("unknown payment status: %s", s)
	}
}

// Settled reports whether money has been collected in this status.
func (s Status) Settled() bool {
	return s == StatusDeposit || s == StatusPaid
}

// Project maps a payment status onto the booking's mirror field.
// Pending and Unpaid both collapse to Unpaid.
func (s Status) Project() booking.PaymentStatus {
	switch s {
	case StatusDeposit:
		return booking.PaymentDeposit
	case StatusPaid:
		return booking.PaymentPaid
	default:
		return booking.PaymentUnpaid
	}
}

type Payment struct {
	ID         string          `json:"id"`
	BookingRef string          `json:"bookingRef"`
	Status     Status          `json:"status"`
	Amount     decimal.Decimal `json:"amount"`
	Method     string          `json:"method"`
	PaidAt     *time.Time      `json:"paidAt,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
	Version    int64           `json:"version"`
}

// SetStatus moves the payment to s. paidAt is stamped on every entry into
// Deposit or Paid and cleared on entry into Pending or Unpaid.
func (p *Payment) SetStatus(s Status, now time.Time) {
	if s == p.Status {
		return
	}
	if s.Settled() {
		t := now.UTC()
		p.PaidAt = &t
	} else {
		p.PaidAt = nil
	}
	p.Status = s
}

func (p Payment) Validate() error {
	if p.Status.Settled() && p.PaidAt == nil {
		return fmt.Errorf("payment %s: %s without paidAt", p.ID, p.Status)
	}
	if !p.Status.Settled() && p.PaidAt != nil {
		return fmt.Errorf("payment %s: %s with paidAt set", p.ID, p.Status)
	}
	if p.Amount.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("payment %s: amount must be > 0", p.ID)
	}
	return nil
}
