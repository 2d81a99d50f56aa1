package booking

import "fmt"

type Status string

const (
	StatusPending   Status = "Pending"
	StatusConfirmed Status = "Confirmed"
	StatusCancelled Status = "Cancelled"
)

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return Status(s), nil
	default:
		return "", fmt.Errorf("unknown booking status: %s", s)
	}
}

// PaymentStatus is the booking-side mirror of the linked payment's status.
type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "Unpaid"
	PaymentDeposit PaymentStatus = "Deposit"
	PaymentPaid    PaymentStatus = "Paid"
)

func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch PaymentStatus(s) {
	case PaymentUnpaid, PaymentDeposit, PaymentPaid:
		return PaymentStatus(s), nil
	default:
		return "", fmt.Errorf("unknown booking payment status: %s", s)
	}
}

var allowedTransitions = map[Status]map[Status]bool{
	StatusPending:   {StatusConfirmed: true, StatusCancelled: true},
	StatusConfirmed: {StatusCancelled: true},
	StatusCancelled: {}, // terminal
}

func CanTransition(from, to Status) bool {
	m, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return m[to]
}

// Targets lists the statuses reachable from s in one step.
func Targets(s Status) []Status {
	var out []Status
	for _, to := range []Status{StatusPending, StatusConfirmed, StatusCancelled} {
		if CanTransition(s, to) {
			out = append(out, to)
		}
	}
	return out
}
