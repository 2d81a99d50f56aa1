package booking

import (
	"fmt"
	"time"
)

type Booking struct {
	ID            string        `json:"id"`
	Status        Status        `json:"status"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	UserRef       string        `json:"userRef"`
	HotelRef      string        `json:"hotelRef"`
	RoomRef       string        `json:"roomRef"`
	CheckInDate   time.Time     `json:"checkInDate"`
	CheckOutDate  time.Time     `json:"checkOutDate"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
	// Version is bumped on every committed change and checked on commit.
	Version int64 `json:"version"`
}

// New returns a booking in its initial Pending/Unpaid state.
func New(id, userRef, hotelRef, roomRef string, checkIn, checkOut, now time.Time) Booking {
	return Booking{
		ID:            id,
		Status:        StatusPending,
		PaymentStatus: PaymentUnpaid,
		UserRef:       userRef,
		HotelRef:      hotelRef,
		RoomRef:       roomRef,
		CheckInDate:   checkIn.UTC(),
		CheckOutDate:  checkOut.UTC(),
		CreatedAt:     now.UTC(),
		UpdatedAt:     now.UTC(),
	}
}

// Validate checks the booking's own invariants.
func (b Booking) Validate() error {
	if b.Status == StatusCancelled && b.PaymentStatus != PaymentUnpaid {
		return fmt.Errorf("booking %s: cancelled booking must be unpaid, got %s", b.ID, b.PaymentStatus)
	}
	if !b.CheckOutDate.After(b.CheckInDate) {
		return fmt.Errorf("booking %s: check-out must be after check-in", b.ID)
	}
	return nil
}
