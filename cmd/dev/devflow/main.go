package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"hotelsync/internal/adminclient"
	"hotelsync/internal/statussync"
	"hotelsync/pkg/config"
)

func main() {
	var (
		baseURL  = flag.String("base-url", "", "api base url (defaults to http://localhost<HTTP_ADDR>)")
		token    = flag.String("token", "", "admin bearer token (see cmd/dev/token)")
		operator = flag.String("operator", "devflow@localhost", "X-Operator header used when -token is empty")
		hotel    = flag.String("hotel", "hotel-dev", "hotel reference")
		room     = flag.String("room", "101", "room reference")
		user     = flag.String("user", "guest-dev", "guest reference")
		nights   = flag.Int("nights", 2, "length of stay")
		amount   = flag.String("amount", "240.00", "payment amount")
		method   = flag.String("method", "card", "payment method")
	)
	flag.Parse()

	amt, err := decimal.NewFromString(*amount)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bad -amount: %v\n", err)
		os.Exit(2)
	}
	if *nights < 1 {
		fmt.Fprintln(os.Stderr, "-nights must be >= 1")
		os.Exit(2)
	}

	cfg := config.Load()
	if *baseURL == "" {
		*baseURL = adminclient.DefaultBaseURL(cfg.HTTPAddr)
	}
	client := adminclient.New(*baseURL, *token, *operator)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	checkIn := time.Now().UTC().AddDate(0, 0, 7).Truncate(24 * time.Hour)
	b, err := client.CreateBooking(ctx, statussync.NewBooking{
		UserRef:      *user,
		HotelRef:     *hotel,
		RoomRef:      *room,
		CheckInDate:  checkIn,
		CheckOutDate: checkIn.AddDate(0, 0, *nights),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "create booking: %v\n", err)
		fmt.Fprintf(os.Stderr, "tip: is the API running, and is HTTP_ADDR set correctly? base_url=%s\n", *baseURL)
		os.Exit(1)
	}

	p, err := client.OpenPayment(ctx, b.Booking.ID, amt, *method)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open payment: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Seed complete.\n")
	fmt.Printf("booking_id=%s status=%s payment_status=%s\n", p.Booking.ID, p.Booking.Status, p.Booking.PaymentStatus)
	fmt.Printf("payment_id=%s status=%s amount=%s\n", p.Payment.ID, p.Payment.Status, p.Payment.Amount)

	fmt.Printf("\nNext steps:\n")
	fmt.Printf("- Mark the payment unpaid, then paid (asks for confirmation, auto-confirms the booking):\n")
	fmt.Printf("  go run ./cmd/dev/setstatus -payment %s -status Unpaid\n", p.Payment.ID)
	fmt.Printf("  go run ./cmd/dev/setstatus -payment %s -status Paid\n", p.Payment.ID)
	fmt.Printf("- Or cancel the booking (voids the open payment):\n")
	fmt.Printf("  go run ./cmd/dev/setstatus -booking %s -status Cancelled\n", p.Booking.ID)
	fmt.Printf("- Audit trail:\n")
	fmt.Printf("  GET %s/v1/bookings/%s/events\n", *baseURL, p.Booking.ID)
}
