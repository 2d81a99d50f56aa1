package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"hotelsync/internal/adminclient"
	"hotelsync/internal/statussync"
	"hotelsync/pkg/config"
)

func main() {
	var (
		bookingID = flag.String("booking", "", "booking id whose status to change")
		paymentID = flag.String("payment", "", "payment id whose status to change")
		viaBook   = flag.String("booking-payment", "", "booking id whose linked payment status to change")
		status    = flag.String("status", "", "target status")
		baseURL   = flag.String("base-url", "", "api base url (defaults to http://localhost<HTTP_ADDR>)")
		token     = flag.String("token", "", "admin bearer token (see cmd/dev/token)")
		operator  = flag.String("operator", "dev@localhost", "X-Operator header used when -token is empty")
		yes       = flag.Bool("yes", false, "accept any confirmation prompt without asking")
	)
	flag.Parse()

	targets := 0
	for _, id := range []string{*bookingID, *paymentID, *viaBook} {
		if id != "" {
			targets++
		}
	}
	if *status == "" || targets != 1 {
		fmt.Fprintln(os.Stderr, "usage: setstatus (-booking ID | -payment ID | -booking-payment ID) -status STATUS")
		os.Exit(2)
	}

	cfg := config.Load()
	if *baseURL == "" {
		*baseURL = adminclient.DefaultBaseURL(cfg.HTTPAddr)
	}
	client := adminclient.New(*baseURL, *token, *operator)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	send := func(ctx context.Context, confirmed bool) (statussync.PairView, *statussync.Confirmation, error) {
		switch {
		case *bookingID != "":
			return client.SetBookingStatus(ctx, *bookingID, *status, confirmed)
		case *viaBook != "":
			return client.SetBookingPaymentStatus(ctx, *viaBook, *status, confirmed)
		}
		return client.SetPaymentStatus(ctx, *paymentID, *status, confirmed)
	}

	stdin := bufio.NewReader(os.Stdin)
	accept := func(c statussync.Confirmation) bool {
		fmt.Fprintf(os.Stderr, "%s (%s -> %s)\n", c.Prompt, c.From, c.To)
		if *yes {
			return true
		}
		fmt.Fprint(os.Stderr, "continue? [y/N] ")
		line, _ := stdin.ReadString('\n')
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes"
	}

	view, err := statussync.Submit(ctx, send, accept)
	if errors.Is(err, statussync.ErrDeclined) {
		fmt.Fprintln(os.Stderr, "cancelled; nothing changed")
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "set status: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("booking_id=%s status=%s payment_status=%s changed=%v\n",
		view.Booking.ID, view.Booking.Status, view.Booking.PaymentStatus, view.Changed)
	if view.Payment != nil {
		fmt.Printf("payment_id=%s status=%s amount=%s\n", view.Payment.ID, view.Payment.Status, view.Payment.Amount)
	}
	fmt.Printf("allowed booking statuses: %s\n", join(view.AllowedBookingStatuses))
	fmt.Printf("allowed payment statuses: %s\n", join(view.AllowedPaymentStatuses))
}

func join[T ~string](xs []T) string {
	if len(xs) == 0 {
		return "(none)"
	}
	out := make([]string, len(xs))
	for i, x := range xs {
		out[i] = string(x)
	}
	return strings.Join(out, ", ")
}
