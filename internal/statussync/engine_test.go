package statussync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"hotelsync/internal/booking"
	"hotelsync/internal/payment"
)

type recordingNotifier struct {
	mu      sync.Mutex
	changes []Change
	err     error
}

func (n *recordingNotifier) Publish(_ context.Context, c Change) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, c)
	return n.err
}

func (n *recordingNotifier) actions() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.changes))
	for i, c := range n.changes {
		out[i] = c.Action
	}
	return out
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *MemStore) {
	t.Helper()
	store := NewMemStore()
	var seq atomic.Int64
	base := []Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(func() time.Time { return testNow }),
		WithIDs(func() string { return fmt.Sprintf("id-%d", seq.Add(1)) }),
	}
	return NewEngine(store, append(base, opts...)...), store
}

func seedBooking(t *testing.T, e *Engine) Pair {
	t.Helper()
	p, err := e.CreateBooking(context.Background(), NewBooking{
		UserRef: "user-1", HotelRef: "hotel-1", RoomRef: "room-1",
		CheckInDate: testNow.AddDate(0, 0, 3), CheckOutDate: testNow.AddDate(0, 0, 5),
	}, Meta{Actor: "admin@test"})
	require.NoError(t, err)
	return p
}

func seedPayment(t *testing.T, e *Engine, bookingID string, to payment.Status) Pair {
	t.Helper()
	ctx := context.Background()
	res, err := e.OpenPayment(ctx, bookingID, decimal.RequireFromString("250.00"), "card", Meta{Actor: "admin@test"})
	require.NoError(t, err)
	if to == payment.StatusPending {
		return res.Pair
	}
	res, err = e.RequestPaymentStatus(ctx, res.Payment.ID, to, Meta{Actor: "admin@test", Confirmed: true})
	require.NoError(t, err)
	require.Nil(t, res.Confirmation)
	return res.Pair
}

func TestCreateBooking_InitialState(t *testing.T) {
	e, _ := newTestEngine(t)
	p := seedBooking(t, e)
	require.Equal(t, booking.StatusPending, p.Booking.Status)
	require.Equal(t, booking.PaymentUnpaid, p.Booking.PaymentStatus)
	require.Nil(t, p.Payment)
	require.EqualValues(t, 1, p.Booking.Version)
}

func TestCreateBooking_RejectsInvertedDates(t *testing.T) {
	e, _ := newTestEngine(t)
	_, err := e.CreateBooking(context.Background(), NewBooking{
		CheckInDate: testNow.AddDate(0, 0, 5), CheckOutDate: testNow.AddDate(0, 0, 5),
	}, Meta{})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestOpenPayment_IdempotentAndProjection(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	b := seedBooking(t, e)

	first, err := e.OpenPayment(ctx, b.Booking.ID, decimal.RequireFromString("99.50"), "cash", Meta{})
	require.NoError(t, err)
	require.True(t, first.Changed)
	require.Equal(t, payment.StatusPending, first.Payment.Status)
	require.Equal(t, booking.PaymentUnpaid, first.Booking.PaymentStatus)

	again, err := e.OpenPayment(ctx, b.Booking.ID, decimal.RequireFromString("10"), "card", Meta{})
	require.NoError(t, err)
	require.False(t, again.Changed)
	require.Equal(t, first.Payment.ID, again.Payment.ID)
	require.True(t, again.Payment.Amount.Equal(decimal.RequireFromString("99.50")))
}

func TestOpenPayment_Rejections(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	b := seedBooking(t, e)

	_, err := e.OpenPayment(ctx, b.Booking.ID, decimal.Zero, "card", Meta{})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = e.RequestBookingStatus(ctx, b.Booking.ID, booking.StatusCancelled, Meta{})
	require.NoError(t, err)
	_, err = e.OpenPayment(ctx, b.Booking.ID, decimal.NewFromInt(10), "card", Meta{})
	require.ErrorIs(t, err, &Error{Kind: KindInvalidTransition, Reason: ReasonBookingCancelled})

	_, err = e.OpenPayment(ctx, "missing", decimal.NewFromInt(10), "card", Meta{})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCancelWithDeposit_VoidsPaymentAtomically(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	b := seedBooking(t, e)
	seedPayment(t, e, b.Booking.ID, payment.StatusDeposit)

	_, err := e.RequestBookingStatus(ctx, b.Booking.ID, booking.StatusConfirmed, Meta{})
	require.NoError(t, err)

	res, err := e.RequestBookingStatus(ctx, b.Booking.ID, booking.StatusCancelled, Meta{})
	require.NoError(t, err)
	require.True(t, res.Changed)
	require.Equal(t, booking.StatusCancelled, res.Booking.Status)
	require.Equal(t, booking.PaymentUnpaid, res.Booking.PaymentStatus)
	require.Equal(t, payment.StatusUnpaid, res.Payment.Status)
	require.Nil(t, res.Payment.PaidAt)

	stored, err := e.GetBooking(ctx, b.Booking.ID)
	require.NoError(t, err)
	require.Equal(t, res.Pair, stored)
}

func TestPaidBooking_IsLocked(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	b := seedBooking(t, e)
	before := seedPayment(t, e, b.Booking.ID, payment.StatusPaid)
	require.Equal(t, booking.StatusConfirmed, before.Booking.Status)

	for _, to := range []booking.Status{booking.StatusPending, booking.StatusCancelled} {
		res, err := e.RequestBookingStatus(ctx, b.Booking.ID, to, Meta{Confirmed: true})
		require.ErrorIs(t, err, ErrPaymentLocked)
		require.Equal(t, before, res.Pair)
	}
	after, err := e.GetBooking(ctx, b.Booking.ID)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestPaidToUnpaid_IrreversibleEvenWhenConfirmed(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	b := seedBooking(t, e)
	before := seedPayment(t, e, b.Booking.ID, payment.StatusPaid)

	_, err := e.RequestPaymentStatus(ctx, before.Payment.ID, payment.StatusUnpaid, Meta{Confirmed: true})
	require.ErrorIs(t, err, ErrIrreversiblePayment)

	after, err := e.GetPayment(ctx, before.Payment.ID)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestUnpaidToPaid_ConfirmationRoundTrip(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	b := seedBooking(t, e)
	before := seedPayment(t, e, b.Booking.ID, payment.StatusUnpaid)

	res, err := e.RequestPaymentStatus(ctx, before.Payment.ID, payment.StatusPaid, Meta{})
	require.NoError(t, err)
	require.NotNil(t, res.Confirmation)
	require.NotEmpty(t, res.Confirmation.Prompt)
	require.Equal(t, "Unpaid", res.Confirmation.From)
	require.Equal(t, "Paid", res.Confirmation.To)
	require.False(t, res.Changed)

	unchanged, err := e.GetPayment(ctx, before.Payment.ID)
	require.NoError(t, err)
	require.Equal(t, before, unchanged)

	res, err = e.RequestPaymentStatus(ctx, before.Payment.ID, payment.StatusPaid, Meta{Confirmed: true})
	require.NoError(t, err)
	require.Nil(t, res.Confirmation)
	require.Equal(t, payment.StatusPaid, res.Payment.Status)
	require.NotNil(t, res.Payment.PaidAt)
	require.Equal(t, booking.StatusConfirmed, res.Booking.Status)
	require.Equal(t, booking.PaymentPaid, res.Booking.PaymentStatus)

	// Resending the confirmed request is a no-op.
	again, err := e.RequestPaymentStatus(ctx, before.Payment.ID, payment.StatusPaid, Meta{Confirmed: true})
	require.NoError(t, err)
	require.False(t, again.Changed)
	require.Equal(t, res.Pair, again.Pair)
}

func TestBookingPaymentStatus_ConfirmationRoundTrip(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	b := seedBooking(t, e)
	before := seedPayment(t, e, b.Booking.ID, payment.StatusUnpaid)

	res, err := e.RequestBookingPaymentStatus(ctx, b.Booking.ID, payment.StatusPaid, Meta{})
	require.NoError(t, err)
	require.NotNil(t, res.Confirmation)
	require.Equal(t, "Unpaid", res.Confirmation.From)
	require.Equal(t, "Paid", res.Confirmation.To)

	unchanged, err := e.GetBooking(ctx, b.Booking.ID)
	require.NoError(t, err)
	require.Equal(t, before, unchanged)

	res, err = e.RequestBookingPaymentStatus(ctx, b.Booking.ID, payment.StatusPaid, Meta{Confirmed: true})
	require.NoError(t, err)
	require.Nil(t, res.Confirmation)
	require.True(t, res.Changed)
	require.Equal(t, payment.StatusPaid, res.Payment.Status)
	require.Equal(t, booking.StatusConfirmed, res.Booking.Status)
	require.Equal(t, booking.PaymentPaid, res.Booking.PaymentStatus)

	// Paid -> Unpaid is refused the same way from the booking side.
	_, err = e.RequestBookingPaymentStatus(ctx, b.Booking.ID, payment.StatusUnpaid, Meta{Confirmed: true})
	require.ErrorIs(t, err, ErrIrreversiblePayment)
}

func TestBookingPaymentStatus_NoPaymentRecord(t *testing.T) {
	e, _ := newTestEngine(t)
	b := seedBooking(t, e)

	_, err := e.RequestBookingPaymentStatus(context.Background(), b.Booking.ID, payment.StatusDeposit, Meta{})
	require.ErrorIs(t, err, &Error{Kind: KindNotFound, Reason: ReasonPaymentNotFound})

	_, err = e.RequestBookingPaymentStatus(context.Background(), "missing", payment.StatusDeposit, Meta{})
	require.ErrorIs(t, err, &Error{Kind: KindNotFound, Reason: ReasonBookingNotFound})
}

func TestTimestamps_TruncatedToMicroseconds(t *testing.T) {
	fine := testNow.Add(123456789 * time.Nanosecond)
	e, _ := newTestEngine(t, WithClock(func() time.Time { return fine }))
	ctx := context.Background()
	b := seedBooking(t, e)
	require.True(t, b.Booking.CreatedAt.Equal(fine.Truncate(time.Microsecond)))

	p := seedPayment(t, e, b.Booking.ID, payment.StatusDeposit)
	require.NotNil(t, p.Payment.PaidAt)
	require.Zero(t, p.Payment.PaidAt.Nanosecond()%1000)

	got, err := e.GetPayment(ctx, p.Payment.ID)
	require.NoError(t, err)
	require.True(t, got.Payment.PaidAt.Equal(*p.Payment.PaidAt))

	evs, err := e.Events(ctx, b.Booking.ID)
	require.NoError(t, err)
	for _, ev := range evs {
		require.Zero(t, ev.OccurredAt.Nanosecond()%1000)
	}
}

func TestPaymentToUnsettled_LeavesBookingStatus(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	b := seedBooking(t, e)
	p := seedPayment(t, e, b.Booking.ID, payment.StatusDeposit)
	_, err := e.RequestBookingStatus(ctx, b.Booking.ID, booking.StatusConfirmed, Meta{})
	require.NoError(t, err)

	res, err := e.RequestPaymentStatus(ctx, p.Payment.ID, payment.StatusUnpaid, Meta{})
	require.NoError(t, err)
	require.Equal(t, booking.StatusConfirmed, res.Booking.Status)
	require.Equal(t, booking.PaymentUnpaid, res.Booking.PaymentStatus)
	require.Nil(t, res.Payment.PaidAt)
}

func TestSameStateRequests_AreNoops(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	b := seedBooking(t, e)

	_, err := e.RequestBookingStatus(ctx, b.Booking.ID, booking.StatusCancelled, Meta{})
	require.NoError(t, err)
	cur, err := e.GetBooking(ctx, b.Booking.ID)
	require.NoError(t, err)

	res, err := e.RequestBookingStatus(ctx, b.Booking.ID, booking.StatusCancelled, Meta{Confirmed: true})
	require.NoError(t, err)
	require.False(t, res.Changed)
	require.Equal(t, cur, res.Pair)
}

func TestCancelledBooking_IsTerminal(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	b := seedBooking(t, e)
	_, err := e.RequestBookingStatus(ctx, b.Booking.ID, booking.StatusCancelled, Meta{})
	require.NoError(t, err)

	for _, to := range []booking.Status{booking.StatusPending, booking.StatusConfirmed} {
		_, err := e.RequestBookingStatus(ctx, b.Booking.ID, to, Meta{})
		require.ErrorIs(t, err, ErrInvalidTransition)
	}
}

func TestRequests_UnknownIDs(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	_, err := e.RequestBookingStatus(ctx, "nope", booking.StatusConfirmed, Meta{})
	require.ErrorIs(t, err, &Error{Kind: KindNotFound, Reason: ReasonBookingNotFound})
	_, err = e.RequestPaymentStatus(ctx, "nope", payment.StatusPaid, Meta{})
	require.ErrorIs(t, err, &Error{Kind: KindNotFound, Reason: ReasonPaymentNotFound})
	_, err = e.Events(ctx, "nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestEvents_RecordTimeline(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	b := seedBooking(t, e)
	seedPayment(t, e, b.Booking.ID, payment.StatusDeposit)
	_, err := e.RequestBookingStatus(ctx, b.Booking.ID, booking.StatusCancelled, Meta{Actor: "ops@test"})
	require.NoError(t, err)

	evs, err := e.Events(ctx, b.Booking.ID)
	require.NoError(t, err)
	types := make([]string, len(evs))
	for i, ev := range evs {
		types[i] = ev.Type
	}
	require.Equal(t, []string{
		EventBookingCreated, EventPaymentOpened, EventPaymentStatusChanged,
		EventStatusChanged, EventPaymentVoided,
	}, types)
	require.Equal(t, "ops@test", evs[4].Actor)
	require.Equal(t, testNow, evs[4].OccurredAt)
}

func TestNotifier_ReceivesCommittedChangesOnly(t *testing.T) {
	n := &recordingNotifier{err: errors.New("broker down")}
	e, _ := newTestEngine(t, WithNotifier(n))
	ctx := context.Background()
	b := seedBooking(t, e)
	p := seedPayment(t, e, b.Booking.ID, payment.StatusUnpaid)

	res, err := e.RequestPaymentStatus(ctx, p.Payment.ID, payment.StatusPaid, Meta{})
	require.NoError(t, err)
	require.NotNil(t, res.Confirmation)
	_, err = e.RequestBookingStatus(ctx, b.Booking.ID, booking.StatusPending, Meta{})
	require.NoError(t, err)

	require.Equal(t, []string{ActionCreateBooking, ActionOpenPayment, ActionPaymentStatusRequest}, n.actions())
	last := n.changes[2]
	require.Equal(t, "Unpaid", last.PaymentStatus)
	require.Equal(t, "Unpaid", last.PreviousPaymentStatus)
	require.Equal(t, p.Payment.ID, last.PaymentID)
}

func TestCommit_StaleVersionIsConflict(t *testing.T) {
	e, store := newTestEngine(t)
	ctx := context.Background()
	b := seedBooking(t, e)

	stale := b
	_, err := e.RequestBookingStatus(ctx, b.Booking.ID, booking.StatusConfirmed, Meta{})
	require.NoError(t, err)

	stale.Booking.Status = booking.StatusCancelled
	_, err = store.Commit(ctx, Mutation{After: stale})
	require.ErrorIs(t, err, ErrConflict)
	var se *Error
	require.ErrorAs(t, err, &se)
	require.True(t, se.Retryable())

	cur, err := e.GetBooking(ctx, b.Booking.ID)
	require.NoError(t, err)
	require.Equal(t, booking.StatusConfirmed, cur.Booking.Status)
}

func TestConcurrentRequests_SerializePerBooking(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	b := seedBooking(t, e)

	targets := []booking.Status{booking.StatusConfirmed, booking.StatusCancelled}
	var wg sync.WaitGroup
	errs := make([]error, 20)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.RequestBookingStatus(ctx, b.Booking.ID, targets[i%2], Meta{})
		}(i)
	}
	wg.Wait()

	final, err := e.GetBooking(ctx, b.Booking.ID)
	require.NoError(t, err)
	for _, err := range errs {
		if err != nil {
			require.ErrorIs(t, err, ErrInvalidTransition)
		}
	}

	// Every committed write is recorded, so the timeline shows exactly the
	// path the booking actually took.
	evs, err := e.Events(ctx, b.Booking.ID)
	require.NoError(t, err)
	var moves []any
	for _, ev := range evs {
		if ev.Type == EventStatusChanged {
			moves = append(moves, ev.Data["to"])
		}
	}
	require.NotEmpty(t, moves)
	require.Equal(t, final.Booking.Status, moves[len(moves)-1])
	require.EqualValues(t, 1+len(moves), final.Booking.Version)
}

func TestConcurrentRequests_DifferentBookingsIndependent(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	ids := make([]string, 10)
	for i := range ids {
		ids[i] = seedBooking(t, e).Booking.ID
	}
	var wg sync.WaitGroup
	errs := make([]error, len(ids))
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = e.RequestBookingStatus(ctx, id, booking.StatusConfirmed, Meta{})
		}(i, id)
	}
	wg.Wait()
	for i, id := range ids {
		require.NoError(t, errs[i])
		p, err := e.GetBooking(ctx, id)
		require.NoError(t, err)
		require.Equal(t, booking.StatusConfirmed, p.Booking.Status)
	}
}

func TestRandomWalk_PreservesInvariants(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	bStatuses := []booking.Status{booking.StatusPending, booking.StatusConfirmed, booking.StatusCancelled}
	pStatuses := []payment.Status{payment.StatusPending, payment.StatusUnpaid, payment.StatusDeposit, payment.StatusPaid}

	for round := 0; round < 30; round++ {
		b := seedBooking(t, e)
		p := seedPayment(t, e, b.Booking.ID, payment.StatusPending)
		for step := 0; step < 12; step++ {
			k := (round*7 + step*5) % 7
			if k < 3 {
				_, _ = e.RequestBookingStatus(ctx, b.Booking.ID, bStatuses[k], Meta{Confirmed: step%2 == 0})
			} else {
				_, _ = e.RequestPaymentStatus(ctx, p.Payment.ID, pStatuses[k-3], Meta{Confirmed: step%3 == 0})
			}
			cur, err := e.GetBooking(ctx, b.Booking.ID)
			require.NoError(t, err)
			require.NoError(t, CheckInvariants(cur))
		}
	}
}
