package statussync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"hotelsync/internal/booking"
	"hotelsync/internal/payment"
)

const (
	ActionCreateBooking        = "BOOKING_CREATED"
	ActionOpenPayment          = "PAYMENT_OPENED"
	ActionBookingStatusRequest = "BOOKING_STATUS_CHANGED"
	ActionPaymentStatusRequest = "PAYMENT_STATUS_CHANGED"
)

// Meta carries caller-supplied context for a request. Identity checks happen
// before the engine is called.
type Meta struct {
	Actor     string
	Confirmed bool
}

// Result is the outcome of one request. When Confirmation is set nothing was
// written and Pair is the snapshot the decision was made against.
type Result struct {
	Pair
	Changed      bool          `json:"changed"`
	Confirmation *Confirmation `json:"confirmation,omitempty"`
}

type Engine struct {
	store    Store
	locker   Locker
	notifier Notifier
	log      *slog.Logger
	now      func() time.Time
	newID    func() string
}

type Option func(*Engine)

func WithLocker(l Locker) Option { return func(e *Engine) { e.locker = l } }

func WithNotifier(n Notifier) Option { return func(e *Engine) { e.notifier = n } }

func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.log = l } }

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

func WithIDs(newID func() string) Option { return func(e *Engine) { e.newID = newID } }

func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		locker: NewKeyedMutex(),
		log:    slog.Default(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

type NewBooking struct {
	UserRef      string
	HotelRef     string
	RoomRef      string
	CheckInDate  time.Time
	CheckOutDate time.Time
}

// CreateBooking stores a new booking in Pending/Unpaid.
func (e *Engine) CreateBooking(ctx context.Context, nb NewBooking, meta Meta) (Pair, error) {
	if !nb.CheckOutDate.After(nb.CheckInDate) {
		return Pair{}, newError(KindInvalidInput, ReasonInvalidInput, "check-out date must be after check-in date")
	}
	b := booking.New(e.newID(), nb.UserRef, nb.HotelRef, nb.RoomRef, nb.CheckInDate, nb.CheckOutDate, e.clock())
	pair := Pair{Booking: b}
	return e.commit(ctx, Pair{}, Mutation{
		After:         pair,
		CreateBooking: true,
		Action:        ActionCreateBooking,
		Actor:         meta.Actor,
		Events:        []Event{{Type: EventBookingCreated, Summary: "Booking created"}},
	})
}

// OpenPayment records the first payment intent for a booking. A booking that
// already has a payment gets it back unchanged.
func (e *Engine) OpenPayment(ctx context.Context, bookingID string, amount decimal.Decimal, method string, meta Meta) (Result, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return Result{}, newError(KindInvalidInput, ReasonInvalidInput, "payment amount must be > 0")
	}
	unlock, err := e.locker.Lock(ctx, bookingID)
	if err != nil {
		return Result{}, err
	}
	defer unlock()

	cur, err := e.store.LoadByBooking(ctx, bookingID)
	if err != nil {
		return Result{}, err
	}
	if cur.Payment != nil {
		return Result{Pair: cur}, nil
	}
	if cur.Booking.Status == booking.StatusCancelled {
		return Result{Pair: cur}, newError(KindInvalidTransition, ReasonBookingCancelled, "booking %s is cancelled; no payment can be opened", bookingID)
	}

	now := e.clock()
	next := cur.clone()
	next.Payment = &payment.Payment{
		ID:         e.newID(),
		BookingRef: bookingID,
		Status:     payment.StatusPending,
		Amount:     amount,
		Method:     method,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	next.Booking.PaymentStatus = next.Payment.Status.Project()
	committed, err := e.commit(ctx, cur, Mutation{
		After:          next,
		CreatePayment:  true,
		PaymentChanged: true,
		Action:         ActionOpenPayment,
		Actor:          meta.Actor,
		Events: []Event{{Type: EventPaymentOpened, Summary: "Payment opened", Data: map[string]any{
			"paymentId": next.Payment.ID, "amount": amount.String(), "method": method,
		}}},
	})
	if err != nil {
		return Result{Pair: cur}, err
	}
	return Result{Pair: committed, Changed: true}, nil
}

func (e *Engine) GetBooking(ctx context.Context, bookingID string) (Pair, error) {
	return e.store.LoadByBooking(ctx, bookingID)
}

func (e *Engine) GetPayment(ctx context.Context, paymentID string) (Pair, error) {
	return e.store.LoadByPayment(ctx, paymentID)
}

func (e *Engine) Events(ctx context.Context, bookingID string) ([]Event, error) {
	if _, err := e.store.LoadByBooking(ctx, bookingID); err != nil {
		return nil, err
	}
	return e.store.Events(ctx, bookingID)
}

// RequestBookingStatus moves a booking along Pending -> {Confirmed, Cancelled},
// Confirmed -> Cancelled. Cancelling voids any payment state.
func (e *Engine) RequestBookingStatus(ctx context.Context, bookingID string, to booking.Status, meta Meta) (Result, error) {
	load := func(ctx context.Context) (Pair, error) { return e.store.LoadByBooking(ctx, bookingID) }
	return e.transition(ctx, bookingID, load, BookingDelta(to), meta)
}

// RequestPaymentStatus moves a payment and propagates the projection to its
// booking. Unpaid -> Paid needs meta.Confirmed; Paid -> Unpaid never succeeds.
func (e *Engine) RequestPaymentStatus(ctx context.Context, paymentID string, to payment.Status, meta Meta) (Result, error) {
	load := func(ctx context.Context) (Pair, error) { return e.store.LoadByPayment(ctx, paymentID) }
	// The lock is keyed by booking, so resolve the owner first.
	pre, err := load(ctx)
	if err != nil {
		return Result{}, err
	}
	return e.transition(ctx, pre.Booking.ID, load, PaymentDelta(to), meta)
}

// RequestBookingPaymentStatus is RequestPaymentStatus addressed by booking id,
// for the booking screen's payment column. A booking without a payment
// record yields NotFound.
func (e *Engine) RequestBookingPaymentStatus(ctx context.Context, bookingID string, to payment.Status, meta Meta) (Result, error) {
	load := func(ctx context.Context) (Pair, error) { return e.store.LoadByBooking(ctx, bookingID) }
	return e.transition(ctx, bookingID, load, PaymentDelta(to), meta)
}

func (e *Engine) transition(ctx context.Context, lockKey string, load func(context.Context) (Pair, error), delta Delta, meta Meta) (Result, error) {
	unlock, err := e.locker.Lock(ctx, lockKey)
	if err != nil {
		return Result{}, err
	}
	defer unlock()

	cur, err := load(ctx)
	if err != nil {
		return Result{}, err
	}

	dec := Decide(cur, delta)
	if dec.Verdict == Reject {
		e.log.Debug("transition rejected", "booking_id", cur.Booking.ID, "kind", dec.Err.Kind, "reason", dec.Err.Reason)
		return Result{Pair: cur}, dec.Err
	}
	if dec.Noop {
		return Result{Pair: cur}, nil
	}

	now := e.clock()
	var next Pair
	var from, to, action string
	if delta.BookingStatus != nil {
		from, to, action = string(cur.Booking.Status), string(*delta.BookingStatus), ActionBookingStatusRequest
		next = applyBooking(cur, *delta.BookingStatus, dec, now)
	} else {
		from, to, action = string(cur.Payment.Status), string(*delta.PaymentStatus), ActionPaymentStatusRequest
		next = applyPayment(cur, *delta.PaymentStatus, dec, now)
	}

	if conf := gate(dec, meta.Confirmed, from, to); conf != nil {
		return Result{Pair: cur, Confirmation: conf}, nil
	}

	committed, err := e.commit(ctx, cur, Mutation{
		After:          next,
		PaymentChanged: paymentChanged(cur, next),
		Action:         action,
		Actor:          meta.Actor,
		Confirmed:      meta.Confirmed,
		Events:         changeEvents(cur, next, dec.Effects),
	})
	if err != nil {
		return Result{Pair: cur}, err
	}
	e.log.Info("transition committed",
		"booking_id", committed.Booking.ID, "action", action, "from", from, "to", to, "forced", dec.Effects)
	return Result{Pair: committed, Changed: true}, nil
}

// clock is the engine's timestamp source, cut to the microsecond precision
// Postgres keeps so a commit response matches a later read.
func (e *Engine) clock() time.Time {
	return e.now().UTC().Truncate(time.Microsecond)
}

func (e *Engine) commit(ctx context.Context, before Pair, m Mutation) (Pair, error) {
	if err := CheckInvariants(m.After); err != nil {
		return Pair{}, fmt.Errorf("refusing to commit: %w", err)
	}
	now := e.clock()
	for i := range m.Events {
		m.Events[i].Actor = m.Actor
		m.Events[i].OccurredAt = now
	}
	committed, err := e.store.Commit(ctx, m)
	if err != nil {
		return Pair{}, err
	}
	e.publish(ctx, before, committed, m, now)
	return committed, nil
}

func (e *Engine) publish(ctx context.Context, before, after Pair, m Mutation, at time.Time) {
	if e.notifier == nil {
		return
	}
	c := Change{
		BookingID:     after.Booking.ID,
		Action:        m.Action,
		BookingStatus: string(after.Booking.Status),
		PaymentStatus: string(after.Booking.PaymentStatus),
		Actor:         m.Actor,
		OccurredAt:    at,
	}
	if after.Payment != nil {
		c.PaymentID = after.Payment.ID
	}
	if !m.CreateBooking {
		c.PreviousBookingStatus = string(before.Booking.Status)
		c.PreviousPaymentStatus = string(before.Booking.PaymentStatus)
	}
	if err := e.notifier.Publish(ctx, c); err != nil {
		e.log.Warn("status change notification failed", "booking_id", c.BookingID, "err", err)
	}
}

func paymentChanged(before, after Pair) bool {
	if before.Payment == nil || after.Payment == nil {
		return before.Payment != after.Payment
	}
	a, b := before.Payment, after.Payment
	if a.Status != b.Status {
		return true
	}
	if (a.PaidAt == nil) != (b.PaidAt == nil) {
		return true
	}
	return a.PaidAt != nil && !a.PaidAt.Equal(*b.PaidAt)
}
