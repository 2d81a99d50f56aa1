package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"

	"hotelsync/internal/statussync"
)

type fakeChannel struct {
	declared   []string
	kind       string
	durable    bool
	exchange   string
	key        string
	msg        amqp.Publishing
	publishErr error
	closed     bool
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, _, _, _ bool, _ amqp.Table) error {
	f.declared = append(f.declared, name)
	f.kind, f.durable = kind, durable
	return nil
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return f.publishErr
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestPublisher_PublishesPersistentJSON(t *testing.T) {
	ch := &fakeChannel{}
	p, err := NewPublisher(ch, "booking.status")
	require.NoError(t, err)
	require.Equal(t, []string{"booking.status"}, ch.declared)
	require.Equal(t, amqp.ExchangeTopic, ch.kind)
	require.True(t, ch.durable)

	c := statussync.Change{
		BookingID:             "b1",
		PaymentID:             "p1",
		Action:                statussync.ActionBookingStatusRequest,
		BookingStatus:         "Cancelled",
		PaymentStatus:         "Unpaid",
		PreviousBookingStatus: "Confirmed",
		PreviousPaymentStatus: "Deposit",
		Actor:                 "ops@test",
		OccurredAt:            time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, p.Publish(context.Background(), c))
	require.Equal(t, "booking.status", ch.exchange)
	require.Equal(t, "booking.status.Cancelled", ch.key)
	require.Equal(t, amqp.Persistent, ch.msg.DeliveryMode)
	require.Equal(t, "application/json", ch.msg.ContentType)

	var got statussync.Change
	require.NoError(t, json.Unmarshal(ch.msg.Body, &got))
	require.Equal(t, c, got)

	require.NoError(t, p.Close())
	require.True(t, ch.closed)
}

func TestPublisher_SurfacesBrokerErrors(t *testing.T) {
	ch := &fakeChannel{publishErr: errors.New("channel closed")}
	p, err := NewPublisher(ch, "booking.status")
	require.NoError(t, err)
	require.Error(t, p.Publish(context.Background(), statussync.Change{BookingID: "b1", BookingStatus: "Pending"}))
}
