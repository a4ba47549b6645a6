package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice-alerts/internal/events"
	"backoffice-alerts/internal/logging"
	"backoffice-alerts/internal/models"
)

func newTestConsumer(t *testing.T) (*Consumer, *events.Bus) {
	t.Helper()
	bus := events.NewBus(logging.Discard())
	c, err := NewConsumer(Config{Broker: "localhost:9092", Topic: "backoffice-events", GroupID: "test"}, bus, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, bus
}

func TestConsumer_HandlePublishesEvent(t *testing.T) {
	c, bus := newTestConsumer(t)

	var got []events.Event
	bus.Subscribe(events.TopicOrderStatusChanged, func(e events.Event) { got = append(got, e) })

	err := c.Handle([]byte(`{"type": "order-status-changed", "data": {"orderId": 42, "previousStatus": "PENDING", "status": "READY"}}`))
	require.NoError(t, err)
	require.Len(t, got, 1)

	changed := got[0].(events.OrderStatusChanged)
	assert.Equal(t, models.EntityID("42"), changed.OrderID)
	assert.Equal(t, models.OrderReady, changed.Status)
}

func TestConsumer_HandleRejectsBadMessages(t *testing.T) {
	c, _ := newTestConsumer(t)

	assert.Error(t, c.Handle([]byte(`not json`)))
	assert.ErrorIs(t, c.Handle([]byte(`{"type": "staff-updated", "data": {}}`)), events.ErrUnknownTopic)
	assert.Error(t, c.Handle([]byte(`{"type": "inventory-item-added", "data": "x"}`)))
}

func TestNewConsumer_Validation(t *testing.T) {
	bus := events.NewBus(logging.Discard())
	_, err := NewConsumer(Config{Topic: "t"}, bus, logging.Discard())
	assert.Error(t, err)
	_, err = NewConsumer(Config{Broker: "b"}, bus, logging.Discard())
	assert.Error(t, err)
}
