package events

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice-alerts/internal/logging"
	"backoffice-alerts/internal/models"
)

func TestBus_PublishToSubscribers(t *testing.T) {
	bus := NewBus(logging.Discard())

	var got []Event
	unsubscribe := bus.Subscribe(TopicInventoryItemAdded, func(e Event) {
		got = append(got, e)
	})
	bus.Subscribe(TopicOrderCreated, func(e Event) {
		t.Error("order handler should not receive inventory events")
	})

	n := bus.Publish(InventoryItemAdded{ItemID: "1", Name: "Tomato", Quantity: 4})
	assert.Equal(t, 1, n)
	require.Len(t, got, 1)
	assert.Equal(t, "Tomato", got[0].(InventoryItemAdded).Name)

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 0, bus.Publish(InventoryItemAdded{ItemID: "1"}))
	assert.Equal(t, 0, bus.Subscribers(TopicInventoryItemAdded))
	assert.Equal(t, 1, bus.Subscribers(TopicOrderCreated))
}

func TestBus_HandlerPanicIsContained(t *testing.T) {
	bus := NewBus(logging.Discard())

	delivered := false
	bus.Subscribe(TopicOrderStatusChanged, func(e Event) { panic("boom") })
	bus.Subscribe(TopicOrderStatusChanged, func(e Event) { delivered = true })

	assert.NotPanics(t, func() {
		bus.Publish(OrderStatusChanged{OrderID: "42", Status: models.OrderReady})
	})
	assert.True(t, delivered)
}

func TestDecode(t *testing.T) {
	evt, err := Decode("inventory-stock-updated", []byte(`{"itemId": 7, "name": "Basil", "previousQuantity": 2, "quantity": 20}`))
	require.NoError(t, err)
	upd, ok := evt.(InventoryStockUpdated)
	require.True(t, ok)
	assert.Equal(t, models.EntityID("7"), upd.ItemID)
	require.NotNil(t, upd.PreviousQuantity)
	assert.Equal(t, 2, *upd.PreviousQuantity)
	assert.Equal(t, 20, upd.Quantity)

	evt, err = Decode("order-status-changed", []byte(`{"orderId": "42", "status": "READY"}`))
	require.NoError(t, err)
	assert.Equal(t, TopicOrderStatusChanged, evt.Topic())

	_, err = Decode("order-status-changed", []byte(`{"orderId": "42"}`))
	assert.Error(t, err)

	_, err = Decode("order-created", []byte(`not json`))
	assert.Error(t, err)

	_, err = Decode("menu-updated", []byte(`{}`))
	assert.True(t, errors.Is(err, ErrUnknownTopic))
}
