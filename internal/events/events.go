// Package events carries real-time CRUD signals from the back-office to the
// alert engines without a global, stringly-typed event namespace.
package events

import (
	"encoding/json"
	"errors"
	"fmt"

	"backoffice-alerts/internal/models"
)

type Topic string

const (
	TopicInventoryItemAdded    Topic = "inventory-item-added"
	TopicInventoryStockUpdated Topic = "inventory-stock-updated"
	TopicOrderCreated          Topic = "order-created"
	TopicOrderStatusChanged    Topic = "order-status-changed"
)

// ErrUnknownTopic is returned by Decode for topics nothing subscribes to.
var ErrUnknownTopic = errors.New("unknown event topic")

// Event is implemented by every payload type below.
type Event interface {
	Topic() Topic
}

type InventoryItemAdded struct {
	ItemID    models.EntityID  `json:"itemId"`
	Name      string           `json:"name"`
	Quantity  int              `json:"quantity"`
	Timestamp models.Timestamp `json:"timestamp"`
}

func (InventoryItemAdded) Topic() Topic { return TopicInventoryItemAdded }

// InventoryStockUpdated carries the new quantity; PreviousQuantity is optional.
type InventoryStockUpdated struct {
	ItemID           models.EntityID  `json:"itemId"`
	Name             string           `json:"name"`
	PreviousQuantity *int             `json:"previousQuantity,omitempty"`
	Quantity         int              `json:"quantity"`
	Timestamp        models.Timestamp `json:"timestamp"`
}

func (InventoryStockUpdated) Topic() Topic { return TopicInventoryStockUpdated }

type OrderCreated struct {
	OrderID     models.EntityID    `json:"orderId"`
	Status      models.OrderStatus `json:"status,omitempty"`
	TableNumber *int               `json:"tableNumber,omitempty"`
	Details     string             `json:"details,omitempty"`
	Timestamp   models.Timestamp   `json:"timestamp"`
}

func (OrderCreated) Topic() Topic { return TopicOrderCreated }

type OrderStatusChanged struct {
	OrderID        models.EntityID    `json:"orderId"`
	PreviousStatus models.OrderStatus `json:"previousStatus,omitempty"`
	Status         models.OrderStatus `json:"status"`
	Timestamp      models.Timestamp   `json:"timestamp"`
}

func (OrderStatusChanged) Topic() Topic { return TopicOrderStatusChanged }

// Decode parses a JSON payload for the given topic.
func Decode(topic string, data []byte) (Event, error) {
	var evt Event
	switch Topic(topic) {
	case TopicInventoryItemAdded:
		var e InventoryItemAdded
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", topic, err)
		}
		evt = e
	case TopicInventoryStockUpdated:
		var e InventoryStockUpdated
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", topic, err)
		}
		evt = e
	case TopicOrderCreated:
		var e OrderCreated
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", topic, err)
		}
		evt = e
	case TopicOrderStatusChanged:
		var e OrderStatusChanged
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", topic, err)
		}
		if e.Status == "" {
			return nil, fmt.Errorf("decode %s: missing status", topic)
		}
		evt = e
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTopic, topic)
	}
	return evt, nil
}
