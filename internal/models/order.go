package models

import (
	"fmt"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "PENDING"
	OrderInProgress OrderStatus = "IN_PROGRESS"
	OrderReady      OrderStatus = "READY"
	OrderDelivered  OrderStatus = "DELIVERED"
	OrderCancelled  OrderStatus = "CANCELLED"
)

// Order is one row of GET /orders. TableNumber is optional; when absent the
// table is parsed from Details.
type Order struct {
	ID          EntityID    `json:"id"`
	Status      OrderStatus `json:"status"`
	Details     string      `json:"details,omitempty"`
	TableNumber *int        `json:"tableNumber,omitempty"`
	OrderDate   Timestamp   `json:"orderDate"`
}

// Label is the human-facing order reference used in alert text.
func (o Order) Label() string {
	return OrderLabel(o.ID)
}

// OrderLabel formats an order id as ORD-<id>.
func OrderLabel(id EntityID) string {
	return "ORD-" + id.String()
}

// OrderThresholds are the user-adjustable aging limits, in minutes.
type OrderThresholds struct {
	PendingWarningMin int `json:"pendingWarningMin"`
	PendingUrgentMin  int `json:"pendingUrgentMin"`
	ReadyWarningMin   int `json:"readyWarningMin"`
}

// DefaultOrderThresholds returns 15/30/15 minutes.
func DefaultOrderThresholds() OrderThresholds {
	return OrderThresholds{PendingWarningMin: 15, PendingUrgentMin: 30, ReadyWarningMin: 15}
}

// Validate requires all values positive and urgent > warning.
func (t OrderThresholds) Validate() error {
	if t.PendingWarningMin <= 0 || t.PendingUrgentMin <= 0 || t.ReadyWarningMin <= 0 {
		return fmt.Errorf("%w: all order thresholds must be positive", ErrInvalidThresholds)
	}
	if t.PendingUrgentMin <= t.PendingWarningMin {
		return fmt.Errorf("%w: urgent pending threshold must be greater than pending warning threshold", ErrInvalidThresholds)
	}
	return nil
}
