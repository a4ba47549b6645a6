package models

import (
	"errors"
	"fmt"
)

// ErrInvalidThresholds is wrapped by every threshold validation failure.
var ErrInvalidThresholds = errors.New("invalid thresholds")

// InventoryItem is one row of GET /inventory-items.
type InventoryItem struct {
	ID            EntityID `json:"id"`
	Name          string   `json:"name"`
	StockQuantity int      `json:"stockQuantity"`
	BaseQuantity  int      `json:"baseQuantity"`
	Category      string   `json:"category,omitempty"`
}

// InventoryThresholds are the user-adjustable stock boundaries.
type InventoryThresholds struct {
	LowStockThreshold      int `json:"lowStockThreshold"`
	CriticalStockThreshold int `json:"criticalStockThreshold"`
}

// DefaultInventoryThresholds returns low=10, critical=5.
func DefaultInventoryThresholds() InventoryThresholds {
	return InventoryThresholds{LowStockThreshold: 10, CriticalStockThreshold: 5}
}

// Validate requires critical >= 1 and low > critical.
func (t InventoryThresholds) Validate() error {
	if t.CriticalStockThreshold < 1 {
		return fmt.Errorf("%w: critical stock threshold must be at least 1", ErrInvalidThresholds)
	}
	if t.LowStockThreshold <= t.CriticalStockThreshold {
		return fmt.Errorf("%w: low stock threshold must be greater than critical stock threshold", ErrInvalidThresholds)
	}
	return nil
}
