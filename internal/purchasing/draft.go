// Package purchasing drives supplier purchase-order drafts against the
// back-office API. The back-office owns the order: every item change is a
// round-trip whose response replaces the local item list.
package purchasing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"backoffice-alerts/internal/backend"
	"backoffice-alerts/internal/models"
)

type State string

const (
	StateSupplierSelection State = "SUPPLIER_SELECTION"
	StateItemsInit         State = "ITEMS_INIT"
	StateItemAccumulation  State = "ITEM_ACCUMULATION"
	StateFinalized         State = "FINALIZED"
	StateCancelled         State = "CANCELLED"
)

var (
	ErrInvalidState  = errors.New("operation not allowed in current draft state")
	ErrNoItems       = errors.New("purchase order has no items")
	ErrInvalidItem   = errors.New("invalid purchase order item")
	ErrDraftNotFound = errors.New("draft not found")
)

// Backend is the back-office purchase-order API.
type Backend interface {
	InitPurchaseOrder(ctx context.Context, supplierID models.EntityID) (models.PurchaseOrder, error)
	AddPurchaseOrderItem(ctx context.Context, orderID models.EntityID, item models.PurchaseOrderItem) (models.PurchaseOrder, error)
	RemovePurchaseOrderItem(ctx context.Context, orderID, itemID models.EntityID) (models.PurchaseOrder, error)
	FinalizePurchaseOrder(ctx context.Context, orderID models.EntityID) (models.PurchaseOrder, error)
	CancelPurchaseOrder(ctx context.Context, orderID models.EntityID) error
}

// Draft is one purchase order under construction. Methods are safe for
// concurrent use. Back-office calls are serialized per draft by op, while mu
// only guards the fields, so View never waits on a remote round-trip.
// Initialization is visible as ITEMS_INIT while its call is in flight.
type Draft struct {
	op sync.Mutex

	mu         sync.Mutex
	id         string
	state      State
	supplierID models.EntityID
	orderID    models.EntityID
	items      []models.PurchaseOrderItem
	total      *float64
	createdAt  time.Time
	updatedAt  time.Time
	now        func() time.Time
}

// View is a point-in-time copy of a draft.
type View struct {
	ID         string                     `json:"id"`
	State      State                      `json:"state"`
	SupplierID models.EntityID            `json:"supplierId,omitempty"`
	OrderID    models.EntityID            `json:"orderId,omitempty"`
	Items      []models.PurchaseOrderItem `json:"items"`
	Total      float64                    `json:"total"`
	CreatedAt  time.Time                  `json:"createdAt"`
	UpdatedAt  time.Time                  `json:"updatedAt"`
}

func NewDraft(id string, now func() time.Time) *Draft {
	if now == nil {
		now = time.Now
	}
	t := now()
	return &Draft{
		id:        id,
		state:     StateSupplierSelection,
		createdAt: t,
		updatedAt: t,
		now:       now,
	}
}

func (d *Draft) View() View {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.viewLocked()
}

func (d *Draft) viewLocked() View {
	items := append([]models.PurchaseOrderItem{}, d.items...)
	return View{
		ID:         d.id,
		State:      d.state,
		SupplierID: d.supplierID,
		OrderID:    d.orderID,
		Items:      items,
		Total:      d.totalLocked(),
		CreatedAt:  d.createdAt,
		UpdatedAt:  d.updatedAt,
	}
}

// Initialize opens the remote order for supplierID. On failure the draft
// stays in supplier selection so the call can be retried.
func (d *Draft) Initialize(ctx context.Context, b Backend, supplierID models.EntityID) error {
	if !supplierID.Valid() {
		return fmt.Errorf("%w: supplier is required", ErrInvalidItem)
	}
	d.op.Lock()
	defer d.op.Unlock()

	d.mu.Lock()
	if d.state != StateSupplierSelection {
		d.mu.Unlock()
		return fmt.Errorf("%w: cannot initialize from %s", ErrInvalidState, d.state)
	}
	d.state = StateItemsInit
	d.supplierID = supplierID
	d.mu.Unlock()

	po, err := b.InitPurchaseOrder(ctx, supplierID)

	d.mu.Lock()
	defer d.mu.Unlock()
	if err != nil {
		d.state = StateSupplierSelection
		return err
	}
	d.state = StateItemAccumulation
	d.orderID = po.ID
	d.apply(po)
	return nil
}

func (d *Draft) AddItem(ctx context.Context, b Backend, item models.PurchaseOrderItem) error {
	if !item.InventoryItemID.Valid() || item.Quantity <= 0 || item.UnitPrice < 0 {
		return fmt.Errorf("%w: inventory item and a positive quantity are required", ErrInvalidItem)
	}
	d.op.Lock()
	defer d.op.Unlock()

	orderID, err := d.accumulating("add items in")
	if err != nil {
		return err
	}
	po, err := b.AddPurchaseOrderItem(ctx, orderID, item)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.apply(po)
	d.mu.Unlock()
	return nil
}

func (d *Draft) RemoveItem(ctx context.Context, b Backend, itemID models.EntityID) error {
	d.op.Lock()
	defer d.op.Unlock()

	orderID, err := d.accumulating("remove items in")
	if err != nil {
		return err
	}
	po, err := b.RemovePurchaseOrderItem(ctx, orderID, itemID)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.apply(po)
	d.mu.Unlock()
	return nil
}

// Finalize sends the order to the supplier and returns the closing total:
// the server's when present, else the local sum.
func (d *Draft) Finalize(ctx context.Context, b Backend) (float64, error) {
	d.op.Lock()
	defer d.op.Unlock()

	orderID, err := d.accumulating("finalize in")
	if err != nil {
		return 0, err
	}
	d.mu.Lock()
	empty := len(d.items) == 0
	d.mu.Unlock()
	if empty {
		return 0, ErrNoItems
	}

	po, err := b.FinalizePurchaseOrder(ctx, orderID)
	if err != nil {
		return 0, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if po.Total != nil {
		d.total = po.Total
	}
	d.state = StateFinalized
	d.updatedAt = d.now()
	return d.totalLocked(), nil
}

// Cancel abandons the draft. A remote order that no longer exists counts as
// cancelled.
func (d *Draft) Cancel(ctx context.Context, b Backend) error {
	d.op.Lock()
	defer d.op.Unlock()

	d.mu.Lock()
	state, orderID := d.state, d.orderID
	d.mu.Unlock()

	switch state {
	case StateSupplierSelection:
	case StateItemAccumulation:
		if err := b.CancelPurchaseOrder(ctx, orderID); err != nil && !backend.IsNotFound(err) {
			return err
		}
	default:
		return fmt.Errorf("%w: cannot cancel in %s", ErrInvalidState, state)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = StateCancelled
	d.updatedAt = d.now()
	return nil
}

// accumulating returns the remote order id when the draft accepts item
// changes. Callers hold op, so the state cannot move until they finish.
func (d *Draft) accumulating(action string) (models.EntityID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != StateItemAccumulation {
		return "", fmt.Errorf("%w: cannot %s %s", ErrInvalidState, action, d.state)
	}
	return d.orderID, nil
}

func (d *Draft) apply(po models.PurchaseOrder) {
	d.items = po.Items
	if d.items == nil {
		d.items = []models.PurchaseOrderItem{}
	}
	d.total = po.Total
	d.updatedAt = d.now()
}

func (d *Draft) totalLocked() float64 {
	if d.total != nil {
		return *d.total
	}
	var sum float64
	for _, item := range d.items {
		sum += item.LineTotal()
	}
	return sum
}

func (d *Draft) terminal() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state == StateFinalized || d.state == StateCancelled
}

func (d *Draft) lastUpdate() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.updatedAt
}
