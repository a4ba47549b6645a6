package models

// PurchaseOrderItem is one line of a supplier purchase order.
type PurchaseOrderItem struct {
	ID              EntityID `json:"id,omitempty"`
	InventoryItemID EntityID `json:"inventoryItemId"`
	Name            string   `json:"name,omitempty"`
	Quantity        int      `json:"quantity"`
	UnitPrice       float64  `json:"unitPrice"`
}

// LineTotal is quantity times unit price.
func (i PurchaseOrderItem) LineTotal() float64 {
	return float64(i.Quantity) * i.UnitPrice
}

// PurchaseOrder is the back-office's authoritative view of a supplier order.
// Total is nil when the server omitted it.
type PurchaseOrder struct {
	ID         EntityID            `json:"id"`
	SupplierID EntityID            `json:"supplierId"`
	Status     string              `json:"status,omitempty"`
	Items      []PurchaseOrderItem `json:"items"`
	Total      *float64            `json:"total,omitempty"`
	Message    string              `json:"message,omitempty"`
}
