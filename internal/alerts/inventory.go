package alerts

import (
	"fmt"
	"sync"
	"time"

	"backoffice-alerts/internal/events"
	"backoffice-alerts/internal/logging"
	"backoffice-alerts/internal/metrics"
	"backoffice-alerts/internal/models"
)

const (
	InventoryEngineName  = "inventory"
	InventoryDedupWindow = 30 * time.Second

	inventoryExpiry = 60 * time.Second
	eventExpiry     = 10 * time.Second
	restockMinDelta = 10
)

type inventoryState struct {
	name       string
	lastValue  int
	observedAt time.Time
	notified   ConditionSet
}

// InventoryObservation is a copy of what the engine remembers about one item.
type InventoryObservation struct {
	Name       string
	Quantity   int
	ObservedAt time.Time
	Notified   ConditionSet
}

// InventoryEngine raises stock alerts from polled inventory snapshots and
// real-time inventory events.
type InventoryEngine struct {
	mu         sync.Mutex
	thresholds models.InventoryThresholds
	states     map[models.EntityID]*inventoryState
	emitter    *emitter
	now        func() time.Time
}

func NewInventoryEngine(notifier Notifier, thresholds models.InventoryThresholds, logger *logging.Logger, opts ...Option) *InventoryEngine {
	o := buildOptions(opts)
	return &InventoryEngine{
		thresholds: thresholds,
		states:     make(map[models.EntityID]*inventoryState),
		emitter:    newEmitter(InventoryEngineName, notifier, InventoryDedupWindow, logger),
		now:        o.now,
	}
}

// SetThresholds validates and applies new stock thresholds. Existing
// observation state is kept.
func (e *InventoryEngine) SetThresholds(t models.InventoryThresholds) error {
	if err := t.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.thresholds = t
	return nil
}

func (e *InventoryEngine) Thresholds() models.InventoryThresholds {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.thresholds
}

// Observation returns the remembered state for id.
func (e *InventoryEngine) Observation(id models.EntityID) (InventoryObservation, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.states[id]
	if !ok {
		return InventoryObservation{}, false
	}
	return InventoryObservation{
		Name:       st.name,
		Quantity:   st.lastValue,
		ObservedAt: st.observedAt,
		Notified:   st.notified,
	}, true
}

// Poll evaluates one inventory snapshot and returns how many notifications
// were emitted.
func (e *InventoryEngine) Poll(items []models.InventoryItem) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	emitted := 0
	for _, item := range items {
		if !item.ID.Valid() {
			continue
		}
		emitted += e.evaluate(item, now)
	}
	metrics.TrackedEntities.WithLabelValues(InventoryEngineName).Set(float64(len(e.states)))
	return emitted
}

func (e *InventoryEngine) evaluate(item models.InventoryItem, now time.Time) int {
	q := item.StockQuantity
	name := displayName(item.Name, item.ID)
	low, critical := e.thresholds.LowStockThreshold, e.thresholds.CriticalStockThreshold

	st, seen := e.states[item.ID]
	if !seen {
		st = &inventoryState{lastValue: q}
		e.states[item.ID] = st
	}
	st.name = name
	st.observedAt = now

	emitted := 0
	send := func(severity models.Severity, msg string) {
		if e.emitter.emit(now, severity, msg, expiryFor(severity, inventoryExpiry)) {
			emitted++
		}
	}
	reorder := func() {
		if st.notified.Has(PurchaseOrderSent) {
			return
		}
		send(models.SeverityInfo, fmt.Sprintf("Purchase order sent to supplier for %s (%d units).", name, reorderQuantity(item, low)))
		st.notified.Set(PurchaseOrderSent)
	}

	switch {
	case q == 0:
		if !st.notified.Has(OutOfStock) {
			send(models.SeverityDanger, fmt.Sprintf("%s is OUT OF STOCK! Reorder immediately.", name))
			reorder()
			st.notified.Set(OutOfStock)
		}
	case q > 0 && q <= critical:
		if !st.notified.Has(OutOfStock) && !st.notified.Has(CriticalStock) {
			send(models.SeverityDanger, fmt.Sprintf("%s is at CRITICAL stock level (%d left).", name, q))
			reorder()
			st.notified.Set(CriticalStock)
		}
	case q > critical && q <= low:
		if !st.notified.Has(LowStock) {
			send(models.SeverityWarning, fmt.Sprintf("%s is running low (%d left).", name, q))
			reorder()
			st.notified.Set(LowStock)
		}
	}

	if q > critical {
		st.notified.Clear(CriticalStock)
	}
	if q > low {
		st.notified.Reset()
	}

	if seen && q-st.lastValue >= restockMinDelta {
		send(models.SeveritySuccess, fmt.Sprintf("%s restocked: +%d units (now %d).", name, q-st.lastValue, q))
	}
	st.lastValue = q
	return emitted
}

// HandleItemAdded records a newly created item and announces it.
func (e *InventoryEngine) HandleItemAdded(evt events.InventoryItemAdded) {
	if !evt.ItemID.Valid() {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	name := displayName(evt.Name, evt.ItemID)
	st, ok := e.states[evt.ItemID]
	if !ok {
		st = &inventoryState{}
		e.states[evt.ItemID] = st
	}
	st.name = name
	st.lastValue = evt.Quantity
	st.observedAt = now

	e.emitter.emit(now, models.SeverityInfo,
		fmt.Sprintf("New inventory item added: %s (%d units).", name, evt.Quantity), eventExpiry)
}

// HandleStockUpdated applies a stock change reported by the CRUD layer so the
// next poll measures from the new quantity.
func (e *InventoryEngine) HandleStockUpdated(evt events.InventoryStockUpdated) {
	if !evt.ItemID.Valid() {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	st, ok := e.states[evt.ItemID]
	if !ok {
		st = &inventoryState{lastValue: evt.Quantity}
		if evt.PreviousQuantity != nil {
			st.lastValue = *evt.PreviousQuantity
		}
		e.states[evt.ItemID] = st
	}
	if evt.Name != "" || st.name == "" {
		st.name = displayName(evt.Name, evt.ItemID)
	}

	previous := st.lastValue
	if evt.PreviousQuantity != nil {
		previous = *evt.PreviousQuantity
	}

	if evt.Quantity > previous {
		e.emitter.emit(now, models.SeveritySuccess,
			fmt.Sprintf("Stock updated for %s: %d -> %d units.", st.name, previous, evt.Quantity), eventExpiry)
	} else {
		e.emitter.emit(now, models.SeverityInfo,
			fmt.Sprintf("Stock adjusted for %s: %d -> %d units.", st.name, previous, evt.Quantity), eventExpiry)
	}

	if evt.Quantity > e.thresholds.CriticalStockThreshold {
		st.notified.Clear(CriticalStock)
	}
	if evt.Quantity > e.thresholds.LowStockThreshold {
		st.notified.Reset()
	}
	st.lastValue = evt.Quantity
	st.observedAt = now
}

// Subscribe attaches the engine's handlers to bus. The returned function
// removes them.
func (e *InventoryEngine) Subscribe(bus *events.Bus) (unsubscribe func()) {
	offAdded := bus.Subscribe(events.TopicInventoryItemAdded, func(evt events.Event) {
		if added, ok := evt.(events.InventoryItemAdded); ok {
			e.HandleItemAdded(added)
		}
	})
	offUpdated := bus.Subscribe(events.TopicInventoryStockUpdated, func(evt events.Event) {
		if updated, ok := evt.(events.InventoryStockUpdated); ok {
			e.HandleStockUpdated(updated)
		}
	})
	return func() {
		offAdded()
		offUpdated()
	}
}

// reorderQuantity tops the item back up to its base quantity, or orders
// twice the low threshold when no base is known.
func reorderQuantity(item models.InventoryItem, low int) int {
	if item.BaseQuantity > item.StockQuantity {
		return item.BaseQuantity - item.StockQuantity
	}
	return 2 * low
}

func displayName(name string, id models.EntityID) string {
	if name != "" {
		return name
	}
	return "Item " + id.String()
}
