package alerts

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"backoffice-alerts/internal/events"
	"backoffice-alerts/internal/logging"
	"backoffice-alerts/internal/metrics"
	"backoffice-alerts/internal/models"
)

const (
	OrderEngineName  = "orders"
	OrderDedupWindow = 15 * time.Second

	orderExpiry     = 120 * time.Second
	SummaryInterval = 30 * time.Minute
	TableInterval   = 15 * time.Minute
)

type orderState struct {
	status   models.OrderStatus
	since    time.Time
	notified ConditionSet
}

// OrderObservation is a copy of what the engine remembers about one order.
type OrderObservation struct {
	Status   models.OrderStatus
	Since    time.Time
	Notified ConditionSet
}

// OrderEngine raises aging, status, summary and per-table alerts from polled
// order snapshots and real-time order events.
type OrderEngine struct {
	mu          sync.Mutex
	thresholds  models.OrderThresholds
	states      map[models.EntityID]*orderState
	lastSummary time.Time
	lastTable   map[int]time.Time
	emitter     *emitter
	now         func() time.Time
}

func NewOrderEngine(notifier Notifier, thresholds models.OrderThresholds, logger *logging.Logger, opts ...Option) *OrderEngine {
	o := buildOptions(opts)
	return &OrderEngine{
		thresholds:  thresholds,
		states:      make(map[models.EntityID]*orderState),
		lastSummary: o.now(),
		lastTable:   make(map[int]time.Time),
		emitter:     newEmitter(OrderEngineName, notifier, OrderDedupWindow, logger),
		now:         o.now,
	}
}

func (e *OrderEngine) SetThresholds(t models.OrderThresholds) error {
	if err := t.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.thresholds = t
	return nil
}

func (e *OrderEngine) Thresholds() models.OrderThresholds {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.thresholds
}

func (e *OrderEngine) Observation(id models.EntityID) (OrderObservation, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.states[id]
	if !ok {
		return OrderObservation{}, false
	}
	return OrderObservation{Status: st.status, Since: st.since, Notified: st.notified}, true
}

// Poll evaluates one order snapshot and returns how many notifications were
// emitted.
func (e *OrderEngine) Poll(orders []models.Order) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	emitted := 0
	send := func(severity models.Severity, msg string) {
		if e.emitter.emit(now, severity, msg, expiryFor(severity, orderExpiry)) {
			emitted++
		}
	}

	var pending, ready, delivered int
	activeByTable := make(map[int]int)

	for _, o := range orders {
		if !o.ID.Valid() {
			continue
		}
		switch o.Status {
		case models.OrderPending:
			pending++
		case models.OrderReady:
			ready++
		case models.OrderDelivered:
			delivered++
		}
		if o.Status != models.OrderDelivered {
			if table, ok := TableNumber(o); ok {
				activeByTable[table]++
			}
		}

		st, seen := e.states[o.ID]
		if !seen {
			e.states[o.ID] = &orderState{status: o.Status, since: now}
			continue
		}

		label := o.Label()
		if o.Status != st.status {
			st.transition(o.Status, now)
			if o.Status == models.OrderReady {
				send(models.SeveritySuccess, fmt.Sprintf("%s is ready for delivery.", label))
			}
		}

		if o.Status == models.OrderCancelled && !st.notified.Has(Cancelled) {
			send(models.SeverityDanger, fmt.Sprintf("%s has been cancelled.", label))
			st.notified.Set(Cancelled)
		}

		elapsed := int(now.Sub(st.since).Minutes())
		switch o.Status {
		case models.OrderPending:
			if elapsed >= e.thresholds.PendingWarningMin && !st.notified.Has(PendingTooLong) {
				send(models.SeverityWarning, fmt.Sprintf("%s has been pending for over %d minutes.", label, e.thresholds.PendingWarningMin))
				st.notified.Set(PendingTooLong)
			}
			if elapsed >= e.thresholds.PendingUrgentMin && !st.notified.Has(UrgentPending) {
				send(models.SeverityDanger, fmt.Sprintf("URGENT: %s has been pending for over %d minutes!", label, e.thresholds.PendingUrgentMin))
				st.notified.Set(UrgentPending)
			}
		case models.OrderReady:
			if elapsed >= e.thresholds.ReadyWarningMin && !st.notified.Has(ReadyTooLong) {
				send(models.SeverityWarning, fmt.Sprintf("%s has been ready for over %d minutes and is pending delivery.", label, e.thresholds.ReadyWarningMin))
				st.notified.Set(ReadyTooLong)
			}
		}
	}

	if pending+ready > 0 && now.Sub(e.lastSummary) >= SummaryInterval {
		send(models.SeverityInfo, fmt.Sprintf("Order summary: %d pending, %d ready, %d delivered.", pending, ready, delivered))
		e.lastSummary = now
	}

	tables := make([]int, 0, len(activeByTable))
	for table := range activeByTable {
		tables = append(tables, table)
	}
	sort.Ints(tables)
	for _, table := range tables {
		count := activeByTable[table]
		if count <= 1 {
			continue
		}
		if last, ok := e.lastTable[table]; ok && now.Sub(last) < TableInterval {
			continue
		}
		send(models.SeverityInfo, fmt.Sprintf("Table %d has %d active orders.", table, count))
		e.lastTable[table] = now
	}

	metrics.TrackedEntities.WithLabelValues(OrderEngineName).Set(float64(len(e.states)))
	return emitted
}

// transition restarts the aging clock for a new status. Cancellation stays
// recorded.
func (st *orderState) transition(status models.OrderStatus, now time.Time) {
	st.status = status
	st.since = now
	st.notified.Reset(Cancelled)
}

// HandleOrderCreated announces a new order and starts its aging clock.
func (e *OrderEngine) HandleOrderCreated(evt events.OrderCreated) {
	if !evt.OrderID.Valid() {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	status := evt.Status
	if status == "" {
		status = models.OrderPending
	}
	if st, ok := e.states[evt.OrderID]; ok {
		st.transition(status, now)
	} else {
		e.states[evt.OrderID] = &orderState{status: status, since: now}
	}

	msg := fmt.Sprintf("New order %s received.", models.OrderLabel(evt.OrderID))
	order := models.Order{ID: evt.OrderID, Details: evt.Details, TableNumber: evt.TableNumber}
	if table, ok := TableNumber(order); ok {
		msg = fmt.Sprintf("New order %s received for table %d.", models.OrderLabel(evt.OrderID), table)
	}
	e.emitter.emit(now, models.SeverityInfo, msg, eventExpiry)
}

// HandleOrderStatusChanged announces a status change and resets the aging
// baseline so the next poll does not repeat the transition.
func (e *OrderEngine) HandleOrderStatusChanged(evt events.OrderStatusChanged) {
	if !evt.OrderID.Valid() {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	label := models.OrderLabel(evt.OrderID)
	st, ok := e.states[evt.OrderID]
	if !ok {
		st = &orderState{status: evt.Status, since: now}
		e.states[evt.OrderID] = st
	} else {
		st.transition(evt.Status, now)
	}

	switch evt.Status {
	case models.OrderReady:
		e.emitter.emit(now, models.SeveritySuccess, fmt.Sprintf("%s is ready for delivery.", label), eventExpiry)
	case models.OrderDelivered:
		e.emitter.emit(now, models.SeveritySuccess, fmt.Sprintf("%s has been delivered.", label), eventExpiry)
	case models.OrderInProgress:
		e.emitter.emit(now, models.SeverityInfo, fmt.Sprintf("%s is now in progress.", label), eventExpiry)
	case models.OrderCancelled:
		if !st.notified.Has(Cancelled) {
			e.emitter.emit(now, models.SeverityDanger, fmt.Sprintf("%s has been cancelled.", label), 0)
			st.notified.Set(Cancelled)
		}
	}
}

func (e *OrderEngine) Subscribe(bus *events.Bus) (unsubscribe func()) {
	offCreated := bus.Subscribe(events.TopicOrderCreated, func(evt events.Event) {
		if created, ok := evt.(events.OrderCreated); ok {
			e.HandleOrderCreated(created)
		}
	})
	offChanged := bus.Subscribe(events.TopicOrderStatusChanged, func(evt events.Event) {
		if changed, ok := evt.(events.OrderStatusChanged); ok {
			e.HandleOrderStatusChanged(changed)
		}
	})
	return func() {
		offCreated()
		offChanged()
	}
}
