package alerts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice-alerts/internal/events"
	"backoffice-alerts/internal/logging"
	"backoffice-alerts/internal/models"
)

func newTestInventoryEngine() (*InventoryEngine, *recorder, *fakeClock) {
	rec := &recorder{}
	clock := newFakeClock()
	engine := NewInventoryEngine(rec, models.DefaultInventoryThresholds(), discardLogger(), WithClock(clock.Now))
	return engine, rec, clock
}

// pollQuantities polls one item through the given quantities, stepping the
// clock past the dedup window between polls.
func pollQuantities(engine *InventoryEngine, clock *fakeClock, item models.InventoryItem, quantities ...int) {
	for _, q := range quantities {
		item.StockQuantity = q
		engine.Poll([]models.InventoryItem{item})
		clock.Advance(InventoryDedupWindow + time.Second)
	}
}

func TestInventoryEngine_OutOfStockFirstSighting(t *testing.T) {
	engine, rec, _ := newTestInventoryEngine()

	emitted := engine.Poll([]models.InventoryItem{{ID: "1", Name: "Tomato", StockQuantity: 0}})

	got := rec.all()
	require.Len(t, got, 2)
	assert.Equal(t, 2, emitted)
	assert.Equal(t, models.SeverityDanger, got[0].Severity)
	assert.Equal(t, "Tomato is OUT OF STOCK! Reorder immediately.", got[0].Message)
	assert.False(t, got[0].AutoExpire)
	assert.Equal(t, models.SeverityInfo, got[1].Severity)
	assert.Equal(t, "Purchase order sent to supplier for Tomato (20 units).", got[1].Message)
	assert.True(t, got[1].AutoExpire)

	obs, ok := engine.Observation("1")
	require.True(t, ok)
	assert.True(t, obs.Notified.Has(OutOfStock))
	assert.True(t, obs.Notified.Has(PurchaseOrderSent))
}

func TestInventoryEngine_OutOfStockFiresOncePerRun(t *testing.T) {
	engine, rec, clock := newTestInventoryEngine()
	item := models.InventoryItem{ID: "1", Name: "Tomato"}

	pollQuantities(engine, clock, item, 0, 0, 0)
	assert.Len(t, rec.matching("OUT OF STOCK"), 1)

	pollQuantities(engine, clock, item, 8, 0)
	assert.Len(t, rec.matching("OUT OF STOCK"), 1, "still inside the same episode below the low threshold")

	pollQuantities(engine, clock, item, 11, 0)
	assert.Len(t, rec.matching("OUT OF STOCK"), 2)
}

func TestInventoryEngine_ReorderOncePerCriticalEpisode(t *testing.T) {
	engine, rec, clock := newTestInventoryEngine()
	item := models.InventoryItem{ID: "7", Name: "Basil", BaseQuantity: 40}

	pollQuantities(engine, clock, item, 20)
	assert.Empty(t, rec.all())

	pollQuantities(engine, clock, item, 3)
	reorders := rec.matching("Purchase order sent")
	require.Len(t, reorders, 1)
	assert.Equal(t, "Purchase order sent to supplier for Basil (37 units).", reorders[0].Message)
	assert.Len(t, rec.matching("CRITICAL"), 1)

	pollQuantities(engine, clock, item, 2, 0)
	assert.Len(t, rec.matching("Purchase order sent"), 1)
	assert.Len(t, rec.matching("CRITICAL"), 1)
	assert.Len(t, rec.matching("OUT OF STOCK"), 1)

	pollQuantities(engine, clock, item, 12)
	assert.Len(t, rec.matching("Purchase order sent"), 1)
	obs, _ := engine.Observation("7")
	assert.Equal(t, ConditionSet(0), obs.Notified)
	assert.Equal(t, 12, obs.Quantity)
}

func TestInventoryEngine_CriticalRefiresAfterLeavingCriticalBand(t *testing.T) {
	engine, rec, clock := newTestInventoryEngine()
	item := models.InventoryItem{ID: "1", Name: "Tomato"}

	pollQuantities(engine, clock, item, 3, 8, 3)

	critical := rec.matching("CRITICAL")
	require.Len(t, critical, 2)
	assert.Equal(t, "Tomato is at CRITICAL stock level (3 left).", critical[1].Message)
	assert.Equal(t, models.SeverityDanger, critical[1].Severity)
	assert.Len(t, rec.matching("running low (8 left)"), 1)
	assert.Len(t, rec.matching("Purchase order sent"), 1, "reorder stays once per episode below the low threshold")
}

func TestInventoryEngine_LowStockWarning(t *testing.T) {
	engine, rec, clock := newTestInventoryEngine()
	item := models.InventoryItem{ID: "3", Name: "Flour"}

	pollQuantities(engine, clock, item, 9, 8, 7)

	low := rec.bySeverity(models.SeverityWarning)
	require.Len(t, low, 1)
	assert.Equal(t, "Flour is running low (9 left).", low[0].Message)
	assert.Len(t, rec.matching("Purchase order sent"), 1)
	assert.Empty(t, rec.bySeverity(models.SeverityDanger))
}

func TestInventoryEngine_RestockThreshold(t *testing.T) {
	t.Run("delta 9", func(t *testing.T) {
		engine, rec, clock := newTestInventoryEngine()
		pollQuantities(engine, clock, models.InventoryItem{ID: "1", Name: "Rice"}, 5, 14)
		assert.Empty(t, rec.bySeverity(models.SeveritySuccess))
	})
	t.Run("delta 10", func(t *testing.T) {
		engine, rec, clock := newTestInventoryEngine()
		pollQuantities(engine, clock, models.InventoryItem{ID: "1", Name: "Rice"}, 5, 15)
		restocked := rec.bySeverity(models.SeveritySuccess)
		require.Len(t, restocked, 1)
		assert.Equal(t, "Rice restocked: +10 units (now 15).", restocked[0].Message)
	})
	t.Run("first sighting never restocks", func(t *testing.T) {
		engine, rec, clock := newTestInventoryEngine()
		pollQuantities(engine, clock, models.InventoryItem{ID: "1", Name: "Rice"}, 100)
		assert.Empty(t, rec.all())
	})
}

func TestInventoryEngine_IgnoresItemsWithoutID(t *testing.T) {
	engine, rec, _ := newTestInventoryEngine()
	emitted := engine.Poll([]models.InventoryItem{{Name: "Ghost", StockQuantity: 0}})
	assert.Zero(t, emitted)
	assert.Empty(t, rec.all())
}

func TestInventoryEngine_SetThresholds(t *testing.T) {
	engine, rec, clock := newTestInventoryEngine()

	err := engine.SetThresholds(models.InventoryThresholds{LowStockThreshold: 5, CriticalStockThreshold: 5})
	require.Error(t, err)
	assert.Equal(t, models.DefaultInventoryThresholds(), engine.Thresholds())

	require.NoError(t, engine.SetThresholds(models.InventoryThresholds{LowStockThreshold: 30, CriticalStockThreshold: 2}))
	pollQuantities(engine, clock, models.InventoryItem{ID: "1", Name: "Oil"}, 25)
	assert.Len(t, rec.bySeverity(models.SeverityWarning), 1)
}

func TestInventoryEngine_Events(t *testing.T) {
	engine, rec, clock := newTestInventoryEngine()
	bus := events.NewBus(logging.Discard())
	unsubscribe := engine.Subscribe(bus)

	bus.Publish(events.InventoryItemAdded{ItemID: "9", Name: "Saffron", Quantity: 2})
	added := rec.all()
	require.Len(t, added, 1)
	assert.Equal(t, "New inventory item added: Saffron (2 units).", added[0].Message)
	assert.Equal(t, models.SeverityInfo, added[0].Severity)
	assert.Equal(t, eventExpiry, added[0].ExpiresAfter)

	clock.Advance(time.Minute)
	prev := 2
	bus.Publish(events.InventoryStockUpdated{ItemID: "9", Name: "Saffron", PreviousQuantity: &prev, Quantity: 30})
	updated := rec.bySeverity(models.SeveritySuccess)
	require.Len(t, updated, 1)
	assert.Equal(t, "Stock updated for Saffron: 2 -> 30 units.", updated[0].Message)

	// The poll sees the quantity the event already reported.
	rec.reset()
	clock.Advance(time.Minute)
	engine.Poll([]models.InventoryItem{{ID: "9", Name: "Saffron", StockQuantity: 30}})
	assert.Empty(t, rec.all())

	unsubscribe()
	bus.Publish(events.InventoryItemAdded{ItemID: "10", Name: "Thyme", Quantity: 1})
	assert.Empty(t, rec.all())
}

func TestInventoryEngine_StockDecreaseEventIsInfo(t *testing.T) {
	engine, rec, _ := newTestInventoryEngine()
	engine.Poll([]models.InventoryItem{{ID: "4", Name: "Milk", StockQuantity: 40}})

	engine.HandleStockUpdated(events.InventoryStockUpdated{ItemID: "4", Quantity: 35})

	got := rec.all()
	require.Len(t, got, 1)
	assert.Equal(t, models.SeverityInfo, got[0].Severity)
	assert.Equal(t, "Stock adjusted for Milk: 40 -> 35 units.", got[0].Message)
}

func TestReorderQuantity(t *testing.T) {
	assert.Equal(t, 17, reorderQuantity(models.InventoryItem{StockQuantity: 3, BaseQuantity: 20}, 10))
	assert.Equal(t, 20, reorderQuantity(models.InventoryItem{StockQuantity: 3}, 10))
}
