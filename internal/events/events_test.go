package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice-alerts/internal/models"
)

func TestDecode_TimestampShapes(t *testing.T) {
	want := time.Date(2024, 3, 9, 16, 0, 0, 0, time.UTC)
	cases := map[string]string{
		"epoch millis":   `1710000000000`,
		"epoch seconds":  `1710000000`,
		"rfc3339":        `"2024-03-09T16:00:00Z"`,
		"local datetime": `"2024-03-09T16:00:00"`,
	}
	for name, ts := range cases {
		t.Run(name, func(t *testing.T) {
			evt, err := Decode(string(TopicInventoryStockUpdated),
				[]byte(`{"itemId": 4, "name": "Rice", "quantity": 20, "timestamp": `+ts+`}`))
			require.NoError(t, err)
			updated := evt.(InventoryStockUpdated)
			assert.Equal(t, 20, updated.Quantity)
			assert.True(t, want.Equal(updated.Timestamp.Time), "got %v", updated.Timestamp.Time)
		})
	}
}

func TestDecode_UnparseableTimestampIsIgnored(t *testing.T) {
	evt, err := Decode(string(TopicOrderStatusChanged),
		[]byte(`{"orderId": 42, "status": "READY", "timestamp": "yesterday"}`))
	require.NoError(t, err)
	changed := evt.(OrderStatusChanged)
	assert.Equal(t, models.OrderReady, changed.Status)
	assert.True(t, changed.Timestamp.IsZero())
}
