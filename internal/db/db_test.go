package db

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice-alerts/internal/models"
)

// openTestDB connects to TEST_DATABASE_DSN or skips.
func openTestDB(t *testing.T) *DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	d, err := New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(d.Close)
	require.NoError(t, d.CreateSchema(ctx))
	return d
}

func TestPreferences(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	key := "test_" + uuid.NewString()

	_, err := d.GetPreference(ctx, key)
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, d.PutPreference(ctx, key, []byte(`{"lowStockThreshold": 12, "criticalStockThreshold": 4}`)))
	require.NoError(t, d.PutPreference(ctx, key, []byte(`{"lowStockThreshold": 20, "criticalStockThreshold": 4}`)))

	got, err := d.GetPreference(ctx, key)
	require.NoError(t, err)
	assert.JSONEq(t, `{"lowStockThreshold": 20, "criticalStockThreshold": 4}`, string(got))
}

func TestNotificationLog(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	n := models.Notification{
		ID:        uuid.NewString(),
		Message:   "ORD-42 has been pending for over 15 minutes.",
		Severity:  models.SeverityWarning,
		Source:    "orders",
		CreatedAt: time.Now().Add(time.Hour).UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, d.CreateNotification(ctx, n))
	require.NoError(t, d.CreateNotification(ctx, n), "duplicate ids are ignored")

	list, err := d.GetNotifications(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, n.ID, list[0].ID)
	assert.Equal(t, models.SeverityWarning, list[0].Severity)
}
