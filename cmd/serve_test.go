package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"backoffice-alerts/internal/alerts"
	"backoffice-alerts/internal/backend"
	"backoffice-alerts/internal/config"
	"backoffice-alerts/internal/logging"
	"backoffice-alerts/internal/models"
)

func TestNewPollers_BoundedByBackendTimeout(t *testing.T) {
	logger := logging.Discard()
	var cfg config.Config
	cfg.Backend.Timeout = 7 * time.Second

	notifier := alerts.NotifierFunc(func(models.Notification) {})
	client := backend.NewClient("http://backoffice.local", cfg.Backend.Timeout, 10, logger)
	inv, ord := newPollers(cfg, client,
		alerts.NewInventoryEngine(notifier, models.DefaultInventoryThresholds(), logger),
		alerts.NewOrderEngine(notifier, models.DefaultOrderThresholds(), logger),
		logger)

	assert.Equal(t, alerts.InventoryEngineName, inv.Name())
	assert.Equal(t, alerts.OrderEngineName, ord.Name())
	assert.Equal(t, 7*time.Second, inv.Timeout())
	assert.Equal(t, 7*time.Second, ord.Timeout())
}
