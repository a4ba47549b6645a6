// Package settings persists the user-adjustable alert thresholds and applies
// them to the running engines. Thresholds are read once at startup and only
// written on an explicit save.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"backoffice-alerts/internal/alerts"
	"backoffice-alerts/internal/logging"
	"backoffice-alerts/internal/models"
)

const (
	KeyInventoryThresholds = "inventory_thresholds"
	KeyOrderThresholds     = "order_thresholds"

	source        = "settings"
	successExpiry = 10 * time.Second
)

// InventoryTarget receives inventory thresholds.
type InventoryTarget interface {
	SetThresholds(models.InventoryThresholds) error
	Thresholds() models.InventoryThresholds
}

// OrderTarget receives order thresholds.
type OrderTarget interface {
	SetThresholds(models.OrderThresholds) error
	Thresholds() models.OrderThresholds
}

type Service struct {
	mu        sync.Mutex
	store     Store
	inventory InventoryTarget
	orders    OrderTarget
	notifier  alerts.Notifier
	log       *logrus.Entry
}

func NewService(store Store, inventory InventoryTarget, orders OrderTarget, notifier alerts.Notifier, logger *logging.Logger) *Service {
	return &Service{
		store:     store,
		inventory: inventory,
		orders:    orders,
		notifier:  notifier,
		log:       logger.WithComponent("settings"),
	}
}

// Load reads both threshold blobs and applies them. Missing, unreadable or
// invalid blobs fall back to the defaults.
func (s *Service) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv := models.DefaultInventoryThresholds()
	if s.load(ctx, KeyInventoryThresholds, &inv) {
		if err := inv.Validate(); err != nil {
			s.log.Warnf("Stored inventory thresholds rejected, using defaults: %v", err)
			inv = models.DefaultInventoryThresholds()
		}
	}
	if err := s.inventory.SetThresholds(inv); err != nil {
		s.log.Errorf("Apply inventory thresholds failed: %v", err)
	}

	ord := models.DefaultOrderThresholds()
	if s.load(ctx, KeyOrderThresholds, &ord) {
		if err := ord.Validate(); err != nil {
			s.log.Warnf("Stored order thresholds rejected, using defaults: %v", err)
			ord = models.DefaultOrderThresholds()
		}
	}
	if err := s.orders.SetThresholds(ord); err != nil {
		s.log.Errorf("Apply order thresholds failed: %v", err)
	}

	s.log.Infof("Thresholds loaded: inventory %+v, orders %+v", inv, ord)
}

func (s *Service) load(ctx context.Context, key string, into any) bool {
	data, err := s.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.Warnf("Read %s failed, using defaults: %v", key, err)
		}
		return false
	}
	if err := json.Unmarshal(data, into); err != nil {
		s.log.Warnf("Decode %s failed, using defaults: %v", key, err)
		return false
	}
	return true
}

func (s *Service) InventoryThresholds() models.InventoryThresholds {
	return s.inventory.Thresholds()
}

func (s *Service) OrderThresholds() models.OrderThresholds {
	return s.orders.Thresholds()
}

// SaveInventoryThresholds validates, persists and applies t. An invalid or
// unsaved configuration leaves the previous one in force.
func (s *Service) SaveInventoryThresholds(ctx context.Context, t models.InventoryThresholds) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := t.Validate(); err != nil {
		s.reject("inventory", err)
		return err
	}
	if err := s.persist(ctx, KeyInventoryThresholds, t); err != nil {
		s.fail("inventory", err)
		return err
	}
	if err := s.inventory.SetThresholds(t); err != nil {
		s.fail("inventory", err)
		return err
	}
	s.notify(models.SeveritySuccess, "Inventory alert thresholds saved.", successExpiry)
	return nil
}

func (s *Service) SaveOrderThresholds(ctx context.Context, t models.OrderThresholds) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := t.Validate(); err != nil {
		s.reject("order", err)
		return err
	}
	if err := s.persist(ctx, KeyOrderThresholds, t); err != nil {
		s.fail("order", err)
		return err
	}
	if err := s.orders.SetThresholds(t); err != nil {
		s.fail("order", err)
		return err
	}
	s.notify(models.SeveritySuccess, "Order alert thresholds saved.", successExpiry)
	return nil
}

func (s *Service) persist(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.store.Put(ctx, key, data)
}

func (s *Service) reject(kind string, err error) {
	s.log.Warnf("Rejected %s thresholds: %v", kind, err)
	s.notify(models.SeverityDanger, fmt.Sprintf("Invalid %s thresholds: %s", kind, reason(err)), 0)
}

func (s *Service) fail(kind string, err error) {
	s.log.Errorf("Save %s thresholds failed: %v", kind, err)
	s.notify(models.SeverityDanger, fmt.Sprintf("Failed to save %s thresholds.", kind), 0)
}

func (s *Service) notify(severity models.Severity, message string, expireAfter time.Duration) {
	s.notifier.Notify(models.Notification{
		Message:      message,
		Severity:     severity,
		Source:       source,
		AutoExpire:   expireAfter > 0,
		ExpiresAfter: expireAfter,
	})
}

// reason strips the sentinel prefix from a validation error.
func reason(err error) string {
	return strings.TrimPrefix(err.Error(), models.ErrInvalidThresholds.Error()+": ")
}
