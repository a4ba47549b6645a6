package purchasing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"backoffice-alerts/internal/alerts"
	"backoffice-alerts/internal/backend"
	"backoffice-alerts/internal/logging"
	"backoffice-alerts/internal/models"
)

const (
	source            = "purchasing"
	noticeExpiry      = 10 * time.Second
	terminalRetention = time.Hour
)

// Service keeps the open drafts and reports workflow outcomes as
// notifications.
type Service struct {
	backend  Backend
	notifier alerts.Notifier
	log      *logrus.Entry
	now      func() time.Time

	mu     sync.RWMutex
	drafts map[string]*Draft
}

func NewService(b Backend, notifier alerts.Notifier, logger *logging.Logger) *Service {
	return &Service{
		backend:  b,
		notifier: notifier,
		log:      logger.WithComponent("purchasing"),
		now:      time.Now,
		drafts:   make(map[string]*Draft),
	}
}

// Create starts a draft in supplier selection.
func (s *Service) Create() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()

	d := NewDraft(uuid.New().String(), s.now)
	s.drafts[d.id] = d
	s.log.Infof("Created purchase order draft %s", d.id)
	return d.View()
}

func (s *Service) Get(id string) (View, error) {
	d, err := s.draft(id)
	if err != nil {
		return View{}, err
	}
	return d.View(), nil
}

// List returns every retained draft, oldest first.
func (s *Service) List() []View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	views := make([]View, 0, len(s.drafts))
	for _, d := range s.drafts {
		views = append(views, d.View())
	}
	sort.Slice(views, func(i, j int) bool {
		if views[i].CreatedAt.Equal(views[j].CreatedAt) {
			return views[i].ID < views[j].ID
		}
		return views[i].CreatedAt.Before(views[j].CreatedAt)
	})
	return views
}

// SelectSupplier opens the remote order for the draft.
func (s *Service) SelectSupplier(ctx context.Context, id string, supplierID models.EntityID) (View, error) {
	d, err := s.draft(id)
	if err != nil {
		return View{}, err
	}
	if err := d.Initialize(ctx, s.backend, supplierID); err != nil {
		return d.View(), s.failed(err, "Failed to create purchase order.")
	}
	v := d.View()
	s.log.Infof("Draft %s opened purchase order %s for supplier %s", id, v.OrderID, supplierID)
	return v, nil
}

func (s *Service) AddItem(ctx context.Context, id string, item models.PurchaseOrderItem) (View, error) {
	d, err := s.draft(id)
	if err != nil {
		return View{}, err
	}
	if err := d.AddItem(ctx, s.backend, item); err != nil {
		return d.View(), s.failed(err, "Failed to add item to purchase order.")
	}
	return d.View(), nil
}

func (s *Service) RemoveItem(ctx context.Context, id string, itemID models.EntityID) (View, error) {
	d, err := s.draft(id)
	if err != nil {
		return View{}, err
	}
	if err := d.RemoveItem(ctx, s.backend, itemID); err != nil {
		return d.View(), s.failed(err, "Failed to remove item from purchase order.")
	}
	return d.View(), nil
}

// Finalize sends the order and announces the closing total.
func (s *Service) Finalize(ctx context.Context, id string) (View, error) {
	d, err := s.draft(id)
	if err != nil {
		return View{}, err
	}
	total, err := d.Finalize(ctx, s.backend)
	if err != nil {
		return d.View(), s.failed(err, "Failed to finalize purchase order.")
	}
	v := d.View()
	s.notify(models.SeveritySuccess,
		fmt.Sprintf("Purchase order %s sent to supplier. Total: $%.2f", v.OrderID, total), noticeExpiry)
	s.log.Infof("Draft %s finalized purchase order %s (total %.2f)", id, v.OrderID, total)
	return v, nil
}

func (s *Service) Cancel(ctx context.Context, id string) (View, error) {
	d, err := s.draft(id)
	if err != nil {
		return View{}, err
	}
	if err := d.Cancel(ctx, s.backend); err != nil {
		return d.View(), s.failed(err, "Failed to cancel purchase order.")
	}
	s.notify(models.SeverityInfo, "Purchase order draft cancelled.", noticeExpiry)
	return d.View(), nil
}

func (s *Service) draft(id string) (*Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.drafts[id]
	if !ok {
		return nil, ErrDraftNotFound
	}
	return d, nil
}

// failed surfaces err as a danger notification, preferring the back-office's
// own message over the generic one.
func (s *Service) failed(err error, generic string) error {
	s.log.Warnf("%s %v", generic, err)
	msg := generic
	var apiErr *backend.APIError
	switch {
	case errors.As(err, &apiErr) && apiErr.Message != "":
		msg = apiErr.Message
	case errors.Is(err, ErrNoItems):
		msg = "Add at least one item before finalizing the purchase order."
	}
	s.notify(models.SeverityDanger, msg, 0)
	return err
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

// pruneLocked forgets finalized and cancelled drafts after a retention period.
func (s *Service) pruneLocked() {
	cutoff := s.now().Add(-terminalRetention)
	for id, d := range s.drafts {
		if d.terminal() && d.lastUpdate().Before(cutoff) {
			delete(s.drafts, id)
		}
	}
}
