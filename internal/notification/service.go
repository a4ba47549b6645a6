// Package notification is the sink for engine alerts: a bounded, auto-expiring
// visible set exposed to the dashboard, with asynchronous delivery to
// websocket clients, the notification log and Telegram.
package notification

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"backoffice-alerts/internal/logging"
	"backoffice-alerts/internal/metrics"
	"backoffice-alerts/internal/models"
)

// ErrNotFound is returned by Dismiss for ids not in the visible set.
var ErrNotFound = errors.New("notification not found")

// Forwarder delivers a notification to an external channel.
type Forwarder interface {
	Send(ctx context.Context, n models.Notification) error
}

// Recorder persists accepted notifications.
type Recorder interface {
	CreateNotification(ctx context.Context, n models.Notification) error
}

// Config sizes the visible set and the delivery worker pool.
type Config struct {
	MaxVisible int
	QueueSize  int
	MaxWorkers int
}

type Option func(*Service)

// WithForwarder forwards danger notifications through f.
func WithForwarder(f Forwarder) Option {
	return func(s *Service) { s.forwarder = f }
}

func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

func WithWebSocket(ws *WebSocketManager) Option {
	return func(s *Service) { s.ws = ws }
}

// WithClock replaces time.Now for CreatedAt stamping.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

type entry struct {
	n     models.Notification
	timer *time.Timer
}

// Message is the websocket payload.
type Message struct {
	Type         string               `json:"type"`
	Notification *models.Notification `json:"notification,omitempty"`
	ID           string               `json:"id,omitempty"`
}

const (
	MessageCreated = "notification.created"
	MessageRemoved = "notification.removed"
	MessageCleared = "notification.cleared"
)

// Service holds the visible notification set.
type Service struct {
	cfg    Config
	logger *logging.Logger
	now    func() time.Time

	mu      sync.Mutex
	visible []*entry // oldest first
	closed  bool

	forwarder Forwarder
	recorder  Recorder
	ws        *WebSocketManager

	tasks  chan models.Notification
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(logger *logging.Logger, cfg Config, opts ...Option) *Service {
	if cfg.MaxVisible <= 0 {
		cfg.MaxVisible = 200
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 2
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		tasks:  make(chan models.Notification, cfg.QueueSize),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the delivery workers.
func (s *Service) Start() {
	for i := 0; i < s.cfg.MaxWorkers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
}

// Notify adds n to the visible set and queues its delivery. It implements
// the engines' Notifier.
func (s *Service) Notify(n models.Notification) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now()
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	e := &entry{n: n}
	if n.AutoExpire && n.ExpiresAfter > 0 {
		id := n.ID
		e.timer = time.AfterFunc(n.ExpiresAfter, func() { s.expire(id) })
	}
	s.visible = append(s.visible, e)
	var evicted []string
	for len(s.visible) > s.cfg.MaxVisible {
		oldest := s.visible[0]
		if oldest.timer != nil {
			oldest.timer.Stop()
		}
		s.visible = s.visible[1:]
		evicted = append(evicted, oldest.n.ID)
		s.logger.Debugf("Evicted notification %s, visible set full", oldest.n.ID)
	}
	metrics.NotificationsActive.Set(float64(len(s.visible)))
	s.mu.Unlock()

	for _, id := range evicted {
		s.broadcast(Message{Type: MessageRemoved, ID: id})
	}
	s.QueueTask(n)
}

// QueueTask enqueues n for delivery without blocking the caller.
func (s *Service) QueueTask(n models.Notification) {
	select {
	case s.tasks <- n:
	default:
		s.logger.Errorf("Delivery queue full, dropping notification %s", n.ID)
	}
}

// List returns the visible set, newest first.
func (s *Service) List() []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Notification, 0, len(s.visible))
	for i := len(s.visible) - 1; i >= 0; i-- {
		out = append(out, s.visible[i].n)
	}
	return out
}

// Dismiss removes a notification regardless of its auto-expiry.
func (s *Service) Dismiss(id string) error {
	if !s.remove(id) {
		return ErrNotFound
	}
	s.broadcast(Message{Type: MessageRemoved, ID: id})
	return nil
}

// ClearAll empties the visible set.
func (s *Service) ClearAll() int {
	s.mu.Lock()
	n := len(s.visible)
	for _, e := range s.visible {
		if e.timer != nil {
			e.timer.Stop()
		}
	}
	s.visible = nil
	metrics.NotificationsActive.Set(0)
	s.mu.Unlock()

	s.broadcast(Message{Type: MessageCleared})
	return n
}

// Close stops timers and workers. Queued deliveries are abandoned.
func (s *Service) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for _, e := range s.visible {
		if e.timer != nil {
			e.timer.Stop()
		}
	}
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}

func (s *Service) expire(id string) {
	if s.remove(id) {
		s.logger.Debugf("Notification %s expired", id)
		s.broadcast(Message{Type: MessageRemoved, ID: id})
	}
}

func (s *Service) remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.visible {
		if e.n.ID != id {
			continue
		}
		if e.timer != nil {
			e.timer.Stop()
		}
		s.visible = append(s.visible[:i], s.visible[i+1:]...)
		metrics.NotificationsActive.Set(float64(len(s.visible)))
		return true
	}
	return false
}

func (s *Service) worker(id int) {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			s.logger.Debugf("Delivery worker %d stopped", id)
			return
		case n := <-s.tasks:
			s.deliver(n)
		}
	}
}

func (s *Service) deliver(n models.Notification) {
	s.broadcast(Message{Type: MessageCreated, Notification: &n})

	if s.recorder != nil {
		if err := s.recorder.CreateNotification(s.ctx, n); err != nil {
			s.logger.Errorf("CreateNotification failed: %v", err)
		}
	}

	if s.forwarder != nil && n.Severity == models.SeverityDanger {
		status := "success"
		if err := s.forwarder.Send(s.ctx, n); err != nil {
			status = "failed"
			s.logger.Errorf("Forwarding notification %s failed: %v", n.ID, err)
		}
		metrics.TelegramSentTotal.WithLabelValues(status).Inc()
	}
}

func (s *Service) broadcast(msg Message) {
	if s.ws == nil {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Errorf("Encode websocket message failed: %v", err)
		return
	}
	s.ws.Broadcast(data)
}
