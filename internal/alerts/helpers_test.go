package alerts

import (
	"strings"
	"sync"
	"time"

	"backoffice-alerts/internal/logging"
	"backoffice-alerts/internal/models"
)

type recorder struct {
	mu    sync.Mutex
	items []models.Notification
}

func (r *recorder) Notify(n models.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

func (r *recorder) all() []models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Notification(nil), r.items...)
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = nil
}

func (r *recorder) matching(substr string) []models.Notification {
	var out []models.Notification
	for _, n := range r.all() {
		if strings.Contains(n.Message, substr) {
			out = append(out, n)
		}
	}
	return out
}

func (r *recorder) bySeverity(s models.Severity) []models.Notification {
	var out []models.Notification
	for _, n := range r.all() {
		if n.Severity == s {
			out = append(out, n)
		}
	}
	return out
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func discardLogger() *logging.Logger {
	return logging.Discard()
}
