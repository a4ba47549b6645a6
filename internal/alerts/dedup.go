package alerts

import (
	"time"

	"backoffice-alerts/internal/models"
)

type dedupKey struct {
	message  string
	severity models.Severity
}

// Deduplicator suppresses an identical (message, severity) pair emitted again
// within the window. It is not safe for concurrent use; engines guard it with
// their own lock.
type Deduplicator struct {
	window time.Duration
	seen   map[dedupKey]time.Time
}

func NewDeduplicator(window time.Duration) *Deduplicator {
	return &Deduplicator{
		window: window,
		seen:   make(map[dedupKey]time.Time),
	}
}

// Allow reports whether the pair may be emitted at now and records it if so.
func (d *Deduplicator) Allow(message string, severity models.Severity, now time.Time) bool {
	d.prune(now)

	key := dedupKey{message: message, severity: severity}
	if last, ok := d.seen[key]; ok && now.Sub(last) < d.window {
		return false
	}
	d.seen[key] = now
	return true
}

func (d *Deduplicator) Window() time.Duration {
	return d.window
}

func (d *Deduplicator) prune(now time.Time) {
	for key, at := range d.seen {
		if now.Sub(at) >= d.window {
			delete(d.seen, key)
		}
	}
}
