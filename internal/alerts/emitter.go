package alerts

import (
	"time"

	"github.com/sirupsen/logrus"

	"backoffice-alerts/internal/logging"
	"backoffice-alerts/internal/metrics"
	"backoffice-alerts/internal/models"
)

// Notifier receives the notifications an engine emits.
type Notifier interface {
	Notify(n models.Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(n models.Notification)

func (f NotifierFunc) Notify(n models.Notification) {
	f(n)
}

// Option configures an engine.
type Option func(*engineOptions)

type engineOptions struct {
	now func() time.Time
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *engineOptions) {
		o.now = now
	}
}

func buildOptions(opts []Option) engineOptions {
	o := engineOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// emitter dedups and forwards notifications for one engine.
type emitter struct {
	engine   string
	notifier Notifier
	dedup    *Deduplicator
	log      *logrus.Entry
}

func newEmitter(engine string, notifier Notifier, window time.Duration, logger *logging.Logger) *emitter {
	return &emitter{
		engine:   engine,
		notifier: notifier,
		dedup:    NewDeduplicator(window),
		log:      logger.WithComponent(engine),
	}
}

// emit sends the notification unless an identical one went out inside the
// dedup window. expireAfter of zero makes the notification sticky.
func (e *emitter) emit(now time.Time, severity models.Severity, message string, expireAfter time.Duration) bool {
	if !e.dedup.Allow(message, severity, now) {
		metrics.AlertsSuppressedTotal.WithLabelValues(e.engine).Inc()
		e.log.Debugf("Suppressed duplicate %s alert: %s", severity, message)
		return false
	}

	e.notifier.Notify(models.Notification{
		Message:      message,
		Severity:     severity,
		Source:       e.engine,
		CreatedAt:    now,
		AutoExpire:   expireAfter > 0,
		ExpiresAfter: expireAfter,
	})
	metrics.AlertsEmittedTotal.WithLabelValues(e.engine, string(severity)).Inc()
	e.log.Infof("Emitted %s alert: %s", severity, message)
	return true
}

// expiryFor keeps danger notifications on screen until dismissed.
func expiryFor(severity models.Severity, base time.Duration) time.Duration {
	if severity == models.SeverityDanger {
		return 0
	}
	return base
}
