package events

import (
	"runtime/debug"
	"sync"

	"backoffice-alerts/internal/logging"
	"backoffice-alerts/internal/metrics"
)

// Handler receives events for one topic. Handlers run on the publisher's
// goroutine and must not block.
type Handler func(Event)

// Bus is an in-process publish/subscribe hub injected into both the
// publishers (HTTP ingress, Kafka consumer) and the alert engines.
type Bus struct {
	mu     sync.RWMutex
	subs   map[Topic]map[int]Handler
	nextID int
	logger *logging.Logger
}

func NewBus(logger *logging.Logger) *Bus {
	return &Bus{
		subs:   make(map[Topic]map[int]Handler),
		logger: logger,
	}
}

// Subscribe registers h for topic and returns a function removing it.
func (b *Bus) Subscribe(topic Topic, h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subs[topic]; !exists {
		b.subs[topic] = make(map[int]Handler)
	}
	id := b.nextID
	b.nextID++
	b.subs[topic][id] = h

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[topic], id)
			if len(b.subs[topic]) == 0 {
				delete(b.subs, topic)
			}
		})
	}
}

// Publish delivers evt to every subscriber of its topic and returns how many
// handlers ran.
func (b *Bus) Publish(evt Event) int {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[evt.Topic()]))
	for _, h := range b.subs[evt.Topic()] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		b.deliver(h, evt)
	}
	return len(handlers)
}

// Subscribers returns the number of handlers registered for topic.
func (b *Bus) Subscribers(topic Topic) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

func (b *Bus) deliver(h Handler, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.WithComponent("events").
				WithField("stack", string(debug.Stack())).
				Errorf("Handler panic on %s: %v", evt.Topic(), r)
			metrics.PanicsRecovered.WithLabelValues("events").Inc()
		}
	}()
	h(evt)
}
