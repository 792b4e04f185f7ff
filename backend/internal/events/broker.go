// Package events fans out graph change notifications to subscribers.
package events

import (
	"sync"

	"go.uber.org/zap"

	"tablegraph/backend/internal/constants"
	"tablegraph/backend/internal/metrics"
	"tablegraph/backend/pkg/logger"
)

// Event is the message delivered to subscribers. It only says that something
// changed; subscribers re-fetch the graph.
type Event struct {
	Name string `json:"event"`
}

// GraphUpdated builds the event sent after any row write
func GraphUpdated() Event {
	return Event{Name: constants.EventGraphUpdated}
}

// Publisher is what writers depend on
type Publisher interface {
	Publish(ev Event)
}

const subscriberBuffer = 16

// Broker is a non-blocking in-process pub/sub.
// A subscriber whose buffer is full misses the event instead of stalling the publisher.
type Broker struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
	logger *zap.Logger
}

// NewBroker creates an empty broker
func NewBroker() *Broker {
	return &Broker{
		subs:   make(map[int]chan Event),
		logger: logger.Named("events"),
	}
}

// Subscribe registers a new subscriber. The returned cancel func closes the channel.
func (b *Broker) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, subscriberBuffer)
	b.subs[id] = ch
	metrics.Subscribers.Inc()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
			metrics.Subscribers.Dec()
		})
	}
	return ch, cancel
}

// Publish delivers ev to every subscriber without blocking
func (b *Broker) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.logger.Warn("Dropping event for slow subscriber",
				zap.Int("subscriber", id),
				zap.String("event", ev.Name),
			)
		}
	}
}

// Len is the number of live subscribers
func (b *Broker) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
