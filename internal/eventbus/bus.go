// Package eventbus implements the in-process event bus (C9): a single
// bounded MPSC queue drained by one consumer goroutine, preserving
// per-event-type order for subscribers while dropping the oldest event on
// overflow.
package eventbus

import (
	"context"
	"log/slog"
	"sync"

	"github.com/chatbuddy/core/internal/domain"
	"github.com/chatbuddy/core/internal/observability"
)

// Bus implements the C9 contract.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[domain.EventType][]domain.EventHandler

	queueMu sync.Mutex
	queue   []domain.Event
	notify  chan struct{}
	cap     int

	stop    chan struct{}
	stopped chan struct{}
	once    sync.Once

	mirror *KafkaMirror
}

// NewBus builds a Bus with a bounded queue of capacity.
func NewBus(capacity int) *Bus {
	if capacity <= 0 {
		capacity = 10000
	}
	return &Bus{
		subscribers: make(map[domain.EventType][]domain.EventHandler),
		notify:      make(chan struct{}, 1),
		cap:         capacity,
		stop:        make(chan struct{}),
		stopped:     make(chan struct{}),
	}
}

// SetMirror attaches an optional Kafka mirror; every published event is
// additionally forwarded to it. Passing nil disables mirroring.
func (b *Bus) SetMirror(mirror *KafkaMirror) {
	b.mirror = mirror
}

// Subscribe registers handler for eventType; multiple handlers per type are
// allowed and invoked in registration order.
func (b *Bus) Subscribe(eventType domain.EventType, handler domain.EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish enqueues event, non-blocking while under capacity. On overflow,
// drops the oldest queued event and increments the dropped counter.
func (b *Bus) Publish(event domain.Event) {
	b.queueMu.Lock()
	if len(b.queue) >= b.cap {
		dropped := b.queue[0]
		b.queue = b.queue[1:]
		observability.EventsDroppedTotal.WithLabelValues(string(dropped.Type)).Inc()
	}
	b.queue = append(b.queue, event)
	b.queueMu.Unlock()

	observability.EventsPublishedTotal.WithLabelValues(string(event.Type)).Inc()
	b.mirror.Mirror(event)

	select {
	case b.notify <- struct{}{}:
	default:
	}
}

// Start launches the single consumer goroutine. Safe to call once.
func (b *Bus) Start() {
	go b.run()
}

func (b *Bus) run() {
	defer close(b.stopped)
	for {
		select {
		case <-b.stop:
			return
		case <-b.notify:
			b.drain()
		}
	}
}

func (b *Bus) drain() {
	for {
		select {
		case <-b.stop:
			return
		default:
		}
		event, ok := b.pop()
		if !ok {
			return
		}
		b.dispatch(event)
	}
}

func (b *Bus) pop() (domain.Event, bool) {
	b.queueMu.Lock()
	defer b.queueMu.Unlock()
	if len(b.queue) == 0 {
		return domain.Event{}, false
	}
	event := b.queue[0]
	b.queue = b.queue[1:]
	return event, true
}

func (b *Bus) dispatch(event domain.Event) {
	b.mu.RLock()
	handlers := append([]domain.EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		b.invoke(h, event)
	}
}

func (b *Bus) invoke(h domain.EventHandler, event domain.Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("eventbus handler panic recovered", slog.String("type", string(event.Type)), slog.Any("panic", r))
			observability.EventHandlerErrorsTotal.WithLabelValues(string(event.Type)).Inc()
		}
	}()
	if err := h(context.Background(), event); err != nil {
		slog.Error("eventbus handler error", slog.String("type", string(event.Type)), slog.Any("error", err))
		observability.EventHandlerErrorsTotal.WithLabelValues(string(event.Type)).Inc()
	}
}

// Stop drains in-flight handlers but discards any still-queued events.
func (b *Bus) Stop() {
	b.once.Do(func() {
		close(b.stop)
		<-b.stopped
	})
}

// QueueLen reports the number of events currently queued, for tests and
// metrics scraping.
func (b *Bus) QueueLen() int {
	b.queueMu.Lock()
	defer b.queueMu.Unlock()
	return len(b.queue)
}
