// Package eventbus fans gateway events out to in-process subscribers and
// websocket clients.
package eventbus

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"vectorportal/internal/domain"
)

type subscription struct {
	id      uint64
	handler domain.EventHandler
}

// Bus is an in-process, goroutine-safe event bus.
type Bus struct {
	mu      sync.RWMutex
	typed   map[domain.EventType][]subscription
	allSubs []subscription
	nextID  atomic.Uint64
	logger  *slog.Logger
	wg      sync.WaitGroup
	closed  atomic.Bool
	dropped atomic.Int64
}

// New creates an event bus.
func New(logger *slog.Logger) *Bus {
	return &Bus{
		typed:  make(map[domain.EventType][]subscription),
		logger: logger,
	}
}

// Publish fans an event out to typed subscribers, then to all-event
// subscribers. Each handler runs in its own goroutine; panics are recovered.
func (b *Bus) Publish(ctx context.Context, event domain.Event) {
	if b.closed.Load() {
		return
	}

	b.mu.RLock()
	typed := slices.Clone(b.typed[event.Type])
	allSubs := slices.Clone(b.allSubs)
	b.mu.RUnlock()

	for _, sub := range typed {
		b.dispatch(ctx, event, sub)
	}
	for _, sub := range allSubs {
		b.dispatch(ctx, event, sub)
	}
}

func (b *Bus) dispatch(ctx context.Context, event domain.Event, sub subscription) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("event handler panicked",
					"event", string(event.Type),
					"panic", r,
				)
			}
		}()
		sub.handler(ctx, event)
	}()
}

// Subscribe registers a handler for one event type and returns its
// unsubscribe function.
func (b *Bus) Subscribe(eventType domain.EventType, handler domain.EventHandler) func() {
	id := b.nextID.Add(1)

	b.mu.Lock()
	b.typed[eventType] = append(b.typed[eventType], subscription{id: id, handler: handler})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.typed[eventType] = slices.DeleteFunc(b.typed[eventType], func(s subscription) bool { return s.id == id })
	}
}

// SubscribeAll registers a handler that receives every event.
func (b *Bus) SubscribeAll(handler domain.EventHandler) func() {
	id := b.nextID.Add(1)

	b.mu.Lock()
	b.allSubs = append(b.allSubs, subscription{id: id, handler: handler})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.allSubs = slices.DeleteFunc(b.allSubs, func(s subscription) bool { return s.id == id })
	}
}

// Stream delivers every event on a buffered channel until ctx is done.
// A full buffer drops the event instead of blocking publishers.
func (b *Bus) Stream(ctx context.Context, buffer int) <-chan domain.Event {
	ch := make(chan domain.Event, buffer)
	var mu sync.Mutex
	done := false

	unsub := b.SubscribeAll(func(_ context.Context, e domain.Event) {
		mu.Lock()
		defer mu.Unlock()
		if done {
			return
		}
		select {
		case ch <- e:
		default:
			b.dropped.Add(1)
			b.logger.Warn("event dropped for slow subscriber", "event", string(e.Type))
		}
	})

	go func() {
		<-ctx.Done()
		unsub()
		mu.Lock()
		done = true
		close(ch)
		mu.Unlock()
	}()
	return ch
}

// Dropped returns how many events slow streams have missed.
func (b *Bus) Dropped() int64 { return b.dropped.Load() }

// Close prevents new publishes and waits for in-flight handlers. It is
// idempotent.
func (b *Bus) Close() {
	if b.closed.Swap(true) {
		return
	}
	b.wg.Wait()
}
