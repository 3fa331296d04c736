// Package events provides a typed publish/subscribe channel used to broadcast
// state changes (session activity, wallet accounts, chain switches) to
// consumers that must be able to detach on teardown.
package events

import (
	"sync"
)

// Handler receives a published value.
type Handler[T any] func(T)

// Unsubscribe detaches a handler. Calling it more than once is a no-op.
type Unsubscribe func()

// Bus delivers every published value to all current subscribers, in
// subscription order, on the publisher's goroutine.
type Bus[T any] struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[uint64]Handler[T]
	order    []uint64
}

// NewBus creates an empty bus.
func NewBus[T any]() *Bus[T] {
	return &Bus[T]{handlers: make(map[uint64]Handler[T])}
}

// Subscribe registers h and returns the func that removes it.
func (b *Bus[T]) Subscribe(h Handler[T]) Unsubscribe {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = h
	b.order = append(b.order, id)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus[T]) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.handlers, id)
	for i, v := range b.order {
		if v == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

// Publish hands v to every subscriber. Handlers run synchronously, so Publish
// returns only after all of them have seen the value.
func (b *Bus[T]) Publish(v T) {
	b.mu.RLock()
	snapshot := make([]Handler[T], 0, len(b.order))
	for _, id := range b.order {
		snapshot = append(snapshot, b.handlers[id])
	}
	b.mu.RUnlock()

	for _, h := range snapshot {
		h(v)
	}
}

// Len returns the number of live subscribers.
func (b *Bus[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}

// Reset drops every subscriber. Unsubscribe funcs handed out earlier remain
// safe to call.
func (b *Bus[T]) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = make(map[uint64]Handler[T])
	b.order = nil
}
