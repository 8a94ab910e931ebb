package transport

import (
	"context"
	"errors"
	"sync"
)

var errBrokerClosed = errors.New("transport: broker closed")

// Memory is an in-process broker. Publish delivers synchronously to every
// subscriber of the destination in subscription order.
type Memory struct {
	mu     sync.RWMutex
	subs   map[string][]*memorySubscription
	closed bool
}

func NewMemory() *Memory {
	return &Memory{subs: make(map[string][]*memorySubscription)}
}

type memorySubscription struct {
	broker      *Memory
	destination string
	guard       *guard
}

func (m *Memory) Name() string { return "memory" }

func (m *Memory) Subscribe(ctx context.Context, destination string, handler Handler) (Subscription, error) {
	if handler == nil {
		return nil, errors.New("transport: handler is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, errBrokerClosed
	}
	sub := &memorySubscription{broker: m, destination: destination, guard: newGuard(handler)}
	m.subs[destination] = append(m.subs[destination], sub)
	return sub, nil
}

func (m *Memory) Publish(ctx context.Context, destination string, body []byte) error {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return errBrokerClosed
	}
	targets := append([]*memorySubscription(nil), m.subs[destination]...)
	m.mu.RUnlock()

	frame := Frame{Destination: destination, Body: body}
	for _, sub := range targets {
		sub.guard.deliver(ctx, frame)
	}
	return nil
}

// SubscriberCount reports live subscriptions on a destination.
func (m *Memory) SubscriberCount(destination string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subs[destination])
}

func (m *Memory) Ping(context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return errBrokerClosed
	}
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	subs := m.subs
	m.subs = make(map[string][]*memorySubscription)
	m.closed = true
	m.mu.Unlock()

	for _, list := range subs {
		for _, sub := range list {
			sub.guard.stop()
		}
	}
	return nil
}

func (s *memorySubscription) Unsubscribe() error {
	if !s.guard.stop() {
		return nil
	}
	m := s.broker
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.subs[s.destination]
	for i, candidate := range list {
		if candidate == s {
			m.subs[s.destination] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(m.subs[s.destination]) == 0 {
		delete(m.subs, s.destination)
	}
	return nil
}
