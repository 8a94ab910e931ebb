// Package transport carries raw store-event frames between a message broker
// and the bay receivers. Adapters exist for an in-process broker, NATS,
// Google Cloud Pub/Sub and a plain WebSocket feed.
package transport

import (
	"context"
	"strings"
	"sync"
)

// StoreEventsDestination is shared by every bay; filtering happens client side.
const StoreEventsDestination = "/store-events"

// Frame is one raw message delivered on a destination.
type Frame struct {
	Destination string
	Body        []byte
	// ID is the broker message id when the transport provides one.
	ID string
}

// Handler receives frames in broker delivery order for one subscription.
type Handler func(ctx context.Context, frame Frame)

// Subscription is a live registration of a Handler.
type Subscription interface {
	// Unsubscribe stops delivery. No handler call starts after it returns
	// and a call in flight is waited for, so a handler must not unsubscribe
	// its own subscription.
	Unsubscribe() error
}

type Subscriber interface {
	Subscribe(ctx context.Context, destination string, handler Handler) (Subscription, error)
}

type Publisher interface {
	Publish(ctx context.Context, destination string, body []byte) error
}

// Broker is implemented by every adapter.
type Broker interface {
	Subscriber
	Publisher
	Name() string
	Ping(ctx context.Context) error
	Close() error
}

// Subject maps a slash destination onto a dotted broker subject:
// "/store-events" becomes "store-events", "/a/b" becomes "a.b".
func Subject(destination string) string {
	trimmed := strings.Trim(strings.TrimSpace(destination), "/")
	return strings.ReplaceAll(trimmed, "/", ".")
}

// guard serialises deliveries for one subscription and blocks them once stopped.
type guard struct {
	mu      sync.Mutex
	stopped bool
	handler Handler
}

func newGuard(handler Handler) *guard {
	return &guard{handler: handler}
}

func (g *guard) deliver(ctx context.Context, frame Frame) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stopped {
		return false
	}
	g.handler(ctx, frame)
	return true
}

// stop reports whether this call performed the transition.
func (g *guard) stop() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stopped {
		return false
	}
	g.stopped = true
	return true
}
