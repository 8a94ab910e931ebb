// Package distributor holds the latest accepted store event for one bay and
// fans it out to any number of subscribers.
package distributor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/angelmondragon/baystatus/internal/storeevents"
	"github.com/angelmondragon/baystatus/pkg/logger"
	"github.com/angelmondragon/baystatus/pkg/metrics"
)

// Handler reacts to one distributed event. Handlers run synchronously inside
// Publish and must not call Publish or Subscribe on the same Distributor.
type Handler func(event *storeevents.Event)

// Distributor is a replay-latest multicast point. The zero value is not
// usable; construct with New.
type Distributor struct {
	bayID   string
	logg    *logger.Logger
	metrics *metrics.DistributorMetrics

	// dispatchMu orders replays and publishes so every subscriber sees
	// events in publish order.
	dispatchMu sync.Mutex

	mu     sync.Mutex
	latest *storeevents.Event
	subs   []*Subscription
	nextID uint64
}

type Option func(*Distributor)

func WithLogger(logg *logger.Logger) Option {
	return func(d *Distributor) {
		if logg != nil {
			d.logg = logg
		}
	}
}

func WithMetrics(m *metrics.DistributorMetrics) Option {
	return func(d *Distributor) {
		d.metrics = m
	}
}

func New(bayID string, opts ...Option) *Distributor {
	d := &Distributor{
		bayID: bayID,
		logg:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// BayID returns the bay this distributor serves.
func (d *Distributor) BayID() string {
	return d.bayID
}

// Publish replaces the latest event and delivers it to every current
// subscriber before returning. Nil events are ignored.
func (d *Distributor) Publish(event *storeevents.Event) {
	if event == nil {
		return
	}
	d.dispatchMu.Lock()
	defer d.dispatchMu.Unlock()

	d.mu.Lock()
	d.latest = event
	targets := append([]*Subscription(nil), d.subs...)
	d.mu.Unlock()

	d.metrics.IncPublish(d.bayID)
	for _, sub := range targets {
		sub.deliver(event)
	}
}

// SetStoreEvent is Publish.
func (d *Distributor) SetStoreEvent(event *storeevents.Event) {
	d.Publish(event)
}

// Subscribe registers handler. When an event has already been published it
// is delivered to handler once before Subscribe returns.
func (d *Distributor) Subscribe(handler Handler) *Subscription {
	d.dispatchMu.Lock()
	defer d.dispatchMu.Unlock()

	d.mu.Lock()
	d.nextID++
	sub := &Subscription{id: d.nextID, owner: d, handler: handler}
	sub.active.Store(true)
	d.subs = append(d.subs, sub)
	latest := d.latest
	count := len(d.subs)
	d.mu.Unlock()

	d.metrics.SetSubscribers(d.bayID, count)
	if latest != nil {
		sub.deliver(latest)
	}
	return sub
}

// StoreEvents is Subscribe.
func (d *Distributor) StoreEvents(handler Handler) *Subscription {
	return d.Subscribe(handler)
}

// Stream delivers events on a channel until ctx is done. The channel keeps
// only the newest undelivered event, so a slow reader skips intermediate
// states instead of blocking Publish.
func (d *Distributor) Stream(ctx context.Context) <-chan *storeevents.Event {
	ch := make(chan *storeevents.Event, 1)
	sub := d.Subscribe(func(event *storeevents.Event) {
		for {
			select {
			case ch <- event:
				return
			default:
			}
			select {
			case <-ch:
			default:
			}
		}
	})
	go func() {
		<-ctx.Done()
		d.dispatchMu.Lock()
		sub.Unsubscribe()
		close(ch)
		d.dispatchMu.Unlock()
	}()
	return ch
}

// Latest returns the most recently published event.
func (d *Distributor) Latest() (*storeevents.Event, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.latest, d.latest != nil
}

func (d *Distributor) SubscriberCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.subs)
}

func (d *Distributor) remove(sub *Subscription) {
	d.mu.Lock()
	for i, candidate := range d.subs {
		if candidate == sub {
			d.subs = append(d.subs[:i:i], d.subs[i+1:]...)
			break
		}
	}
	count := len(d.subs)
	d.mu.Unlock()
	d.metrics.SetSubscribers(d.bayID, count)
}

// Subscription is one registered handler.
type Subscription struct {
	id      uint64
	owner   *Distributor
	handler Handler
	active  atomic.Bool
}

// Unsubscribe stops delivery; no delivery begins after it returns. Safe to
// call more than once and from inside the handler.
func (s *Subscription) Unsubscribe() {
	if s == nil || !s.active.CompareAndSwap(true, false) {
		return
	}
	s.owner.remove(s)
}

// Active reports whether the subscription still receives events.
func (s *Subscription) Active() bool {
	return s != nil && s.active.Load()
}

func (s *Subscription) deliver(event *storeevents.Event) {
	if !s.active.Load() || s.handler == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			d := s.owner
			d.metrics.IncPanic(d.bayID)
			ctx := d.logg.WithFields(context.Background(), map[string]any{
				"bay_id":          d.bayID,
				"subscription_id": s.id,
				"event_id":        event.EventID,
			})
			d.logg.Error(ctx, "bay status subscriber panicked", fmt.Errorf("panic: %v", r))
		}
	}()
	s.handler(event)
}
