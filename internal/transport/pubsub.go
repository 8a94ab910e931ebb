package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/baystatus/pkg/logger"
)

const destinationAttribute = "destination"

type pubSubClient interface {
	Ping(context.Context) error
	Close() error
	StoreEventsSubscription() *gcppubsub.Subscriber
	StoreEventsPublisher() *gcppubsub.Publisher
}

type messageReceiver interface {
	Receive(ctx context.Context, f func(context.Context, *gcppubsub.Message)) error
}

type messagePublisher interface {
	Publish(ctx context.Context, msg *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(ctx context.Context) (string, error)
}

// PubSub reads the store-events destination from a GCP subscription. One
// Receive stream runs per destination and every message is handed to all
// handlers registered on it before it is acked, so each bay sees every
// frame. Flow control is limited to one outstanding message so frames reach
// handlers in delivery order.
type PubSub struct {
	client    pubSubClient
	logg      *logger.Logger
	receiver  func(destination string) (messageReceiver, error)
	publisher func(destination string) (messagePublisher, error)

	mu      sync.Mutex
	streams map[string]*pubSubStream
}

func NewPubSub(client pubSubClient, logg *logger.Logger) (*PubSub, error) {
	if client == nil {
		return nil, errors.New("pubsub client is required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	p := &PubSub{client: client, logg: logg, streams: map[string]*pubSubStream{}}
	p.receiver = p.storeEventsReceiver
	p.publisher = p.storeEventsPublisher
	return p, nil
}

func (p *PubSub) storeEventsReceiver(destination string) (messageReceiver, error) {
	if destination != StoreEventsDestination {
		return nil, fmt.Errorf("pubsub: no subscription configured for %s", destination)
	}
	sub := p.client.StoreEventsSubscription()
	if sub == nil {
		return nil, errors.New("pubsub: store events subscription not configured")
	}
	sub.ReceiveSettings.MaxOutstandingMessages = 1
	sub.ReceiveSettings.NumGoroutines = 1
	return sub, nil
}

func (p *PubSub) storeEventsPublisher(destination string) (messagePublisher, error) {
	if destination != StoreEventsDestination {
		return nil, fmt.Errorf("pubsub: no topic configured for %s", destination)
	}
	pub := p.client.StoreEventsPublisher()
	if pub == nil {
		return nil, errors.New("pubsub: store events topic not configured")
	}
	return gcpPublisher{Publisher: pub}, nil
}

func (p *PubSub) Name() string { return "pubsub" }

func (p *PubSub) Subscribe(ctx context.Context, destination string, handler Handler) (Subscription, error) {
	if handler == nil {
		return nil, errors.New("transport: handler is required")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.streams == nil {
		p.streams = map[string]*pubSubStream{}
	}
	stream := p.streams[destination]
	if stream == nil || stream.stopped() {
		recv, err := p.receiver(destination)
		if err != nil {
			return nil, err
		}
		stream = p.startStream(ctx, destination, recv)
		p.streams[destination] = stream
	}

	sub := &pubSubSubscription{broker: p, stream: stream, guard: newGuard(handler)}
	stream.subs = append(stream.subs, sub)
	return sub, nil
}

// startStream runs Receive until the last subscription leaves. It outlives
// the ctx of the subscription that started it. Callers hold p.mu.
func (p *PubSub) startStream(ctx context.Context, destination string, recv messageReceiver) *pubSubStream {
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stream := &pubSubStream{destination: destination, cancel: cancel, done: make(chan struct{})}
	logCtx := p.logg.WithField(ctx, "destination", destination)

	go func() {
		defer close(stream.done)
		err := recv.Receive(runCtx, func(msgCtx context.Context, msg *gcppubsub.Message) {
			frame := frameFromMessage(destination, msg)
			for _, sub := range p.targets(stream) {
				sub.guard.deliver(msgCtx, frame)
			}
			// Frame-level failures are handled by the receivers, so every
			// message is acked once all handlers return.
			msg.Ack()
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			stream.setErr(err)
			p.logg.Error(logCtx, "pubsub receive stopped", err)
		}
	}()
	return stream
}

func (p *PubSub) targets(stream *pubSubStream) []*pubSubSubscription {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*pubSubSubscription(nil), stream.subs...)
}

// release detaches sub and reports whether its stream has no subscribers left.
func (p *PubSub) release(sub *pubSubSubscription) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	stream := sub.stream
	for i, s := range stream.subs {
		if s == sub {
			stream.subs = append(stream.subs[:i], stream.subs[i+1:]...)
			break
		}
	}
	if len(stream.subs) > 0 {
		return false
	}
	if p.streams[stream.destination] == stream {
		delete(p.streams, stream.destination)
	}
	return true
}

func frameFromMessage(destination string, msg *gcppubsub.Message) Frame {
	frame := Frame{Destination: destination, Body: msg.Data, ID: msg.ID}
	if dest := msg.Attributes[destinationAttribute]; dest != "" {
		frame.Destination = dest
	}
	return frame
}

func (p *PubSub) Publish(ctx context.Context, destination string, body []byte) error {
	pub, err := p.publisher(destination)
	if err != nil {
		return err
	}
	result := pub.Publish(ctx, &gcppubsub.Message{
		Data:       body,
		Attributes: map[string]string{destinationAttribute: destination},
	})
	if result == nil {
		return errors.New("pubsub: publish result is nil")
	}
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish %s: %w", destination, err)
	}
	return nil
}

func (p *PubSub) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}

// Close stops every Receive stream before closing the client.
func (p *PubSub) Close() error {
	p.mu.Lock()
	streams := make([]*pubSubStream, 0, len(p.streams))
	for dest, stream := range p.streams {
		streams = append(streams, stream)
		delete(p.streams, dest)
	}
	p.mu.Unlock()

	for _, stream := range streams {
		stream.cancel()
		<-stream.done
	}
	return p.client.Close()
}

type pubSubStream struct {
	destination string
	cancel      context.CancelFunc
	done        chan struct{}
	// subs is guarded by the owning PubSub's mu.
	subs []*pubSubSubscription

	mu  sync.Mutex
	err error
}

func (s *pubSubStream) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *pubSubStream) receiveErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *pubSubStream) stopped() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

type pubSubSubscription struct {
	broker *PubSub
	stream *pubSubStream
	guard  *guard
}

// Unsubscribe stops delivery to this handler. The last subscription on a
// destination also cancels Receive and waits for it. It reports the error
// that stopped Receive early, if any.
func (s *pubSubSubscription) Unsubscribe() error {
	if !s.guard.stop() {
		return nil
	}
	if s.broker.release(s) {
		s.stream.cancel()
		<-s.stream.done
	}
	return s.stream.receiveErr()
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p.Publisher == nil {
		return nil
	}
	return p.Publisher.Publish(ctx, msg)
}
