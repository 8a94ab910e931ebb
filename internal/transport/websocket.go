package transport

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/angelmondragon/baystatus/pkg/config"
	"github.com/angelmondragon/baystatus/pkg/logger"
)

const (
	wsPingPeriod   = 30 * time.Second
	wsPongWait     = 75 * time.Second
	wsWriteTimeout = 5 * time.Second
)

// WebSocket reads text frames from <base URL><destination>. A dropped
// connection is redialled with exponential backoff; the subscription and
// its handler survive the reconnect.
type WebSocket struct {
	baseURL    string
	dialer     *websocket.Dialer
	minBackoff time.Duration
	maxBackoff time.Duration
	logg       *logger.Logger

	mu     sync.Mutex
	subs   map[*wsSubscription]struct{}
	closed bool
}

func NewWebSocket(cfg config.WebSocketConfig, logg *logger.Logger) (*WebSocket, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse websocket url: %w", err)
	}
	if parsed.Scheme != "ws" && parsed.Scheme != "wss" {
		return nil, fmt.Errorf("websocket url must use ws or wss, got %q", parsed.Scheme)
	}
	if logg == nil {
		logg = logger.Nop()
	}
	minBackoff, maxBackoff := cfg.ReconnectMin, cfg.ReconnectMax
	if minBackoff <= 0 {
		minBackoff = time.Second
	}
	if maxBackoff < minBackoff {
		maxBackoff = minBackoff
	}
	return &WebSocket{
		baseURL:    base,
		dialer:     &websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
		minBackoff: minBackoff,
		maxBackoff: maxBackoff,
		logg:       logg,
		subs:       make(map[*wsSubscription]struct{}),
	}, nil
}

func (w *WebSocket) Name() string { return "websocket" }

func (w *WebSocket) endpoint(destination string) string {
	return w.baseURL + "/" + strings.TrimLeft(destination, "/")
}

func (w *WebSocket) dial(ctx context.Context, destination string) (*websocket.Conn, error) {
	conn, _, err := w.dialer.DialContext(ctx, w.endpoint(destination), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", w.endpoint(destination), err)
	}
	return conn, nil
}

// Subscribe dials once synchronously so configuration errors surface to the
// caller; later failures are retried in the background.
func (w *WebSocket) Subscribe(ctx context.Context, destination string, handler Handler) (Subscription, error) {
	if handler == nil {
		return nil, errors.New("transport: handler is required")
	}
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return nil, errBrokerClosed
	}

	conn, err := w.dial(ctx, destination)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	sub := &wsSubscription{
		owner:       w,
		destination: destination,
		guard:       newGuard(handler),
		cancel:      cancel,
		done:        make(chan struct{}),
	}
	sub.setConn(conn)

	w.mu.Lock()
	w.subs[sub] = struct{}{}
	w.mu.Unlock()

	go sub.run(runCtx)
	return sub, nil
}

func (w *WebSocket) Publish(ctx context.Context, destination string, body []byte) error {
	conn, err := w.dial(ctx, destination)
	if err != nil {
		return err
	}
	defer conn.Close()

	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, body); err != nil {
		return fmt.Errorf("publish %s: %w", destination, err)
	}
	closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(wsWriteTimeout))
	return nil
}

// Ping fails while any subscription is between connections.
func (w *WebSocket) Ping(context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errBrokerClosed
	}
	for sub := range w.subs {
		if !sub.connected.Load() {
			return fmt.Errorf("websocket %s reconnecting", sub.destination)
		}
	}
	return nil
}

func (w *WebSocket) Close() error {
	w.mu.Lock()
	w.closed = true
	subs := make([]*wsSubscription, 0, len(w.subs))
	for sub := range w.subs {
		subs = append(subs, sub)
	}
	w.mu.Unlock()

	for _, sub := range subs {
		_ = sub.Unsubscribe()
	}
	return nil
}

func (w *WebSocket) forget(sub *wsSubscription) {
	w.mu.Lock()
	delete(w.subs, sub)
	w.mu.Unlock()
}

type wsSubscription struct {
	owner       *WebSocket
	destination string
	guard       *guard
	cancel      context.CancelFunc
	done        chan struct{}
	connected   atomic.Bool

	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSubscription) setConn(conn *websocket.Conn) {
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	s.connected.Store(conn != nil)
}

func (s *wsSubscription) closeConn() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()
	s.connected.Store(false)
	if conn != nil {
		_ = conn.Close()
	}
}

func (s *wsSubscription) run(ctx context.Context) {
	defer close(s.done)
	logg := s.owner.logg
	logCtx := logg.WithField(ctx, "destination", s.destination)

	for {
		s.mu.Lock()
		conn := s.conn
		s.mu.Unlock()
		if conn != nil {
			s.readLoop(ctx, conn)
		}
		s.closeConn()

		if ctx.Err() != nil {
			return
		}

		backoff := s.owner.minBackoff
		for attempt := 1; ; attempt++ {
			logg.Warn(logg.WithFields(logCtx, map[string]any{
				"attempt": attempt,
				"backoff": backoff.String(),
			}), "websocket reconnecting")
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
			next, err := s.owner.dial(ctx, s.destination)
			if err != nil {
				logg.WarnErr(logCtx, "websocket dial failed", err)
				backoff = nextBackoff(backoff, s.owner.minBackoff, s.owner.maxBackoff)
				continue
			}
			s.setConn(next)
			if ctx.Err() != nil {
				s.closeConn()
				return
			}
			logg.Info(logCtx, "websocket reconnected")
			break
		}
	}
}

func (s *wsSubscription) readLoop(ctx context.Context, conn *websocket.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	stopPing := make(chan struct{})
	defer close(stopPing)
	go func() {
		ticker := time.NewTicker(wsPingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-stopPing:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
					return
				}
			}
		}
	}()

	for {
		msgType, body, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		if !s.guard.deliver(ctx, Frame{Destination: s.destination, Body: body}) {
			return
		}
	}
}

func (s *wsSubscription) Unsubscribe() error {
	if !s.guard.stop() {
		<-s.done
		return nil
	}
	s.cancel()
	s.closeConn()
	<-s.done
	s.owner.forget(s)
	return nil
}

func nextBackoff(current, base, max time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	next := current * 2
	if next > max {
		return max
	}
	return next
}
