package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/angelmondragon/baystatus/pkg/config"
)

// feedServer upgrades every connection on /store-events. It writes the next
// queued batch and closes, or reads one frame when nothing is queued.
type feedServer struct {
	upgrader websocket.Upgrader
	batches  chan []string
	received chan string
}

func (f *feedServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != StoreEventsDestination {
		http.NotFound(w, r)
		return
	}
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	select {
	case batch := <-f.batches:
		for _, frame := range batch {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
				return
			}
		}
	default:
		_, body, err := conn.ReadMessage()
		if err == nil {
			f.received <- string(body)
		}
	}
}

func newFeedServer(t *testing.T) (*feedServer, string) {
	feed := &feedServer{batches: make(chan []string, 4), received: make(chan string, 1)}
	srv := httptest.NewServer(feed)
	t.Cleanup(srv.Close)
	return feed, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWebSocketReconnectsWithoutResubscribing(t *testing.T) {
	feed, base := newFeedServer(t)
	feed.batches <- []string{"one", "two"}
	feed.batches <- []string{"three"}

	broker, err := NewWebSocket(config.WebSocketConfig{
		URL:              base,
		HandshakeTimeout: time.Second,
		ReconnectMin:     10 * time.Millisecond,
		ReconnectMax:     50 * time.Millisecond,
	}, nil)
	if err != nil {
		t.Fatalf("new websocket: %v", err)
	}
	defer broker.Close()

	var mu sync.Mutex
	var got []string
	done := make(chan struct{})
	sub, err := broker.Subscribe(context.Background(), StoreEventsDestination, func(_ context.Context, f Frame) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, string(f.Body))
		if len(got) == 3 {
			close(done)
		}
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		mu.Lock()
		defer mu.Unlock()
		t.Fatalf("timed out waiting for frames across reconnect, got %v", got)
	}

	if err := sub.Unsubscribe(); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if strings.Join(got, ",") != "one,two,three" {
		t.Fatalf("unexpected frames %v", got)
	}
}

func TestWebSocketPublishWritesTextFrame(t *testing.T) {
	feed, base := newFeedServer(t)
	broker, err := NewWebSocket(config.WebSocketConfig{URL: base, HandshakeTimeout: time.Second}, nil)
	if err != nil {
		t.Fatalf("new websocket: %v", err)
	}

	if err := broker.Publish(context.Background(), StoreEventsDestination, []byte(`{"eventType":"BEGIN_DAY"}`)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	select {
	case body := <-feed.received:
		if body != `{"eventType":"BEGIN_DAY"}` {
			t.Fatalf("unexpected body %q", body)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("server never received the frame")
	}
}

func TestWebSocketRejectsHTTPURL(t *testing.T) {
	if _, err := NewWebSocket(config.WebSocketConfig{URL: "http://example.com"}, nil); err == nil {
		t.Fatalf("expected scheme error")
	}
}

func TestWebSocketSubscribeFailsWhenUnreachable(t *testing.T) {
	broker, err := NewWebSocket(config.WebSocketConfig{URL: "ws://127.0.0.1:1", HandshakeTimeout: 200 * time.Millisecond}, nil)
	if err != nil {
		t.Fatalf("new websocket: %v", err)
	}
	if _, err := broker.Subscribe(context.Background(), StoreEventsDestination, func(context.Context, Frame) {}); err == nil {
		t.Fatalf("expected dial error")
	}
}

func TestNextBackoff(t *testing.T) {
	if got := nextBackoff(0, time.Second, 30*time.Second); got != 2*time.Second {
		t.Fatalf("expected 2s, got %v", got)
	}
	if got := nextBackoff(20*time.Second, time.Second, 30*time.Second); got != 30*time.Second {
		t.Fatalf("expected cap at 30s, got %v", got)
	}
}
