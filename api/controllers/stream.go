package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/angelmondragon/baystatus/api/responses"
	"github.com/angelmondragon/baystatus/pkg/logger"
	"github.com/angelmondragon/baystatus/pkg/types"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = 30 * time.Second
	streamReadLimit  = 4096
)

// NewUpgrader accepts same-origin requests and the listed origins.
func NewUpgrader(origins []string) *websocket.Upgrader {
	allowed := map[string]struct{}{}
	for _, origin := range origins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			allowed[trimmed] = struct{}{}
		}
	}
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || origin == "http://"+r.Host || origin == "https://"+r.Host {
				return true
			}
			_, ok := allowed[origin]
			return ok
		},
	}
}

// BayStream pushes every event distributed for the bay over a WebSocket,
// starting with the latest one.
func BayStream(dir BayDirectory, upgrader *websocket.Upgrader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := pageFromRequest(dir, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already replied to the client.
			logg.WarnErr(r.Context(), "bay stream upgrade failed", err)
			return
		}
		defer conn.Close()

		// The request context stays live after the hijack and derives from the
		// server's base context, so service shutdown closes the stream.
		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		ctx = logg.WithBay(ctx, page.BayID())
		logg.Info(ctx, "bay stream opened")

		go readPump(conn, cancel)

		events := page.Distributor().Stream(ctx)
		ticker := time.NewTicker(streamPingPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				closeStream(ctx, conn, logg)
				return
			case event, ok := <-events:
				if !ok {
					closeStream(ctx, conn, logg)
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
				if err := conn.WriteJSON(types.StreamEnvelope{Type: "status", BayID: page.BayID(), Event: event}); err != nil {
					logg.WarnErr(ctx, "bay stream write failed", err)
					return
				}
			case <-ticker.C:
				_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}
}

func closeStream(ctx context.Context, conn *websocket.Conn, logg *logger.Logger) {
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	logg.Info(ctx, "bay stream closed")
}

// readPump drains client frames so pongs and close messages are handled.
func readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(streamReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
