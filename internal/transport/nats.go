package transport

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/angelmondragon/baystatus/pkg/config"
	"github.com/angelmondragon/baystatus/pkg/logger"
)

// NATS maps destinations onto core NATS subjects. The client library
// reconnects and restores subscriptions on its own.
type NATS struct {
	conn *nats.Conn
	logg *logger.Logger
}

func NewNATS(ctx context.Context, cfg config.NATSConfig, logg *logger.Logger) (*NATS, error) {
	if logg == nil {
		logg = logger.Nop()
	}
	logCtx := logg.WithField(ctx, "nats_url", cfg.URL)
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.PingInterval(cfg.PingInterval),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logg.WarnErr(logCtx, "nats disconnected", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logg.Info(logg.WithField(logCtx, "server", c.ConnectedUrl()), "nats reconnected")
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			fields := map[string]any{"error": err.Error()}
			if sub != nil {
				fields["subject"] = sub.Subject
			}
			logg.Warn(logg.WithFields(logCtx, fields), "nats async error")
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	logg.Info(logCtx, "nats connection established")
	return &NATS{conn: conn, logg: logg}, nil
}

func (n *NATS) Name() string { return "nats" }

func (n *NATS) Subscribe(ctx context.Context, destination string, handler Handler) (Subscription, error) {
	if handler == nil {
		return nil, errors.New("transport: handler is required")
	}
	g := newGuard(handler)
	sub, err := n.conn.Subscribe(Subject(destination), func(msg *nats.Msg) {
		frame := Frame{Destination: destination, Body: msg.Data}
		if msg.Header != nil {
			frame.ID = msg.Header.Get(nats.MsgIdHdr)
		}
		g.deliver(ctx, frame)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", destination, err)
	}
	return &natsSubscription{sub: sub, guard: g}, nil
}

func (n *NATS) Publish(ctx context.Context, destination string, body []byte) error {
	if err := n.conn.Publish(Subject(destination), body); err != nil {
		return fmt.Errorf("publish %s: %w", destination, err)
	}
	if _, ok := ctx.Deadline(); ok {
		return n.conn.FlushWithContext(ctx)
	}
	return n.conn.Flush()
}

func (n *NATS) Ping(context.Context) error {
	if n == nil || n.conn == nil {
		return errors.New("nats connection not initialized")
	}
	if status := n.conn.Status(); status != nats.CONNECTED {
		return fmt.Errorf("nats connection %s", status)
	}
	return nil
}

// Close drains pending messages before closing the connection.
func (n *NATS) Close() error {
	if n == nil || n.conn == nil {
		return nil
	}
	if err := n.conn.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		return err
	}
	return nil
}

type natsSubscription struct {
	sub   *nats.Subscription
	guard *guard
}

func (s *natsSubscription) Unsubscribe() error {
	if !s.guard.stop() {
		return nil
	}
	if err := s.sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) && !errors.Is(err, nats.ErrBadSubscription) {
		return err
	}
	return nil
}
