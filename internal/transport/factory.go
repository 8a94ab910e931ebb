package transport

import (
	"context"
	"fmt"

	"github.com/angelmondragon/baystatus/pkg/config"
	"github.com/angelmondragon/baystatus/pkg/logger"
	"github.com/angelmondragon/baystatus/pkg/pubsub"
)

// New builds the broker selected by cfg.Broker.Kind.
func New(ctx context.Context, cfg *config.Config, logg *logger.Logger) (Broker, error) {
	switch cfg.Broker.Kind {
	case config.BrokerMemory, "":
		return NewMemory(), nil
	case config.BrokerNATS:
		return NewNATS(ctx, cfg.NATS, logg)
	case config.BrokerPubSub:
		client, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			return nil, err
		}
		broker, err := NewPubSub(client, logg)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		return broker, nil
	case config.BrokerWebSocket:
		return NewWebSocket(cfg.WebSocket, logg)
	default:
		return nil, fmt.Errorf("unsupported broker kind %q", cfg.Broker.Kind)
	}
}
