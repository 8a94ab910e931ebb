package main

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/angelmondragon/baystatus/api/controllers"
	"github.com/angelmondragon/baystatus/internal/baystatus"
	"github.com/angelmondragon/baystatus/internal/catalog"
	"github.com/angelmondragon/baystatus/internal/transport"
	"github.com/angelmondragon/baystatus/pkg/config"
	"github.com/angelmondragon/baystatus/pkg/db"
	"github.com/angelmondragon/baystatus/pkg/idempotency"
	"github.com/angelmondragon/baystatus/pkg/logger"
	"github.com/angelmondragon/baystatus/pkg/migrate"
	"github.com/angelmondragon/baystatus/pkg/redis"
)

// resources holds the external connections the service owns.
type resources struct {
	broker transport.Broker
	redis  *redis.Client
	db     *db.Client
	lookup catalog.Lookup
	dedup  baystatus.Deduplicator
}

func openResources(ctx context.Context, cfg *config.Config, logg *logger.Logger) (res *resources, err error) {
	res = &resources{}
	defer func() {
		if err != nil {
			err = multierr.Append(err, res.Close())
			res = nil
		}
	}()

	if cfg.Redis.Enabled() {
		if res.redis, err = redis.New(ctx, cfg.Redis, logg); err != nil {
			return res, fmt.Errorf("redis: %w", err)
		}
	}

	switch cfg.Catalog.Source {
	case config.CatalogSourceDB:
		if res.db, err = db.New(ctx, cfg.DB, logg); err != nil {
			return res, fmt.Errorf("database: %w", err)
		}
		if err = migrate.MaybeRunDev(ctx, cfg, logg, res.db); err != nil {
			return res, fmt.Errorf("dev migrations: %w", err)
		}
		res.lookup = catalog.NewRepository(res.db.DB())
	default:
		client, cerr := catalog.NewHTTPClient(cfg.Catalog.BaseURL,
			catalog.WithAPIKey(cfg.Catalog.APIKey),
			catalog.WithTimeout(cfg.Catalog.Timeout),
			catalog.WithRetries(cfg.Catalog.Retries, 0),
		)
		if cerr != nil {
			return res, fmt.Errorf("catalog client: %w", cerr)
		}
		res.lookup = client
	}

	if res.redis != nil && cfg.Catalog.CacheTTL > 0 {
		cached, cerr := catalog.NewCachedLookup(res.lookup, res.redis, cfg.Catalog.CacheTTL, logg)
		if cerr != nil {
			return res, fmt.Errorf("catalog cache: %w", cerr)
		}
		res.lookup = cached
	}

	if cfg.Eventing.Dedup {
		manager, merr := idempotency.NewManager(res.redis, cfg.Eventing.DedupTTL)
		if merr != nil {
			return res, fmt.Errorf("event dedup: %w", merr)
		}
		res.dedup = manager
	}

	if res.broker, err = transport.New(ctx, cfg, logg); err != nil {
		return res, fmt.Errorf("broker: %w", err)
	}
	return res, nil
}

func (r *resources) pingers() map[string]controllers.Pinger {
	out := map[string]controllers.Pinger{"broker": r.broker}
	if r.redis != nil {
		out["redis"] = r.redis
	}
	if r.db != nil {
		out["database"] = r.db
	}
	return out
}

// Close releases every opened connection, broker first.
func (r *resources) Close() error {
	var err error
	if r.broker != nil {
		err = multierr.Append(err, r.broker.Close())
	}
	if r.redis != nil {
		err = multierr.Append(err, r.redis.Close())
	}
	if r.db != nil {
		err = multierr.Append(err, r.db.Close())
	}
	return err
}
