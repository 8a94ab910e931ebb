package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/angelmondragon/baystatus/pkg/enums"
	"github.com/angelmondragon/baystatus/pkg/logger"
	"github.com/angelmondragon/baystatus/pkg/redis"
)

const partsCacheScope = "parts"

// CachedLookup serves parts from Redis and falls back to next on a miss.
// Cache failures are logged and never fail the lookup.
type CachedLookup struct {
	next  Lookup
	store redis.CacheStore
	ttl   time.Duration
	logg  *logger.Logger
}

func NewCachedLookup(next Lookup, store redis.CacheStore, ttl time.Duration, logg *logger.Logger) (*CachedLookup, error) {
	if next == nil {
		return nil, errors.New("catalog lookup required")
	}
	if store == nil {
		return nil, errors.New("cache store required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &CachedLookup{next: next, store: store, ttl: ttl, logg: logg}, nil
}

func (c *CachedLookup) GetPartsByVehicleToEngineConfigIDAndPartType(ctx context.Context, vehicleToEngineConfigID string, partType enums.PartType) ([]Part, error) {
	id := strings.TrimSpace(vehicleToEngineConfigID)
	key := partsCacheKey(c.store, id, partType)
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"cache_key": key,
		"part_type": partType.String(),
	})

	cached, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		var parts []Part
		jsonErr := json.Unmarshal([]byte(cached), &parts)
		if jsonErr == nil {
			return parts, nil
		}
		c.logg.WarnErr(logCtx, "discarding unreadable parts cache entry", jsonErr)
	case !redis.IsNil(err):
		c.logg.WarnErr(logCtx, "parts cache read failed", err)
	}

	parts, err := c.next.GetPartsByVehicleToEngineConfigIDAndPartType(ctx, id, partType)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(parts)
	if err != nil {
		c.logg.WarnErr(logCtx, "parts cache encode failed", err)
		return parts, nil
	}
	if err := c.store.Set(ctx, key, string(payload), c.ttl); err != nil {
		c.logg.WarnErr(logCtx, "parts cache write failed", err)
	}
	return parts, nil
}

// InvalidateParts evicts the cached parts for one vehicle and part type.
func InvalidateParts(ctx context.Context, store redis.CacheStore, vehicleToEngineConfigID string, partType enums.PartType) error {
	return store.Del(ctx, partsCacheKey(store, strings.TrimSpace(vehicleToEngineConfigID), partType))
}

func partsCacheKey(store redis.CacheStore, id string, partType enums.PartType) string {
	return store.CacheKey(partsCacheScope, id, partType.String())
}
