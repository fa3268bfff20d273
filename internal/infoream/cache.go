package infoream

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"irrad-data/internal/metrics"
	"irrad-data/internal/store"
)

const equipmentKeyPrefix = "infoream:equipment:"

// Cached keeps equipment reads in a KV store for a short TTL. Writes through
// it drop the cached record of the asset they touch.
type Cached struct {
	API
	kv     store.KV
	ttl    time.Duration
	logger *zap.Logger
}

func NewCached(api API, kv store.KV, ttl time.Duration, logger *zap.Logger) *Cached {
	return &Cached{API: api, kv: kv, ttl: ttl, logger: logger}
}

func (c *Cached) ReadEquipment(ctx context.Context, code string) (*Equipment, error) {
	key := equipmentKeyPrefix + code
	if raw, err := c.kv.Get(ctx, key); err == nil {
		var eq Equipment
		if err := json.Unmarshal([]byte(raw), &eq); err == nil {
			metrics.InforEAMCalls.WithLabelValues("read_equipment", "cache_hit").Inc()
			return &eq, nil
		}
	} else if !errors.Is(err, store.ErrMiss) {
		c.logger.Warn("inforEAM cache read failed", zap.String("key", key), zap.Error(err))
	}

	eq, err := c.API.ReadEquipment(ctx, code)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(eq); err == nil {
		if err := c.kv.Set(ctx, key, string(raw), c.ttl); err != nil {
			c.logger.Warn("inforEAM cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return eq, nil
}

func (c *Cached) invalidate(ctx context.Context, code string) {
	if err := c.kv.Del(ctx, equipmentKeyPrefix+code); err != nil {
		c.logger.Warn("inforEAM cache invalidation failed", zap.String("code", code), zap.Error(err))
	}
}

func (c *Cached) CreateEquipment(ctx context.Context, eq *Equipment) error {
	defer c.invalidate(ctx, eq.Code)
	return c.API.CreateEquipment(ctx, eq)
}

func (c *Cached) UpdateEquipment(ctx context.Context, eq *Equipment) error {
	defer c.invalidate(ctx, eq.Code)
	return c.API.UpdateEquipment(ctx, eq)
}

func (c *Cached) AttachParent(ctx context.Context, child, parent string) error {
	defer c.invalidate(ctx, child)
	return c.API.AttachParent(ctx, child, parent)
}

func (c *Cached) DetachParent(ctx context.Context, child string) error {
	defer c.invalidate(ctx, child)
	return c.API.DetachParent(ctx, child)
}
