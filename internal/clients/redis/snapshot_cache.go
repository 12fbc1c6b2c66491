package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/uplinehq/agencytree-backend/internal/logger"
	"github.com/uplinehq/agencytree-backend/internal/observability"
	"github.com/uplinehq/agencytree-backend/internal/types"
	"github.com/uplinehq/agencytree-backend/internal/utils"
)

// SnapshotCache stores the latest hierarchy document. A nil cache is valid
// and behaves as always-miss, so a missing Redis degrades to
// recompute-per-request instead of failing the service.
type SnapshotCache interface {
	Get(ctx context.Context) (*types.HierarchyDocument, bool)
	Set(ctx context.Context, doc *types.HierarchyDocument)
	Invalidate(ctx context.Context)
	Close() error
}

type snapshotCache struct {
	log *logger.Logger
	rdb *goredis.Client
	key string
	ttl time.Duration
}

func NewSnapshotCache(log *logger.Logger) (SnapshotCache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	key := strings.TrimSpace(os.Getenv("HIERARCHY_CACHE_KEY"))
	if key == "" {
		key = "agencytree:hierarchy:latest"
	}
	ttlSec := utils.GetEnvAsInt("HIERARCHY_CACHE_TTL_SECONDS", 600, log)

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &snapshotCache{
		log: log.With("service", "SnapshotCache"),
		rdb: rdb,
		key: key,
		ttl: time.Duration(ttlSec) * time.Second,
	}, nil
}

func (c *snapshotCache) Get(ctx context.Context) (*types.HierarchyDocument, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, c.key).Bytes()
	if err != nil {
		if err != goredis.Nil {
			c.log.Warn("snapshot cache read failed", "error", err)
		}
		observability.Current().IncCacheMiss()
		return nil, false
	}
	var doc types.HierarchyDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		c.log.Warn("snapshot cache payload corrupt, dropping", "error", err)
		_ = c.rdb.Del(ctx, c.key).Err()
		observability.Current().IncCacheMiss()
		return nil, false
	}
	observability.Current().IncCacheHit()
	return &doc, true
}

func (c *snapshotCache) Set(ctx context.Context, doc *types.HierarchyDocument) {
	if c == nil || c.rdb == nil || doc == nil {
		return
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		c.log.Warn("snapshot cache marshal failed", "error", err)
		return
	}
	if err := c.rdb.Set(ctx, c.key, raw, c.ttl).Err(); err != nil {
		c.log.Warn("snapshot cache write failed", "error", err)
	}
}

func (c *snapshotCache) Invalidate(ctx context.Context) {
	if c == nil || c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, c.key).Err(); err != nil && err != goredis.Nil {
		c.log.Warn("snapshot cache invalidate failed", "error", err)
	}
}

func (c *snapshotCache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
