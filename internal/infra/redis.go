package infra

import (
	"context"
	"encoding/json"
	"time"

	"recipestock/internal/dto"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// NewRedis creates and validates a go-redis client connection.
func NewRedis(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opts)

	// Validate connectivity at startup
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	return rdb, nil
}

// ── Recipe cost cache ────────────────────────────────────────────────────────

// CostCache stores recipe cost analyses under recipe_cost:<id>. A nil client
// disables caching; every method is then a no-op miss.
type CostCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCostCache(rdb *redis.Client, ttl time.Duration) *CostCache {
	return &CostCache{rdb: rdb, ttl: ttl}
}

func costKey(id uuid.UUID) string { return "recipe_cost:" + id.String() }

func (c *CostCache) Get(ctx context.Context, id uuid.UUID) (*dto.RecipeCostAnalysis, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	b, err := c.rdb.Get(ctx, costKey(id)).Bytes()
	if err != nil {
		return nil, false
	}
	var a dto.RecipeCostAnalysis
	if err := json.Unmarshal(b, &a); err != nil {
		return nil, false
	}
	return &a, true
}

// Set is best effort; a failed write only costs a later recomputation.
func (c *CostCache) Set(ctx context.Context, a *dto.RecipeCostAnalysis) {
	if c == nil || c.rdb == nil {
		return
	}
	if b, err := json.Marshal(a); err == nil {
		_ = c.rdb.Set(ctx, costKey(a.RecipeID), b, c.ttl).Err()
	}
}

func (c *CostCache) Invalidate(ctx context.Context, id uuid.UUID) {
	if c == nil || c.rdb == nil {
		return
	}
	_ = c.rdb.Del(ctx, costKey(id)).Err()
}
