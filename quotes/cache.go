package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"stocks-trader/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Cached keeps successful lookups in Redis for a short time. Misses and
// failures are never cached.
type Cached struct {
	next Gateway
	rdb  *redis.Client
	ttl  time.Duration
	log  *zap.Logger
}

func NewCached(next Gateway, rdb *redis.Client, ttl time.Duration, log *zap.Logger) *Cached {
	return &Cached{next: next, rdb: rdb, ttl: ttl, log: log}
}

func cacheKey(symbol string) string {
	return fmt.Sprintf("quote:%s", symbol)
}

func (c *Cached) Lookup(ctx context.Context, symbol string) (*models.Quote, error) {
	symbol, ok := Normalize(symbol)
	if !ok {
		return nil, ErrNotFound
	}

	cached, err := c.rdb.Get(ctx, cacheKey(symbol)).Bytes()
	switch {
	case err == nil:
		var q models.Quote
		if err := json.Unmarshal(cached, &q); err == nil {
			return &q, nil
		}
		c.log.Warn("discarding corrupt cached quote", zap.String("symbol", symbol))
	case !errors.Is(err, redis.Nil):
		c.log.Warn("quote cache read failed", zap.String("symbol", symbol), zap.Error(err))
	}

	q, err := c.next.Lookup(ctx, symbol)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(q)
	if err == nil {
		err = c.rdb.Set(ctx, cacheKey(symbol), data, c.ttl).Err()
	}
	if err != nil {
		c.log.Warn("quote cache write failed", zap.String("symbol", symbol), zap.Error(err))
	}
	return q, nil
}
