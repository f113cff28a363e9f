package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tournevent/courierhub/pkg/courier"
)

// quotationKeyPrefix namespaces cached quotations in a shared Redis.
const quotationKeyPrefix = "courierhub:quotation:"

// defaultQuotationTTL bounds cache entries for quotations that carry no
// expiry of their own.
const defaultQuotationTTL = 24 * time.Hour

// RedisQuotationCache layers a Redis read-through cache over a backing Store.
// Quotation lookups by id hit Redis first; writes go to both. Order methods
// pass through untouched.
type RedisQuotationCache struct {
	Store
	rdb *redis.Client
}

// NewRedisQuotationCache wraps inner with a Redis cache at addr.
func NewRedisQuotationCache(ctx context.Context, inner Store, addr, password string) (*RedisQuotationCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return &RedisQuotationCache{Store: inner, rdb: rdb}, nil
}

func (c *RedisQuotationCache) SaveQuotation(ctx context.Context, q *courier.Quotation) error {
	if err := c.Store.SaveQuotation(ctx, q); err != nil {
		return err
	}
	return c.cache(ctx, q)
}

func (c *RedisQuotationCache) GetQuotation(ctx context.Context, id string) (*courier.Quotation, error) {
	data, err := c.rdb.Get(ctx, quotationKeyPrefix+id).Bytes()
	if err == nil {
		var q courier.Quotation
		if err := json.Unmarshal(data, &q); err == nil {
			return &q, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("reading quotation cache: %w", err)
	}

	q, err := c.Store.GetQuotation(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := c.cache(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

func (c *RedisQuotationCache) InvalidateQuotation(ctx context.Context, id string) error {
	if err := c.Store.InvalidateQuotation(ctx, id); err != nil {
		return err
	}
	if err := c.rdb.Del(ctx, quotationKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("evicting quotation %s: %w", id, err)
	}
	return nil
}

func (c *RedisQuotationCache) Close() error {
	if err := c.rdb.Close(); err != nil {
		return err
	}
	return c.Store.Close()
}

// cache stores the quotation under its id with a TTL bounded by the
// quotation's own expiry.
func (c *RedisQuotationCache) cache(ctx context.Context, q *courier.Quotation) error {
	ttl := defaultQuotationTTL
	if q.ExpiresAt != nil {
		remaining := time.Until(*q.ExpiresAt)
		if remaining <= 0 {
			return nil
		}
		if remaining < ttl {
			ttl = remaining
		}
	}

	data, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("encoding quotation %s: %w", q.ID, err)
	}
	if err := c.rdb.Set(ctx, quotationKeyPrefix+q.ID, data, ttl).Err(); err != nil {
		return fmt.Errorf("caching quotation %s: %w", q.ID, err)
	}
	return nil
}

var _ Store = (*RedisQuotationCache)(nil)
