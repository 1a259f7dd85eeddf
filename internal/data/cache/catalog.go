package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cinema-booking/internal/data/entity"
	"cinema-booking/internal/pricing"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var ErrCacheMiss = errors.New("cache miss")

// Store is the key/value surface the catalog cache needs.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type redisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) Store {
	return &redisStore{client: client}
}

func (s *redisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("cache get error: %w", err)
	}
	return val, nil
}

func (s *redisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache set error: %w", err)
	}
	return nil
}

// Catalog caches showtime, seat type and combo prices in front of origin.
// Vouchers are never cached: usage counts and validity change underneath us.
type Catalog struct {
	origin pricing.Catalog
	store  Store
	ttl    time.Duration
	group  singleflight.Group
	log    *zap.Logger
}

func NewCatalog(origin pricing.Catalog, store Store, ttl time.Duration, log *zap.Logger) *Catalog {
	return &Catalog{
		origin: origin,
		store:  store,
		ttl:    ttl,
		log:    log.With(zap.String("component", "catalog_cache")),
	}
}

func (c *Catalog) Showtime(ctx context.Context, showtimeID string) (*entity.Showtime, error) {
	return cached(ctx, c, "showtime:"+showtimeID, func() (*entity.Showtime, error) {
		return c.origin.Showtime(ctx, showtimeID)
	})
}

func (c *Catalog) SeatType(ctx context.Context, seatTypeID string) (*entity.SeatType, error) {
	return cached(ctx, c, "seat_type:"+seatTypeID, func() (*entity.SeatType, error) {
		return c.origin.SeatType(ctx, seatTypeID)
	})
}

func (c *Catalog) Combo(ctx context.Context, comboID string) (*entity.Combo, error) {
	return cached(ctx, c, "combo:"+comboID, func() (*entity.Combo, error) {
		return c.origin.Combo(ctx, comboID)
	})
}

func (c *Catalog) VoucherByCode(ctx context.Context, code string) (*entity.Voucher, error) {
	return c.origin.VoucherByCode(ctx, code)
}

// cached reads key from the store, falling back to fetch on a miss or a
// store error. Concurrent misses for one key share a single fetch.
func cached[T any](ctx context.Context, c *Catalog, key string, fetch func() (*T, error)) (*T, error) {
	key = "catalog:" + key

	raw, err := c.store.Get(ctx, key)
	if err == nil {
		var v T
		if uerr := json.Unmarshal(raw, &v); uerr == nil {
			return &v, nil
		}
		c.log.Warn("Dropping undecodable cache entry", zap.String("key", key))
	} else if !errors.Is(err, ErrCacheMiss) {
		c.log.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
	}

	res, err, _ := c.group.Do(key, func() (any, error) {
		v, err := fetch()
		if err != nil {
			return nil, err
		}
		if v == nil {
			return v, nil
		}
		if data, merr := json.Marshal(v); merr == nil {
			if serr := c.store.Set(ctx, key, data, c.ttl); serr != nil {
				c.log.Warn("Cache write failed", zap.String("key", key), zap.Error(serr))
			}
		}
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return res.(*T), nil
}
