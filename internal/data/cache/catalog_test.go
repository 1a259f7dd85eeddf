package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cinema-booking/internal/apperr"
	"cinema-booking/internal/data/entity"
	"cinema-booking/internal/pricing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	failGet bool
	sets    int
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]byte{}}
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet {
		return nil, errors.New("connection refused")
	}
	v, ok := m.data[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return v, nil
}

func (m *memStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.sets++
	return nil
}

type countingCatalog struct {
	*pricing.StaticCatalog
	mu    sync.Mutex
	calls map[string]int
}

func (c *countingCatalog) count(name string) {
	c.mu.Lock()
	c.calls[name]++
	c.mu.Unlock()
}

func (c *countingCatalog) Showtime(ctx context.Context, id string) (*entity.Showtime, error) {
	c.count("showtime")
	return c.StaticCatalog.Showtime(ctx, id)
}

func (c *countingCatalog) VoucherByCode(ctx context.Context, code string) (*entity.Voucher, error) {
	c.count("voucher")
	return c.StaticCatalog.VoucherByCode(ctx, code)
}

func newOrigin() *countingCatalog {
	static := pricing.NewStaticCatalog()
	static.PutShowtime(entity.Showtime{ID: "show-1", BasePrice: 50000, Currency: "IDR"})
	static.PutSeatType(entity.SeatType{ID: "vip", Surcharge: 20000})
	static.PutCombo(entity.Combo{ID: "popcorn", Name: "Popcorn", Price: 30000, IsActive: true})
	static.PutVoucher(entity.Voucher{Code: "HALF", DiscountType: entity.DiscountPercent, DiscountValue: 50, IsActive: true})
	return &countingCatalog{StaticCatalog: static, calls: map[string]int{}}
}

func TestCatalog_CachesPrices(t *testing.T) {
	origin := newOrigin()
	store := newMemStore()
	c := NewCatalog(origin, store, time.Minute, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		st, err := c.Showtime(ctx, "show-1")
		require.NoError(t, err)
		assert.Equal(t, int64(50000), st.BasePrice)
	}
	assert.Equal(t, 1, origin.calls["showtime"])
	assert.Contains(t, store.data, "catalog:showtime:show-1")

	st, err := c.SeatType(ctx, "vip")
	require.NoError(t, err)
	assert.Equal(t, int64(20000), st.Surcharge)

	combo, err := c.Combo(ctx, "popcorn")
	require.NoError(t, err)
	assert.True(t, combo.IsActive)
}

func TestCatalog_VouchersBypassCache(t *testing.T) {
	origin := newOrigin()
	store := newMemStore()
	c := NewCatalog(origin, store, time.Minute, zap.NewNop())

	for i := 0; i < 2; i++ {
		_, err := c.VoucherByCode(context.Background(), "HALF")
		require.NoError(t, err)
	}
	assert.Equal(t, 2, origin.calls["voucher"])
	assert.Zero(t, store.sets)
}

func TestCatalog_StoreFailureFallsBackToOrigin(t *testing.T) {
	origin := newOrigin()
	store := newMemStore()
	store.failGet = true
	c := NewCatalog(origin, store, time.Minute, zap.NewNop())

	st, err := c.Showtime(context.Background(), "show-1")
	require.NoError(t, err)
	assert.Equal(t, "show-1", st.ID)
}

func TestCatalog_OriginErrorIsNotCached(t *testing.T) {
	origin := newOrigin()
	store := newMemStore()
	c := NewCatalog(origin, store, time.Minute, zap.NewNop())

	_, err := c.Showtime(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.NotFound))
	assert.Zero(t, store.sets)
}
