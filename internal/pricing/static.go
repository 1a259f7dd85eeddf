package pricing

import (
	"context"
	"sync"

	"cinema-booking/internal/apperr"
	"cinema-booking/internal/data/entity"
)

// StaticCatalog is an in-memory Catalog for local runs and tests.
type StaticCatalog struct {
	mu        sync.RWMutex
	showtimes map[string]entity.Showtime
	seatTypes map[string]entity.SeatType
	combos    map[string]entity.Combo
	vouchers  map[string]entity.Voucher
}

func NewStaticCatalog() *StaticCatalog {
	return &StaticCatalog{
		showtimes: make(map[string]entity.Showtime),
		seatTypes: make(map[string]entity.SeatType),
		combos:    make(map[string]entity.Combo),
		vouchers:  make(map[string]entity.Voucher),
	}
}

func (c *StaticCatalog) PutShowtime(s entity.Showtime) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.showtimes[s.ID] = s
}

func (c *StaticCatalog) PutSeatType(s entity.SeatType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seatTypes[s.ID] = s
}

func (c *StaticCatalog) PutCombo(combo entity.Combo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.combos[combo.ID] = combo
}

func (c *StaticCatalog) PutVoucher(v entity.Voucher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vouchers[v.Code] = v
}

func (c *StaticCatalog) Showtime(_ context.Context, id string) (*entity.Showtime, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.showtimes[id]
	if !ok {
		return nil, apperr.ErrShowtimeNotFound
	}
	return &s, nil
}

func (c *StaticCatalog) SeatType(_ context.Context, id string) (*entity.SeatType, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.seatTypes[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "seat type %s not found", id)
	}
	return &s, nil
}

func (c *StaticCatalog) Combo(_ context.Context, id string) (*entity.Combo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	combo, ok := c.combos[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "combo %s not found", id)
	}
	return &combo, nil
}

func (c *StaticCatalog) VoucherByCode(_ context.Context, code string) (*entity.Voucher, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.vouchers[code]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "voucher %s not found", code)
	}
	return &v, nil
}
