package pricing

import (
	"context"
	"testing"
	"time"

	"cinema-booking/internal/apperr"
	"cinema-booking/internal/data/entity"
	"cinema-booking/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 5, 10, 19, 0, 0, 0, time.UTC)

func catalog() *StaticCatalog {
	c := NewStaticCatalog()
	c.PutShowtime(entity.Showtime{ID: "show", BasePrice: 50000, Currency: "IDR"})
	c.PutSeatType(entity.SeatType{ID: "standard", Surcharge: 0})
	c.PutSeatType(entity.SeatType{ID: "vip", Surcharge: 25000})
	c.PutCombo(entity.Combo{ID: "popcorn", Price: 30000, IsActive: true})
	c.PutCombo(entity.Combo{ID: "retired", Price: 1000, IsActive: false})
	c.PutVoucher(entity.Voucher{
		Code: "TENOFF", DiscountType: entity.DiscountPercent, DiscountValue: 10,
		ValidFrom: now.Add(-time.Hour), ValidUntil: now.Add(time.Hour), IsActive: true,
	})
	c.PutVoucher(entity.Voucher{
		Code: "BIGFLAT", DiscountType: entity.DiscountFixed, DiscountValue: 10_000_000, IsActive: true,
	})
	c.PutVoucher(entity.Voucher{
		Code: "USEDUP", DiscountType: entity.DiscountFixed, DiscountValue: 5000,
		UsageLimit: 3, UsedCount: 3, IsActive: true,
	})
	c.PutVoucher(entity.Voucher{
		Code: "MEMBER", DiscountType: entity.DiscountFixed, DiscountValue: 5000,
		Restricted: true, IsActive: true,
	})
	return c
}

func seats() []entity.Seat {
	return []entity.Seat{
		{ID: "A1", Row: "A", Number: 1, SeatTypeID: "standard"},
		{ID: "A2", Row: "A", Number: 2, SeatTypeID: "vip"},
	}
}

func TestCompute_Breakdown(t *testing.T) {
	e := NewEngine(catalog(), utils.NewManualClock(now), 2500, "IDR")

	snap, err := e.Compute(context.Background(), Input{
		ShowtimeID: "show",
		Seats:      seats(),
		Combos:     map[string]int{"popcorn": 2},
	})
	require.NoError(t, err)

	assert.Equal(t, entity.PricingSnapshot{
		SeatsSubtotal:     100000,
		SurchargeSubtotal: 25000,
		CombosSubtotal:    60000,
		Fees:              5000,
		Total:             190000,
		Currency:          "IDR",
	}, snap)
}

func TestCompute_Deterministic(t *testing.T) {
	e := NewEngine(catalog(), utils.NewManualClock(now), 2500, "IDR")
	in := Input{
		ShowtimeID:  "show",
		Seats:       seats(),
		Combos:      map[string]int{"popcorn": 1},
		VoucherCode: "TENOFF",
	}

	first, err := e.Compute(context.Background(), in)
	require.NoError(t, err)
	second, err := e.Compute(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	// 10% of seats (100000) + combos (30000)
	assert.Equal(t, int64(13000), first.Discount)
	assert.True(t, first.VoucherApplied)
}

func TestCompute_VoucherExpiresMidSession(t *testing.T) {
	clock := utils.NewManualClock(now)
	e := NewEngine(catalog(), clock, 0, "IDR")
	in := Input{ShowtimeID: "show", Seats: seats(), VoucherCode: "TENOFF"}

	before, err := e.Compute(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), before.Discount)

	clock.Advance(2 * time.Hour)

	after, err := e.Compute(context.Background(), in)
	require.NoError(t, err)
	assert.Zero(t, after.Discount)
	assert.False(t, after.VoucherApplied)
	assert.Equal(t, ReasonVoucherExpired, after.VoucherReason)
	assert.Equal(t, after.SeatsSubtotal+after.SurchargeSubtotal, after.Total)
}

func TestCompute_FixedDiscountClamped(t *testing.T) {
	e := NewEngine(catalog(), utils.NewManualClock(now), 2500, "IDR")

	snap, err := e.Compute(context.Background(), Input{ShowtimeID: "show", Seats: seats(), VoucherCode: "BIGFLAT"})
	require.NoError(t, err)

	assert.Equal(t, int64(125000), snap.Discount)
	assert.Equal(t, int64(5000), snap.Total)
}

func TestCompute_InapplicableVouchersReportReason(t *testing.T) {
	e := NewEngine(catalog(), utils.NewManualClock(now), 0, "IDR")
	customer := "cust-1"

	cases := []struct {
		code     string
		customer *string
		reason   string
		applied  bool
	}{
		{code: "USEDUP", reason: ReasonUsageLimit},
		{code: "MEMBER", reason: ReasonLoginRequired},
		{code: "MEMBER", customer: &customer, applied: true},
		{code: "NOPE", reason: ReasonVoucherNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			snap, err := e.Compute(context.Background(), Input{
				ShowtimeID: "show", Seats: seats(), VoucherCode: tc.code, CustomerID: tc.customer,
			})
			require.NoError(t, err)
			assert.Equal(t, tc.reason, snap.VoucherReason)
			assert.Equal(t, tc.applied, snap.VoucherApplied)
		})
	}
}

func TestCompute_UnknownShowtime(t *testing.T) {
	e := NewEngine(catalog(), nil, 0, "IDR")

	_, err := e.Compute(context.Background(), Input{ShowtimeID: "missing"})
	assert.True(t, apperr.IsKind(err, apperr.NotFound))
}

func TestCheckVoucher(t *testing.T) {
	clock := utils.NewManualClock(now)
	e := NewEngine(catalog(), clock, 0, "IDR")
	ctx := context.Background()

	v, err := e.CheckVoucher(ctx, "TENOFF", nil)
	require.NoError(t, err)
	assert.Equal(t, "TENOFF", v.Code)

	_, err = e.CheckVoucher(ctx, "USEDUP", nil)
	assert.True(t, apperr.IsKind(err, apperr.Conflict))

	_, err = e.CheckVoucher(ctx, "MEMBER", nil)
	assert.True(t, apperr.IsKind(err, apperr.Validation))

	_, err = e.CheckVoucher(ctx, "NOPE", nil)
	assert.True(t, apperr.IsKind(err, apperr.NotFound))

	clock.Set(now.Add(time.Hour))
	_, err = e.CheckVoucher(ctx, "TENOFF", nil)
	assert.True(t, apperr.IsKind(err, apperr.Validation))
}

func TestCheckCombo(t *testing.T) {
	e := NewEngine(catalog(), nil, 0, "IDR")

	_, err := e.CheckCombo(context.Background(), "popcorn")
	assert.NoError(t, err)
	_, err = e.CheckCombo(context.Background(), "retired")
	assert.True(t, apperr.IsKind(err, apperr.Validation))
	_, err = e.CheckCombo(context.Background(), "ghost")
	assert.True(t, apperr.IsKind(err, apperr.NotFound))
}

func TestDiscount_PercentCappedAtHundred(t *testing.T) {
	v := &entity.Voucher{DiscountType: entity.DiscountPercent, DiscountValue: 150}
	assert.Equal(t, int64(300), Discount(v, 200, 50, 100))
}
