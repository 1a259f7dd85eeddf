package pricing

import (
	"context"
	"sort"
	"time"

	"cinema-booking/internal/apperr"
	"cinema-booking/internal/data/entity"
	"cinema-booking/pkg/utils"
)

// Catalog resolves prices and vouchers. Implementations may cache prices
// but must always return the current voucher record.
type Catalog interface {
	Showtime(ctx context.Context, showtimeID string) (*entity.Showtime, error)
	SeatType(ctx context.Context, seatTypeID string) (*entity.SeatType, error)
	Combo(ctx context.Context, comboID string) (*entity.Combo, error)
	VoucherByCode(ctx context.Context, code string) (*entity.Voucher, error)
}

// Voucher rejection reasons reported in PricingSnapshot.VoucherReason.
const (
	ReasonVoucherNotFound = "voucher_not_found"
	ReasonVoucherInactive = "voucher_inactive"
	ReasonNotYetValid     = "voucher_not_yet_valid"
	ReasonVoucherExpired  = "voucher_expired"
	ReasonUsageLimit      = "voucher_usage_limit_reached"
	ReasonLoginRequired   = "voucher_requires_customer"
)

// Input is everything a price depends on. Seats must carry their seat type.
type Input struct {
	ShowtimeID  string
	Seats       []entity.Seat
	Combos      map[string]int
	VoucherCode string
	CustomerID  *string
}

type Engine struct {
	catalog         Catalog
	clock           utils.Clock
	feePerTicket    int64
	defaultCurrency string
}

func NewEngine(catalog Catalog, clock utils.Clock, feePerTicket int64, defaultCurrency string) *Engine {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	return &Engine{
		catalog:         catalog,
		clock:           clock,
		feePerTicket:    feePerTicket,
		defaultCurrency: defaultCurrency,
	}
}

// Compute builds a fresh snapshot from in. The voucher is looked up and
// checked on every call; an inapplicable voucher yields no discount and a
// reason instead of an error.
func (e *Engine) Compute(ctx context.Context, in Input) (entity.PricingSnapshot, error) {
	var snap entity.PricingSnapshot

	show, err := e.catalog.Showtime(ctx, in.ShowtimeID)
	if err != nil {
		return snap, err
	}
	snap.Currency = show.Currency
	if snap.Currency == "" {
		snap.Currency = e.defaultCurrency
	}

	surcharges := make(map[string]int64)
	for _, seat := range in.Seats {
		snap.SeatsSubtotal += show.BasePrice
		if seat.SeatTypeID == "" {
			continue
		}
		s, ok := surcharges[seat.SeatTypeID]
		if !ok {
			st, err := e.catalog.SeatType(ctx, seat.SeatTypeID)
			if err != nil {
				return entity.PricingSnapshot{}, err
			}
			s = st.Surcharge
			surcharges[seat.SeatTypeID] = s
		}
		snap.SurchargeSubtotal += s
	}
	snap.Fees = e.feePerTicket * int64(len(in.Seats))

	comboIDs := make([]string, 0, len(in.Combos))
	for id := range in.Combos {
		comboIDs = append(comboIDs, id)
	}
	sort.Strings(comboIDs)
	for _, id := range comboIDs {
		qty := in.Combos[id]
		if qty <= 0 {
			continue
		}
		combo, err := e.catalog.Combo(ctx, id)
		if err != nil {
			return entity.PricingSnapshot{}, err
		}
		snap.CombosSubtotal += combo.Price * int64(qty)
	}

	if in.VoucherCode != "" {
		snap.VoucherCode = in.VoucherCode
		v, err := e.catalog.VoucherByCode(ctx, in.VoucherCode)
		switch {
		case apperr.IsKind(err, apperr.NotFound):
			snap.VoucherReason = ReasonVoucherNotFound
		case err != nil:
			return entity.PricingSnapshot{}, err
		default:
			if reason := Applicable(v, e.clock.Now(), in.CustomerID); reason != "" {
				snap.VoucherReason = reason
			} else {
				snap.Discount = Discount(v, snap.SeatsSubtotal, snap.SurchargeSubtotal, snap.CombosSubtotal)
				snap.VoucherApplied = true
			}
		}
	}

	gross := snap.SeatsSubtotal + snap.SurchargeSubtotal + snap.CombosSubtotal + snap.Fees
	snap.Total = gross - snap.Discount
	if snap.Total < 0 {
		snap.Total = 0
	}
	return snap, nil
}

// Applicable returns "" when v can be used at now, otherwise the reason.
func Applicable(v *entity.Voucher, now time.Time, customerID *string) string {
	switch {
	case !v.IsActive:
		return ReasonVoucherInactive
	case !v.ValidFrom.IsZero() && now.Before(v.ValidFrom):
		return ReasonNotYetValid
	case !v.ValidUntil.IsZero() && !now.Before(v.ValidUntil):
		return ReasonVoucherExpired
	case v.UsageLimit > 0 && v.UsedCount >= v.UsageLimit:
		return ReasonUsageLimit
	case v.Restricted && (customerID == nil || *customerID == ""):
		return ReasonLoginRequired
	}
	return ""
}

// Discount applies v. Percent vouchers apply to seats plus combos; fixed
// vouchers are clamped to the discountable amount.
func Discount(v *entity.Voucher, seats, surcharge, combos int64) int64 {
	switch v.DiscountType {
	case entity.DiscountPercent:
		pct := v.DiscountValue
		if pct <= 0 {
			return 0
		}
		if pct > 100 {
			pct = 100
		}
		return (seats + combos) * pct / 100
	case entity.DiscountFixed:
		limit := seats + surcharge + combos
		if v.DiscountValue <= 0 {
			return 0
		}
		if v.DiscountValue > limit {
			return limit
		}
		return v.DiscountValue
	}
	return 0
}

// CheckVoucher is the eager check run when a customer submits a code.
func (e *Engine) CheckVoucher(ctx context.Context, code string, customerID *string) (*entity.Voucher, error) {
	v, err := e.catalog.VoucherByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	switch reason := Applicable(v, e.clock.Now(), customerID); reason {
	case "":
		return v, nil
	case ReasonUsageLimit:
		return nil, apperr.New(apperr.Conflict, "voucher %s has reached its usage limit", code)
	default:
		return nil, apperr.New(apperr.Validation, "voucher %s cannot be applied", code).WithDetails(map[string]string{"voucher": reason})
	}
}

// CheckCombo rejects unknown and inactive combos.
func (e *Engine) CheckCombo(ctx context.Context, comboID string) (*entity.Combo, error) {
	combo, err := e.catalog.Combo(ctx, comboID)
	if err != nil {
		return nil, err
	}
	if !combo.IsActive {
		return nil, apperr.New(apperr.Validation, "combo %s is not available", comboID)
	}
	return combo, nil
}
