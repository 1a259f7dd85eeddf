package entity

import "time"

type DiscountType string

const (
	DiscountFixed   DiscountType = "fixed"
	DiscountPercent DiscountType = "percent"
)

// Voucher is owned by the catalog; the booking core only reads it.
// DiscountValue is minor currency units for fixed vouchers and whole
// percent (0-100) for percent vouchers. UsageLimit 0 means unlimited.
type Voucher struct {
	Code          string       `db:"code"`
	DiscountType  DiscountType `db:"discount_type"`
	DiscountValue int64        `db:"discount_value"`
	ValidFrom     time.Time    `db:"valid_from"`
	ValidUntil    time.Time    `db:"valid_until"`
	UsageLimit    int          `db:"usage_limit"`
	UsedCount     int          `db:"used_count"`
	Restricted    bool         `db:"restricted"`
	IsActive      bool         `db:"is_active"`
}
