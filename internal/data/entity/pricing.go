package entity

// PricingSnapshot amounts are minor currency units.
type PricingSnapshot struct {
	SeatsSubtotal     int64  `json:"seats_subtotal"`
	CombosSubtotal    int64  `json:"combos_subtotal"`
	SurchargeSubtotal int64  `json:"surcharge_subtotal"`
	Fees              int64  `json:"fees"`
	Discount          int64  `json:"discount"`
	Total             int64  `json:"total"`
	Currency          string `json:"currency"`
	VoucherCode       string `json:"voucher_code,omitempty"`
	VoucherApplied    bool   `json:"voucher_applied"`
	VoucherReason     string `json:"voucher_reason,omitempty"`
}
