package request

// Versioned carries the last session version the client saw. Zero skips the check.
type Versioned struct {
	Version int64 `json:"version" validate:"gte=0"`
}

type CreateSessionRequest struct {
	ShowtimeID string `json:"showtime_id" validate:"required,max=64"`
}

type SeatsRequest struct {
	SeatIDs []string `json:"seat_ids" validate:"required,min=1,max=50,unique,dive,required,max=64"`
	Versioned
}

type ReplaceSeatsRequest struct {
	SeatIDs      []string `json:"seat_ids" validate:"required,min=1,max=50,unique,dive,required,max=64"`
	AllOrNothing *bool    `json:"all_or_nothing,omitempty"`
	Versioned
}

type ComboRequest struct {
	Quantity int `json:"quantity" validate:"gte=1,lte=20"`
	Versioned
}

type VoucherRequest struct {
	Code string `json:"code" validate:"required,max=64"`
	Versioned
}

type WebhookRequest struct {
	OrderRef string `json:"order_ref" validate:"required,max=128"`
	Status   string `json:"status" validate:"required,oneof=success failed expired canceled"`
	Amount   int64  `json:"amount" validate:"gte=0"`
}
