package response

import (
	"time"

	"cinema-booking/internal/data/entity"
	"cinema-booking/internal/seatrules"
)

type SessionResponse struct {
	SessionID     string                 `json:"session_id"`
	ShowtimeID    string                 `json:"showtime_id"`
	CustomerID    *string                `json:"customer_id,omitempty"`
	State         entity.SessionState    `json:"state"`
	SeatIDs       []string               `json:"seat_ids"`
	Combos        map[string]int         `json:"combos"`
	VoucherCode   string                 `json:"voucher_code,omitempty"`
	Pricing       entity.PricingSnapshot `json:"pricing"`
	Version       int64                  `json:"version"`
	ExpiresAt     time.Time              `json:"expires_at"`
	OrderRef      string                 `json:"order_ref,omitempty"`
	PaymentURL    string                 `json:"payment_url,omitempty"`
	FailureReason string                 `json:"failure_reason,omitempty"`
}

// SeatChangeResponse is returned by lock, release and replace. Seats that
// could not be taken are listed per seat with the reason.
type SeatChangeResponse struct {
	SessionResponse
	Succeeded []string          `json:"succeeded"`
	Failed    map[string]string `json:"failed"`
	Released  []string          `json:"released,omitempty"`
	Applied   *bool             `json:"applied,omitempty"`
}

type SeatValidationResponse struct {
	SessionID string `json:"session_id"`
	Version   int64  `json:"version"`
	seatrules.Result
}

type PricingResponse struct {
	SessionID string `json:"session_id"`
	Version   int64  `json:"version"`
	entity.PricingSnapshot
}

type CheckoutResponse struct {
	SessionID  string    `json:"session_id"`
	Version    int64     `json:"version"`
	ExpiresAt  time.Time `json:"expires_at"`
	OrderRef   string    `json:"order_ref"`
	PaymentURL string    `json:"payment_url"`
	Total      int64     `json:"total"`
	Currency   string    `json:"currency"`
}

type WebhookResponse struct {
	OrderRef string              `json:"order_ref"`
	Handled  bool                `json:"handled"`
	State    entity.SessionState `json:"state,omitempty"`
	Note     string              `json:"note,omitempty"`
}

func SessionToResponse(s *entity.BookingSession) SessionResponse {
	seats := s.SeatIDs
	if seats == nil {
		seats = []string{}
	}
	combos := s.Combos
	if combos == nil {
		combos = map[string]int{}
	}
	return SessionResponse{
		SessionID:     s.ID,
		ShowtimeID:    s.ShowtimeID,
		CustomerID:    s.CustomerID,
		State:         s.State,
		SeatIDs:       seats,
		Combos:        combos,
		VoucherCode:   s.VoucherCode,
		Pricing:       s.Pricing,
		Version:       s.Version,
		ExpiresAt:     s.ExpiresAt,
		OrderRef:      s.OrderRef,
		PaymentURL:    s.PaymentURL,
		FailureReason: s.FailureReason,
	}
}
