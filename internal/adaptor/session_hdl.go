package adaptor

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"cinema-booking/internal/dto/request"
	"cinema-booking/internal/usecase"
	"cinema-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type SessionHandler struct {
	service  usecase.SessionService
	checkout usecase.CheckoutService
	log      *zap.Logger
}

func NewSessionHandler(service usecase.SessionService, checkout usecase.CheckoutService, log *zap.Logger) *SessionHandler {
	return &SessionHandler{
		service:  service,
		checkout: checkout,
		log:      log.With(zap.String("handler", "session")),
	}
}

// decodeBody decodes and validates a JSON body. It writes the 400 itself
// and reports false when the request should stop. An empty body is allowed
// when optional is set.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any, optional bool) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if !(optional && errors.Is(err, io.EOF)) {
			utils.ResponseBadRequest(w, "Invalid request body", nil)
			return false
		}
	}

	if validationErrors := utils.ValidateStruct(dst); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return false
	}
	return true
}

// versionParam reads the optional version from ?version= or a JSON body.
func versionParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	if raw := r.URL.Query().Get("version"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 0 {
			utils.ResponseBadRequest(w, "Validation failed", map[string]string{"version": "version must be a non-negative integer"})
			return 0, false
		}
		return v, true
	}

	var req request.Versioned
	if !decodeBody(w, r, &req, true) {
		return 0, false
	}
	return req.Version, true
}

// Create handles POST /api/sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateSessionRequest
	if !decodeBody(w, r, &req, false) {
		return
	}

	session, err := h.service.Create(r.Context(), &req)
	if err != nil {
		handleServiceError(h.log, w, err, "create session")
		return
	}

	utils.ResponseCreated(w, "success", session)
}

// Get handles GET /api/sessions/{id}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(h.log, w, err, "get session")
		return
	}

	utils.ResponseSuccess(w, "success", session)
}

// LockSeats handles POST /api/sessions/{id}/seats/lock
func (h *SessionHandler) LockSeats(w http.ResponseWriter, r *http.Request) {
	var req request.SeatsRequest
	if !decodeBody(w, r, &req, false) {
		return
	}

	result, err := h.service.LockSeats(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		handleServiceError(h.log, w, err, "lock seats")
		return
	}

	utils.ResponseSuccess(w, "success", result)
}

// LockSeatsForShowtime handles POST /api/showtimes/{id}/seats/lock. A new
// session is created for the caller and returned in the response.
func (h *SessionHandler) LockSeatsForShowtime(w http.ResponseWriter, r *http.Request) {
	var req request.SeatsRequest
	if !decodeBody(w, r, &req, false) {
		return
	}

	result, err := h.service.LockSeatsForShowtime(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		handleServiceError(h.log, w, err, "lock seats for showtime")
		return
	}

	utils.ResponseCreated(w, "success", result)
}

// ReleaseSeats handles POST /api/sessions/{id}/seats/release
func (h *SessionHandler) ReleaseSeats(w http.ResponseWriter, r *http.Request) {
	var req request.SeatsRequest
	if !decodeBody(w, r, &req, false) {
		return
	}

	result, err := h.service.ReleaseSeats(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		handleServiceError(h.log, w, err, "release seats")
		return
	}

	utils.ResponseSuccess(w, "success", result)
}

// ReplaceSeats handles PUT /api/sessions/{id}/seats
func (h *SessionHandler) ReplaceSeats(w http.ResponseWriter, r *http.Request) {
	var req request.ReplaceSeatsRequest
	if !decodeBody(w, r, &req, false) {
		return
	}

	result, err := h.service.ReplaceSeats(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		handleServiceError(h.log, w, err, "replace seats")
		return
	}

	utils.ResponseSuccess(w, "success", result)
}

// ValidateSeats handles GET /api/sessions/{id}/seats/validate
func (h *SessionHandler) ValidateSeats(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ValidateSeats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(h.log, w, err, "validate seats")
		return
	}

	utils.ResponseSuccess(w, "success", result)
}

// SetCombo handles PUT /api/sessions/{id}/combos/{comboId}
func (h *SessionHandler) SetCombo(w http.ResponseWriter, r *http.Request) {
	var req request.ComboRequest
	if !decodeBody(w, r, &req, false) {
		return
	}

	session, err := h.service.SetCombo(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "comboId"), &req)
	if err != nil {
		handleServiceError(h.log, w, err, "set combo")
		return
	}

	utils.ResponseSuccess(w, "success", session)
}

// RemoveCombo handles DELETE /api/sessions/{id}/combos/{comboId}
func (h *SessionHandler) RemoveCombo(w http.ResponseWriter, r *http.Request) {
	version, ok := versionParam(w, r)
	if !ok {
		return
	}

	session, err := h.service.RemoveCombo(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "comboId"), version)
	if err != nil {
		handleServiceError(h.log, w, err, "remove combo")
		return
	}

	utils.ResponseSuccess(w, "success", session)
}

// SetVoucher handles PUT /api/sessions/{id}/voucher
func (h *SessionHandler) SetVoucher(w http.ResponseWriter, r *http.Request) {
	var req request.VoucherRequest
	if !decodeBody(w, r, &req, false) {
		return
	}

	session, err := h.service.SetVoucher(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		handleServiceError(h.log, w, err, "set voucher")
		return
	}

	utils.ResponseSuccess(w, "success", session)
}

// RemoveVoucher handles DELETE /api/sessions/{id}/voucher
func (h *SessionHandler) RemoveVoucher(w http.ResponseWriter, r *http.Request) {
	version, ok := versionParam(w, r)
	if !ok {
		return
	}

	session, err := h.service.RemoveVoucher(r.Context(), chi.URLParam(r, "id"), version)
	if err != nil {
		handleServiceError(h.log, w, err, "remove voucher")
		return
	}

	utils.ResponseSuccess(w, "success", session)
}

// Pricing handles GET /api/sessions/{id}/pricing
func (h *SessionHandler) Pricing(w http.ResponseWriter, r *http.Request) {
	pricing, err := h.service.Pricing(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(h.log, w, err, "price session")
		return
	}

	utils.ResponseSuccess(w, "success", pricing)
}

// Checkout handles POST /api/sessions/{id}/checkout
func (h *SessionHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	version, ok := versionParam(w, r)
	if !ok {
		return
	}

	result, err := h.checkout.Checkout(r.Context(), chi.URLParam(r, "id"), version)
	if err != nil {
		handleServiceError(h.log, w, err, "checkout")
		return
	}

	utils.ResponseSuccess(w, "success", result)
}

// Cancel handles POST /api/sessions/{id}/cancel
func (h *SessionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	version, ok := versionParam(w, r)
	if !ok {
		return
	}

	session, err := h.service.Cancel(r.Context(), chi.URLParam(r, "id"), version)
	if err != nil {
		handleServiceError(h.log, w, err, "cancel session")
		return
	}

	utils.ResponseSuccess(w, "success", session)
}
