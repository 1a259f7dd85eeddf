package adaptor

import (
	"net/http"
	"strconv"

	"cinema-booking/internal/realtime"
	"cinema-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ShowtimeHandler struct {
	seats   realtime.SnapshotSource
	gateway *realtime.Gateway
	log     *zap.Logger
}

func NewShowtimeHandler(seats realtime.SnapshotSource, gateway *realtime.Gateway, log *zap.Logger) *ShowtimeHandler {
	return &ShowtimeHandler{
		seats:   seats,
		gateway: gateway,
		log:     log.With(zap.String("handler", "showtime")),
	}
}

// Seats handles GET /api/showtimes/{id}/seats
func (h *ShowtimeHandler) Seats(w http.ResponseWriter, r *http.Request) {
	snap, err := h.seats.Snapshot(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(h.log, w, err, "get seat map")
		return
	}

	utils.ResponseSuccess(w, "success", snap)
}

// Events handles GET /api/showtimes/{id}/seats/events as a Server-Sent
// Events stream. With ?snapshot=true the first frame is the full seat map.
func (h *ShowtimeHandler) Events(w http.ResponseWriter, r *http.Request) {
	showtimeID := chi.URLParam(r, "id")
	withSnapshot, _ := strconv.ParseBool(r.URL.Query().Get("snapshot"))

	conn, err := realtime.NewSSEConn(w)
	if err != nil {
		h.log.Error("Streaming unsupported", zap.Error(err))
		utils.ResponseInternalError(w, "Streaming unsupported")
		return
	}

	if err := h.gateway.Attach(r.Context(), showtimeID, conn, withSnapshot); err != nil {
		if conn.Started() {
			h.log.Warn("Seat stream ended", zap.String("showtime_id", showtimeID), zap.Error(err))
			return
		}
		handleServiceError(h.log, w, err, "stream seats")
	}
}
