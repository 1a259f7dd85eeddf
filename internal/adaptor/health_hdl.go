package adaptor

import (
	"net/http"

	"cinema-booking/pkg/utils"
)

type streamCounter interface {
	Active() int64
}

type sessionCounter interface {
	Sessions() int
}

type HealthHandler struct {
	streams  streamCounter
	sessions sessionCounter
}

func NewHealthHandler(streams streamCounter, sessions sessionCounter) *HealthHandler {
	return &HealthHandler{streams: streams, sessions: sessions}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	utils.ResponseSuccess(w, "OK", map[string]any{
		"active_streams": h.streams.Active(),
		"sessions":       h.sessions.Sessions(),
	})
}
