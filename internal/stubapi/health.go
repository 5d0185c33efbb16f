package stubapi

import (
	"net/http"
)

// HealthResponse reports liveness and the number of registered users.
type HealthResponse struct {
	Status string `json:"status"`
	Users  int    `json:"users"`
	Time   string `json:"time"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "healthy",
		Users:  h.users.Count(),
		Time:   h.tokens.now().UTC().Format("2006-01-02T15:04:05Z"),
	})
}
