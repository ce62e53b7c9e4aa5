package handlers

import (
	"context"
	"net/http"
	"time"

	httperrors "github.com/ivankudzin/recipemarket/internal/transport/http/errors"
)

// Pinger reports whether a backing dependency answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	checks map[string]Pinger
}

func NewHealthHandler(checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{checks: checks}
}

func (h *HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{}
	healthy := true
	for name, check := range h.checks {
		if check == nil {
			continue
		}
		if err := check.Ping(ctx); err != nil {
			status[name] = "down"
			healthy = false
			continue
		}
		status[name] = "up"
	}

	if !healthy {
		httperrors.Write(w, http.StatusServiceUnavailable, httperrors.Envelope{
			Success: false,
			Error:   "DEPENDENCY_DOWN",
			Message: "One or more dependencies are unavailable",
			Data:    status,
		})
		return
	}
	httperrors.OK(w, http.StatusOK, "ok", status)
}
