package handlers

import (
	"context"
	"net/http"

	"github.com/pliu/personifid/internal/middleware"
	"github.com/pliu/personifid/internal/models"
	"github.com/pliu/personifid/internal/services"
	"github.com/pliu/personifid/internal/ws"
	"github.com/pliu/personifid/internal/xlog"
)

type DashboardHandler struct {
	Dashboard *services.DashboardService
}

func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Dashboard.Stats(r.Context(), middleware.AccountFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// HealthChecker is the part of the store the health check needs.
type HealthChecker interface {
	Ping(ctx context.Context) error
	Totals(ctx context.Context) (models.Totals, error)
}

type SystemHandler struct {
	Store   HealthChecker
	Version string
	Driver  string
}

func (h *SystemHandler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Welcome to Personif-ID API",
		"status":  "healthy",
		"version": h.Version,
		"storage": h.Driver,
		"features": map[string]string{
			"authentication": "implemented",
			"identities":     "implemented",
			"contexts":       "implemented",
			"events":         "implemented",
		},
	})
}

func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	err := h.Store.Ping(ctx)
	var totals models.Totals
	if err == nil {
		totals, err = h.Store.Totals(ctx)
	}
	if err != nil {
		xlog.Errorf("health check: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"detail": "Database error"})
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Status   string `json:"status"`
		Database string `json:"database"`
		models.Totals
	}{"healthy", h.Driver + " connected", totals})
}

// EventsHandler upgrades authenticated requests to the event stream.
// Browsers cannot set headers on WebSocket requests, so the token may also
// come from the "token" query parameter.
type EventsHandler struct {
	Accounts middleware.AccountResolver
	Hub      *ws.Hub
}

func (h *EventsHandler) Serve(w http.ResponseWriter, r *http.Request) {
	token := middleware.BearerToken(r)
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		middleware.Unauthorized(w, "Not authenticated")
		return
	}

	account, err := h.Accounts.Resolve(r.Context(), token)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.Hub.ServeWs(w, r, account.ID)
}
