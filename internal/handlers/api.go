package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"shopping-dashboard/internal/errors"
	"shopping-dashboard/internal/observability"
	"shopping-dashboard/internal/services"
)

type APIHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewAPIHandlers(analytics *services.Analytics, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

var cacheHeaders = map[string]string{
	"Cache-Control": "private, max-age=60",
}

// filtered parses the filter and writes the error response itself when the
// query is invalid.
func (h *APIHandlers) filtered(w http.ResponseWriter, r *http.Request) (services.Filter, bool) {
	f, err := parseFilter(r)
	if err != nil {
		errors.WriteError(w, h.logger, err, observability.GetRequestID(r.Context()))
		return services.Filter{}, false
	}
	return f, true
}

func (h *APIHandlers) HandleOverview(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccessWithHeaders(w, h.analytics.Overview(), cacheHeaders)
}

func (h *APIHandlers) HandleDailyActivity(w http.ResponseWriter, r *http.Request) {
	f, ok := h.filtered(w, r)
	if !ok {
		return
	}
	errors.WriteSuccessWithHeaders(w, h.analytics.DailyActivity(f), cacheHeaders)
}

func (h *APIHandlers) HandleUserClusters(w http.ResponseWriter, r *http.Request) {
	f, ok := h.filtered(w, r)
	if !ok {
		return
	}
	errors.WriteSuccessWithHeaders(w, h.analytics.UserPoints(f), cacheHeaders)
}

func (h *APIHandlers) HandleSessionDurations(w http.ResponseWriter, r *http.Request) {
	f, ok := h.filtered(w, r)
	if !ok {
		return
	}
	errors.WriteSuccessWithHeaders(w, h.analytics.SessionDurations(f), cacheHeaders)
}

func (h *APIHandlers) HandleFunnel(w http.ResponseWriter, r *http.Request) {
	f, ok := h.filtered(w, r)
	if !ok {
		return
	}
	errors.WriteSuccessWithHeaders(w, h.analytics.Funnel(f), cacheHeaders)
}

func (h *APIHandlers) HandleSegments(w http.ResponseWriter, r *http.Request) {
	f, ok := h.filtered(w, r)
	if !ok {
		return
	}
	errors.WriteSuccessWithHeaders(w, h.analytics.Segments(f), cacheHeaders)
}

func (h *APIHandlers) HandleEvents(w http.ResponseWriter, r *http.Request) {
	f, ok := h.filtered(w, r)
	if !ok {
		return
	}

	limit, err := parseLimit(r)
	if err != nil {
		errors.WriteError(w, h.logger, err, observability.GetRequestID(r.Context()))
		return
	}

	errors.WriteSuccess(w, h.analytics.Events(f, limit))
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	healthData := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, h.analytics.Stats())
}
