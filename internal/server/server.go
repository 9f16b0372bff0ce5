package server

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"shopping-dashboard/internal/handlers"
	"shopping-dashboard/internal/services"
)

type Server struct {
	analytics   *services.Analytics
	mux         *http.ServeMux
	logger      *slog.Logger
	apiHandlers *handlers.APIHandlers
	sseHandlers *handlers.SSEHandlers
}

type TemplateHandlers struct {
	Dashboard http.HandlerFunc
}

func NewServer(analytics *services.Analytics, logger *slog.Logger, templateHandlers *TemplateHandlers) *Server {
	s := &Server{
		analytics:   analytics,
		mux:         http.NewServeMux(),
		logger:      logger,
		apiHandlers: handlers.NewAPIHandlers(analytics, logger),
		sseHandlers: handlers.NewSSEHandlers(analytics, logger),
	}
	s.setupRoutes(templateHandlers)
	return s
}

func (s *Server) setupRoutes(templateHandlers *TemplateHandlers) {
	// Dashboard routes
	s.mux.HandleFunc("GET /{$}", templateHandlers.Dashboard)
	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)
	s.mux.HandleFunc("GET /admin/stats", s.apiHandlers.HandleStats)
	s.mux.Handle("GET /metrics", promhttp.Handler())

	// REST API endpoints
	s.mux.HandleFunc("GET /api/overview", s.apiHandlers.HandleOverview)
	s.mux.HandleFunc("GET /api/daily-activity", s.apiHandlers.HandleDailyActivity)
	s.mux.HandleFunc("GET /api/user-clusters", s.apiHandlers.HandleUserClusters)
	s.mux.HandleFunc("GET /api/session-durations", s.apiHandlers.HandleSessionDurations)
	s.mux.HandleFunc("GET /api/funnel", s.apiHandlers.HandleFunnel)
	s.mux.HandleFunc("GET /api/segments", s.apiHandlers.HandleSegments)
	s.mux.HandleFunc("GET /api/events", s.apiHandlers.HandleEvents)

	// Datastar SSE endpoints
	s.mux.HandleFunc("GET /sse/segments", s.sseHandlers.HandleSegments)
	s.mux.HandleFunc("GET /sse/daily-activity", s.sseHandlers.HandleDailyActivity)
	s.mux.HandleFunc("GET /sse/user-clusters", s.sseHandlers.HandleUserClusters)
	s.mux.HandleFunc("GET /sse/session-durations", s.sseHandlers.HandleSessionDurations)
	s.mux.HandleFunc("GET /sse/funnel", s.sseHandlers.HandleFunnel)
	s.mux.HandleFunc("GET /sse/refresh-all", s.sseHandlers.HandleRefreshAll)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
