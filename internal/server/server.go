package server

import (
	"log/slog"
	"net/http"

	"salla-analytics/internal/config"
	"salla-analytics/internal/handlers"
	"salla-analytics/internal/services"
)

type Server struct {
	mux         *http.ServeMux
	logger      *slog.Logger
	apiHandlers *handlers.APIHandlers
	sseHandlers *handlers.SSEHandlers
}

type TemplateHandlers struct {
	Dashboard http.HandlerFunc
}

func NewServer(analytics *services.Analytics, defaults config.DashboardConfig, logger *slog.Logger, templateHandlers *TemplateHandlers) *Server {
	s := &Server{
		mux:         http.NewServeMux(),
		logger:      logger,
		apiHandlers: handlers.NewAPIHandlers(analytics, defaults, logger),
		sseHandlers: handlers.NewSSEHandlers(analytics, defaults, logger),
	}
	s.setupRoutes(templateHandlers)
	return s
}

func (s *Server) setupRoutes(templateHandlers *TemplateHandlers) {
	// Dashboard routes
	s.mux.HandleFunc("GET /{$}", templateHandlers.Dashboard)
	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)
	s.mux.HandleFunc("GET /admin/stats", s.apiHandlers.HandleStats)

	// REST API endpoints
	s.mux.HandleFunc("GET /api/regions", s.apiHandlers.HandleRegions)
	s.mux.HandleFunc("GET /api/top-products", s.apiHandlers.HandleTopProducts)
	s.mux.HandleFunc("GET /api/popular-categories", s.apiHandlers.HandlePopularCategories)
	s.mux.HandleFunc("GET /api/avg-sale-by-category", s.apiHandlers.HandleAvgSaleByCategory)
	s.mux.HandleFunc("GET /api/time-series", s.apiHandlers.HandleTimeSeries)
	s.mux.HandleFunc("GET /api/top-categories-by-location", s.apiHandlers.HandleTopCategoriesByLocation)
	s.mux.HandleFunc("GET /api/location-heatmap", s.apiHandlers.HandleLocationHeatmap)
	s.mux.HandleFunc("GET /api/top-stores", s.apiHandlers.HandleTopStores)
	s.mux.HandleFunc("GET /api/store-growth", s.apiHandlers.HandleStoreGrowth)
	s.mux.HandleFunc("GET /api/growth-heatmap", s.apiHandlers.HandleGrowthHeatmap)
	s.mux.HandleFunc("GET /api/cohorts", s.apiHandlers.HandleCohorts)
	s.mux.HandleFunc("GET /api/cohort-heatmap", s.apiHandlers.HandleCohortHeatmap)
	s.mux.HandleFunc("GET /api/retention", s.apiHandlers.HandleRetention)
	s.mux.HandleFunc("GET /api/cohort-summary", s.apiHandlers.HandleCohortSummary)

	// Datastar SSE endpoints
	s.mux.HandleFunc("GET /sse/top-products", s.sseHandlers.HandleTopProducts)
	s.mux.HandleFunc("GET /sse/categories", s.sseHandlers.HandleCategories)
	s.mux.HandleFunc("GET /sse/time-series", s.sseHandlers.HandleTimeSeries)
	s.mux.HandleFunc("GET /sse/location", s.sseHandlers.HandleLocation)
	s.mux.HandleFunc("GET /sse/top-stores", s.sseHandlers.HandleTopStores)
	s.mux.HandleFunc("GET /sse/growth", s.sseHandlers.HandleGrowth)
	s.mux.HandleFunc("GET /sse/cohorts", s.sseHandlers.HandleCohorts)
	s.mux.HandleFunc("GET /sse/refresh-all", s.sseHandlers.HandleRefreshAll)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
