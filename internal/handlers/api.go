package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"salla-analytics/internal/config"
	"salla-analytics/internal/errors"
	"salla-analytics/internal/observability"
	"salla-analytics/internal/services"
)

var cacheHeaders = map[string]string{
	"Cache-Control": "public, max-age=300",
}

type APIHandlers struct {
	analytics *services.Analytics
	defaults  config.DashboardConfig
	logger    *slog.Logger
}

func NewAPIHandlers(analytics *services.Analytics, defaults config.DashboardConfig, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		analytics: analytics,
		defaults:  defaults,
		logger:    logger,
	}
}

func (h *APIHandlers) respond(w http.ResponseWriter, r *http.Request, data any, err error) {
	if err != nil {
		errors.WriteError(w, h.logger, err, observability.GetRequestID(r.Context()))
		return
	}
	errors.WriteSuccessWithHeaders(w, data, cacheHeaders)
}

func (h *APIHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.respond(w, r, nil, err)
}

func (h *APIHandlers) HandleTopProducts(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", h.defaults.TopProducts, minLimit, maxProductLimit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	data, err := h.analytics.TopProducts(r.Context(), r.URL.Query().Get("region"), limit)
	h.respond(w, r, data, err)
}

func (h *APIHandlers) HandleRegions(w http.ResponseWriter, r *http.Request) {
	data, err := h.analytics.Regions(r.Context())
	h.respond(w, r, data, err)
}

func (h *APIHandlers) HandlePopularCategories(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", h.defaults.TopCategories, minLimit, maxCategoryLimit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	data, err := h.analytics.PopularCategories(r.Context(), limit)
	h.respond(w, r, data, err)
}

func (h *APIHandlers) HandleTimeSeries(w http.ResponseWriter, r *http.Request) {
	g, err := services.ParseGranularity(r.URL.Query().Get("granularity"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if g == services.Monthly {
		data, err := h.analytics.TimeSeries(r.Context())
		h.respond(w, r, data, err)
		return
	}
	data, err := h.analytics.TimeSeriesBy(r.Context(), g)
	h.respond(w, r, data, err)
}

func (h *APIHandlers) HandleAvgSaleByCategory(w http.ResponseWriter, r *http.Request) {
	data, err := h.analytics.AvgSaleByCategory(r.Context())
	h.respond(w, r, data, err)
}

func (h *APIHandlers) HandleTopCategoriesByLocation(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", h.defaults.CategoriesPerState, minCategoriesPerState, maxCategoriesPerState)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	data, err := h.analytics.TopCategoriesByLocation(r.Context(), limit, r.URL.Query().Get("state"))
	h.respond(w, r, data, err)
}

func (h *APIHandlers) HandleLocationHeatmap(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", h.defaults.CategoriesPerState, minCategoriesPerState, maxCategoriesPerState)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	data, err := h.analytics.LocationHeatmap(r.Context(), limit)
	h.respond(w, r, data, err)
}

func (h *APIHandlers) HandleTopStores(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", h.defaults.TopStores, minLimit, maxStoreLimit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	data, err := h.analytics.TopStores(r.Context(), limit)
	h.respond(w, r, data, err)
}

func (h *APIHandlers) HandleStoreGrowth(w http.ResponseWriter, r *http.Request) {
	data, err := h.analytics.StoreGrowth(r.Context(), listParam(r, "seller")...)
	h.respond(w, r, data, err)
}

func (h *APIHandlers) HandleGrowthHeatmap(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", h.defaults.GrowthHeatmapRows, minLimit, maxStoreLimit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	data, err := h.analytics.GrowthHeatmap(r.Context(), limit)
	h.respond(w, r, data, err)
}

func (h *APIHandlers) HandleCohorts(w http.ResponseWriter, r *http.Request) {
	data, err := h.analytics.Cohorts(r.Context())
	h.respond(w, r, data, err)
}

func (h *APIHandlers) HandleCohortHeatmap(w http.ResponseWriter, r *http.Request) {
	data, err := h.analytics.CohortHeatmap(r.Context(), r.URL.Query().Get("metric"))
	h.respond(w, r, data, err)
}

// HandleRetention returns the whole matrix, or a single value when both
// cohort and age are given.
func (h *APIHandlers) HandleRetention(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cohort, rawAge := strings.TrimSpace(q.Get("cohort")), strings.TrimSpace(q.Get("age"))
	if cohort == "" && rawAge == "" {
		data, err := h.analytics.Retention(r.Context())
		h.respond(w, r, data, err)
		return
	}
	if cohort == "" || rawAge == "" {
		h.fail(w, r, errors.InvalidArgument("cohort and age must be given together"))
		return
	}
	age, err := strconv.Atoi(rawAge)
	if err != nil {
		h.fail(w, r, errors.InvalidArgument("age must be an integer, got %q", rawAge))
		return
	}
	pct, err := h.analytics.RetentionAt(r.Context(), cohort, age)
	h.respond(w, r, map[string]any{
		"cohort_month":  cohort,
		"cohort_age":    age,
		"retention_pct": pct,
	}, err)
}

func (h *APIHandlers) HandleCohortSummary(w http.ResponseWriter, r *http.Request) {
	data, err := h.analytics.CohortSummary(r.Context())
	h.respond(w, r, data, err)
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "healthy"
	warehouse := "ok"
	if err := h.analytics.Ping(ctx); err != nil {
		status = "degraded"
		warehouse = string(errors.CodeOf(err))
		h.logger.Warn("health check failed", "error", err)
	}

	healthData := map[string]string{
		"status":    status,
		"warehouse": warehouse,
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats := h.analytics.Stats()

	errors.WriteSuccess(w, stats)
}
