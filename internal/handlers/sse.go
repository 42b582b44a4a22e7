package handlers

import (
	"context"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/starfederation/datastar-go/datastar"
	"golang.org/x/sync/errgroup"

	"salla-analytics/internal/config"
	"salla-analytics/internal/errors"
	"salla-analytics/internal/models"
	"salla-analytics/internal/observability"
	"salla-analytics/internal/services"
)

const maxTableRows = 50

var fragments = template.Must(template.New("fragments").Funcs(templateFuncs).Parse(`
{{define "products"}}<div id="products-content">
<p class="summary">{{.Region}}: {{money .Total}} across {{num .Orders}} orders</p>
<table class="modern-table">
<thead><tr><th>#</th><th>Product</th><th>Sales</th><th>Quantity</th><th>Orders</th></tr></thead>
<tbody>
{{range $i, $p := .Rows}}<tr><td>{{inc $i}}</td><td>{{$p.ProductID}}</td><td>{{money $p.TotalRevenue}}</td><td>{{num $p.TotalQuantity}}</td><td>{{num $p.NumOrders}}</td></tr>
{{end}}</tbody>
</table>
</div>{{end}}

{{define "categories"}}<div id="categories-content">
<table class="modern-table">
<thead><tr><th>Category</th><th>Sales</th><th>Orders</th><th>Units</th><th>Products</th><th>Avg Sale</th></tr></thead>
<tbody>
{{range .Rows}}<tr><td><span class="category-badge">{{.Category}}</span></td><td>{{money .TotalRevenue}}</td><td>{{num .NumOrders}}</td><td>{{num .TotalQuantity}}</td><td>{{num .NumUniqueProducts}}</td><td>{{with index $.Averages .Category}}{{money .}}{{end}}</td></tr>
{{end}}</tbody>
</table>
</div>{{end}}

{{define "timeseries"}}<div id="timeseries-content">
<table class="modern-table">
<thead><tr><th>Period</th><th>Sales</th><th>Units</th><th>Orders</th></tr></thead>
<tbody>
{{range .Rows}}<tr><td>{{.Period}}</td><td>{{money .TotalRevenue}}</td><td>{{num .TotalQuantity}}</td><td>{{num .NumOrders}}</td></tr>
{{end}}</tbody>
</table>
</div>{{end}}

{{define "location"}}<div id="location-content">
<table class="modern-table">
<thead><tr><th>State</th><th>Rank</th><th>Category</th><th>Sales</th><th>Orders</th></tr></thead>
<tbody>
{{range .Rows}}<tr><td>{{.CustomerState}}</td><td>{{.RankInState}}</td><td>{{.Category}}</td><td>{{money .TotalRevenue}}</td><td>{{num .NumOrders}}</td></tr>
{{end}}</tbody>
</table>
</div>{{end}}

{{define "stores"}}<div id="stores-content">
<table class="modern-table">
<thead><tr><th>#</th><th>Store</th><th>Avg Daily Sales</th><th>Total Sales</th><th>Days Active</th><th>Orders</th></tr></thead>
<tbody>
{{range $i, $s := .Rows}}<tr><td>{{inc $i}}</td><td>{{$s.SellerID}}</td><td>{{money $s.AvgDailySales}}</td><td>{{money $s.TotalRevenue}}</td><td>{{num $s.DaysActive}}</td><td>{{num $s.TotalOrders}}</td></tr>
{{end}}</tbody>
</table>
</div>{{end}}

{{define "growth"}}<div id="growth-content">
<p class="summary">{{num (len .Rows)}} month pairs, {{num .Undefined}} skipped for zero previous sales</p>
<table class="modern-table">
<thead><tr><th>Store</th><th>Month</th><th>Sales</th><th>Previous</th><th>Growth</th></tr></thead>
<tbody>
{{range .Rows}}<tr><td>{{.SellerID}}</td><td>{{.Month}}</td><td>{{money .MonthlyRevenue}}</td><td>{{money .PrevMonthRevenue}}</td><td>{{pct .GrowthPct}}</td></tr>
{{end}}</tbody>
</table>
</div>{{end}}

{{define "cohorts"}}<div id="cohorts-content">
<div class="metrics">
<div class="metric"><span>Total Customers</span><strong>{{num .Summary.TotalCustomers}}</strong></div>
<div class="metric"><span>Total Sales</span><strong>{{money .Summary.TotalRevenue}}</strong></div>
<div class="metric"><span>Avg per Customer</span><strong>{{money .Summary.AvgRevenuePerCustomer}}</strong></div>
<div class="metric"><span>Cohorts</span><strong>{{num .Summary.NumCohorts}}</strong></div>
<div class="metric"><span>Avg 3-Month Retention</span><strong>{{dec .Summary.AvgThreeMonthRetention}}%</strong></div>
<div class="metric"><span>Avg 6-Month Retention</span><strong>{{dec .Summary.AvgSixMonthRetention}}%</strong></div>
</div>
</div>{{end}}

{{define "error"}}<div id="{{.Target}}" class="error-banner">{{.Message}}</div>{{end}}
`))

// dashboardSignals mirrors the Datastar signals declared on the page.
// Zero values fall back to the configured defaults.
type dashboardSignals struct {
	Region             string   `json:"region"`
	TopProducts        int      `json:"topProducts"`
	TopCategories      int      `json:"topCategories"`
	Granularity        string   `json:"granularity"`
	CategoriesPerState int      `json:"categoriesPerState"`
	TopStores          int      `json:"topStores"`
	Sellers            []string `json:"sellers"`
	CohortMetric       string   `json:"cohortMetric"`
}

type SSEHandlers struct {
	analytics *services.Analytics
	defaults  config.DashboardConfig
	logger    *slog.Logger
}

func NewSSEHandlers(analytics *services.Analytics, defaults config.DashboardConfig, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		analytics: analytics,
		defaults:  defaults,
		logger:    logger,
	}
}

func (h *SSEHandlers) readSignals(r *http.Request) (dashboardSignals, error) {
	var s dashboardSignals
	if r.Method != http.MethodGet || r.URL.Query().Has("datastar") {
		if err := datastar.ReadSignals(r, &s); err != nil {
			return s, errors.InvalidArgument("malformed signals: %v", err)
		}
	}

	if s.Region == "" {
		s.Region = services.AllRegions
	}
	if s.TopProducts == 0 {
		s.TopProducts = h.defaults.TopProducts
	}
	if s.TopCategories == 0 {
		s.TopCategories = h.defaults.TopCategories
	}
	if s.CategoriesPerState == 0 {
		s.CategoriesPerState = h.defaults.CategoriesPerState
	}
	if s.TopStores == 0 {
		s.TopStores = h.defaults.TopStores
	}

	for _, check := range []error{
		checkRange("topProducts", s.TopProducts, minLimit, maxProductLimit),
		checkRange("topCategories", s.TopCategories, minLimit, maxCategoryLimit),
		checkRange("categoriesPerState", s.CategoriesPerState, minCategoriesPerState, maxCategoriesPerState),
		checkRange("topStores", s.TopStores, minLimit, maxStoreLimit),
	} {
		if check != nil {
			return s, check
		}
	}
	return s, nil
}

func render(name string, data any) (string, error) {
	var buf strings.Builder
	err := fragments.ExecuteTemplate(&buf, name, data)
	return buf.String(), err
}

func truncate[T any](rows []T) []T {
	if len(rows) > maxTableRows {
		return rows[:maxTableRows]
	}
	return rows
}

// patch is one SSE update: signals for the charts and an HTML fragment.
type patch struct {
	signals  map[string]any
	fragment string
	data     any
}

// tabFunc computes the update for one dashboard tab.
type tabFunc func(ctx context.Context, s dashboardSignals) (patch, error)

func (h *SSEHandlers) serve(w http.ResponseWriter, r *http.Request, target string, tabs ...tabFunc) {
	signals, err := h.readSignals(r)

	sse := datastar.NewSSE(w, r)
	logger := observability.FromContext(r.Context(), h.logger)

	if err != nil {
		h.patchError(r.Context(), sse, logger, target, err)
		return
	}

	patches := make([]patch, len(tabs))
	g, ctx := errgroup.WithContext(r.Context())
	for i, tab := range tabs {
		g.Go(func() (err error) {
			patches[i], err = tab(ctx, signals)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		h.patchError(r.Context(), sse, logger, target, err)
		return
	}

	merged := make(map[string]any)
	for _, p := range patches {
		for k, v := range p.signals {
			merged[k] = v
		}
	}
	payload, err := json.Marshal(merged)
	if err != nil {
		logger.Error("marshal signals", "error", err)
		return
	}
	if err := sse.PatchSignals(payload); err != nil {
		logger.Debug("client went away", "error", err)
		return
	}
	for _, p := range patches {
		html, err := render(p.fragment, p.data)
		if err != nil {
			logger.Error("render fragment", "fragment", p.fragment, "error", err)
			return
		}
		if err := sse.PatchElements(html); err != nil {
			logger.Debug("client went away", "error", err)
			return
		}
	}

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (h *SSEHandlers) patchError(ctx context.Context, sse *datastar.ServerSentEventGenerator, logger *slog.Logger, target string, err error) {
	code := errors.CodeOf(err)
	level := slog.LevelError
	if code == errors.CodeInvalidArgument || code == errors.CodeUndefinedMetric {
		level = slog.LevelWarn
	}
	logger.Log(ctx, level, "dashboard update failed", "target", target, "error_code", code, "error", err)

	message := "Data is temporarily unavailable."
	var appErr *errors.AppError
	if errors.As(err, &appErr) && appErr.StatusCode < 500 {
		message = appErr.Message
	}
	html, renderErr := render("error", map[string]string{"Target": target, "Message": message})
	if renderErr != nil {
		logger.Error("render error fragment", "error", renderErr)
		return
	}
	_ = sse.PatchElements(html)
}

func (h *SSEHandlers) productsTab(ctx context.Context, s dashboardSignals) (patch, error) {
	rows, err := h.analytics.TopProducts(ctx, s.Region, s.TopProducts)
	if err != nil {
		return patch{}, err
	}
	regions, err := h.analytics.Regions(ctx)
	if err != nil {
		return patch{}, err
	}
	var (
		total  float64
		orders int
	)
	for _, p := range rows {
		total += p.TotalRevenue
		orders += p.NumOrders
	}
	return patch{
		signals: map[string]any{
			"productsData": rows,
			"regions":      append([]string{services.AllRegions}, regions...),
		},
		fragment: "products",
		data: map[string]any{
			"Region": s.Region,
			"Rows":   rows,
			"Total":  total,
			"Orders": orders,
		},
	}, nil
}

func (h *SSEHandlers) categoriesTab(ctx context.Context, s dashboardSignals) (patch, error) {
	popular, err := h.analytics.PopularCategories(ctx, s.TopCategories)
	if err != nil {
		return patch{}, err
	}
	averages, err := h.analytics.AvgSaleByCategory(ctx)
	if err != nil {
		return patch{}, err
	}
	byCategory := make(map[string]float64, len(averages))
	for _, a := range averages {
		byCategory[a.Category] = a.AvgSale
	}
	return patch{
		signals: map[string]any{
			"categoriesData": popular,
			"avgSaleData":    averages,
		},
		fragment: "categories",
		data:     map[string]any{"Rows": popular, "Averages": byCategory},
	}, nil
}

func (h *SSEHandlers) timeSeriesTab(ctx context.Context, s dashboardSignals) (patch, error) {
	g, err := services.ParseGranularity(s.Granularity)
	if err != nil {
		return patch{}, err
	}
	rows, err := h.analytics.TimeSeriesBy(ctx, g)
	if err != nil {
		return patch{}, err
	}
	return patch{
		signals:  map[string]any{"timeSeriesData": rows},
		fragment: "timeseries",
		data:     map[string]any{"Rows": truncate(rows)},
	}, nil
}

func (h *SSEHandlers) locationTab(ctx context.Context, s dashboardSignals) (patch, error) {
	rows, err := h.analytics.TopCategoriesByLocation(ctx, s.CategoriesPerState, "")
	if err != nil {
		return patch{}, err
	}
	return patch{
		signals: map[string]any{
			"locationData":    rows,
			"locationHeatmap": services.LocationPivot(rows),
		},
		fragment: "location",
		data:     map[string]any{"Rows": truncate(rows)},
	}, nil
}

func (h *SSEHandlers) storesTab(ctx context.Context, s dashboardSignals) (patch, error) {
	rows, err := h.analytics.TopStores(ctx, s.TopStores)
	if err != nil {
		return patch{}, err
	}
	return patch{
		signals:  map[string]any{"storesData": rows},
		fragment: "stores",
		data:     map[string]any{"Rows": rows},
	}, nil
}

// growthTab filters by the selected sellers and offers every seller with
// growth rows as a choice.
func (h *SSEHandlers) growthTab(ctx context.Context, s dashboardSignals) (patch, error) {
	all, err := h.analytics.StoreGrowth(ctx)
	if err != nil {
		return patch{}, err
	}
	storeIDs := make([]string, 0)
	for _, r := range all.Rows {
		storeIDs = append(storeIDs, r.SellerID)
	}
	slices.Sort(storeIDs)
	storeIDs = slices.Compact(storeIDs)

	report := all
	if len(s.Sellers) > 0 {
		if report, err = h.analytics.StoreGrowth(ctx, s.Sellers...); err != nil {
			return patch{}, err
		}
	}
	heat, err := h.analytics.GrowthHeatmap(ctx, h.defaults.GrowthHeatmapRows)
	if err != nil {
		return patch{}, err
	}
	return patch{
		signals: map[string]any{
			"growthData":    report,
			"growthHeatmap": heat,
			"storeIDs":      storeIDs,
		},
		fragment: "growth",
		data: map[string]any{
			"Rows":      truncate(report.Rows),
			"Undefined": report.Undefined,
		},
	}, nil
}

func (h *SSEHandlers) cohortsTab(ctx context.Context, s dashboardSignals) (patch, error) {
	heat, err := h.analytics.CohortHeatmap(ctx, s.CohortMetric)
	if err != nil {
		return patch{}, err
	}
	retention, err := h.analytics.Retention(ctx)
	if err != nil {
		return patch{}, err
	}
	summary, err := h.analytics.CohortSummary(ctx)
	if err != nil {
		return patch{}, err
	}
	return patch{
		signals: map[string]any{
			"cohortHeatmap": heat,
			"retentionData": retention,
		},
		fragment: "cohorts",
		data:     map[string]models.CohortSummary{"Summary": summary},
	}, nil
}

func (h *SSEHandlers) HandleTopProducts(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "products-content", h.productsTab)
}

func (h *SSEHandlers) HandleCategories(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "categories-content", h.categoriesTab)
}

func (h *SSEHandlers) HandleTimeSeries(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "timeseries-content", h.timeSeriesTab)
}

func (h *SSEHandlers) HandleLocation(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "location-content", h.locationTab)
}

func (h *SSEHandlers) HandleTopStores(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "stores-content", h.storesTab)
}

func (h *SSEHandlers) HandleGrowth(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "growth-content", h.growthTab)
}

func (h *SSEHandlers) HandleCohorts(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "cohorts-content", h.cohortsTab)
}

// HandleRefreshAll drops cached results and recomputes every tab.
func (h *SSEHandlers) HandleRefreshAll(w http.ResponseWriter, r *http.Request) {
	h.analytics.Invalidate()
	h.serve(w, r, "dashboard-status",
		h.productsTab, h.categoriesTab, h.timeSeriesTab, h.locationTab,
		h.storesTab, h.growthTab, h.cohortsTab)
}
