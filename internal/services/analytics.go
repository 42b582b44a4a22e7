package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"salla-analytics/internal/errors"
	"salla-analytics/internal/models"
	"salla-analytics/internal/observability"
	"salla-analytics/internal/semantic"
	"salla-analytics/internal/warehouse"
)

// AllRegions selects the cross-state rollup in TopProducts.
const AllRegions = "All Regions"

type table uint8

const (
	tableItems table = 1 << iota
	tableProducts
	tableCustomers
)

// snapshot is one fresh read of the tables an operation needs.
type snapshot struct {
	items     []models.OrderItem
	products  []models.Product
	customers []models.CustomerVersion
}

// Analytics serves the dashboard. Every cache miss reads the warehouse
// again and runs the semantic layer on that snapshot.
type Analytics struct {
	source warehouse.Source
	cache  *resultCache
	logger *slog.Logger

	loads      atomic.Int64
	lastLoaded atomic.Int64
}

type Option func(*options)

type options struct {
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

func WithCacheTTL(ttl time.Duration) Option {
	return func(o *options) { o.ttl = ttl }
}

func WithCacheSize(n int) Option {
	return func(o *options) { o.maxEntries = n }
}

// WithClock replaces time.Now for cache expiry.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func NewAnalytics(source warehouse.Source, logger *slog.Logger, opts ...Option) *Analytics {
	o := options{ttl: 5 * time.Minute, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Analytics{
		source: source,
		cache:  newResultCache(o.ttl, o.maxEntries, o.now),
		logger: logger,
	}
}

// StartCleanup evicts expired cache entries every interval until ctx ends.
func (a *Analytics) StartCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 || !a.cache.enabled() {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := a.cache.cleanup(); n > 0 {
					a.logger.Debug("evicted expired results", "count", n)
				}
			}
		}
	}()
}

// Invalidate drops every cached result so the next call reads fresh data.
func (a *Analytics) Invalidate() {
	a.cache.clear()
}

func (a *Analytics) load(ctx context.Context, need table) (*snapshot, error) {
	ctx, span := observability.StartSpan(ctx, "warehouse.load")
	defer span.End(ctx, a.logger)

	snap := &snapshot{}
	g, gctx := errgroup.WithContext(ctx)
	if need&tableItems != 0 {
		g.Go(func() (err error) {
			snap.items, err = a.source.OrderItems(gctx)
			return err
		})
	}
	if need&tableProducts != 0 {
		g.Go(func() (err error) {
			snap.products, err = a.source.Products(gctx)
			return err
		})
	}
	if need&tableCustomers != 0 {
		g.Go(func() (err error) {
			snap.customers, err = a.source.Customers(gctx)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		span.SetError(err)
		return nil, err
	}

	a.loads.Add(1)
	a.lastLoaded.Store(time.Now().UnixNano())
	span.SetTag("items", strconv.Itoa(len(snap.items)))
	span.SetTag("products", strconv.Itoa(len(snap.products)))
	span.SetTag("customers", strconv.Itoa(len(snap.customers)))
	return snap, nil
}

// compute loads the tables in need and runs fn over them inside a span.
func compute[T any](ctx context.Context, a *Analytics, op string, need table, fn func(*snapshot) (T, error)) (T, error) {
	ctx, span := observability.StartSpan(ctx, op)
	defer span.End(ctx, a.logger)

	snap, err := a.load(ctx, need)
	if err != nil {
		span.SetError(err)
		var zero T
		return zero, err
	}
	out, err := fn(snap)
	if err != nil {
		span.SetError(err)
	}
	return out, err
}

func (a *Analytics) TopProductsByRegion(ctx context.Context) ([]models.ProductRegionSales, error) {
	return cached(ctx, a.cache, "top-products-by-region", func(ctx context.Context) ([]models.ProductRegionSales, error) {
		return compute(ctx, a, "semantic.top_products_by_region", tableItems|tableCustomers,
			func(s *snapshot) ([]models.ProductRegionSales, error) {
				return semantic.TopProductsByRegion(s.items, s.customers), nil
			})
	})
}

// Regions lists the distinct customer states that have sales, sorted.
func (a *Analytics) Regions(ctx context.Context) ([]string, error) {
	rows, err := a.TopProductsByRegion(ctx)
	if err != nil {
		return nil, err
	}
	regions := make([]string, 0)
	for _, r := range rows {
		regions = append(regions, r.CustomerState)
	}
	slices.Sort(regions)
	return slices.Compact(regions), nil
}

// TopProducts returns the limit best-selling products of one region. An
// empty region or AllRegions sums every state's rows per product first.
func (a *Analytics) TopProducts(ctx context.Context, region string, limit int) ([]models.ProductSales, error) {
	if err := semantic.ValidateTopN("limit", limit); err != nil {
		return nil, err
	}
	rows, err := a.TopProductsByRegion(ctx)
	if err != nil {
		return nil, err
	}
	return semantic.TopN(RollupProducts(rows, region), limit,
		func(p models.ProductSales) float64 { return p.TotalRevenue })
}

func (a *Analytics) PopularCategories(ctx context.Context, topN int) ([]models.CategorySales, error) {
	if err := semantic.ValidateTopN("topN", topN); err != nil {
		return nil, err
	}
	return cached(ctx, a.cache, fmt.Sprintf("popular-categories:%d", topN), func(ctx context.Context) ([]models.CategorySales, error) {
		return compute(ctx, a, "semantic.popular_categories", tableItems|tableProducts,
			func(s *snapshot) ([]models.CategorySales, error) {
				return semantic.PopularCategories(s.items, s.products, topN)
			})
	})
}

func (a *Analytics) AvgSaleByCategory(ctx context.Context) ([]models.CategoryAverage, error) {
	return cached(ctx, a.cache, "avg-sale-by-category", func(ctx context.Context) ([]models.CategoryAverage, error) {
		return compute(ctx, a, "semantic.avg_sale_by_category", tableItems|tableProducts,
			func(s *snapshot) ([]models.CategoryAverage, error) {
				return semantic.AvgSaleByCategory(s.items, s.products), nil
			})
	})
}

func (a *Analytics) TimeSeries(ctx context.Context) ([]models.MonthlySales, error) {
	return cached(ctx, a.cache, "time-series", func(ctx context.Context) ([]models.MonthlySales, error) {
		return compute(ctx, a, "semantic.time_series", tableItems,
			func(s *snapshot) ([]models.MonthlySales, error) {
				return semantic.TimeSeriesSales(s.items), nil
			})
	})
}

// Granularity selects the bucket of TimeSeriesBy.
type Granularity string

const (
	Monthly   Granularity = "month"
	Quarterly Granularity = "quarter"
	Yearly    Granularity = "year"
)

// ParseGranularity accepts month, quarter or year; empty means month.
func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(strings.ToLower(s)); g {
	case "":
		return Monthly, nil
	case Monthly, Quarterly, Yearly:
		return g, nil
	default:
		return "", errors.InvalidArgument("granularity must be one of month, quarter, year; got %q", s)
	}
}

// TimeSeriesBy returns monthly rows as-is and quarters or years as rollups
// of them.
func (a *Analytics) TimeSeriesBy(ctx context.Context, g Granularity) ([]models.PeriodSales, error) {
	monthly, err := a.TimeSeries(ctx)
	if err != nil {
		return nil, err
	}
	switch g {
	case Quarterly:
		return RollupByQuarter(monthly), nil
	case Yearly:
		return RollupByYear(monthly), nil
	default:
		return rollup(monthly, func(m models.MonthlySales) string { return m.YearMonth }), nil
	}
}

// TopCategoriesByLocation ranks categories per state. A non-empty state
// keeps only that state's rows.
func (a *Analytics) TopCategoriesByLocation(ctx context.Context, topN int, state string) ([]models.StateCategorySales, error) {
	if err := semantic.ValidateTopN("topN", topN); err != nil {
		return nil, err
	}
	rows, err := cached(ctx, a.cache, fmt.Sprintf("top-categories-by-location:%d", topN), func(ctx context.Context) ([]models.StateCategorySales, error) {
		return compute(ctx, a, "semantic.top_categories_by_location", tableItems|tableProducts|tableCustomers,
			func(s *snapshot) ([]models.StateCategorySales, error) {
				return semantic.TopCategoriesByLocation(s.items, s.products, s.customers, topN)
			})
	})
	if err != nil || state == "" {
		return rows, err
	}
	filtered := make([]models.StateCategorySales, 0)
	for _, r := range rows {
		if r.CustomerState == state {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

// LocationHeatmap pivots TopCategoriesByLocation into category x state
// revenue. Pairs outside a state's top N are zero.
func (a *Analytics) LocationHeatmap(ctx context.Context, topN int) (models.Heatmap, error) {
	rows, err := a.TopCategoriesByLocation(ctx, topN, "")
	if err != nil {
		return models.Heatmap{}, err
	}
	return LocationPivot(rows), nil
}

func (a *Analytics) TopStores(ctx context.Context, topN int) ([]models.StoreDailySales, error) {
	if err := semantic.ValidateTopN("topN", topN); err != nil {
		return nil, err
	}
	return cached(ctx, a.cache, fmt.Sprintf("top-stores:%d", topN), func(ctx context.Context) ([]models.StoreDailySales, error) {
		return compute(ctx, a, "semantic.top_stores", tableItems,
			func(s *snapshot) ([]models.StoreDailySales, error) {
				return semantic.TopStoresByDailySales(s.items, topN)
			})
	})
}

// StoreGrowth returns month-over-month growth, optionally restricted to
// the given sellers. Undefined counts the dropped pairs of the whole
// report.
func (a *Analytics) StoreGrowth(ctx context.Context, sellers ...string) (models.GrowthReport, error) {
	report, err := cached(ctx, a.cache, "store-growth", func(ctx context.Context) (models.GrowthReport, error) {
		return compute(ctx, a, "semantic.monthly_growth", tableItems,
			func(s *snapshot) (models.GrowthReport, error) {
				return semantic.MonthlyGrowthByStore(s.items), nil
			})
	})
	if err != nil || len(sellers) == 0 {
		return report, err
	}
	rows := make([]models.StoreGrowth, 0)
	for _, r := range report.Rows {
		if slices.Contains(sellers, r.SellerID) {
			rows = append(rows, r)
		}
	}
	return models.GrowthReport{Rows: rows, Undefined: report.Undefined}, nil
}

// GrowthHeatmap pivots growth for the limit sellers with the highest mean
// growth into seller x month.
func (a *Analytics) GrowthHeatmap(ctx context.Context, limit int) (models.Heatmap, error) {
	if err := semantic.ValidateTopN("limit", limit); err != nil {
		return models.Heatmap{}, err
	}
	report, err := a.StoreGrowth(ctx)
	if err != nil {
		return models.Heatmap{}, err
	}
	return GrowthPivot(report.Rows, limit)
}

func (a *Analytics) Cohorts(ctx context.Context) ([]models.CohortCell, error) {
	return cached(ctx, a.cache, "cohorts", func(ctx context.Context) ([]models.CohortCell, error) {
		return compute(ctx, a, "semantic.cohorts", tableItems,
			func(s *snapshot) ([]models.CohortCell, error) {
				return semantic.CohortAnalysis(s.items), nil
			})
	})
}

func (a *Analytics) CohortHeatmap(ctx context.Context, metric string) (models.Heatmap, error) {
	value, err := cohortMetric(metric)
	if err != nil {
		return models.Heatmap{}, err
	}
	cells, err := a.Cohorts(ctx)
	if err != nil {
		return models.Heatmap{}, err
	}
	return CohortPivot(cells, value), nil
}

func (a *Analytics) Retention(ctx context.Context) (models.RetentionMatrix, error) {
	cells, err := a.Cohorts(ctx)
	if err != nil {
		return models.RetentionMatrix{}, err
	}
	return BuildRetention(cells), nil
}

// RetentionAt is the retention of one cohort at one age.
func (a *Analytics) RetentionAt(ctx context.Context, cohortMonth string, age int) (float64, error) {
	if _, err := semantic.ParseMonth(cohortMonth); err != nil {
		return 0, errors.InvalidArgument("cohort must be YYYY-MM, got %q", cohortMonth)
	}
	cells, err := a.Cohorts(ctx)
	if err != nil {
		return 0, err
	}
	return CohortRetention(cells, cohortMonth, age)
}

func (a *Analytics) CohortSummary(ctx context.Context) (models.CohortSummary, error) {
	cells, err := a.Cohorts(ctx)
	if err != nil {
		return models.CohortSummary{}, err
	}
	return SummarizeCohorts(cells), nil
}

// Ping checks the warehouse without touching the cache.
func (a *Analytics) Ping(ctx context.Context) error {
	return a.source.Ping(ctx)
}

func (a *Analytics) Stats() map[string]any {
	stats := map[string]any{
		"driver":          a.source.Driver(),
		"warehouse_loads": a.loads.Load(),
		"cache":           a.cache.stats(),
	}
	if ts := a.lastLoaded.Load(); ts > 0 {
		stats["last_loaded"] = time.Unix(0, ts).UTC()
	}
	return stats
}

func cohortMetric(metric string) (func(models.CohortCell) float64, error) {
	switch strings.ToLower(metric) {
	case "", "revenue", "sales":
		return func(c models.CohortCell) float64 { return c.TotalRevenue }, nil
	case "customers":
		return func(c models.CohortCell) float64 { return float64(c.NumCustomers) }, nil
	case "avg", "avg_revenue_per_customer":
		return func(c models.CohortCell) float64 { return c.AvgRevenuePerCustomer }, nil
	default:
		return nil, errors.InvalidArgument("metric must be one of revenue, customers, avg; got %q", metric)
	}
}
