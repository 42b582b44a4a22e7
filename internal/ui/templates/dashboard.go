package templates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"salla-analytics/internal/config"
)

const datastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0/bundles/datastar.js"
const chartScript = "https://cdn.jsdelivr.net/npm/chart.js@4.4.1/dist/chart.umd.min.js"

// Tab is one dashboard section backed by an SSE endpoint.
type Tab struct {
	ID       string
	Title    string
	Endpoint string
	Fragment string
	Chart    string
	Controls string
}

// Tabs lists the dashboard sections in display order.
var Tabs = []Tab{
	{ID: "products", Title: "Top Products by Region", Endpoint: "/sse/top-products", Fragment: "products-content", Chart: "productsData",
		Controls: `<select data-bind-region data-on-change="@get('/sse/top-products')"><option data-for="r in $regions" data-text="r"></option></select>` +
			`<input type="number" min="1" max="50" data-bind-top-products data-on-change="@get('/sse/top-products')">`},
	{ID: "categories", Title: "Popular Categories", Endpoint: "/sse/categories", Fragment: "categories-content", Chart: "categoriesData",
		Controls: `<input type="number" min="1" max="50" data-bind-top-categories data-on-change="@get('/sse/categories')">`},
	{ID: "timeseries", Title: "Sales Over Time", Endpoint: "/sse/time-series", Fragment: "timeseries-content", Chart: "timeSeriesData",
		Controls: `<select data-bind-granularity data-on-change="@get('/sse/time-series')"><option value="month">Monthly</option><option value="quarter">Quarterly</option><option value="year">Yearly</option></select>`},
	{ID: "location", Title: "Top Categories by State", Endpoint: "/sse/location", Fragment: "location-content", Chart: "locationHeatmap",
		Controls: `<input type="range" min="3" max="12" data-bind-categories-per-state data-on-change="@get('/sse/location')">`},
	{ID: "stores", Title: "Top Stores by Daily Sales", Endpoint: "/sse/top-stores", Fragment: "stores-content", Chart: "storesData",
		Controls: `<input type="number" min="1" max="100" data-bind-top-stores data-on-change="@get('/sse/top-stores')">`},
	{ID: "growth", Title: "Monthly Store Growth", Endpoint: "/sse/growth", Fragment: "growth-content", Chart: "growthHeatmap",
		Controls: `<select multiple data-bind-sellers data-on-change="@get('/sse/growth')"><option data-for="s in $storeIDs" data-attr-value="s" data-text="s"></option></select>`},
	{ID: "cohorts", Title: "Customer Cohorts", Endpoint: "/sse/cohorts", Fragment: "cohorts-content", Chart: "cohortHeatmap",
		Controls: `<select data-bind-cohort-metric data-on-change="@get('/sse/cohorts')"><option value="revenue">Sales</option><option value="customers">Customers</option><option value="avg">Avg per Customer</option></select>`},
}

// initialSignals seeds the page with the configured widget defaults. The
// chart data signals start empty and are filled by the SSE endpoints.
func initialSignals(defaults config.DashboardConfig) (string, error) {
	signals := map[string]any{
		"tab":                Tabs[0].ID,
		"region":             "All Regions",
		"regions":            []string{"All Regions"},
		"topProducts":        defaults.TopProducts,
		"topCategories":      defaults.TopCategories,
		"granularity":        "month",
		"categoriesPerState": defaults.CategoriesPerState,
		"topStores":          defaults.TopStores,
		"sellers":            []string{},
		"storeIDs":           []string{},
		"cohortMetric":       "revenue",
	}
	for _, tab := range Tabs {
		signals[tab.Chart] = nil
	}
	b, err := json.Marshal(signals)
	return string(b), err
}

// Dashboard renders the single-page dashboard shell.
func Dashboard(defaults config.DashboardConfig) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		signals, err := initialSignals(defaults)
		if err != nil {
			return err
		}

		var b strings.Builder
		b.WriteString(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		b.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		b.WriteString(`<title>Salla Sales Analytics</title>`)
		fmt.Fprintf(&b, `<script type="module" src="%s"></script>`, datastarScript)
		fmt.Fprintf(&b, `<script src="%s"></script>`, chartScript)
		b.WriteString(`<style>` + styles + `</style></head>`)

		fmt.Fprintf(&b, `<body data-signals="%s">`, templ.EscapeString(signals))
		b.WriteString(`<header><h1>Salla Sales Analytics</h1><p>Sales, categories, stores and customer cohorts from the curated warehouse</p>`)
		b.WriteString(`<button data-on-click="@get('/sse/refresh-all')">Refresh all</button><div id="dashboard-status"></div></header>`)

		b.WriteString(`<nav class="tabs">`)
		for _, tab := range Tabs {
			fmt.Fprintf(&b, `<button data-class-active="$tab == '%s'" data-on-click="$tab = '%s'; @get('%s')">%s</button>`,
				tab.ID, tab.ID, templ.EscapeString(tab.Endpoint), templ.EscapeString(tab.Title))
		}
		b.WriteString(`</nav><main>`)

		for i, tab := range Tabs {
			fmt.Fprintf(&b, `<section id="tab-%s" data-show="$tab == '%s'">`, tab.ID, tab.ID)
			fmt.Fprintf(&b, `<h2>%s</h2><div class="controls">%s</div>`, templ.EscapeString(tab.Title), tab.Controls)
			fmt.Fprintf(&b, `<canvas id="chart-%s" data-effect="renderChart('chart-%s', $%s)"></canvas>`, tab.ID, tab.ID, tab.Chart)
			if i == 0 {
				fmt.Fprintf(&b, `<div id="%s" data-init="@get('%s')">Loading...</div>`, tab.Fragment, tab.Endpoint)
			} else {
				fmt.Fprintf(&b, `<div id="%s"></div>`, tab.Fragment)
			}
			b.WriteString(`</section>`)
		}

		b.WriteString(`</main><script>` + chartHelper + `</script></body></html>`)

		_, err = io.WriteString(w, b.String())
		return err
	})
}

const styles = `
body{font-family:system-ui,sans-serif;margin:0;background:#f5f6fa;color:#222}
header{padding:1.5rem 2rem;background:#004d5a;color:#fff}
.tabs{display:flex;gap:.25rem;padding:0 2rem;background:#fff;border-bottom:1px solid #ddd}
.tabs button{border:0;background:none;padding:.75rem 1rem;cursor:pointer}
.tabs button.active{border-bottom:3px solid #004d5a;font-weight:600}
main{padding:1.5rem 2rem}
.modern-table{width:100%;border-collapse:collapse;background:#fff}
.modern-table th,.modern-table td{padding:.5rem;border-bottom:1px solid #eee;text-align:left}
.category-badge{background:#e0f2f1;border-radius:4px;padding:.1rem .4rem}
.metrics{display:grid;grid-template-columns:repeat(3,1fr);gap:1rem}
.metric{background:#fff;padding:1rem;border-radius:6px}
.metric strong{display:block;font-size:1.4rem}
.error-banner{background:#fdecea;color:#611a15;padding:1rem;border-radius:6px}
`

// chartHelper draws list signals as bar charts and heatmap signals as a
// stacked bar per row.
const chartHelper = `
const charts = {};
function renderChart(id, data) {
  if (!data || typeof Chart === 'undefined') return;
  const el = document.getElementById(id);
  if (charts[id]) charts[id].destroy();
  let labels, datasets;
  if (data.rows && data.columns && data.values) {
    labels = data.rows;
    datasets = data.columns.map((c, j) => ({label: c, data: data.values.map(r => r[j])}));
  } else if (data.cohorts && data.values) {
    labels = data.cohorts;
    datasets = data.ages.map((a, j) => ({label: 'Month ' + a, data: data.values.map(r => r[j])}));
  } else {
    const rows = Array.isArray(data) ? data : (data.rows || []);
    if (!rows.length) return;
    const keys = Object.keys(rows[0]);
    const label = keys.find(k => typeof rows[0][k] === 'string');
    const value = keys.find(k => k.startsWith('total_revenue') || k.startsWith('avg_daily') || k === 'growth_pct') || keys.find(k => typeof rows[0][k] === 'number');
    labels = rows.map(r => r[label]);
    datasets = [{label: value, data: rows.map(r => r[value])}];
  }
  charts[id] = new Chart(el, {type: 'bar', data: {labels, datasets}, options: {responsive: true}});
}
`
