package semantic

import (
	"cmp"
	"slices"

	"salla-analytics/internal/models"
)

// TimeSeriesSales buckets every fact into its purchase month. Months are
// returned in ascending order; coarser periods are sums of their months.
func TimeSeriesSales(facts []models.OrderItem) []models.MonthlySales {
	type acc struct {
		month Month
		*totals
	}

	groups := newGrouped[Month, acc]()
	for _, f := range facts {
		m := MonthOf(f.PurchasedAt)
		groups.at(m, func() *acc { return &acc{month: m, totals: newTotals()} }).add(f)
	}

	rows := make([]models.MonthlySales, 0, groups.len())
	groups.each(func(a *acc) {
		rows = append(rows, models.MonthlySales{
			YearMonth:     a.month.Label(),
			Year:          a.month.YearLabel(),
			Quarter:       a.month.QuarterLabel(),
			YearQuarter:   a.month.YearQuarter(),
			TotalRevenue:  a.revenue,
			TotalQuantity: a.quantity,
			NumOrders:     len(a.orders),
		})
	})
	slices.SortFunc(rows, func(a, b models.MonthlySales) int {
		return cmp.Compare(a.YearMonth, b.YearMonth)
	})
	return rows
}

// TopStoresByDailySales collapses facts to one revenue figure per seller per
// calendar day, averages those days per seller and keeps the topN sellers by
// that average. A seller active on a single day averages that day's total.
func TopStoresByDailySales(facts []models.OrderItem, topN int) ([]models.StoreDailySales, error) {
	if err := ValidateTopN("topN", topN); err != nil {
		return nil, err
	}

	type dayKey struct{ seller, date string }
	type day struct {
		seller string
		*totals
	}
	days := newGrouped[dayKey, day]()
	for _, f := range facts {
		k := dayKey{f.SellerID, DateOf(f.PurchasedAt)}
		days.at(k, func() *day { return &day{seller: k.seller, totals: newTotals()} }).add(f)
	}

	type store struct {
		seller  string
		revenue float64
		days    int
		orders  int
	}
	stores := newGrouped[string, store]()
	days.each(func(d *day) {
		s := stores.at(d.seller, func() *store { return &store{seller: d.seller} })
		s.revenue += d.revenue
		s.days++
		s.orders += len(d.orders)
	})

	rows := make([]models.StoreDailySales, 0, stores.len())
	stores.each(func(s *store) {
		rows = append(rows, models.StoreDailySales{
			SellerID:      s.seller,
			AvgDailySales: s.revenue / float64(s.days),
			TotalRevenue:  s.revenue,
			DaysActive:    s.days,
			TotalOrders:   s.orders,
		})
	})
	return TopN(rows, topN, func(r models.StoreDailySales) float64 { return r.AvgDailySales })
}
