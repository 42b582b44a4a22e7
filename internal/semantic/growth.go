package semantic

import (
	"cmp"
	"slices"

	"salla-analytics/internal/models"
)

// MonthlyGrowthByStore computes month-over-month revenue growth per seller.
//
// Each seller's observed months are sorted chronologically and scanned in
// pairs, so a seller's first month never produces a row and a gap month
// compares against the last month that had sales. When the previous month's
// revenue is zero the ratio is undefined: the pair is dropped and counted in
// GrowthReport.Undefined.
func MonthlyGrowthByStore(facts []models.OrderItem) models.GrowthReport {
	type key struct {
		seller string
		month  Month
	}
	type acc struct {
		key
		revenue float64
	}

	months := newGrouped[key, acc]()
	for _, f := range facts {
		k := key{f.SellerID, MonthOf(f.PurchasedAt)}
		months.at(k, func() *acc { return &acc{key: k} }).revenue += f.Revenue()
	}

	series := make([]acc, 0, months.len())
	months.each(func(a *acc) { series = append(series, *a) })
	slices.SortFunc(series, func(a, b acc) int {
		if c := cmp.Compare(a.seller, b.seller); c != 0 {
			return c
		}
		return cmp.Compare(a.month.Index(), b.month.Index())
	})

	report := models.GrowthReport{Rows: make([]models.StoreGrowth, 0, len(series))}
	for i := 1; i < len(series); i++ {
		prev, cur := series[i-1], series[i]
		if prev.seller != cur.seller {
			continue
		}
		if prev.revenue == 0 {
			report.Undefined++
			continue
		}
		report.Rows = append(report.Rows, models.StoreGrowth{
			SellerID:         cur.seller,
			Month:            cur.month.Label(),
			MonthlyRevenue:   cur.revenue,
			PrevMonth:        prev.month.Label(),
			PrevMonthRevenue: prev.revenue,
			GrowthPct:        (cur.revenue - prev.revenue) / prev.revenue * 100,
		})
	}
	return report
}
