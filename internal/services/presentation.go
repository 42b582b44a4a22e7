package services

import (
	"cmp"
	"slices"
	"strconv"

	"salla-analytics/internal/errors"
	"salla-analytics/internal/models"
	"salla-analytics/internal/semantic"
)

// RollupProducts reduces per-region product rows to one row per product.
// For a single region it filters; for AllRegions (or "") it sums revenue,
// quantity and order counts across states. An order belongs to exactly one
// state, so summed order counts stay distinct.
func RollupProducts(rows []models.ProductRegionSales, region string) []models.ProductSales {
	out := make([]models.ProductSales, 0)
	if region != "" && region != AllRegions {
		for _, r := range rows {
			if r.CustomerState == region {
				out = append(out, models.ProductSales{
					ProductID:     r.ProductID,
					TotalRevenue:  r.TotalRevenue,
					TotalQuantity: r.TotalQuantity,
					NumOrders:     r.NumOrders,
				})
			}
		}
		return out
	}

	index := make(map[string]int)
	for _, r := range rows {
		i, ok := index[r.ProductID]
		if !ok {
			i = len(out)
			index[r.ProductID] = i
			out = append(out, models.ProductSales{ProductID: r.ProductID})
		}
		out[i].TotalRevenue += r.TotalRevenue
		out[i].TotalQuantity += r.TotalQuantity
		out[i].NumOrders += r.NumOrders
	}
	return out
}

// RollupByQuarter sums monthly rows into YYYY-Qn periods.
func RollupByQuarter(rows []models.MonthlySales) []models.PeriodSales {
	return rollup(rows, func(m models.MonthlySales) string { return m.YearQuarter })
}

// RollupByYear sums monthly rows into YYYY periods.
func RollupByYear(rows []models.MonthlySales) []models.PeriodSales {
	return rollup(rows, func(m models.MonthlySales) string { return m.Year })
}

func rollup(rows []models.MonthlySales, period func(models.MonthlySales) string) []models.PeriodSales {
	out := make([]models.PeriodSales, 0)
	index := make(map[string]int)
	for _, r := range rows {
		p := period(r)
		i, ok := index[p]
		if !ok {
			i = len(out)
			index[p] = i
			out = append(out, models.PeriodSales{Period: p})
		}
		out[i].TotalRevenue += r.TotalRevenue
		out[i].TotalQuantity += r.TotalQuantity
		out[i].NumOrders += r.NumOrders
	}
	slices.SortStableFunc(out, func(a, b models.PeriodSales) int {
		return cmp.Compare(a.Period, b.Period)
	})
	return out
}

// LocationPivot lays ranked state/category revenue out as category rows
// and state columns, both sorted. Missing pairs are zero.
func LocationPivot(rows []models.StateCategorySales) models.Heatmap {
	categories := make([]string, 0)
	states := make([]string, 0)
	for _, r := range rows {
		categories = append(categories, r.Category)
		states = append(states, r.CustomerState)
	}
	slices.Sort(categories)
	categories = slices.Compact(categories)
	slices.Sort(states)
	states = slices.Compact(states)

	values := newGrid(len(categories), len(states))
	for i := range values {
		for j := range values[i] {
			values[i][j] = ptr(0)
		}
	}
	for _, r := range rows {
		i, _ := slices.BinarySearch(categories, r.Category)
		j, _ := slices.BinarySearch(states, r.CustomerState)
		*values[i][j] += r.TotalRevenue
	}
	return models.Heatmap{Rows: categories, Columns: states, Values: values}
}

// GrowthPivot keeps the limit sellers with the highest mean growth and lays
// their growth out as seller rows (best first) and month columns. Months a
// seller has no growth row for are nil.
func GrowthPivot(rows []models.StoreGrowth, limit int) (models.Heatmap, error) {
	if err := semantic.ValidateTopN("limit", limit); err != nil {
		return models.Heatmap{}, err
	}

	type mean struct {
		seller string
		sum    float64
		n      int
	}
	means := make([]mean, 0)
	index := make(map[string]int)
	for _, r := range rows {
		i, ok := index[r.SellerID]
		if !ok {
			i = len(means)
			index[r.SellerID] = i
			means = append(means, mean{seller: r.SellerID})
		}
		means[i].sum += r.GrowthPct
		means[i].n++
	}

	top, err := semantic.TopN(means, limit, func(m mean) float64 { return m.sum / float64(m.n) })
	if err != nil {
		return models.Heatmap{}, err
	}

	sellers := make([]string, len(top))
	rowOf := make(map[string]int, len(top))
	for i, m := range top {
		sellers[i] = m.seller
		rowOf[m.seller] = i
	}

	months := make([]string, 0)
	for _, r := range rows {
		if _, ok := rowOf[r.SellerID]; ok {
			months = append(months, r.Month)
		}
	}
	slices.Sort(months)
	months = slices.Compact(months)

	values := newGrid(len(sellers), len(months))
	for _, r := range rows {
		i, ok := rowOf[r.SellerID]
		if !ok {
			continue
		}
		j, _ := slices.BinarySearch(months, r.Month)
		values[i][j] = ptr(r.GrowthPct)
	}
	return models.Heatmap{Rows: sellers, Columns: months, Values: values}, nil
}

// CohortPivot lays a cohort metric out as cohort rows and age columns.
// Ages a cohort never reached are nil.
func CohortPivot(cells []models.CohortCell, value func(models.CohortCell) float64) models.Heatmap {
	cohorts, ages := cohortAxes(cells)
	values := newGrid(len(cohorts), len(ages))
	for _, c := range cells {
		i, _ := slices.BinarySearch(cohorts, c.CohortMonth)
		j, _ := slices.BinarySearch(ages, c.CohortAge)
		values[i][j] = ptr(value(c))
	}

	columns := make([]string, len(ages))
	for j, age := range ages {
		columns[j] = strconv.Itoa(age)
	}
	return models.Heatmap{Rows: cohorts, Columns: columns, Values: values}
}

// BuildRetention divides every cohort's customer counts by its age-0
// count. A cohort with no usable age-0 count keeps an all-nil row; ages
// not observed for a cohort are nil too.
func BuildRetention(cells []models.CohortCell) models.RetentionMatrix {
	cohorts, ages := cohortAxes(cells)

	base := make(map[string]int, len(cohorts))
	for _, c := range cells {
		if c.CohortAge == 0 {
			base[c.CohortMonth] = c.NumCustomers
		}
	}

	values := newGrid(len(cohorts), len(ages))
	for _, c := range cells {
		b := base[c.CohortMonth]
		if b == 0 {
			continue
		}
		i, _ := slices.BinarySearch(cohorts, c.CohortMonth)
		j, _ := slices.BinarySearch(ages, c.CohortAge)
		values[i][j] = ptr(100 * float64(c.NumCustomers) / float64(b))
	}
	return models.RetentionMatrix{Cohorts: cohorts, Ages: ages, Values: values}
}

// SummarizeCohorts computes the headline cohort figures. Average retention
// at an age is the mean over cohorts that have a value there, or 0 when
// none does.
func SummarizeCohorts(cells []models.CohortCell) models.CohortSummary {
	var summary models.CohortSummary
	for _, c := range cells {
		if c.CohortAge == 0 {
			summary.TotalCustomers += c.NumCustomers
		}
		summary.TotalRevenue += c.TotalRevenue
	}
	if summary.TotalCustomers > 0 {
		summary.AvgRevenuePerCustomer = summary.TotalRevenue / float64(summary.TotalCustomers)
	}

	retention := BuildRetention(cells)
	summary.NumCohorts = len(retention.Cohorts)
	summary.AvgThreeMonthRetention = meanAtAge(retention, 3)
	summary.AvgSixMonthRetention = meanAtAge(retention, 6)
	return summary
}

// CohortRetention is the point lookup behind the retention matrix.
func CohortRetention(cells []models.CohortCell, cohortMonth string, age int) (float64, error) {
	if age < 0 {
		return 0, errors.InvalidArgument("age must be >= 0, got %d", age)
	}
	return semantic.Retention(cells, cohortMonth, age)
}

func meanAtAge(m models.RetentionMatrix, age int) float64 {
	j, ok := slices.BinarySearch(m.Ages, age)
	if !ok {
		return 0
	}
	var (
		sum float64
		n   int
	)
	for _, row := range m.Values {
		if v := row[j]; v != nil {
			sum += *v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func cohortAxes(cells []models.CohortCell) ([]string, []int) {
	cohorts := make([]string, 0)
	ages := make([]int, 0)
	for _, c := range cells {
		cohorts = append(cohorts, c.CohortMonth)
		ages = append(ages, c.CohortAge)
	}
	slices.Sort(cohorts)
	slices.Sort(ages)
	return slices.Compact(cohorts), slices.Compact(ages)
}

func newGrid(rows, cols int) [][]*float64 {
	grid := make([][]*float64, rows)
	for i := range grid {
		grid[i] = make([]*float64, cols)
	}
	return grid
}

func ptr(v float64) *float64 {
	return &v
}
