package models

// RetentionMatrix holds per-cohort retention percentages indexed by cohort
// age. A nil cell means the cohort had no customers at age 0.
type RetentionMatrix struct {
	Cohorts []string     `json:"cohorts"`
	Ages    []int        `json:"ages"`
	Values  [][]*float64 `json:"values"`
}

// Heatmap is a dense pivot used by the dashboard charts. Values[i][j] is
// the cell for Rows[i] and Columns[j]; nil marks an absent cell when the
// pivot does not fill with zero.
type Heatmap struct {
	Rows    []string     `json:"rows"`
	Columns []string     `json:"columns"`
	Values  [][]*float64 `json:"values"`
}

type CohortSummary struct {
	TotalCustomers         int     `json:"total_customers"`
	TotalRevenue           float64 `json:"total_revenue"`
	AvgRevenuePerCustomer  float64 `json:"avg_revenue_per_customer"`
	NumCohorts             int     `json:"num_cohorts"`
	AvgThreeMonthRetention float64 `json:"avg_3_month_retention"`
	AvgSixMonthRetention   float64 `json:"avg_6_month_retention"`
}
