package models

type ProductRegionSales struct {
	ProductID     string  `json:"product_id"`
	CustomerState string  `json:"customer_state"`
	TotalRevenue  float64 `json:"total_revenue"`
	TotalQuantity int64   `json:"total_quantity"`
	NumOrders     int     `json:"num_orders"`
}

// ProductSales is a product total across every region.
type ProductSales struct {
	ProductID     string  `json:"product_id"`
	TotalRevenue  float64 `json:"total_revenue"`
	TotalQuantity int64   `json:"total_quantity"`
	NumOrders     int     `json:"num_orders"`
}

type CategorySales struct {
	Category          string  `json:"product_category_name"`
	TotalRevenue      float64 `json:"total_revenue"`
	TotalQuantity     int64   `json:"total_quantity"`
	NumOrders         int     `json:"num_orders"`
	NumUniqueProducts int     `json:"num_unique_products"`
}

type CategoryAverage struct {
	Category      string  `json:"product_category_name"`
	AvgSale       float64 `json:"avg_sale"`
	TotalRevenue  float64 `json:"total_revenue"`
	TotalQuantity int64   `json:"total_quantity"`
	NumOrders     int     `json:"num_orders"`
}

type StateCategorySales struct {
	CustomerState string  `json:"customer_state"`
	Category      string  `json:"product_category_name"`
	TotalRevenue  float64 `json:"total_revenue"`
	TotalQuantity int64   `json:"total_quantity"`
	NumOrders     int     `json:"num_orders"`
	RankInState   int     `json:"rank_in_state"`
}

type MonthlySales struct {
	YearMonth     string  `json:"year_month"`
	Year          string  `json:"year"`
	Quarter       string  `json:"quarter"`
	YearQuarter   string  `json:"year_quarter"`
	TotalRevenue  float64 `json:"total_revenue"`
	TotalQuantity int64   `json:"total_quantity"`
	NumOrders     int     `json:"num_orders"`
}

// PeriodSales is a quarterly or yearly rollup of MonthlySales.
type PeriodSales struct {
	Period        string  `json:"period"`
	TotalRevenue  float64 `json:"total_revenue"`
	TotalQuantity int64   `json:"total_quantity"`
	NumOrders     int     `json:"num_orders"`
}

type StoreDailySales struct {
	SellerID      string  `json:"seller_id"`
	AvgDailySales float64 `json:"avg_daily_sales"`
	TotalRevenue  float64 `json:"total_revenue"`
	DaysActive    int     `json:"days_active"`
	TotalOrders   int     `json:"total_orders"`
}

type StoreGrowth struct {
	SellerID         string  `json:"seller_id"`
	Month            string  `json:"month"`
	MonthlyRevenue   float64 `json:"monthly_revenue"`
	PrevMonth        string  `json:"prev_month"`
	PrevMonthRevenue float64 `json:"prev_month_revenue"`
	GrowthPct        float64 `json:"growth_pct"`
}

// GrowthReport holds the defined growth rows and how many month pairs were
// dropped because the previous month had zero revenue.
type GrowthReport struct {
	Rows      []StoreGrowth `json:"rows"`
	Undefined int           `json:"undefined_pairs"`
}

type CohortCell struct {
	CohortMonth           string  `json:"cohort_month"`
	CohortAge             int     `json:"cohort_age"`
	NumCustomers          int     `json:"num_customers"`
	NumOrders             int     `json:"num_orders"`
	TotalRevenue          float64 `json:"total_revenue"`
	AvgRevenuePerCustomer float64 `json:"avg_revenue_per_customer"`
}
