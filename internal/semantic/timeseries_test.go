package semantic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salla-analytics/internal/models"
)

func TestTimeSeriesSales(t *testing.T) {
	facts, _, _ := sampleWarehouse()

	rows := TimeSeriesSales(facts)

	require.Len(t, rows, 5)
	assert.Equal(t, models.MonthlySales{
		YearMonth: "2023-01", Year: "2023", Quarter: "Q1", YearQuarter: "2023-Q1",
		TotalRevenue: 275, TotalQuantity: 4, NumOrders: 2,
	}, rows[0])

	months := make([]string, 0, len(rows))
	for _, r := range rows {
		months = append(months, r.YearMonth)
	}
	assert.Equal(t, []string{"2023-01", "2023-02", "2023-03", "2023-04", "2023-07"}, months)
	assert.Equal(t, "2023-Q2", rows[3].YearQuarter)
	assert.Equal(t, "2023-Q3", rows[4].YearQuarter)
}

func TestTimeSeriesSales_MonthsAddUpToTotal(t *testing.T) {
	facts, _, _ := sampleWarehouse()

	var monthly, direct float64
	for _, r := range TimeSeriesSales(facts) {
		monthly += r.TotalRevenue
	}
	for _, f := range facts {
		direct += f.Revenue()
	}

	assert.InDelta(t, direct, monthly, 1e-9)
	assert.InDelta(t, 970.0, monthly, 1e-9)
}

func TestTimeSeriesSales_Empty(t *testing.T) {
	assert.Empty(t, TimeSeriesSales(nil))
}

func TestTopStoresByDailySales(t *testing.T) {
	facts, _, _ := sampleWarehouse()

	rows, err := TopStoresByDailySales(facts, 2)
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, "s1", rows[0].SellerID)
	assert.InDelta(t, 775.0/3, rows[0].AvgDailySales, 1e-9)
	assert.InDelta(t, 775.0, rows[0].TotalRevenue, 1e-9)
	assert.Equal(t, 3, rows[0].DaysActive)
	assert.Equal(t, 3, rows[0].TotalOrders)

	assert.Equal(t, models.StoreDailySales{
		SellerID: "s2", AvgDailySales: 70, TotalRevenue: 140, DaysActive: 2, TotalOrders: 2,
	}, rows[1])
}

func TestTopStoresByDailySales_SameDayCollapses(t *testing.T) {
	facts := []models.OrderItem{
		item("o1", "p1", "s1", "c1", "2023-05-01 08:00:00", 1, 40, 0),
		item("o2", "p1", "s1", "c2", "2023-05-01 20:00:00", 1, 60, 0),
	}

	rows, err := TopStoresByDailySales(facts, 10)
	require.NoError(t, err)

	require.Len(t, rows, 1)
	// a single active day averages to that day's total
	assert.Equal(t, 1, rows[0].DaysActive)
	assert.InDelta(t, 100.0, rows[0].AvgDailySales, 1e-9)
	assert.Equal(t, 2, rows[0].TotalOrders)
}

func TestTopStoresByDailySales_InvalidTopN(t *testing.T) {
	_, err := TopStoresByDailySales(nil, 0)
	assert.Error(t, err)
}
