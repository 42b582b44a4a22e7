package semantic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salla-analytics/internal/models"
)

func TestJoinLocations_PointInTime(t *testing.T) {
	customers := []models.CustomerVersion{
		version("c1", "B", "2023-06-01", ""),
		version("c1", "A", "2023-01-01", "2023-06-01"),
	}

	tests := []struct {
		name  string
		at    string
		state string
		found bool
	}{
		{"inside first version", "2023-03-15", "A", true},
		{"inside open-ended version", "2023-07-01", "B", true},
		{"start of interval is inclusive", "2023-01-01 00:00:00", "A", true},
		{"end of interval is exclusive", "2023-06-01 00:00:00", "B", true},
		{"before any version", "2022-12-31 23:59:59", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			facts := []models.OrderItem{item("o1", "p1", "s1", "c1", tt.at, 1, 10, 0)}
			joined := JoinLocations(facts, customers)
			if !tt.found {
				assert.Empty(t, joined)
				return
			}
			require.Len(t, joined, 1)
			assert.Equal(t, tt.state, joined[0].State)
		})
	}
}

func TestJoinLocations_GapBetweenVersions(t *testing.T) {
	customers := []models.CustomerVersion{
		version("c1", "A", "2023-01-01", "2023-03-01"),
		version("c1", "B", "2023-05-01", ""),
	}
	facts := []models.OrderItem{
		item("o1", "p1", "s1", "c1", "2023-04-01", 1, 10, 0),
		item("o2", "p1", "s1", "c1", "2023-05-02", 1, 10, 0),
	}

	joined := JoinLocations(facts, customers)

	require.Len(t, joined, 1)
	assert.Equal(t, "o2", joined[0].OrderID)
	assert.Equal(t, "B", joined[0].State)
}

func TestJoinLocations_UnknownCustomerDropped(t *testing.T) {
	facts := []models.OrderItem{item("o1", "p1", "s1", "ghost", "2023-04-01", 1, 10, 0)}
	assert.Empty(t, JoinLocations(facts, nil))
}

func TestJoinLocations_HistoricalAttributionInAggregates(t *testing.T) {
	facts, _, customers := sampleWarehouse()

	rows := TopProductsByRegion(facts, customers)

	byState := map[string]float64{}
	for _, r := range rows {
		if r.ProductID == "p1" {
			byState[r.CustomerState] += r.TotalRevenue
		}
	}
	// c1 bought p1 in January while in RJ and in July after moving to SP.
	assert.InDelta(t, 110.0, byState["RJ"], 1e-9)
	assert.InDelta(t, 110.0, byState["SP"], 1e-9)
	assert.InDelta(t, 110.0, byState["MG"], 1e-9)
}
