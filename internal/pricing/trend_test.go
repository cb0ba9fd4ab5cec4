package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tp(day, hour int, price float64) TrendPoint {
	return TrendPoint{
		FetchedAt: time.Date(2026, 8, day, hour, 0, 0, 0, time.UTC),
		Price:     price,
	}
}

func TestAggregateTrendDailyMeans(t *testing.T) {
	// Two observations on day one, one on day two; input deliberately
	// unordered.
	summary := AggregateTrend([]TrendPoint{
		tp(2, 9, 5),
		tp(1, 9, 10),
		tp(1, 15, 20),
	})

	require.True(t, summary.HasData)
	require.Len(t, summary.Points, 2)
	assert.Equal(t, "2026-08-01", summary.Points[0].Date)
	assert.InDelta(t, 15, summary.Points[0].MeanPrice, 1e-9)
	assert.Equal(t, "2026-08-02", summary.Points[1].Date)
	assert.InDelta(t, 5, summary.Points[1].MeanPrice, 1e-9)
}

func TestAggregateTrendMinMaxOverRawPrices(t *testing.T) {
	summary := AggregateTrend([]TrendPoint{
		tp(1, 9, 10),
		tp(1, 15, 20), // daily mean 15, but raw max stays 20
		tp(2, 9, 5),
	})

	assert.InDelta(t, 5, summary.MinPrice, 1e-9)
	assert.InDelta(t, 20, summary.MaxPrice, 1e-9)
}

func TestAggregateTrendHistoricalLow(t *testing.T) {
	low := AggregateTrend([]TrendPoint{tp(1, 9, 3.0), tp(2, 9, 2.5), tp(3, 9, 2.5)})
	assert.True(t, low.IsHistoricalLow, "tie with global min counts as a historical low")

	notLow := AggregateTrend([]TrendPoint{tp(1, 9, 3.0), tp(2, 9, 2.5), tp(3, 9, 3.0)})
	assert.False(t, notLow.IsHistoricalLow)
}

func TestAggregateTrendLatestByFetchTimeNotDay(t *testing.T) {
	// The cheapest point is earlier the same day; the most recent raw point
	// decides the flag.
	summary := AggregateTrend([]TrendPoint{
		tp(1, 9, 2.0),
		tp(1, 18, 3.0),
	})
	assert.False(t, summary.IsHistoricalLow)
}

func TestAggregateTrendEmptyInput(t *testing.T) {
	summary := AggregateTrend(nil)
	assert.False(t, summary.HasData)
	assert.Empty(t, summary.Points)
}

func TestTrendFromOffersUsesEffectivePrice(t *testing.T) {
	offers := []Offer{
		{Price: 100, PricePerGram: fptr(4.5), FetchedAt: time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)},
		{Price: 30, FetchedAt: time.Date(2026, 8, 2, 9, 0, 0, 0, time.UTC)},
	}
	points := TrendFromOffers(offers)
	require.Len(t, points, 2)
	assert.Equal(t, 4.5, points[0].Price)
	assert.Equal(t, 30.0, points[1].Price)
}
