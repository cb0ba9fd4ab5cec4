package pricing

import "sort"

// DailyPoint is the arithmetic mean of all prices observed on one UTC
// calendar day.
type DailyPoint struct {
	Date      string  `json:"date"`
	MeanPrice float64 `json:"mean_price"`
}

// TrendSummary is the derived price history of a product. When HasData is
// false the consumer must render an explicit no-data state; MinPrice,
// MaxPrice, and IsHistoricalLow are meaningless then.
type TrendSummary struct {
	Points          []DailyPoint `json:"points"`
	MinPrice        float64      `json:"min_price"`
	MaxPrice        float64      `json:"max_price"`
	IsHistoricalLow bool         `json:"is_historical_low"`
	HasData         bool         `json:"has_data"`
}

// AggregateTrend groups price observations by UTC calendar day and computes
// the daily mean, the global min/max over the raw prices (chart axis
// scaling), and whether the most recent raw observation is a historical low
// (at or below the global minimum; ties count).
func AggregateTrend(points []TrendPoint) TrendSummary {
	if len(points) == 0 {
		return TrendSummary{}
	}

	type bucket struct {
		sum   float64
		count int
	}
	days := make(map[string]*bucket)

	min, max := points[0].Price, points[0].Price
	latest := points[0]
	for _, p := range points {
		day := p.FetchedAt.UTC().Format("2006-01-02")
		b := days[day]
		if b == nil {
			b = &bucket{}
			days[day] = b
		}
		b.sum += p.Price
		b.count++

		if p.Price < min {
			min = p.Price
		}
		if p.Price > max {
			max = p.Price
		}
		if !p.FetchedAt.Before(latest.FetchedAt) {
			latest = p
		}
	}

	out := make([]DailyPoint, 0, len(days))
	for day, b := range days {
		out = append(out, DailyPoint{Date: day, MeanPrice: b.sum / float64(b.count)})
	}
	// ISO dates sort chronologically as strings.
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })

	return TrendSummary{
		Points:          out,
		MinPrice:        min,
		MaxPrice:        max,
		IsHistoricalLow: latest.Price <= min,
		HasData:         true,
	}
}

// TrendFromOffers projects offers onto trend points using the effective
// price, keeping trend and display consistent.
func TrendFromOffers(offers []Offer) []TrendPoint {
	points := make([]TrendPoint, 0, len(offers))
	for _, o := range offers {
		points = append(points, TrendPoint{FetchedAt: o.FetchedAt, Price: EffectivePrice(o)})
	}
	return points
}
