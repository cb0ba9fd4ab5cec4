package pricing

import "sort"

// Thresholds carry the bucket boundaries for one product group. A price at
// or below SuperDeal is a super_okazja, at or below Deal an okazja, at or
// below Normal normalnie, anything above is drogo.
type Thresholds struct {
	SuperDeal float64
	Deal      float64
	Normal    float64
}

// GroupThresholds derives bucket boundaries from the effective-price
// distribution of a normalized, deduplicated offer group. Boundaries sit at
// the quartiles, so tiers adapt to each product's price level instead of
// using absolute cutoffs. Fewer than 2 comparable offers yield no
// thresholds.
func GroupThresholds(offers []Offer) (Thresholds, bool) {
	if len(offers) < 2 {
		return Thresholds{}, false
	}
	prices := make([]float64, len(offers))
	for i, o := range offers {
		prices[i] = EffectivePrice(o)
	}
	sort.Float64s(prices)
	return Thresholds{
		SuperDeal: quantile(prices, 0.25),
		Deal:      quantile(prices, 0.50),
		Normal:    quantile(prices, 0.75),
	}, true
}

// ClassifyPrice places an effective price into a bucket. Boundary ties fall
// into the cheaper bucket (inclusive upper bounds).
func ClassifyPrice(price float64, t Thresholds, ok bool) PriceBucket {
	if !ok {
		return BucketUnknown
	}
	switch {
	case price <= t.SuperDeal:
		return BucketSuperDeal
	case price <= t.Deal:
		return BucketDeal
	case price <= t.Normal:
		return BucketNormal
	default:
		return BucketExpensive
	}
}

// ClassifyOffer buckets a target offer against its peer group.
func ClassifyOffer(group []Offer, target Offer) PriceBucket {
	t, ok := GroupThresholds(group)
	return ClassifyPrice(EffectivePrice(target), t, ok)
}

// quantile computes the q-quantile of sorted values with linear
// interpolation between closest ranks.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(pos)
	hi := lo + 1
	if hi >= len(sorted) {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
