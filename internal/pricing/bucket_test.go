package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func groupOf(prices ...float64) []Offer {
	offers := make([]Offer, len(prices))
	for i, p := range prices {
		offers[i] = Offer{Pharmacy: "Apteka", Price: p}
	}
	return offers
}

func TestGroupThresholdsTooFewOffers(t *testing.T) {
	_, ok := GroupThresholds(groupOf(30))
	assert.False(t, ok)
	_, ok = GroupThresholds(nil)
	assert.False(t, ok)

	assert.Equal(t, BucketUnknown, ClassifyOffer(groupOf(30), Offer{Price: 30}))
}

func TestGroupThresholdsQuartiles(t *testing.T) {
	// Five evenly spaced prices: quartiles land on 20/30/40.
	th, ok := GroupThresholds(groupOf(10, 20, 30, 40, 50))
	require.True(t, ok)
	assert.InDelta(t, 20, th.SuperDeal, 1e-9)
	assert.InDelta(t, 30, th.Deal, 1e-9)
	assert.InDelta(t, 40, th.Normal, 1e-9)
}

func TestClassifyPriceTiesGoToCheaperBucket(t *testing.T) {
	th := Thresholds{SuperDeal: 20, Deal: 30, Normal: 40}

	tests := []struct {
		price float64
		want  PriceBucket
	}{
		{15, BucketSuperDeal},
		{20, BucketSuperDeal}, // boundary tie -> cheaper bucket
		{25, BucketDeal},
		{30, BucketDeal},
		{35, BucketNormal},
		{40, BucketNormal},
		{41, BucketExpensive},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyPrice(tt.price, th, true), "price %v", tt.price)
	}
}

func TestClassifyOfferUsesEffectivePrice(t *testing.T) {
	group := groupOf(10, 20, 30, 40, 50)
	// Raw price is expensive but per-gram price is a super deal.
	target := Offer{Price: 100, PricePerGram: fptr(12)}
	assert.Equal(t, BucketSuperDeal, ClassifyOffer(group, target))
}
