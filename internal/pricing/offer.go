// Package pricing holds the offer aggregation core: normalization,
// deduplication, price bucketing, and trend aggregation. Everything here is
// pure computation over in-memory data; callers own persistence and HTTP.
package pricing

import "time"

// StrainType classifies a product's strain.
type StrainType string

const (
	StrainIndica  StrainType = "indica"
	StrainSativa  StrainType = "sativa"
	StrainHybrid  StrainType = "hybrid"
	StrainUnknown StrainType = "unknown"
)

// ParseStrainType maps free-form input to a StrainType, defaulting to unknown.
func ParseStrainType(s string) StrainType {
	switch StrainType(s) {
	case StrainIndica, StrainSativa, StrainHybrid:
		return StrainType(s)
	default:
		return StrainUnknown
	}
}

// PriceBucket is a relative price tier of an offer against its peer group.
type PriceBucket string

const (
	BucketSuperDeal PriceBucket = "super_okazja"
	BucketDeal      PriceBucket = "okazja"
	BucketNormal    PriceBucket = "normalnie"
	BucketExpensive PriceBucket = "drogo"
	BucketUnknown   PriceBucket = "unknown"
)

// RawOffer is an offer record as it arrives from the scrape store or a file
// import, before validation. Price is a pointer so a missing price is
// distinguishable from zero.
type RawOffer struct {
	Pharmacy     string
	Address      string
	Price        *float64
	PricePerGram *float64
	Unit         string
	PharmacyLat  *float64
	PharmacyLon  *float64
	Rating       *float64
	Expiration   string
	FetchedAt    time.Time
	MapURL       string
}

// Offer is a normalized, validated price listing at a specific pharmacy.
type Offer struct {
	Pharmacy     string    `json:"pharmacy"`
	Address      string    `json:"address,omitempty"`
	Price        float64   `json:"price"`
	PricePerGram *float64  `json:"price_per_g,omitempty"`
	Unit         string    `json:"unit,omitempty"`
	PharmacyLat  *float64  `json:"pharmacy_lat,omitempty"`
	PharmacyLon  *float64  `json:"pharmacy_lon,omitempty"`
	Rating       *float64  `json:"rating,omitempty"`
	Expiration   string    `json:"expiration,omitempty"`
	FetchedAt    time.Time `json:"fetched_at"`
	ShortExpiry  bool      `json:"short_expiry"`
	MapURL       string    `json:"map_url,omitempty"`
}

// Product owns zero or more offers.
type Product struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Label      string     `json:"label"`
	StrainType StrainType `json:"strain_type"`
	Unit       string     `json:"unit,omitempty"`
	THCContent *float64   `json:"thc_content,omitempty"`
	CBDContent *float64   `json:"cbd_content,omitempty"`
}

// TrendPoint is one historical price observation for a product.
type TrendPoint struct {
	FetchedAt time.Time `json:"fetched_at"`
	Price     float64   `json:"price"`
}

// EffectivePrice returns the per-gram price when known, otherwise the raw
// price. Every ranking, filtering, and display site uses this single
// derivation; nothing else may re-implement the fallback.
func EffectivePrice(o Offer) float64 {
	if o.PricePerGram != nil {
		return *o.PricePerGram
	}
	return o.Price
}
