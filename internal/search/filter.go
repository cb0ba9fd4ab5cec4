// Package search implements the ranker over an immutable offer corpus:
// AND-combined filters, stable multi-key sorting, pagination, and
// whole-set aggregates.
package search

import (
	"sort"

	"github.com/medcena/offer-service/internal/cities"
	"github.com/medcena/offer-service/internal/pricing"
)

// Sort keys and orders accepted by Filters.
const (
	SortByPrice    = "price"
	SortByRating   = "rating"
	SortByDistance = "distance"
	SortByName     = "name"

	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// DefaultLimit applies when a query specifies no limit. MaxLimit caps any
// requested page size.
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// AllSentinel is the "no filter" value for product name and strain type.
const AllSentinel = "all"

// Filters is a request-scoped, immutable query description. Nil pointer
// fields mean "not filtered". All bounds are inclusive.
type Filters struct {
	City        string
	ProductName string
	StrainType  string
	MaxPrice    *float64
	MinTHC      *float64
	MaxTHC      *float64
	MinCBD      *float64
	MaxCBD      *float64
	Radius      *float64
	Lat         *float64
	Lon         *float64
	SortBy      string
	SortOrder   string
	Limit       int
	Offset      int
}

// Validate checks ranges and enumerations, returning a ValidationError on
// the first violation.
func (f *Filters) Validate() error {
	if f.Lat != nil && (*f.Lat < -90 || *f.Lat > 90) {
		return pricing.ValidationError{Field: "lat", Reason: "must be between -90 and 90"}
	}
	if f.Lon != nil && (*f.Lon < -180 || *f.Lon > 180) {
		return pricing.ValidationError{Field: "lon", Reason: "must be between -180 and 180"}
	}
	if f.Radius != nil && *f.Radius <= 0 {
		return pricing.ValidationError{Field: "radius", Reason: "must be positive"}
	}
	if f.Radius != nil && (f.Lat == nil || f.Lon == nil) {
		return pricing.ValidationError{Field: "radius", Reason: "requires lat and lon"}
	}
	if f.Offset < 0 {
		return pricing.ValidationError{Field: "offset", Reason: "must be non-negative"}
	}
	if f.Limit < 0 {
		return pricing.ValidationError{Field: "limit", Reason: "must be non-negative"}
	}
	switch f.SortBy {
	case "", SortByPrice, SortByRating, SortByDistance, SortByName:
	default:
		return pricing.ValidationError{Field: "sort_by", Reason: "must be one of price, rating, distance, name"}
	}
	switch f.SortOrder {
	case "", OrderAsc, OrderDesc:
	default:
		return pricing.ValidationError{Field: "sort_order", Reason: "must be asc or desc"}
	}
	return nil
}

// withDefaults returns a copy with sort and paging defaults applied.
func (f Filters) withDefaults() Filters {
	if f.SortBy == "" {
		f.SortBy = SortByPrice
	}
	if f.SortOrder == "" {
		f.SortOrder = OrderAsc
	}
	if f.Limit == 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	return f
}

// radiusActive reports whether geographic filtering applies.
func (f Filters) radiusActive() bool {
	return f.Radius != nil && f.Lat != nil && f.Lon != nil
}

// ProductOffers pairs a product with its normalized, deduplicated offers in
// original fetch order.
type ProductOffers struct {
	Product pricing.Product
	Offers  []pricing.Offer
}

// Item is one matching offer row, flattened with its product for the
// search response.
type Item struct {
	ProductID      string              `json:"id"`
	ProductName    string              `json:"name"`
	StrainType     pricing.StrainType  `json:"strain_type"`
	THCContent     *float64            `json:"thc_content,omitempty"`
	CBDContent     *float64            `json:"cbd_content,omitempty"`
	Price          float64             `json:"price"`
	PriceBucket    pricing.PriceBucket `json:"price_bucket"`
	Distance       *float64            `json:"distance,omitempty"`
	Offer          pricing.Offer       `json:"offer"`
}

// Result is a page of matches plus aggregates computed over the entire
// filtered set, not just the returned page.
type Result struct {
	Items        []Item  `json:"products"`
	TotalCount   int     `json:"total_count"`
	AvgPrice     float64 `json:"avg_price"`
	LowestPrice  float64 `json:"lowest_price"`
	HighestPrice float64 `json:"highest_price"`
	Limit        int     `json:"limit"`
	Offset       int     `json:"offset"`
	SortBy       string  `json:"sort_by"`
	SortOrder    string  `json:"sort_order"`
}

// Run filters, sorts, and paginates the corpus. The corpus is treated as
// immutable; Run allocates its own result slices and never mutates input.
func Run(corpus []ProductOffers, f Filters) (Result, error) {
	if err := f.Validate(); err != nil {
		return Result{}, err
	}
	f = f.withDefaults()

	var items []Item
	for _, po := range corpus {
		if !matchProduct(po.Product, f) {
			continue
		}
		thresholds, hasThresholds := pricing.GroupThresholds(po.Offers)
		for _, o := range po.Offers {
			item, ok := matchOffer(po.Product, o, f)
			if !ok {
				continue
			}
			item.PriceBucket = pricing.ClassifyPrice(item.Price, thresholds, hasThresholds)
			items = append(items, item)
		}
	}

	res := Result{
		TotalCount: len(items),
		Limit:      f.Limit,
		Offset:     f.Offset,
		SortBy:     f.SortBy,
		SortOrder:  f.SortOrder,
	}
	aggregate(&res, items)
	sortItems(items, f.SortBy, f.SortOrder)

	start := f.Offset
	if start > len(items) {
		start = len(items)
	}
	end := start + f.Limit
	if end > len(items) {
		end = len(items)
	}
	res.Items = items[start:end]
	if res.Items == nil {
		res.Items = []Item{}
	}
	return res, nil
}

func matchProduct(p pricing.Product, f Filters) bool {
	if f.ProductName != "" && f.ProductName != AllSentinel &&
		cities.Fold(p.Name) != cities.Fold(f.ProductName) {
		return false
	}
	if f.StrainType != "" && f.StrainType != AllSentinel &&
		p.StrainType != pricing.ParseStrainType(f.StrainType) {
		return false
	}
	if f.MinTHC != nil && (p.THCContent == nil || *p.THCContent < *f.MinTHC) {
		return false
	}
	if f.MaxTHC != nil && (p.THCContent == nil || *p.THCContent > *f.MaxTHC) {
		return false
	}
	if f.MinCBD != nil && (p.CBDContent == nil || *p.CBDContent < *f.MinCBD) {
		return false
	}
	if f.MaxCBD != nil && (p.CBDContent == nil || *p.CBDContent > *f.MaxCBD) {
		return false
	}
	return true
}

// matchOffer applies the per-offer filters and fills in effective price and
// distance. Offers with out-of-range coordinates are skipped from radius
// filtering silently, per the error design.
func matchOffer(p pricing.Product, o pricing.Offer, f Filters) (Item, bool) {
	if f.City != "" && !cities.AddressMatches(o.Address, f.City) {
		return Item{}, false
	}

	effective := pricing.EffectivePrice(o)
	if f.MaxPrice != nil && effective > *f.MaxPrice {
		return Item{}, false
	}

	item := Item{
		ProductID:   p.ID,
		ProductName: p.Name,
		StrainType:  p.StrainType,
		THCContent:  p.THCContent,
		CBDContent:  p.CBDContent,
		Price:       effective,
		Offer:       o,
	}

	if f.Lat != nil && f.Lon != nil {
		dist, hasCoords, err := OfferDistanceKm(*f.Lat, *f.Lon, o)
		switch {
		case err != nil:
			// Broken coordinates: usable without a radius filter, excluded
			// with one.
			if f.radiusActive() {
				return Item{}, false
			}
		case hasCoords:
			item.Distance = &dist
			if f.radiusActive() && dist > *f.Radius {
				return Item{}, false
			}
		default:
			if f.radiusActive() {
				return Item{}, false
			}
		}
	}

	return item, true
}

func aggregate(res *Result, items []Item) {
	var sum float64
	var count int
	for _, it := range items {
		if it.Price <= 0 {
			continue
		}
		if count == 0 {
			res.LowestPrice = it.Price
			res.HighestPrice = it.Price
		}
		if it.Price < res.LowestPrice {
			res.LowestPrice = it.Price
		}
		if it.Price > res.HighestPrice {
			res.HighestPrice = it.Price
		}
		sum += it.Price
		count++
	}
	if count > 0 {
		res.AvgPrice = sum / float64(count)
	}
}

// sortItems orders by the requested key only; equal keys keep original
// fetch order so repeated identical queries paginate deterministically.
// Items without a computable distance always sort after those with one.
func sortItems(items []Item, sortBy, sortOrder string) {
	desc := sortOrder == OrderDesc

	less := func(i, j Item) (bool, bool) { // (less, ok); ok is false for equal keys
		switch sortBy {
		case SortByRating:
			ri, rj := i.Offer.Rating, j.Offer.Rating
			if ri == nil && rj == nil {
				return false, false
			}
			if ri == nil {
				return false, true // unrated last regardless of order
			}
			if rj == nil {
				return true, true
			}
			if *ri == *rj {
				return false, false
			}
			return *ri < *rj, true
		case SortByDistance:
			di, dj := i.Distance, j.Distance
			if di == nil && dj == nil {
				return false, false
			}
			if di == nil {
				return false, true
			}
			if dj == nil {
				return true, true
			}
			if *di == *dj {
				return false, false
			}
			return *di < *dj, true
		case SortByName:
			ni, nj := cities.Fold(i.ProductName), cities.Fold(j.ProductName)
			if ni == nj {
				return false, false
			}
			return ni < nj, true
		default: // SortByPrice
			if i.Price == j.Price {
				return false, false
			}
			return i.Price < j.Price, true
		}
	}

	sort.SliceStable(items, func(a, b int) bool {
		l, ok := less(items[a], items[b])
		if !ok {
			return false
		}
		// Missing rating/distance stays last even in descending order, so
		// only flip genuinely comparable pairs.
		if desc {
			onlyMissing := (sortBy == SortByRating && (items[a].Offer.Rating == nil || items[b].Offer.Rating == nil)) ||
				(sortBy == SortByDistance && (items[a].Distance == nil || items[b].Distance == nil))
			if !onlyMissing {
				l2, _ := less(items[b], items[a])
				return l2
			}
		}
		return l
	})
}
