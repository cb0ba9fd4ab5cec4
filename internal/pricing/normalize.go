package pricing

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var gramsRe = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*g`)

// Normalizer canonicalizes raw offer records. It is the single source of
// truth for the per-gram price: when the unit string or the package-size
// table yields a gram count the per-gram price is derived from it, otherwise
// the field stays unset and callers fall back to the raw price via
// EffectivePrice.
type Normalizer struct {
	// PackageSizes maps product ID to package weight in grams, for products
	// whose unit string carries no weight.
	PackageSizes map[string]float64

	// ShortExpiryDays is the horizon within which an offer is flagged as
	// short-expiry. Zero disables the flag.
	ShortExpiryDays int

	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

// Normalize validates and canonicalizes a raw offer for the given product.
// It fails with ValidationError when the price is missing, negative, or not
// finite. No other side effects.
func (n *Normalizer) Normalize(productID string, raw RawOffer) (Offer, error) {
	if raw.Price == nil {
		return Offer{}, ValidationError{Field: "price", Reason: "missing"}
	}
	price := *raw.Price
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return Offer{}, ValidationError{Field: "price", Reason: "not finite"}
	}
	if price < 0 {
		return Offer{}, ValidationError{Field: "price", Reason: "negative"}
	}
	if raw.Pharmacy == "" {
		return Offer{}, ValidationError{Field: "pharmacy", Reason: "missing"}
	}

	o := Offer{
		Pharmacy:    raw.Pharmacy,
		Address:     raw.Address,
		Price:       price,
		Unit:        raw.Unit,
		PharmacyLat: raw.PharmacyLat,
		PharmacyLon: raw.PharmacyLon,
		Rating:      raw.Rating,
		Expiration:  raw.Expiration,
		FetchedAt:   raw.FetchedAt,
		MapURL:      raw.MapURL,
	}

	if raw.PricePerGram != nil {
		v := *raw.PricePerGram
		o.PricePerGram = &v
	} else if grams, ok := n.grams(productID, raw.Unit); ok && grams > 0 {
		perGram := price / grams
		o.PricePerGram = &perGram
	}

	o.ShortExpiry = n.shortExpiry(raw.Expiration)
	return o, nil
}

// grams extracts the package weight from the unit string, falling back to
// the per-product package-size table.
func (n *Normalizer) grams(productID, unit string) (float64, bool) {
	if m := gramsRe.FindStringSubmatch(unit); m != nil {
		v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
		if err == nil && v > 0 {
			return v, true
		}
	}
	if pkg, ok := n.PackageSizes[productID]; ok && pkg > 0 {
		return pkg, true
	}
	return 0, false
}

func (n *Normalizer) shortExpiry(expiration string) bool {
	if expiration == "" || n.ShortExpiryDays <= 0 {
		return false
	}
	exp, err := parseDate(expiration)
	if err != nil {
		return false
	}
	now := time.Now().UTC()
	if n.Now != nil {
		now = n.Now().UTC()
	}
	daysLeft := int(exp.Sub(now).Hours() / 24)
	return daysLeft <= n.ShortExpiryDays
}

// parseDate accepts the date formats the scrape store produces.
func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, ValidationError{Field: "expiration", Reason: "unparseable date: " + s}
}

// IsExpired reports whether the offer's expiration date lies before today.
// Offers without an expiration never expire.
func IsExpired(o Offer, now time.Time) bool {
	if o.Expiration == "" {
		return false
	}
	exp, err := parseDate(o.Expiration)
	if err != nil {
		return false
	}
	y1, m1, d1 := exp.Date()
	y2, m2, d2 := now.UTC().Date()
	expDay := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	today := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	return expDay.Before(today)
}
