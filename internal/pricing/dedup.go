package pricing

import (
	"strconv"
	"strings"
)

// keySep cannot appear in pharmacy names or map URLs coming from the scrape
// store, so the concatenated key is unambiguous.
const keySep = "\x1f"

// DedupKey builds the composite identity of an offer: pharmacy, exact raw
// price, expiration string, and map reference. The raw price is the identity
// component, not the derived per-gram value, so packages of different sizes
// never collapse. Prices are rendered with the shortest exact representation
// so equality is bit-exact, not epsilon-based. Fetch timestamps are
// deliberately excluded: two offers with equal keys from different fetch
// cycles are the same physical offer.
func DedupKey(o Offer) string {
	return strings.Join([]string{
		o.Pharmacy,
		strconv.FormatFloat(o.Price, 'g', -1, 64),
		o.Expiration,
		o.MapURL,
	}, keySep)
}

// Deduplicate removes duplicate offers, preserving first-seen order. The
// first occurrence of each key wins; later fetches of the same offer do not
// override it. Applying Deduplicate twice yields the same result as once.
func Deduplicate(offers []Offer) []Offer {
	if len(offers) < 2 {
		return offers
	}
	seen := make(map[string]struct{}, len(offers))
	out := make([]Offer, 0, len(offers))
	for _, o := range offers {
		key := DedupKey(o)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, o)
	}
	return out
}
