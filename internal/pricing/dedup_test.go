package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func offer(pharmacy string, price float64, expiration, mapURL string, fetched time.Time) Offer {
	return Offer{
		Pharmacy:   pharmacy,
		Price:      price,
		Expiration: expiration,
		MapURL:     mapURL,
		FetchedAt:  fetched,
	}
}

func TestDeduplicateFirstSeenWins(t *testing.T) {
	day1 := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 8, 2, 10, 0, 0, 0, time.UTC)

	first := offer("Apteka Pod Orłem", 45.50, "2026-12-01", "https://maps.example/1", day1)
	refetch := offer("Apteka Pod Orłem", 45.50, "2026-12-01", "https://maps.example/1", day2)
	other := offer("Apteka Słoneczna", 45.50, "2026-12-01", "https://maps.example/2", day1)

	out := Deduplicate([]Offer{first, refetch, other})

	require.Len(t, out, 2)
	// The later fetch must not override the earlier one.
	assert.Equal(t, day1, out[0].FetchedAt)
	assert.Equal(t, "Apteka Pod Orłem", out[0].Pharmacy)
	assert.Equal(t, "Apteka Słoneczna", out[1].Pharmacy)
}

func TestDeduplicateIdempotent(t *testing.T) {
	day := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	offers := []Offer{
		offer("A", 10, "2026-09-01", "m1", day),
		offer("A", 10, "2026-09-01", "m1", day),
		offer("B", 10, "2026-09-01", "m1", day),
		offer("A", 12, "2026-09-01", "m1", day),
	}

	once := Deduplicate(offers)
	twice := Deduplicate(once)
	assert.Equal(t, once, twice)
}

func TestDeduplicateExactPriceMatch(t *testing.T) {
	day := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	// Prices differing in the last bit are distinct offers, not duplicates.
	a := offer("A", 45.50, "2026-09-01", "m1", day)
	b := offer("A", 45.500000000001, "2026-09-01", "m1", day)

	out := Deduplicate([]Offer{a, b})
	assert.Len(t, out, 2)
}

func TestDeduplicateKeyUsesRawPrice(t *testing.T) {
	day := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	// Different package sizes with the same per-gram price are distinct
	// offers: 100 zł/10g and 200 zł/20g both work out to 10 zł/g.
	small := offer("A", 100, "2026-09-01", "m1", day)
	small.PricePerGram = fptr(10)
	large := offer("A", 200, "2026-09-01", "m1", day)
	large.PricePerGram = fptr(10)

	out := Deduplicate([]Offer{small, large})
	require.Len(t, out, 2, "equal per-gram prices must not collapse distinct raw prices")

	// The same raw price is the same offer even when the derived per-gram
	// values drifted between fetches.
	a := offer("A", 100, "2026-09-01", "m1", day)
	a.PricePerGram = fptr(4.5)
	b := offer("A", 100, "2026-09-01", "m1", day)
	b.PricePerGram = fptr(5.0)

	out = Deduplicate([]Offer{a, b})
	require.Len(t, out, 1)
	assert.Equal(t, 4.5, *out[0].PricePerGram, "first occurrence wins")
}

func TestDeduplicateEmptyAndSingle(t *testing.T) {
	assert.Empty(t, Deduplicate(nil))
	one := []Offer{offer("A", 10, "", "", time.Time{})}
	assert.Equal(t, one, Deduplicate(one))
}
