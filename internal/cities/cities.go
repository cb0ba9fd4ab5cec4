// Package cities holds the configured city list and address matching used
// by search filters and per-city statistics.
package cities

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// List is the set of cities the scraper covers. Order is the display order.
var List = []string{
	"Warszawa",
	"Kraków",
	"Gdańsk",
	"Wrocław",
	"Poznań",
	"Łódź",
	"Katowice",
	"Szczecin",
	"Lublin",
	"Bydgoszcz",
	"Białystok",
	"Gdynia",
	"Częstochowa",
	"Radom",
	"Sosnowiec",
	"Toruń",
	"Kielce",
	"Rzeszów",
	"Gliwice",
	"Zabrze",
}

// Names returns a copy of the configured city names.
func Names() []string {
	out := make([]string, len(List))
	copy(out, List)
	return out
}

// Fold lowercases a string and strips Polish diacritics so that "Kraków",
// "KRAKOW" and "krakow" all compare equal.
func Fold(s string) string {
	// ł does not decompose under NFD, so map it explicitly.
	s = strings.NewReplacer("ł", "l", "Ł", "L").Replace(s)
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// AddressMatches reports whether a pharmacy address refers to the given
// city, comparing case- and diacritic-insensitively by substring, the same
// way the scrape store's street-level addresses embed city names.
func AddressMatches(address, city string) bool {
	if address == "" || city == "" {
		return false
	}
	return strings.Contains(Fold(address), Fold(city))
}

// FromAddress attributes an address to the first known city it mentions.
// Returns empty string when no configured city matches.
func FromAddress(address string) string {
	folded := Fold(address)
	for _, city := range List {
		if strings.Contains(folded, Fold(city)) {
			return city
		}
	}
	return ""
}
