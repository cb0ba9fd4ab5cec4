package pricing

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var labelNoise = strings.NewReplacer(
	"Marihuana Lecznicza Medyczna", "",
	"Cannabis", "",
	"Flos", "",
	"Medyczna", "",
)

var titleCaser = cases.Title(language.Polish)

// DeriveLabel turns a full registered product name into the short label the
// dashboard shows, stripping the marketing boilerplate every product name
// carries.
func DeriveLabel(name string) string {
	label := labelNoise.Replace(name)
	label = strings.Join(strings.Fields(label), " ")
	if label == "" {
		return name
	}
	return titleCaser.String(label)
}
