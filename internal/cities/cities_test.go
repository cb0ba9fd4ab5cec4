package cities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Kraków", "krakow"},
		{"ŁÓDŹ", "lodz"},
		{"Gdańsk", "gdansk"},
		{"Częstochowa", "czestochowa"},
		{"Warszawa", "warszawa"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Fold(tt.input))
		})
	}
}

func TestAddressMatches(t *testing.T) {
	assert.True(t, AddressMatches("ul. Floriańska 12, Kraków", "Kraków"))
	assert.True(t, AddressMatches("ul. Florianska 12, KRAKOW", "Kraków"))
	assert.True(t, AddressMatches("Piotrkowska 1, Łódź", "Lodz"))
	assert.False(t, AddressMatches("ul. Długa 5, Gdańsk", "Kraków"))
	assert.False(t, AddressMatches("", "Kraków"))
}

func TestFromAddress(t *testing.T) {
	assert.Equal(t, "Kraków", FromAddress("ul. Floriańska 12, Kraków"))
	assert.Equal(t, "", FromAddress("ul. Nieznana 1, Pcim"))
}

func TestNamesReturnsCopy(t *testing.T) {
	names := Names()
	names[0] = "changed"
	assert.Equal(t, "Warszawa", List[0])
}
