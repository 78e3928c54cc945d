package geo

import (
	"strings"

	"github.com/pariz/gountries"
)

var countryQuery = gountries.New()

// NormalizeAlpha2Code returns a normalized 2-letter ISO3166 code.
// Some databases return ZZ for unknown countries or use codes which
// are not ISO3166 (EU, AP, UK). Unknown codes become "".
func NormalizeAlpha2Code(alpha2 string) string {
	alpha2 = strings.ToUpper(strings.TrimSpace(alpha2))

	if len(alpha2) != 2 {
		return ""
	}

	switch alpha2 {
	case "ZZ", "AP", "EU":
		return ""
	case "YU":
		return "CS"
	case "FX":
		return "FR"
	case "UK":
		return "GB"
	}

	return alpha2
}

// CountryName returns a common English name of the country, like
// 'United Kingdom' for GB. Unknown codes give "".
func CountryName(alpha2 string) string {
	alpha2 = NormalizeAlpha2Code(alpha2)
	if alpha2 == "" {
		return ""
	}

	country, ok := countryQuery.Countries[alpha2]
	if !ok {
		return ""
	}

	return country.Name.BaseLang.Common
}
