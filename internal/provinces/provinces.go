// file: internal/provinces/provinces.go
// version: 1.0.0
// guid: 9c4a7e2b-6d1f-4b8c-9e3a-5f7b2d8c4a6e

package provinces

import "strings"

// cityToProvince maps known cities and common alias spellings to their
// canonical province name. Keys are lowercase.
var cityToProvince = map[string]string{
	"tehran":             "Tehran",
	"varamin":            "Tehran",
	"eslamshahr":         "Tehran",
	"shahriar":           "Tehran",
	"pakdasht":           "Tehran",
	"isfahan":            "Isfahan",
	"esfahan":            "Isfahan",
	"mashhad":            "Khorasan-e Razavi",
	"neyshabur":          "Khorasan-e Razavi",
	"nishapur":           "Khorasan-e Razavi",
	"sabzevar":           "Khorasan-e Razavi",
	"torbat-e heydarieh": "Khorasan-e Razavi",
	"shiraz":             "Fars",
	"tabriz":             "East Azerbaijan",
	"ahvaz":              "Khuzestan",
	"ahwaz":              "Khuzestan",
	"izeh":               "Khuzestan",
	"dezful":             "Khuzestan",
	"abadan":             "Khuzestan",
	"behbahan":           "Khuzestan",
	"andimeshk":          "Khuzestan",
	"kermanshah":         "Kermanshah",
	"javanrud":           "Kermanshah",
	"zahedan":            "Sistan va Baluchestan",
	"chabahar":           "Sistan va Baluchestan",
	"iranshahr":          "Sistan va Baluchestan",
	"khash":              "Sistan va Baluchestan",
	"saravan":            "Sistan va Baluchestan",
	"sanandaj":           "Kurdistan",
	"saqqez":             "Kurdistan",
	"marivan":            "Kurdistan",
	"rasht":              "Gilan",
	"lahijan":            "Gilan",
	"bandar anzali":      "Gilan",
	"karaj":              "Alborz",
	"qom":                "Qom",
	"arak":               "Markazi",
	"saveh":              "Markazi",
	"khomein":            "Markazi",
	"hamadan":            "Hamadan",
	"hamedan":            "Hamadan",
	"yazd":               "Yazd",
	"kerman":             "Kerman",
	"bam":                "Kerman",
	"jiroft":             "Kerman",
	"rafsanjan":          "Kerman",
	"sirjan":             "Kerman",
	"urmia":              "West Azerbaijan",
	"orumiyeh":           "West Azerbaijan",
	"mahabad":            "West Azerbaijan",
	"bukan":              "West Azerbaijan",
	"piranshahr":         "West Azerbaijan",
	"oshnavieh":          "West Azerbaijan",
	"bandar abbas":       "Hormozgan",
	"gorgan":             "Golestan",
	"sari":               "Mazandaran",
	"amol":               "Mazandaran",
	"babol":              "Mazandaran",
	"nowshahr":           "Mazandaran",
	"birjand":            "South Khorasan",
	"bojnurd":            "North Khorasan",
	"ilam":               "Ilam",
	"khorramabad":        "Lorestan",
	"bushehr":            "Bushehr",
	"semnan":             "Semnan",
	"shahr-e kord":       "Chaharmahal and Bakhtiari",
	"shahrekord":         "Chaharmahal and Bakhtiari",
	"farsan":             "Chaharmahal and Bakhtiari",
	"yasuj":              "Kohgiluyeh and Boyer-Ahmad",
	"zanjan":             "Zanjan",
	"ardabil":            "Ardabil",
	"qazvin":             "Qazvin",
}

// canonical maps lowercase province names to their canonical spelling.
var canonical = func() map[string]string {
	m := make(map[string]string)
	for _, prov := range cityToProvince {
		m[strings.ToLower(prov)] = prov
	}
	return m
}()

// Extract resolves a free-text location to a canonical province name.
// The location may be a province itself, a known city, or a longer
// string containing one ("Saqqez, Kurdistan Province"). Returns "" when
// nothing matches.
func Extract(location string) string {
	loc := strings.ToLower(strings.TrimSpace(location))
	if loc == "" {
		return ""
	}

	if prov, ok := canonical[loc]; ok {
		return prov
	}
	if prov, ok := cityToProvince[loc]; ok {
		return prov
	}

	// Substring match, longest key wins so "bandar abbas" beats "bam".
	best := ""
	bestProv := ""
	for city, prov := range cityToProvince {
		if strings.Contains(loc, city) && len(city) > len(best) {
			best, bestProv = city, prov
		}
	}
	for name, prov := range canonical {
		if strings.Contains(loc, name) && len(name) > len(best) {
			best, bestProv = name, prov
		}
	}
	return bestProv
}
