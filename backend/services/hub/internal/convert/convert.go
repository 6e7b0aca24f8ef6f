package convert

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Undefined is rendered for missing text values.
const Undefined = "UNDEF"

const earthRadiusKm = 6378.137

// TitleCase lowercases input, turns underscores into spaces and capitalises every word,
// hyphenated part and bracketed part: "CHECK_CONTROL-light (front)" → "Check Control-Light (Front)".
func TitleCase(input string) string {
	if input == "" {
		return TitleCase(Undefined)
	}
	if utf8.RuneCountInString(input) == 1 {
		return input
	}
	s := strings.ToLower(strings.ReplaceAll(input, "_", " "))
	for _, sep := range []string{" ", "-", "("} {
		s = capitalizeParts(s, sep)
	}
	return strings.TrimSpace(s)
}

func capitalizeParts(s, sep string) string {
	parts := strings.Split(s, sep)
	for i, p := range parts {
		parts[i] = CapitalizeFirst(p)
	}
	return strings.Join(parts, sep)
}

// CapitalizeFirst upper-cases the first rune.
func CapitalizeFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// DistanceKm is the haversine distance between two coordinates.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2) - toRad(lat1)
	dLon := toRad(lon2) - toRad(lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
