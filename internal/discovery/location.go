package discovery

import (
	"regexp"
	"strings"
)

// stateAbbrs covers the 50 states plus DC.
var stateAbbrs = map[string]bool{
	"AL": true, "AK": true, "AZ": true, "AR": true, "CA": true, "CO": true,
	"CT": true, "DE": true, "FL": true, "GA": true, "HI": true, "ID": true,
	"IL": true, "IN": true, "IA": true, "KS": true, "KY": true, "LA": true,
	"ME": true, "MD": true, "MA": true, "MI": true, "MN": true, "MS": true,
	"MO": true, "MT": true, "NE": true, "NV": true, "NH": true, "NJ": true,
	"NM": true, "NY": true, "NC": true, "ND": true, "OH": true, "OK": true,
	"OR": true, "PA": true, "RI": true, "SC": true, "SD": true, "TN": true,
	"TX": true, "UT": true, "VT": true, "VA": true, "WA": true, "WV": true,
	"WI": true, "WY": true, "DC": true,
}

var (
	zipInputRe   = regexp.MustCompile(`^\d{5}(?:-\d{4})?$`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// searchLocation is the parsed form of the user's location input.
type searchLocation struct {
	Raw   string
	City  string
	State string
	Zip   string
	// Query is the geocodable normalization: "City, ST" or the ZIP.
	Query string
}

// parseLocation understands "City ST", "City, ST" and ZIP input. A
// trailing token matching a state abbreviation splits city from state;
// anything else is treated as a city name.
func parseLocation(value string) searchLocation {
	raw := strings.TrimSpace(value)
	loc := searchLocation{Raw: raw}
	if raw == "" {
		return loc
	}

	if zipInputRe.MatchString(raw) {
		loc.Zip = raw[:5]
		loc.Query = loc.Zip
		return loc
	}

	normalized := strings.TrimSpace(whitespaceRe.ReplaceAllString(strings.ReplaceAll(raw, ",", " "), " "))
	parts := strings.Split(normalized, " ")
	if last := strings.ToUpper(parts[len(parts)-1]); len(parts) >= 2 && stateAbbrs[last] {
		loc.State = last
		loc.City = strings.TrimSpace(strings.Join(parts[:len(parts)-1], " "))
	} else {
		loc.City = normalized
	}

	var q []string
	if loc.City != "" {
		q = append(q, loc.City)
	}
	if loc.State != "" {
		q = append(q, loc.State)
	}
	loc.Query = strings.Join(q, ", ")
	return loc
}
