package candidate

import (
	"regexp"
	"strings"
)

var (
	cityStateRe = regexp.MustCompile(`\b([A-Z][a-zA-Z]+(?:\s+[A-Z][a-zA-Z]+)*)\s*,\s*([A-Z]{2})\b`)
	zipRe       = regexp.MustCompile(`\b(\d{5})(?:-\d{4})?\b`)

	addressZipRe = regexp.MustCompile(`([A-Za-z .'-]+),\s*([A-Z]{2})\s+(\d{5})(?:-\d{4})?(?:,\s*USA)?$`)
	addressRe    = regexp.MustCompile(`([A-Za-z .'-]+),\s*([A-Z]{2})(?:,\s*USA)?$`)
)

// ParseAddress pulls city, state, and zip out of a US formatted address.
// Returns empty strings for parts it cannot identify.
func ParseAddress(formatted string) (city, state, postal string) {
	s := strings.TrimSpace(formatted)
	if s == "" {
		return "", "", ""
	}
	if m := addressZipRe.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1]), m[2], m[3]
	}
	if m := addressRe.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1]), m[2], ""
	}
	return "", "", ""
}

// ExtractLocation resolves the best-known city, state, and zip for a
// candidate. Structured fields win; otherwise free text in the address and
// notes is scanned for "City, ST" and five-digit zip patterns.
func ExtractLocation(o Organization) (city, state, postal string) {
	city = strings.TrimSpace(o.City)
	state = strings.TrimSpace(o.State)
	postal = strings.TrimSpace(o.PostalCode)

	blob := o.Address + " " + o.Notes
	if city == "" || state == "" {
		if m := cityStateRe.FindStringSubmatch(blob); m != nil {
			if city == "" {
				city = m[1]
			}
			if state == "" {
				state = m[2]
			}
		}
	}
	if postal == "" {
		if m := zipRe.FindStringSubmatch(blob); m != nil {
			postal = m[1]
		}
	}
	return city, strings.ToUpper(state), postal
}
