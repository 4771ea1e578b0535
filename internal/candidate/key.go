package candidate

import (
	"fmt"
	"strings"
)

// StableKey derives a deterministic identity key for a candidate so the same
// real-world organization collides across runs. A place id wins outright;
// otherwise the key is built from the lowercased identity fields.
func StableKey(o Organization) string {
	if id := strings.ToLower(strings.TrimSpace(o.PlaceID)); id != "" {
		return "organization|google_place|" + id
	}
	parts := []string{
		strings.ToLower(strings.TrimSpace(o.Name)),
		strings.ToLower(strings.TrimSpace(o.Website)),
		strings.ToLower(strings.TrimSpace(o.Address)),
		strings.ToLower(strings.TrimSpace(o.City)),
		strings.ToLower(strings.TrimSpace(o.State)),
	}
	return "organization|" + strings.Join(parts, "|")
}

// PreviewKey tags a dry-run candidate so reviewed imports can link contacts
// back to the organization they were previewed under.
func PreviewKey(idx int, o Organization) string {
	return fmt.Sprintf("org-preview-%d-%s", idx, o.Name)
}

// Dedupe drops candidates that repeat an earlier (name, website) pair,
// case-insensitively. The first occurrence wins, so callers should order
// sources by trust before deduping. Nameless candidates are dropped.
func Dedupe(orgs []Organization) []Organization {
	seen := make(map[[2]string]bool, len(orgs))
	out := make([]Organization, 0, len(orgs))
	for _, o := range orgs {
		name := strings.ToLower(strings.TrimSpace(o.Name))
		if name == "" {
			continue
		}
		key := [2]string{name, strings.ToLower(strings.TrimSpace(o.Website))}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, o)
	}
	return out
}

// SourceKey buckets a provenance label into one of the four reporting keys.
func SourceKey(s Source) string {
	v := string(s)
	switch {
	case strings.HasPrefix(v, "google_places"):
		return "google_places"
	case strings.HasPrefix(v, "serpapi"):
		return "serpapi"
	case strings.HasPrefix(v, "feed"):
		return "feed_import"
	default:
		return "seed"
	}
}

// CountBySource tallies candidates per reporting source key.
func CountBySource(orgs []Organization) map[string]int {
	counts := make(map[string]int, 4)
	for _, o := range orgs {
		counts[SourceKey(o.Source)]++
	}
	return counts
}
