package discovery

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/havenpaws/prospect-cli/internal/candidate"
	"github.com/havenpaws/prospect-cli/internal/geo"
	"github.com/havenpaws/prospect-cli/internal/source"
)

// filter walks the deduped candidates cheapest-check-first: mode, score
// floor, location, then key exclusions, stopping at the requested limit.
// The global deadline is checked per candidate so a slow collection phase
// still yields partial matches.
func (o *Orchestrator) filter(cands []candidate.Organization, rp runParams, origin *source.Origin, existing map[string]bool, emit func(Event), res *Result) []candidate.Organization {
	matched := make([]candidate.Organization, 0, rp.limit)
	for _, org := range cands {
		if rp.dl.Expired() {
			res.StoppedEarly = true
			res.StopReasons = append(res.StopReasons, source.StopGlobalDeadline)
			emit(Event{
				Step:         "filtering",
				Status:       StatusWarning,
				Message:      "Global search time budget reached during filtering. Returning best partial results.",
				Progress:     62,
				StoppedEarly: true,
				StopReason:   source.StopGlobalDeadline,
			})
			break
		}
		if !candidate.MatchesMode(rp.mode, org) {
			continue
		}
		if candidate.Rescale(org.Score) < rp.minScore {
			continue
		}
		if !locationPasses(org, rp.loc, origin, rp.radius) {
			continue
		}
		key := candidate.StableKey(org)
		if existing[key] || rp.excluded[key] {
			continue
		}

		matched = append(matched, org)
		if n := len(matched); n == 1 || n%5 == 0 {
			emit(Event{
				Step:     "filtering",
				Status:   StatusRunning,
				Message:  fmt.Sprintf("Matched %d organization(s) so far...", n),
				Progress: 60,
				Matched:  n,
			})
		}
		if len(matched) >= rp.limit {
			o.log.Info("reached requested result limit during filtering", zap.Int("limit", rp.limit))
			break
		}
	}
	return matched
}

// locationPasses applies the location filter in decreasing order of
// evidence: haversine radius when coordinates exist, then the raw ZIP
// against postal/address/notes text, then structured city/state equality.
// Candidates with no structured location at all pass provisionally when
// their source query was location-scoped, else only when the notes text
// mentions the requested location.
func locationPasses(org candidate.Organization, loc searchLocation, origin *source.Origin, radiusMiles float64) bool {
	if loc.Raw == "" {
		return true
	}

	if origin != nil && radiusMiles > 0 && org.Latitude != nil && org.Longitude != nil {
		if geo.HaversineMiles(origin.Latitude, origin.Longitude, *org.Latitude, *org.Longitude) <= radiusMiles {
			return true
		}
	}

	city, state, postal := candidate.ExtractLocation(org)
	if loc.Zip != "" {
		searchable := strings.ToLower(postal + " " + org.Address + " " + org.Notes)
		return strings.Contains(searchable, strings.ToLower(loc.Zip))
	}

	if loc.City != "" && city != "" && !strings.EqualFold(city, loc.City) {
		return false
	}
	if loc.State != "" && state != "" && !strings.EqualFold(state, loc.State) {
		return false
	}
	if city != "" || state != "" {
		return true
	}
	if org.LocationHinted {
		return true
	}
	return strings.Contains(strings.ToLower(org.Notes), strings.ToLower(loc.Raw))
}
