// Package source implements the discovery providers that feed candidates
// into a run: the curated seed list, SerpAPI organic search, geo-tiled
// Google Places nearby search, and the shelter-listing feed.
//
// Providers degrade rather than fail: budget exhaustion is reported as a
// machine-readable stop reason on the result, and an error from Collect
// still carries whatever was gathered before the failure.
package source

import (
	"context"

	"github.com/havenpaws/prospect-cli/internal/candidate"
	"github.com/havenpaws/prospect-cli/internal/deadline"
)

// Stop reasons reported when a provider ends a stage before finishing its
// planned work.
const (
	StopGlobalDeadline = "global_deadline"
	StopSearchDeadline = "serpapi_stage_deadline"
	StopSearchFailures = "serpapi_failure_budget"
	StopPlacesDeadline = "google_places_stage_deadline"
	StopTileErrors     = "too_many_tile_errors"
	StopTargetReached  = "target_candidates_reached"
)

// BudgetStop reports whether reason represents an exhausted budget rather
// than a satisfied collection target. Only budget stops surface as
// stopped-early warnings.
func BudgetStop(reason string) bool {
	return reason != StopTargetReached
}

// Origin is a geocoded search center.
type Origin struct {
	Latitude  float64
	Longitude float64
}

// Progress is an incremental snapshot of provider work, emitted while a
// stage runs so the orchestrator can interpolate its percentage.
type Progress struct {
	TilesTotal int
	TilesDone  int
	Candidates int
}

// ProgressFunc receives provider progress snapshots. May be nil.
type ProgressFunc func(Progress)

// Request carries the per-run inputs providers draw from. Providers ignore
// fields they have no use for.
type Request struct {
	// Queries are the planned search queries, already location-scoped.
	Queries []string
	// LocationQuery is the normalized location text ("City, ST" or ZIP).
	LocationQuery string
	// PerQueryTarget caps how many hits one search query pulls.
	PerQueryTarget int
	// CollectTarget is the overall candidate budget for the run.
	CollectTarget int
	// Origin is the geocoded search center, nil when geocoding failed.
	Origin *Origin
	// RadiusMiles bounds the nearby search around Origin.
	RadiusMiles float64
	// Deadline is the global run cutoff shared by all stages.
	Deadline deadline.Deadline
	// Progress receives stage snapshots when non-nil.
	Progress ProgressFunc
}

// Result is one provider's contribution to a discovery run.
type Result struct {
	Candidates  []candidate.Organization
	StopReasons []string
}

// Provider collects raw candidates for one discovery source.
type Provider interface {
	// Name returns the reporting key used in per-source counts.
	Name() string
	// Collect gathers candidates for the request. Partial results are
	// valid even when an error is returned; budget stops are recorded in
	// Result.StopReasons, not as errors.
	Collect(ctx context.Context, req Request) (Result, error)
}

func (r Request) emit(p Progress) {
	if r.Progress != nil {
		r.Progress(p)
	}
}
