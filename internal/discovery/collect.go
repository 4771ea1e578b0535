package discovery

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/havenpaws/prospect-cli/internal/candidate"
	"github.com/havenpaws/prospect-cli/internal/planner"
	"github.com/havenpaws/prospect-cli/internal/source"
)

// searchQueries is the static query bank blended with the planner's
// output before the search stage runs.
var searchQueries = []string{
	"pet industry company CSR charitable giving program",
	"vegan brand corporate social responsibility animal welfare donation",
	"animal welfare corporate sponsor national",
	"pet food company philanthropy grant program",
	"dog rescue corporate partner USA",
	"cat shelter corporate donor sponsor program",
	"humane society corporate partner donation",
	"ASPCA corporate sponsor program",
	"Best Friends Animal Society corporate partner",
	"Unique local companies known to be charitable",
}

// collectTargetFor sizes the overall candidate budget from the requested
// limit: enough headroom for filtering to matter, capped at 1000.
func collectTargetFor(limit int) int {
	target := limit * 8
	if target < 120 {
		target = 120
	}
	if target > 1000 {
		target = 1000
	}
	return target
}

// perQueryTargetFor splits the collection budget across the static query
// bank, clamped into [10, 100] hits per query.
func perQueryTargetFor(collectTarget int) int {
	per := collectTarget/len(searchQueries) + 5
	if per < 10 {
		per = 10
	}
	if per > 100 {
		per = 100
	}
	return per
}

// collect runs every configured provider in order and returns the deduped
// union. Provider errors degrade to whatever was gathered; budget stops
// are surfaced as warnings and recorded on the result.
func (o *Orchestrator) collect(ctx context.Context, rp runParams, plan planner.Plan, origin *source.Origin, emit func(Event), res *Result) []candidate.Organization {
	collectTarget := collectTargetFor(rp.limit)
	req := source.Request{
		Queries:        planner.BuildQueries(searchQueries, plan, rp.loc.Query),
		LocationQuery:  rp.loc.Query,
		PerQueryTarget: perQueryTargetFor(collectTarget),
		CollectTarget:  collectTarget,
		Origin:         origin,
		RadiusMiles:    rp.radius,
		Deadline:       rp.dl,
	}

	var all []candidate.Organization
	for _, prov := range []source.Provider{o.sources.Seed, o.sources.Places, o.sources.Search, o.sources.Feed} {
		if prov == nil {
			continue
		}
		preq := req
		if prov == o.sources.Places {
			preq.Progress = placesProgress(emit)
		}

		r, err := prov.Collect(ctx, preq)
		if err != nil {
			o.log.Warn("source failed, continuing with remaining sources",
				zap.String("source", prov.Name()), zap.Error(err))
		}
		o.log.Info("source collected",
			zap.String("source", prov.Name()), zap.Int("candidates", len(r.Candidates)))
		all = append(all, r.Candidates...)

		for _, reason := range r.StopReasons {
			if !source.BudgetStop(reason) {
				o.log.Debug("source satisfied its collection target", zap.String("source", prov.Name()))
				continue
			}
			res.StoppedEarly = true
			res.StopReasons = append(res.StopReasons, reason)
			emit(Event{
				Step:         prov.Name(),
				Status:       StatusWarning,
				Message:      stopMessage(prov.Name(), reason),
				Progress:     stopProgress(prov.Name()),
				StoppedEarly: true,
				StopReason:   reason,
			})
		}
	}

	unique := candidate.Dedupe(all)
	emit(Event{
		Step:       "collecting_sources",
		Status:     StatusRunning,
		Message:    fmt.Sprintf("Collected %d unique candidates across discovery sources.", len(unique)),
		Progress:   50,
		Candidates: len(unique),
	})
	return unique
}

// placesProgress maps tile progress onto the 14-38 span of the run.
func placesProgress(emit func(Event)) source.ProgressFunc {
	return func(p source.Progress) {
		if p.TilesTotal <= 0 {
			return
		}
		pct := 14 + int(float64(p.TilesDone)/float64(p.TilesTotal)*24)
		emit(Event{
			Step:       "google_places",
			Status:     StatusRunning,
			Message:    fmt.Sprintf("Searched %d/%d map tiles (%d candidates so far)...", p.TilesDone, p.TilesTotal, p.Candidates),
			Progress:   pct,
			Candidates: p.Candidates,
		})
	}
}

func stopMessage(provider, reason string) string {
	label := "discovery source"
	switch provider {
	case "google_places":
		label = "Google Places"
	case "serpapi":
		label = "SerpAPI"
	case "feed_import":
		label = "feed import"
	}

	var cause string
	switch reason {
	case source.StopGlobalDeadline:
		cause = "global time budget reached"
	case source.StopSearchDeadline, source.StopPlacesDeadline:
		cause = "stage time budget reached"
	case source.StopSearchFailures:
		cause = "repeated query failures"
	case source.StopTileErrors:
		cause = "repeated tile errors"
	default:
		cause = reason
	}
	return fmt.Sprintf("Stopped %s early (%s). Continuing with collected candidates.", label, cause)
}

// stopProgress pins warnings to the stage's checkpoint so progress stays
// monotonic across providers.
func stopProgress(provider string) int {
	switch provider {
	case "google_places":
		return 38
	case "serpapi":
		return 40
	default:
		return 50
	}
}
