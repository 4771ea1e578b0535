// Package discovery orchestrates a prospect discovery run: plan queries,
// collect candidates from every configured source under a shared time
// budget, dedupe, filter, and either preview the matches (dry run) or
// persist them with optional contact extraction.
//
// A started run degrades instead of failing: provider errors and budget
// exhaustion surface as warnings and stop reasons on the result, and
// per-record persistence errors are collected as issues while the batch
// continues.
package discovery

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/havenpaws/prospect-cli/internal/candidate"
	"github.com/havenpaws/prospect-cli/internal/contacts"
	"github.com/havenpaws/prospect-cli/internal/deadline"
	"github.com/havenpaws/prospect-cli/internal/planner"
	"github.com/havenpaws/prospect-cli/internal/source"
	"github.com/havenpaws/prospect-cli/internal/store"
	"github.com/havenpaws/prospect-cli/pkg/geocode"
)

// Event statuses.
const (
	StatusRunning   = "running"
	StatusWarning   = "warning"
	StatusCompleted = "completed"
)

// Event is one progress snapshot emitted while a run advances. Progress
// zero means "unchanged"; the first checkpoint a run emits is 2.
type Event struct {
	Step         string `json:"step"`
	Status       string `json:"status"`
	Message      string `json:"message"`
	Progress     int    `json:"progress,omitempty"`
	Candidates   int    `json:"candidates,omitempty"`
	Matched      int    `json:"matched,omitempty"`
	Saved        int    `json:"saved_count,omitempty"`
	StoppedEarly bool   `json:"stopped_early,omitempty"`
	StopReason   string `json:"stop_reason,omitempty"`
}

// ProgressFunc receives run progress events. May be nil.
type ProgressFunc func(Event)

// Params are the user-supplied inputs of one discovery run.
type Params struct {
	// Location is "City ST", "City, ST" or a 5-digit ZIP. Empty disables
	// location filtering.
	Location string `json:"location,omitempty"`
	// RadiusMiles bounds geo matching around the geocoded location. Zero
	// falls back to the configured default when a location is set.
	RadiusMiles float64 `json:"radius_miles,omitempty"`
	// Limit caps matched organizations, clamped into [1, 1000].
	Limit int `json:"limit,omitempty"`
	// MinScore accepts the 1-10 scraper scale or the 0-100 UI scale.
	MinScore int `json:"min_score,omitempty"`
	// Mode selects the candidate class: businesses, foundations,
	// nonprofits, wealth_related, or all.
	Mode string `json:"discovery_mode,omitempty"`
	// MaxRuntimeSeconds overrides the configured run budget.
	MaxRuntimeSeconds float64 `json:"max_runtime_seconds,omitempty"`
	// ExcludeKeys are stable record keys the caller has already seen.
	ExcludeKeys []string `json:"exclude_record_keys,omitempty"`
	// DryRun previews matches without writing anything.
	DryRun bool `json:"dry_run,omitempty"`
	// ExtractContacts chains contact extraction after persistence.
	ExtractContacts bool `json:"extract_contacts,omitempty"`
	// ContactPreview extracts per-org contact previews during a dry run.
	ContactPreview bool `json:"contact_preview,omitempty"`
}

// Validate rejects inputs no run could honor. Called synchronously before
// any job is created.
func (p Params) Validate() error {
	if p.RadiusMiles < 0 {
		return eris.New("discovery: radius_miles must not be negative")
	}
	if p.Limit < 0 {
		return eris.New("discovery: limit must not be negative")
	}
	if p.MinScore < 0 {
		return eris.New("discovery: min_score must not be negative")
	}
	if p.MaxRuntimeSeconds < 0 {
		return eris.New("discovery: max_runtime_seconds must not be negative")
	}
	return nil
}

// Filters echoes the effective run inputs back on the result.
type Filters struct {
	Location           string  `json:"location,omitempty"`
	RadiusMiles        float64 `json:"radius_miles,omitempty"`
	Limit              int     `json:"limit"`
	MinScore           int     `json:"min_score"`
	MinScoreNormalized int     `json:"min_score_normalized"`
	Mode               string  `json:"discovery_mode"`
	MaxRuntimeSeconds  float64 `json:"max_runtime_seconds"`
	ExcludedKeyCount   int     `json:"excluded_record_keys_count,omitempty"`
	DryRun             bool    `json:"dry_run"`
}

// SourceCount tracks one provider's contribution to a run.
type SourceCount struct {
	Matched int `json:"matched"`
	Saved   int `json:"saved"`
}

// Result is the outcome of one discovery run.
type Result struct {
	MatchedCount      int                      `json:"matched_count"`
	SavedCount        int                      `json:"saved_count"`
	Organizations     []candidate.Organization `json:"organizations"`
	Contacts          []contacts.Contact       `json:"contacts"`
	SavedOrgIDs       []string                 `json:"saved_org_ids,omitempty"`
	PerSource         map[string]SourceCount   `json:"source_breakdown"`
	Filters           Filters                  `json:"filters_applied"`
	Issues            []string                 `json:"issues,omitempty"`
	StoppedEarly      bool                     `json:"stopped_early,omitempty"`
	StopReasons       []string                 `json:"stop_reasons,omitempty"`
	PlanSource        string                   `json:"plan_source"`
	ContactsExtracted bool                     `json:"contacts_extracted"`
	DryRun            bool                     `json:"dry_run"`
}

// Extractor is the contact-extraction stage run for matched organizations.
type Extractor interface {
	Extract(ctx context.Context, req contacts.Request) []contacts.Contact
}

// Sources are the candidate providers in collection order: seed first,
// then geo-tiled places, web search, and the shelter feed. Nil providers
// are skipped, degrading that source to nothing.
type Sources struct {
	Seed   source.Provider
	Places source.Provider
	Search source.Provider
	Feed   source.Provider
}

// Options carry run defaults, normally taken from configuration.
type Options struct {
	// DefaultLimit applies when Params.Limit is zero.
	DefaultLimit int
	// DefaultRadius applies when a location is set without a radius.
	DefaultRadius float64
	// DefaultMinScore applies when Params.MinScore is zero.
	DefaultMinScore int
	// MaxRuntime is the default run budget.
	MaxRuntime time.Duration
}

// Orchestrator drives discovery runs end to end.
type Orchestrator struct {
	sources   Sources
	planner   *planner.Planner
	geocoder  geocode.Client
	store     store.Store
	extractor Extractor
	opts      Options
	log       *zap.Logger
}

// New builds an Orchestrator. planner, geocoder, store and extractor may
// each be nil; the affected stages degrade rather than fail.
func New(sources Sources, pl *planner.Planner, gc geocode.Client, st store.Store, ext Extractor, opts Options) *Orchestrator {
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = 100
	}
	if opts.DefaultRadius <= 0 {
		opts.DefaultRadius = 25
	}
	if opts.DefaultMinScore <= 0 {
		opts.DefaultMinScore = 1
	}
	if opts.MaxRuntime <= 0 {
		opts.MaxRuntime = 7 * time.Minute
	}
	return &Orchestrator{
		sources:   sources,
		planner:   pl,
		geocoder:  gc,
		store:     st,
		extractor: ext,
		opts:      opts,
		log:       zap.L().With(zap.String("component", "discovery")),
	}
}

// runParams are the normalized inputs a run executes with.
type runParams struct {
	loc         searchLocation
	radius      float64
	limit       int
	minScore    int
	rawMinScore int
	mode        candidate.Mode
	maxRuntime  time.Duration
	dl          deadline.Deadline
	excluded    map[string]bool
	dryRun      bool
	extract     bool
	preview     bool
}

func (o *Orchestrator) resolve(p Params) runParams {
	loc := parseLocation(p.Location)

	radius := p.RadiusMiles
	if radius == 0 && loc.Raw != "" {
		radius = o.opts.DefaultRadius
	}

	limit := p.Limit
	if limit == 0 {
		limit = o.opts.DefaultLimit
	}
	limit = candidate.NormalizeLimit(limit)

	rawMin := p.MinScore
	if rawMin == 0 {
		rawMin = o.opts.DefaultMinScore
	}

	maxRuntime := o.opts.MaxRuntime
	if p.MaxRuntimeSeconds > 0 {
		maxRuntime = time.Duration(p.MaxRuntimeSeconds * float64(time.Second))
	}
	if maxRuntime < 5*time.Second {
		maxRuntime = 5 * time.Second
	}

	excluded := make(map[string]bool, len(p.ExcludeKeys))
	for _, k := range p.ExcludeKeys {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			excluded[k] = true
		}
	}

	return runParams{
		loc:         loc,
		radius:      radius,
		limit:       limit,
		minScore:    candidate.Rescale(rawMin),
		rawMinScore: rawMin,
		mode:        candidate.ParseMode(p.Mode),
		maxRuntime:  maxRuntime,
		dl:          deadline.After(maxRuntime),
		excluded:    excluded,
		dryRun:      p.DryRun,
		extract:     p.ExtractContacts,
		preview:     p.ContactPreview,
	}
}

func (rp runParams) filters() Filters {
	return Filters{
		Location:           rp.loc.Raw,
		RadiusMiles:        rp.radius,
		Limit:              rp.limit,
		MinScore:           rp.rawMinScore,
		MinScoreNormalized: rp.minScore,
		Mode:               string(rp.mode),
		MaxRuntimeSeconds:  rp.maxRuntime.Seconds(),
		ExcludedKeyCount:   len(rp.excluded),
		DryRun:             rp.dryRun,
	}
}

// zeroSourceCounts pre-seeds every provider key so result consumers can
// rely on the full breakdown being present.
func zeroSourceCounts() map[string]SourceCount {
	return map[string]SourceCount{
		string(candidate.SourceSeed):    {},
		string(candidate.SourceSerpAPI): {},
		string(candidate.SourcePlaces):  {},
		string(candidate.SourceFeed):    {},
	}
}

func emitter(progress ProgressFunc) func(Event) {
	if progress == nil {
		return func(Event) {}
	}
	return func(ev Event) {
		if ev.Progress < 0 {
			ev.Progress = 0
		}
		if ev.Progress > 100 {
			ev.Progress = 100
		}
		progress(ev)
	}
}
