package discovery

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/havenpaws/prospect-cli/internal/candidate"
	"github.com/havenpaws/prospect-cli/internal/contacts"
	"github.com/havenpaws/prospect-cli/internal/planner"
	"github.com/havenpaws/prospect-cli/internal/source"
)

// Preview extraction is trimmed when little budget remains: under the
// trim window only the first few organizations are scanned.
const (
	previewPerOrgLimit = 5
	previewOrgCap      = 5
	previewTrimWindow  = 30 * time.Second
)

// Run executes one discovery run. The returned result is valid even when
// budgets trip mid-run; only invalid params produce an error.
func (o *Orchestrator) Run(ctx context.Context, p Params, progress ProgressFunc) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	emit := emitter(progress)
	emit(Event{Step: "starting", Status: StatusRunning, Message: "Preparing discovery filters...", Progress: 2})
	return o.execute(ctx, o.resolve(p), emit), nil
}

// execute drives the resolved run to completion.
func (o *Orchestrator) execute(ctx context.Context, rp runParams, emit func(Event)) *Result {
	res := &Result{
		PerSource: zeroSourceCounts(),
		Filters:   rp.filters(),
		DryRun:    rp.dryRun,
	}

	emit(Event{Step: "geocoding", Status: StatusRunning, Message: "Geocoding search origin...", Progress: 5})
	origin := o.geocodeOrigin(ctx, rp.loc)

	crit := planner.Criteria{
		Location:      rp.loc.Query,
		RadiusMiles:   rp.radius,
		MinScore:      rp.rawMinScore,
		DiscoveryMode: string(rp.mode),
	}
	plan := o.planner.Plan(ctx, crit)
	res.PlanSource = plan.Planner
	emit(Event{
		Step:     "planning",
		Status:   StatusRunning,
		Message:  fmt.Sprintf("Source targeting plan ready (%s).", plan.Planner),
		Progress: 8,
	})

	o.log.Info("discovery filters resolved",
		zap.String("location", rp.loc.Query),
		zap.Float64("radius_miles", rp.radius),
		zap.Int("limit", rp.limit),
		zap.Int("min_score", rp.minScore),
		zap.String("mode", string(rp.mode)),
		zap.Bool("geocoded", origin != nil),
		zap.String("planner", plan.Planner),
	)

	emit(Event{
		Step:     "collecting_sources",
		Status:   StatusRunning,
		Message:  fmt.Sprintf("Collecting candidates for mode '%s'...", rp.mode),
		Progress: 10,
	})
	cands := o.collect(ctx, rp, plan, origin, emit, res)

	existing := o.existingKeys(ctx)
	if len(existing) > 0 {
		emit(Event{
			Step:     "dedupe",
			Status:   StatusRunning,
			Message:  fmt.Sprintf("Loaded %d existing organizations for new-source dedupe.", len(existing)),
			Progress: 55,
		})
	}

	emit(Event{
		Step:       "filtering",
		Status:     StatusRunning,
		Message:    fmt.Sprintf("Filtering %d candidates by mode, score, and location.", len(cands)),
		Progress:   60,
		Candidates: len(cands),
	})
	matched := o.filter(cands, rp, origin, existing, emit, res)

	for i := range matched {
		matched[i].Justification, matched[i].AdditionalInfo = o.planner.JustifyOrg(ctx, matched[i], crit)
	}
	res.MatchedCount = len(matched)
	for key, n := range candidate.CountBySource(matched) {
		sc := res.PerSource[key]
		sc.Matched = n
		res.PerSource[key] = sc
	}
	emit(Event{
		Step:     "filtered",
		Status:   StatusRunning,
		Message:  fmt.Sprintf("%d organizations matched the search criteria.", len(matched)),
		Progress: 62,
		Matched:  len(matched),
	})

	if rp.dryRun {
		o.preview(ctx, matched, rp, plan, emit, res)
		emit(Event{Step: "finalizing", Status: StatusRunning, Message: "Finalizing discovery results...", Progress: 97})
		emit(Event{
			Step:     "complete",
			Status:   StatusCompleted,
			Message:  fmt.Sprintf("Dry run complete with %d matched organizations.", len(matched)),
			Progress: 100,
			Matched:  len(matched),
		})
		return res
	}

	o.persist(ctx, matched, rp, plan, emit, res)
	emit(Event{Step: "finalizing", Status: StatusRunning, Message: "Finalizing discovery results...", Progress: 97})
	emit(Event{
		Step:     "complete",
		Status:   StatusCompleted,
		Message:  fmt.Sprintf("Discovery finished. Imported %d of %d matched organizations.", res.SavedCount, len(matched)),
		Progress: 100,
		Matched:  len(matched),
		Saved:    res.SavedCount,
	})
	return res
}

// geocodeOrigin resolves the search center. Failures fall back to text
// location matching rather than aborting.
func (o *Orchestrator) geocodeOrigin(ctx context.Context, loc searchLocation) *source.Origin {
	if loc.Query == "" || o.geocoder == nil {
		return nil
	}
	res, err := o.geocoder.Geocode(ctx, loc.Query)
	if err != nil {
		o.log.Warn("geocoding failed, falling back to text location matching",
			zap.String("query", loc.Query), zap.Error(err))
		return nil
	}
	if res == nil || !res.Matched {
		o.log.Info("location did not geocode, using text location matching", zap.String("query", loc.Query))
		return nil
	}
	return &source.Origin{Latitude: res.Latitude, Longitude: res.Longitude}
}

func (o *Orchestrator) existingKeys(ctx context.Context) map[string]bool {
	if o.store == nil {
		return nil
	}
	keys, err := o.store.ListOrganizationKeys(ctx)
	if err != nil {
		o.log.Warn("loading existing organization keys failed, skipping new-source dedupe", zap.Error(err))
		return nil
	}
	return keys
}

func (o *Orchestrator) contactEmails(ctx context.Context) map[string]bool {
	if o.store == nil {
		return nil
	}
	emails, err := o.store.ListContactEmails(ctx)
	if err != nil {
		o.log.Warn("loading existing contact emails failed, extraction may resurface known contacts", zap.Error(err))
		return nil
	}
	return emails
}

// preview attaches preview keys to the matched organizations and, when
// requested, extracts per-org contact previews under the remaining budget.
func (o *Orchestrator) preview(ctx context.Context, matched []candidate.Organization, rp runParams, plan planner.Plan, emit func(Event), res *Result) {
	for i := range matched {
		if matched[i].PreviewKey == "" {
			matched[i].PreviewKey = candidate.PreviewKey(i, matched[i])
		}
	}
	res.Organizations = matched

	if !rp.preview || o.extractor == nil || len(matched) == 0 {
		return
	}
	if rp.dl.Expired() {
		res.StoppedEarly = true
		res.StopReasons = append(res.StopReasons, source.StopGlobalDeadline)
		emit(Event{
			Step:         "contacts_preview",
			Status:       StatusWarning,
			Message:      "Skipped contact preview extraction (global time budget reached).",
			Progress:     90,
			StoppedEarly: true,
			StopReason:   source.StopGlobalDeadline,
		})
		return
	}

	orgs := matched
	if rp.dl.Remaining() < previewTrimWindow && len(orgs) > previewOrgCap {
		orgs = orgs[:previewOrgCap]
	}
	emit(Event{
		Step:     "contacts_preview",
		Status:   StatusRunning,
		Message:  fmt.Sprintf("Extracting contact previews for %d organizations...", len(orgs)),
		Progress: 70,
		Matched:  len(matched),
	})

	found := o.extractor.Extract(ctx, contacts.Request{
		Orgs:           orgs,
		Deadline:       rp.dl,
		PerOrgLimit:    previewPerOrgLimit,
		RoleTitles:     plan.RoleTargets,
		ExistingEmails: o.contactEmails(ctx),
		Preview:        true,
	})
	for i := range found {
		found[i].Justification = planner.ContactJustification(
			found[i].RoleCategory, found[i].Title, found[i].OrgName, string(found[i].Confidence))
	}
	res.Contacts = found
	res.ContactsExtracted = len(found) > 0
	emit(Event{
		Step:     "contacts_preview",
		Status:   StatusRunning,
		Message:  fmt.Sprintf("Extracted %d contact preview result(s).", len(found)),
		Progress: 90,
		Matched:  len(matched),
	})
}

// persist upserts matched organizations and optionally chains contact
// extraction for the saved rows. Per-record failures become issues.
func (o *Orchestrator) persist(ctx context.Context, matched []candidate.Organization, rp runParams, plan planner.Plan, emit func(Event), res *Result) {
	emit(Event{
		Step:     "upserting",
		Status:   StatusRunning,
		Message:  fmt.Sprintf("Importing %d matched organizations...", len(matched)),
		Progress: 65,
		Matched:  len(matched),
	})

	if o.store == nil {
		res.Issues = append(res.Issues, "store: not configured; organizations were not persisted")
		res.Organizations = matched
		return
	}

	// The upsert span runs to 90 normally, 70 when extraction follows.
	span := 25.0
	if rp.extract && o.extractor != nil {
		span = 5.0
	}

	saved := make([]candidate.Organization, 0, len(matched))
	for i, org := range matched {
		row, err := o.store.UpsertOrganization(ctx, org)
		if err != nil {
			res.Issues = append(res.Issues, fmt.Sprintf("%s: %v", org.Name, err))
			o.log.Error("organization upsert failed", zap.String("name", org.Name), zap.Error(err))
			emit(Event{
				Step:    "upserting",
				Status:  StatusWarning,
				Message: fmt.Sprintf("Issue importing %s: %v", org.Name, err),
				Saved:   len(saved),
				Matched: len(matched),
			})
			continue
		}
		saved = append(saved, row)
		if row.ID != "" {
			res.SavedOrgIDs = append(res.SavedOrgIDs, row.ID)
		}
		sc := res.PerSource[candidate.SourceKey(org.Source)]
		sc.Saved++
		res.PerSource[candidate.SourceKey(org.Source)] = sc

		emit(Event{
			Step:     "upserting",
			Status:   StatusRunning,
			Message:  fmt.Sprintf("Imported %d/%d organizations...", len(saved), len(matched)),
			Progress: 65 + int(float64(i+1)/float64(len(matched))*span),
			Saved:    len(saved),
			Matched:  len(matched),
		})
	}
	res.SavedCount = len(saved)
	res.Organizations = saved
	o.log.Info("discovery upserts complete", zap.Int("saved", len(saved)), zap.Int("matched", len(matched)))

	if !rp.extract || o.extractor == nil || len(saved) == 0 {
		return
	}

	emit(Event{
		Step:     "contacts",
		Status:   StatusRunning,
		Message:  fmt.Sprintf("Extracting contacts for %d discovered organizations...", len(saved)),
		Progress: 70,
		Saved:    len(saved),
	})
	res.Contacts = o.saveContacts(ctx, saved, rp, plan, res)
	res.ContactsExtracted = true
	emit(Event{
		Step:     "contacts",
		Status:   StatusRunning,
		Message:  "Contact extraction complete.",
		Progress: 90,
		Saved:    len(saved),
	})
}

// saveContacts extracts contacts for persisted organizations and upserts
// the ones carrying an email. The extractor keys each contact by the
// saved row's id, which is exactly the org reference the store needs.
func (o *Orchestrator) saveContacts(ctx context.Context, orgs []candidate.Organization, rp runParams, plan planner.Plan, res *Result) []contacts.Contact {
	found := o.extractor.Extract(ctx, contacts.Request{
		Orgs:           orgs,
		Deadline:       rp.dl,
		RoleTitles:     plan.RoleTargets,
		ExistingEmails: o.contactEmails(ctx),
	})

	savedContacts := make([]contacts.Contact, 0, len(found))
	for _, c := range found {
		if c.Email == "" {
			continue
		}
		c.OrgID = c.OrgKey
		row, err := o.store.UpsertContact(ctx, c)
		if err != nil {
			label := c.FullName
			if label == "" {
				label = c.Email
			}
			res.Issues = append(res.Issues, fmt.Sprintf("contact %s: %v", label, err))
			o.log.Error("contact upsert failed", zap.String("email", c.Email), zap.Error(err))
			continue
		}
		savedContacts = append(savedContacts, row)
	}
	o.log.Info("contact extraction saved", zap.Int("contacts", len(savedContacts)), zap.Int("extracted", len(found)))
	return savedContacts
}
