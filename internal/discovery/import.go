package discovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/havenpaws/prospect-cli/internal/candidate"
	"github.com/havenpaws/prospect-cli/internal/contacts"
	"github.com/havenpaws/prospect-cli/internal/deadline"
)

// Record types accepted by ImportReviewed.
const (
	RecordOrganization = "organization"
	RecordContact      = "contact"
)

// ReviewedRecord is one row of a reviewed dry-run payload: an organization
// or a contact the user selected for import. Scores arrive on the 0-100
// review scale and are rescaled before persistence.
type ReviewedRecord struct {
	RecordType string `json:"record_type"`
	RecordKey  string `json:"record_key,omitempty"`
	PreviewKey string `json:"preview_key,omitempty"`
	ID         string `json:"id,omitempty"`

	// Organization fields.
	Name          string   `json:"name,omitempty"`
	Website       string   `json:"website,omitempty"`
	Category      string   `json:"category,omitempty"`
	Score         int      `json:"donation_potential_score,omitempty"`
	Address       string   `json:"address,omitempty"`
	City          string   `json:"city,omitempty"`
	State         string   `json:"state,omitempty"`
	PostalCode    string   `json:"postal_code,omitempty"`
	Latitude      *float64 `json:"latitude,omitempty"`
	Longitude     *float64 `json:"longitude,omitempty"`
	Notes         string   `json:"notes,omitempty"`
	Justification string   `json:"justification,omitempty"`
	Source        string   `json:"source,omitempty"`

	// Contact fields.
	FullName      string `json:"full_name,omitempty"`
	Title         string `json:"title,omitempty"`
	Email         string `json:"email,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Confidence    string `json:"confidence,omitempty"`
	OrgPreviewKey string `json:"org_preview_key,omitempty"`

	// Organization context carried on contact rows so a contact-only
	// selection can still create its organization.
	OrganizationName       string `json:"organization_name,omitempty"`
	OrganizationWebsite    string `json:"organization_website,omitempty"`
	OrganizationAddress    string `json:"organization_address,omitempty"`
	OrganizationCity       string `json:"organization_city,omitempty"`
	OrganizationState      string `json:"organization_state,omitempty"`
	OrganizationPostalCode string `json:"organization_postal_code,omitempty"`
}

// organization converts a reviewed organization row back into the
// canonical candidate shape.
func (r ReviewedRecord) organization() candidate.Organization {
	category := candidate.Category(strings.TrimSpace(r.Category))
	if category == "" {
		category = candidate.CategoryOther
	}
	return candidate.Organization{
		ID:            r.ID,
		Name:          strings.TrimSpace(r.Name),
		Website:       r.Website,
		Category:      category,
		Score:         candidate.Rescale(r.Score),
		Address:       r.Address,
		City:          r.City,
		State:         r.State,
		PostalCode:    r.PostalCode,
		Latitude:      r.Latitude,
		Longitude:     r.Longitude,
		Notes:         r.Notes,
		Justification: r.Justification,
		Source:        candidate.Source(r.Source),
	}
}

// contactOrganization builds the minimal organization a contact-only
// selection is attached to.
func (r ReviewedRecord) contactOrganization() candidate.Organization {
	return candidate.Organization{
		Name:       strings.TrimSpace(r.OrganizationName),
		Website:    r.OrganizationWebsite,
		Category:   candidate.CategoryOther,
		Score:      candidate.Rescale(r.Score),
		Address:    r.OrganizationAddress,
		City:       r.OrganizationCity,
		State:      r.OrganizationState,
		PostalCode: r.OrganizationPostalCode,
	}
}

// ImportParams carry a reviewed dry-run payload back for persistence.
type ImportParams struct {
	Records           []ReviewedRecord `json:"records"`
	ExtractContacts   bool             `json:"extract_contacts,omitempty"`
	MaxRuntimeSeconds float64          `json:"max_runtime_seconds,omitempty"`
}

// ImportResult summarizes a reviewed-payload import.
type ImportResult struct {
	RequestedCount    int                      `json:"requested_count"`
	SavedCount        int                      `json:"saved_count"`
	SavedContactCount int                      `json:"saved_contact_count"`
	SavedOrgIDs       []string                 `json:"saved_org_ids,omitempty"`
	Organizations     []candidate.Organization `json:"organizations"`
	Contacts          []contacts.Contact       `json:"contacts"`
	PerSource         map[string]SourceCount   `json:"source_breakdown"`
	ContactsExtracted bool                     `json:"contacts_extracted"`
	Issues            []string                 `json:"issues,omitempty"`
}

// ImportReviewed persists a reviewed dry-run payload: organizations first,
// then the selected contacts, linked through preview keys where available.
// Per-record failures become issues; the batch always completes.
func (o *Orchestrator) ImportReviewed(ctx context.Context, p ImportParams, progress ProgressFunc) (*ImportResult, error) {
	if o.store == nil {
		return nil, eris.New("discovery: import requires a configured store")
	}

	emit := emitter(progress)

	var orgRecs, contactRecs []ReviewedRecord
	for _, r := range p.Records {
		switch strings.ToLower(strings.TrimSpace(r.RecordType)) {
		case RecordOrganization:
			if strings.TrimSpace(r.Name) != "" {
				orgRecs = append(orgRecs, r)
			}
		case RecordContact:
			contactRecs = append(contactRecs, r)
		}
	}

	res := &ImportResult{
		RequestedCount: len(orgRecs) + len(contactRecs),
		PerSource:      zeroSourceCounts(),
	}
	emit(Event{
		Step:     "import_prepare",
		Status:   StatusRunning,
		Message:  fmt.Sprintf("Preparing %d organizations and %d contacts for import...", len(orgRecs), len(contactRecs)),
		Progress: 5,
	})

	// Saved rows are registered under every identity the payload might use
	// to reference them from a contact row.
	orgByRef := make(map[string]candidate.Organization)

	emit(Event{
		Step:     "import_upserting",
		Status:   StatusRunning,
		Message:  fmt.Sprintf("Importing %d organization(s)...", len(orgRecs)),
		Progress: 15,
	})
	for i, rec := range orgRecs {
		org := rec.organization()
		row, err := o.store.UpsertOrganization(ctx, org)
		if err != nil {
			res.Issues = append(res.Issues, fmt.Sprintf("%s: %v", org.Name, err))
			o.log.Error("import upsert failed", zap.String("name", org.Name), zap.Error(err))
			emit(Event{
				Step:    "import_upserting",
				Status:  StatusWarning,
				Message: fmt.Sprintf("Issue importing %s: %v", org.Name, err),
				Saved:   len(res.Organizations),
			})
			continue
		}
		res.Organizations = append(res.Organizations, row)
		if row.ID != "" {
			res.SavedOrgIDs = append(res.SavedOrgIDs, row.ID)
		}
		for _, ref := range []string{rec.RecordKey, rec.PreviewKey, rec.ID, rec.Name} {
			if ref != "" {
				orgByRef[ref] = row
			}
		}
		sc := res.PerSource[candidate.SourceKey(candidate.Source(rec.Source))]
		sc.Saved++
		res.PerSource[candidate.SourceKey(candidate.Source(rec.Source))] = sc

		emit(Event{
			Step:     "import_upserting",
			Status:   StatusRunning,
			Message:  fmt.Sprintf("Imported %d/%d organizations...", i+1, len(orgRecs)),
			Progress: 15 + int(float64(i+1)/float64(len(orgRecs))*45),
			Saved:    len(res.Organizations),
		})
	}
	res.SavedCount = len(res.Organizations)

	emit(Event{
		Step:     "import_contacts",
		Status:   StatusRunning,
		Message:  fmt.Sprintf("Importing %d selected contact(s)...", len(contactRecs)),
		Progress: 65,
	})
	span := 20.0
	if p.ExtractContacts {
		span = 10.0
	}
	for i, rec := range contactRecs {
		if rec.Email == "" {
			continue
		}
		linked, err := o.linkContactOrg(ctx, rec, orgByRef)
		if err != nil {
			res.Issues = append(res.Issues, fmt.Sprintf("contact %s: %v", contactLabel(rec), err))
			continue
		}

		justification := rec.Notes
		if justification == "" {
			justification = rec.Justification
		}
		confidence := contacts.Confidence(rec.Confidence)
		if confidence == "" {
			confidence = contacts.ConfidenceLow
		}
		row, err := o.store.UpsertContact(ctx, contacts.Contact{
			FullName:      rec.FullName,
			Title:         rec.Title,
			Email:         rec.Email,
			Phone:         rec.Phone,
			Confidence:    confidence,
			Justification: justification,
			OrgID:         linked.ID,
			OrgName:       linked.Name,
		})
		if err != nil {
			res.Issues = append(res.Issues, fmt.Sprintf("contact %s: %v", contactLabel(rec), err))
			o.log.Error("import contact upsert failed", zap.String("email", rec.Email), zap.Error(err))
			continue
		}
		res.Contacts = append(res.Contacts, row)
		emit(Event{
			Step:     "import_contacts",
			Status:   StatusRunning,
			Message:  fmt.Sprintf("Imported %d/%d selected contacts...", i+1, len(contactRecs)),
			Progress: 65 + int(float64(i+1)/float64(len(contactRecs))*span),
		})
	}
	res.SavedContactCount = len(res.Contacts)

	if p.ExtractContacts && len(res.SavedOrgIDs) > 0 && o.extractor != nil {
		o.importExtraction(ctx, p, emit, res)
	}

	emit(Event{
		Step:     "complete",
		Status:   StatusCompleted,
		Message:  fmt.Sprintf("Imported %d organizations and %d contacts.", res.SavedCount, res.SavedContactCount),
		Progress: 100,
		Saved:    res.SavedCount,
	})
	return res, nil
}

// linkContactOrg resolves the organization a contact row belongs to,
// creating a minimal one when the payload selected a contact without its
// organization.
func (o *Orchestrator) linkContactOrg(ctx context.Context, rec ReviewedRecord, orgByRef map[string]candidate.Organization) (candidate.Organization, error) {
	for _, ref := range []string{rec.OrgPreviewKey, rec.OrganizationName} {
		if ref == "" {
			continue
		}
		if org, ok := orgByRef[ref]; ok {
			return org, nil
		}
	}
	if strings.TrimSpace(rec.OrganizationName) == "" {
		return candidate.Organization{}, eris.New("discovery: contact row references no organization")
	}

	row, err := o.store.UpsertOrganization(ctx, rec.contactOrganization())
	if err != nil {
		return candidate.Organization{}, eris.Wrap(err, "discovery: create organization for contact")
	}
	for _, ref := range []string{rec.OrgPreviewKey, rec.OrganizationName} {
		if ref != "" {
			orgByRef[ref] = row
		}
	}
	return row, nil
}

// importExtraction chains contact extraction for freshly imported
// organizations under its own run budget.
func (o *Orchestrator) importExtraction(ctx context.Context, p ImportParams, emit func(Event), res *ImportResult) {
	maxRuntime := o.opts.MaxRuntime
	if p.MaxRuntimeSeconds > 0 {
		maxRuntime = time.Duration(p.MaxRuntimeSeconds * float64(time.Second))
	}
	dl := deadline.After(maxRuntime)

	emit(Event{
		Step:     "import_contacts_extract",
		Status:   StatusRunning,
		Message:  fmt.Sprintf("Extracting contacts for %d imported organization(s)...", len(res.Organizations)),
		Progress: 88,
		Saved:    res.SavedCount,
	})

	found := o.extractor.Extract(ctx, contacts.Request{
		Orgs:           res.Organizations,
		Deadline:       dl,
		ExistingEmails: o.contactEmails(ctx),
	})
	for _, c := range found {
		if c.Email == "" {
			continue
		}
		c.OrgID = c.OrgKey
		row, err := o.store.UpsertContact(ctx, c)
		if err != nil {
			res.Issues = append(res.Issues, fmt.Sprintf("contact %s: %v", c.Email, err))
			continue
		}
		res.Contacts = append(res.Contacts, row)
	}
	res.SavedContactCount = len(res.Contacts)
	res.ContactsExtracted = true
	emit(Event{
		Step:     "import_contacts_extract",
		Status:   StatusRunning,
		Message:  "Contact extraction complete.",
		Progress: 97,
		Saved:    res.SavedCount,
	})
}

func contactLabel(rec ReviewedRecord) string {
	if rec.FullName != "" {
		return rec.FullName
	}
	if rec.Email != "" {
		return rec.Email
	}
	return "record"
}
