package contacts

import (
	"context"
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/havenpaws/prospect-cli/internal/candidate"
	"github.com/havenpaws/prospect-cli/internal/deadline"
	"github.com/havenpaws/prospect-cli/pkg/peoplesearch"
	"github.com/havenpaws/prospect-cli/pkg/render"
)

// renderedMaxStaff caps staff lifted from a rendered page; rendered DOMs
// repeat card markup heavily and the tail is noise.
const renderedMaxStaff = 5

// Fetcher loads a parsed page politely. Implemented by fetcher.PageFetcher.
type Fetcher interface {
	FetchPage(ctx context.Context, pageURL string) (*goquery.Document, error)
}

// Options tunes the extraction pipeline. The optional clients degrade
// their stage to a no-op when nil.
type Options struct {
	// People is the enrichment client, nil when unconfigured.
	People peoplesearch.Client
	// Render is the headless-render fallback client, nil when disabled.
	Render render.Client
	// MaxSubpages caps internal pages fetched after the homepage.
	MaxSubpages int
	// MaxStaff caps staff entries harvested per page.
	MaxStaff int
	// Workers bounds parallel extraction across organizations.
	Workers int
}

// Extractor runs the contact pipeline for discovered organizations.
type Extractor struct {
	fetch Fetcher
	opts  Options
	log   *zap.Logger
}

// NewExtractor builds an extractor around a polite page fetcher.
func NewExtractor(fetch Fetcher, opts Options) *Extractor {
	if opts.MaxSubpages < 1 {
		opts.MaxSubpages = 6
	}
	if opts.MaxStaff < 1 {
		opts.MaxStaff = 10
	}
	if opts.Workers < 1 {
		opts.Workers = 4
	}
	return &Extractor{
		fetch: fetch,
		opts:  opts,
		log:   zap.L().With(zap.String("component", "contacts")),
	}
}

// Request is one batch extraction across organizations.
type Request struct {
	Orgs []candidate.Organization
	// Deadline is the run cutoff; organizations not started before it are
	// skipped and subpage scans stop at it.
	Deadline deadline.Deadline
	// PerOrgLimit caps contacts per organization when positive.
	PerOrgLimit int
	// RoleTitles filter the people-search stage; a built-in ladder applies
	// when empty.
	RoleTitles []string
	// ExistingEmails are already-persisted addresses, lowercased. Contacts
	// reusing one are dropped rather than resurfaced as new.
	ExistingEmails map[string]bool
	// Preview adds role categories for review surfaces.
	Preview bool
}

// Extract runs the pipeline for every organization, in parallel under the
// worker bound. Output keeps the input organization order; repeats of the
// same contact across organizations collapse to the first.
func (e *Extractor) Extract(ctx context.Context, req Request) []Contact {
	perOrg := make([][]Contact, len(req.Orgs))

	grp, grpCtx := errgroup.WithContext(ctx)
	grp.SetLimit(e.opts.Workers)
	for i, org := range req.Orgs {
		grp.Go(func() error {
			perOrg[i] = e.ExtractOrg(grpCtx, org, req)
			return nil
		})
	}
	_ = grp.Wait()

	var out []Contact
	seen := make(map[string]bool)
	for _, contacts := range perOrg {
		for _, c := range contacts {
			id := c.Email
			if id == "" {
				id = c.FullName
			}
			key := strings.ToLower(c.OrgKey + "|" + id + "|" + c.Title)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, c)
		}
	}
	return out
}

// ExtractOrg runs the full pipeline for a single organization: enrichment,
// static scrape, render fallback, synthetic guess, then merge, rank and
// discard.
func (e *Extractor) ExtractOrg(ctx context.Context, org candidate.Organization, req Request) []Contact {
	website := strings.TrimSpace(org.Website)
	if website == "" || req.Deadline.Expired() {
		return nil
	}

	octx, cancel := req.Deadline.Context(ctx)
	defer cancel()

	merged := e.enrich(octx, org, req.RoleTitles)

	scraped, reachable := e.scrapeSite(octx, website, req.Deadline)
	if len(scraped) == 0 && e.opts.Render != nil {
		scraped = e.scrapeRendered(octx, website)
	}
	if len(scraped) == 0 && reachable {
		scraped = syntheticGuess(website)
	}
	merged = append(merged, scraped...)

	merged = dedupeContacts(merged)
	sort.SliceStable(merged, func(i, j int) bool { return rank(merged[i]) > rank(merged[j]) })
	if req.PerOrgLimit > 0 && len(merged) > req.PerOrgLimit {
		merged = merged[:req.PerOrgLimit]
	}

	key := orgKey(org)
	var out []Contact
	for _, c := range merged {
		if c.Email == "" && c.FullName == "" {
			continue
		}
		if c.Email != "" && req.ExistingEmails[strings.ToLower(c.Email)] {
			continue
		}
		c.OrgKey = key
		c.OrgName = org.Name
		if req.Preview {
			c.RoleCategory = RoleFor(c.Title)
		}
		out = append(out, c)
	}

	if len(out) > 0 {
		e.log.Debug("contacts extracted",
			zap.String("org", org.Name),
			zap.Int("count", len(out)),
		)
	}
	return out
}

// defaultRoleTitles filter the people-search stage when the caller has no
// planned role targets.
var defaultRoleTitles = []string{
	"executive director", "director of development", "philanthropy",
	"community relations", "president", "ceo",
}

// enrich pulls role-filtered people from the enrichment API. Failures
// degrade to no enriched contacts; a missing email gets one best-effort
// verified-match attempt.
func (e *Extractor) enrich(ctx context.Context, org candidate.Organization, titles []string) []Contact {
	if e.opts.People == nil {
		return nil
	}
	if len(titles) == 0 {
		titles = defaultRoleTitles
	}
	domain := domainOf(org.Website)

	sreq := peoplesearch.SearchRequest{
		OrganizationName: org.Name,
		Titles:           titles,
		PerPage:          5,
	}
	if domain != "" {
		sreq.OrganizationDomains = []string{domain}
	}

	people, err := e.opts.People.SearchPeople(ctx, sreq)
	if err != nil {
		e.log.Debug("people search failed", zap.String("org", org.Name), zap.Error(err))
		return nil
	}

	var out []Contact
	for _, p := range people {
		if len(out) >= 5 {
			break
		}
		name := strings.TrimSpace(p.Name)
		if name == "" {
			name = strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
		}

		c := Contact{
			FullName: name,
			Title:    strings.TrimSpace(p.Title),
			Email:    strings.ToLower(strings.TrimSpace(p.Email)),
			Source:   SourceEnriched,
		}
		if c.Email == "" && p.FirstName != "" && p.LastName != "" && domain != "" {
			if match, merr := e.opts.People.MatchEmail(ctx, p.FirstName, p.LastName, domain); merr == nil && match != nil {
				c.Email = strings.ToLower(strings.TrimSpace(match.Email))
				c.Phone = match.Phone
			}
		}

		if c.Title != "" {
			c.Justification = "Listed by the people-search directory as " + c.Title + "."
		} else {
			c.Justification = "Listed by the people-search directory."
		}
		if c.Email != "" {
			c.Confidence = ConfidenceHigh
		} else {
			c.Confidence = ConfidenceMedium
		}
		out = append(out, c)
	}
	return out
}

// scrapeSite statically scans the homepage plus contact-ish subpages. The
// second return reports whether the homepage was reachable at all, which
// gates the synthetic fallback.
func (e *Extractor) scrapeSite(ctx context.Context, website string, dl deadline.Deadline) ([]Contact, bool) {
	home, err := e.fetch.FetchPage(ctx, website)
	if err != nil {
		e.log.Debug("homepage fetch failed", zap.String("url", website), zap.Error(err))
		return nil, false
	}

	ps := newPageScan()
	ps.scan(home, e.opts.MaxStaff)

	subpages := findSubpages(home, website)
	if len(subpages) > e.opts.MaxSubpages {
		subpages = subpages[:e.opts.MaxSubpages]
	}
	for _, page := range subpages {
		if dl.Expired() {
			break
		}
		doc, err := e.fetch.FetchPage(ctx, page)
		if err != nil {
			e.log.Debug("subpage fetch failed", zap.String("url", page), zap.Error(err))
			continue
		}
		ps.scan(doc, e.opts.MaxStaff)
	}

	return buildContacts(ps, staffJustification, "Best available contact email from website."), true
}

// scrapeRendered re-runs the page heuristics on headless-rendered HTML.
func (e *Extractor) scrapeRendered(ctx context.Context, website string) []Contact {
	html, err := e.opts.Render.Render(ctx, website)
	if err != nil {
		e.log.Debug("render fallback failed", zap.String("url", website), zap.Error(err))
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		e.log.Debug("parse rendered page failed", zap.String("url", website), zap.Error(err))
		return nil
	}

	ps := newPageScan()
	ps.scan(doc, renderedMaxStaff)

	return buildContacts(ps,
		func(title string) string {
			if title == "" {
				title = "key contact"
			}
			return "Identified on the JS-rendered page as " + title + "."
		},
		"Best available email from the JS-rendered page.")
}

func staffJustification(title string) string {
	if title == "" {
		title = "key contact"
	}
	return "Identified via staff/team page as " + title + ". Relevant role for donation outreach."
}

// buildContacts turns a page scan into contact records: one per named
// staff entry, or one generic record when only addresses were found.
func buildContacts(ps *pageScan, justify func(title string) string, genericJustification string) []Contact {
	if len(ps.staff) > 0 {
		var out []Contact
		seenNames := make(map[string]bool)
		for _, entry := range ps.staff {
			nameKey := strings.ToLower(strings.TrimSpace(entry.Name))
			if seenNames[nameKey] {
				continue
			}
			seenNames[nameKey] = true

			email := matchEmailToPerson(entry.Name, ps.emails)
			c := Contact{
				FullName:      entry.Name,
				Title:         entry.Title,
				Email:         email,
				Phone:         ps.phone,
				Justification: justify(entry.Title),
				Source:        SourceScraped,
			}
			if email != "" {
				c.Confidence = ConfidenceHigh
			} else {
				c.Confidence = ConfidenceMedium
			}
			out = append(out, c)
		}
		return out
	}

	if len(ps.emails) > 0 {
		return []Contact{{
			Title:         "General Contact",
			Email:         pickBestEmail(ps.emails),
			Phone:         ps.phone,
			Justification: genericJustification,
			Confidence:    ConfidenceLow,
			Source:        SourceScraped,
		}}
	}
	return nil
}

// syntheticGuess fabricates the mailbox most organizations route inbound
// mail through. Only used when a reachable site published nothing usable.
func syntheticGuess(website string) []Contact {
	domain := domainOf(website)
	if domain == "" {
		return nil
	}
	return []Contact{{
		Title:         "General Contact",
		Email:         "info@" + domain,
		Justification: "Best-guess mailbox for the organization's domain; the site published no contact details.",
		Confidence:    ConfidenceLow,
		Source:        SourceSynthetic,
	}}
}

// dedupeContacts drops repeats of the same (email, name, title) triple,
// first occurrence winning.
func dedupeContacts(list []Contact) []Contact {
	seen := make(map[[3]string]bool, len(list))
	out := list[:0]
	for _, c := range list {
		key := [3]string{
			strings.ToLower(c.Email),
			strings.ToLower(c.FullName),
			strings.ToLower(c.Title),
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}

// orgKey picks the strongest back-reference for a contact's organization.
func orgKey(o candidate.Organization) string {
	if o.PreviewKey != "" {
		return o.PreviewKey
	}
	if o.ID != "" {
		return o.ID
	}
	return candidate.StableKey(o)
}

// domainOf extracts the bare host from a website URL, tolerating scheme-less
// values.
func domainOf(website string) string {
	website = strings.TrimSpace(website)
	if website == "" {
		return ""
	}
	if !strings.Contains(website, "://") {
		website = "https://" + website
	}
	u, err := url.Parse(website)
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.ToLower(u.Host)
	if h, _, ok := strings.Cut(host, ":"); ok {
		host = h
	}
	return strings.TrimPrefix(host, "www.")
}
