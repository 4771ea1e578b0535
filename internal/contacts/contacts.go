// Package contacts extracts donation-outreach contacts for discovered
// organizations. The pipeline per organization: optional people-search
// enrichment, a polite static scrape of the site's contact-ish pages, a
// headless-render fallback for JS-heavy sites, then merge, rank and
// discard. A contact with no email and no name is never emitted.
package contacts

import "strings"

// Confidence grades how much a contact record can be trusted.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Source identifies how a contact was obtained.
type Source string

const (
	// SourceEnriched marks contacts from the people-search API.
	SourceEnriched Source = "apollo"
	// SourceScraped marks contacts lifted from the organization's site.
	SourceScraped Source = "scraped"
	// SourceSynthetic marks best-guess addresses nothing on the site backed.
	SourceSynthetic Source = "synthetic"
)

// Contact is one outreach contact candidate for an organization.
type Contact struct {
	ID            string     `json:"id,omitempty" db:"id"`
	FullName      string     `json:"full_name,omitempty" db:"full_name"`
	Title         string     `json:"title,omitempty" db:"title"`
	Email         string     `json:"email,omitempty" db:"email"`
	Phone         string     `json:"phone,omitempty" db:"phone"`
	Confidence    Confidence `json:"confidence" db:"confidence"`
	Justification string     `json:"justification,omitempty" db:"justification"`
	Source        Source     `json:"source"`

	// OrgKey ties the contact back to its organization: the preview key in
	// dry runs, the stored id once persisted. OrgID is the persisted
	// organization row id, set just before a contact is saved.
	OrgID   string `json:"org_id,omitempty" db:"org_id"`
	OrgKey  string `json:"org_key,omitempty"`
	OrgName string `json:"organization_name,omitempty"`

	// RoleCategory buckets the title for review surfaces. Preview only.
	RoleCategory string `json:"category,omitempty"`
}

// priorityTitles is the role ladder scanned when scoring job titles.
// Earlier entries are more valuable outreach targets.
var priorityTitles = []string{
	"chief executive", "ceo", "president", "executive director",
	"director of development", "director of giving", "vp of csr",
	"philanthropy", "corporate responsibility", "community relations",
	"communications", "outreach", "donations", "grants", "foundation",
	"partnerships", "marketing director", "cmo",
}

// TitleScore rates a job title by the role ladder. The first ladder keyword
// found in the title decides the score; higher means more relevant. Titles
// matching nothing score zero.
func TitleScore(title string) int {
	t := strings.ToLower(title)
	for i, kw := range priorityTitles {
		if strings.Contains(t, kw) {
			return len(priorityTitles) - i
		}
	}
	return 0
}

// RoleFor buckets a raw job title into a user-facing contact category.
func RoleFor(title string) string {
	t := strings.ToLower(strings.TrimSpace(title))
	if t == "" {
		return "General Contact"
	}
	switch {
	case containsAny(t, "owner", "founder", "co-founder", "principal"):
		return "Business Owner"
	case containsAny(t, "philanthropy", "giving", "development", "donations", "grants", "foundation"):
		return "Giving Manager"
	case containsAny(t, "ceo", "chief executive", "president", "executive director", "director"):
		return "Executive Leader"
	case containsAny(t, "community", "outreach", "partnership", "communications", "marketing"):
		return "Community / Outreach Lead"
	}
	return "Prospective Contact"
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// rank orders merged contacts: enrichment-backed first, then email and
// phone presence, then title relevance capped so a grand title cannot
// outweigh a verified email.
func rank(c Contact) int {
	score := 0
	if c.Source == SourceEnriched {
		score += 5
	}
	if c.Email != "" {
		score += 3
	}
	if c.Phone != "" {
		score += 2
	}
	if ts := TitleScore(c.Title); ts > 5 {
		score += 5
	} else {
		score += ts
	}
	return score
}
