package contacts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTitleScore_LadderOrder(t *testing.T) {
	chief := TitleScore("Chief Executive Officer")
	development := TitleScore("Director of Development")
	outreach := TitleScore("Outreach Coordinator")
	cmo := TitleScore("CMO")

	assert.Equal(t, 18, chief)
	assert.Greater(t, development, outreach)
	assert.Greater(t, outreach, cmo)
	assert.Equal(t, 1, cmo)
}

func TestTitleScore_NoMatch(t *testing.T) {
	assert.Equal(t, 0, TitleScore("Software Engineer"))
	assert.Equal(t, 0, TitleScore(""))
}

func TestTitleScore_CaseInsensitiveSubstring(t *testing.T) {
	assert.Equal(t, TitleScore("president"), TitleScore("Vice PRESIDENT of Operations"))
}

func TestRoleFor_Buckets(t *testing.T) {
	cases := map[string]string{
		"":                        "General Contact",
		"Owner":                   "Business Owner",
		"Co-Founder & CEO":        "Business Owner",
		"Director of Development": "Giving Manager",
		"Grants Administrator":    "Giving Manager",
		"Executive Director":      "Executive Leader",
		"President":               "Executive Leader",
		"Community Manager":       "Community / Outreach Lead",
		"Head Chef":               "Prospective Contact",
	}
	for title, want := range cases {
		assert.Equal(t, want, RoleFor(title), "title %q", title)
	}
}

func TestRank_OrdersByEvidence(t *testing.T) {
	enriched := Contact{Source: SourceEnriched, Email: "a@b.org", Phone: "1", Title: "CEO"}
	scrapedFull := Contact{Source: SourceScraped, Email: "a@b.org", Phone: "1", Title: "CEO"}
	emailOnly := Contact{Source: SourceScraped, Email: "a@b.org"}
	nameOnly := Contact{Source: SourceScraped, FullName: "Jo"}

	assert.Greater(t, rank(enriched), rank(scrapedFull))
	assert.Greater(t, rank(scrapedFull), rank(emailOnly))
	assert.Greater(t, rank(emailOnly), rank(nameOnly))
}

func TestRank_TitleContributionCapped(t *testing.T) {
	top := Contact{Title: "Chief Executive"}
	mid := Contact{Title: "Community Relations Manager"}
	// Both ladder scores exceed the cap, so the ranks tie.
	assert.Equal(t, rank(top), rank(mid))
}
