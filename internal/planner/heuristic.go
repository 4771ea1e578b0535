package planner

import (
	"sort"

	"github.com/havenpaws/prospect-cli/internal/candidate"
)

// heuristicPlan is the always-available baseline plan derived from the
// discovery mode and search radius.
func heuristicPlan(c Criteria) Plan {
	mode := candidate.ParseMode(c.DiscoveryMode)

	sourceTypes := []string{"businesses", "foundations", "nonprofits", "grants"}
	switch mode {
	case candidate.ModeWealthRelated:
		sourceTypes = []string{"wealth_advisors", "businesses", "foundations"}
	case candidate.ModeNonprofits:
		sourceTypes = []string{"nonprofits", "foundations", "grants", "municipal_programs"}
	case candidate.ModeFoundations:
		sourceTypes = []string{"foundations", "grants", "municipal_programs"}
	case candidate.ModeAll:
		sourceTypes = []string{"businesses", "nonprofits", "foundations", "grants", "municipal_programs", "wealth_advisors"}
	}

	focus := []string{
		"animal welfare corporate sponsor program",
		"charitable giving foundation grants nonprofit",
		"community outreach donations local business",
		"gift card donation fundraiser local businesses",
		"in kind donation services nonprofit animal rescue",
		"raffle prize gift certificate donation local",
	}
	if c.RadiusMiles <= 15 {
		focus = append(focus, "local employer community giving")
	} else {
		focus = append(focus, "regional corporate philanthropy program")
	}

	buckets := []SourceBucket{
		{
			Bucket:   "corporate_sponsorships",
			Examples: []string{"banks", "real estate firms", "insurance agencies", "car dealerships"},
			Why:      "Local businesses with marketing budgets may support sponsorships and event underwriting.",
		},
		{
			Bucket:   "gift_cards_certificates",
			Examples: []string{"restaurants", "salons", "spas", "retail boutiques", "coffee shops"},
			Why:      "Useful for raffles, auctions, and event incentives even when cash giving is limited.",
		},
		{
			Bucket:   "in_kind_goods",
			Examples: []string{"pet supply stores", "hardware stores", "office supply stores", "grocery stores"},
			Why:      "Can provide supplies, prizes, food, and operational support items.",
		},
		{
			Bucket:   "in_kind_services",
			Examples: []string{"printers", "photographers", "marketing agencies", "landscapers", "cleaning services"},
			Why:      "Service donations reduce operating costs and support events/campaigns.",
		},
	}

	families := []QueryFamily{
		{
			Family: "sponsorships", ContributionMode: "sponsorships", Priority: 1,
			Queries: []string{"local business event sponsorship nonprofit", "community sponsor animal rescue fundraiser"},
		},
		{
			Family: "gift_cards_certificates", ContributionMode: "gift_cards", Priority: 2,
			Queries: []string{"gift card donation raffle local business", "gift certificate donation nonprofit fundraiser"},
		},
		{
			Family: "in_kind_goods", ContributionMode: "in_kind_goods", Priority: 2,
			Queries: []string{"in kind goods donation local business nonprofit", "product donation animal shelter local store"},
		},
		{
			Family: "in_kind_services", ContributionMode: "in_kind_services", Priority: 3,
			Queries: []string{"donated services nonprofit fundraiser local", "pro bono services animal rescue organization"},
		},
		{
			Family: "foundations_grants", ContributionMode: "grants", Priority: 1,
			Queries: []string{"foundation grants animal welfare nonprofit", "community foundation grant rescue shelter"},
		},
	}

	return Plan{
		SourceTypes:       sourceTypes,
		QueryFocusTerms:   focus,
		ContributionModes: []string{"cash", "sponsorships", "grants", "gift_cards", "in_kind_goods", "in_kind_services"},
		SourceBuckets:     buckets,
		RoleTargets:       []string{"owner", "store manager", "community relations manager", "marketing director", "csr manager"},
		QueryFamilies:     families,
		Notes:             "Heuristic source targeting based on discovery mode and radius.",
	}
}

// sortFamilies orders by ascending priority then family name. Unprioritized
// families (priority 0) sort last.
func sortFamilies(families []QueryFamily) {
	key := func(f QueryFamily) int {
		if f.Priority == 0 {
			return 99
		}
		return f.Priority
	}
	sort.SliceStable(families, func(i, j int) bool {
		ki, kj := key(families[i]), key(families[j])
		if ki != kj {
			return ki < kj
		}
		return families[i].Family < families[j].Family
	})
}
