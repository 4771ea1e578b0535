package candidate

import "strings"

// Mode narrows discovery to a class of prospect.
type Mode string

const (
	ModeBusinesses    Mode = "businesses"
	ModeFoundations   Mode = "foundations"
	ModeNonprofits    Mode = "nonprofits"
	ModeWealthRelated Mode = "wealth_related"
	ModeAll           Mode = "all"
)

// ParseMode normalizes free-form mode input, tolerating singular forms and
// hyphenation. Unknown input falls back to businesses.
func ParseMode(raw string) Mode {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, "-", "_")
	switch s {
	case "business", "businesses":
		return ModeBusinesses
	case "foundation", "foundations":
		return ModeFoundations
	case "nonprofit", "nonprofits":
		return ModeNonprofits
	case "wealth", "wealth_related", "wealthrelated":
		return ModeWealthRelated
	case "all":
		return ModeAll
	default:
		return ModeBusinesses
	}
}

var wealthTokens = map[string]bool{
	"bank": true, "accounting": true, "insurance_agency": true,
	"real_estate_agency": true, "lawyer": true, "financial": true,
	"financial_planner": true, "investment_service": true,
	"corporate_csr": true,
}

// MatchesMode reports whether a candidate belongs to the requested prospect
// class. The all mode admits everything; businesses excludes only clearly
// mission-side categories so uncategorized candidates still pass.
func MatchesMode(mode Mode, o Organization) bool {
	name := strings.ToLower(o.Name)
	notes := strings.ToLower(o.Notes)
	types := make(map[string]bool, len(o.PlaceTypes))
	for _, t := range o.PlaceTypes {
		types[strings.ToLower(t)] = true
	}

	switch mode {
	case ModeAll:
		return true
	case ModeFoundations:
		if o.Category == CategoryFoundation {
			return true
		}
		for _, w := range []string{"foundation", "charitable trust", "endowment"} {
			if strings.Contains(name, w) {
				return true
			}
		}
		return types["nonprofit_organization"] && strings.Contains(notes, "foundation")
	case ModeNonprofits:
		if o.Category == CategoryNonprofit || o.Category == CategoryFoundation {
			return true
		}
		return types["nonprofit_organization"] || strings.Contains(notes, "nonprofit")
	case ModeWealthRelated:
		tokens := make(map[string]bool, len(types)+2)
		for t := range types {
			tokens[t] = true
		}
		tokens[strings.ToLower(string(o.Category))] = true
		tokens[strings.ToLower(o.PrimaryType)] = true
		for t := range tokens {
			if wealthTokens[t] {
				return true
			}
		}
		for _, w := range []string{"capital", "wealth", "invest", "holdings", "advisors"} {
			if strings.Contains(name, w) {
				return true
			}
		}
		return false
	default: // businesses
		switch o.Category {
		case CategoryLocalBusiness, CategoryCorporateCSR, CategoryPetIndustry, CategoryFinancial:
			return true
		case CategoryFoundation, CategoryNonprofit:
			return false
		default:
			return true
		}
	}
}
