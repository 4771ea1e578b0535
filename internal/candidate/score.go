package candidate

import (
	"strconv"
	"strings"
)

// Rescale maps a score of unknown scale onto the canonical 1-10 band.
// Values above 10 are treated as a 0-100 score and divided by ten rounding
// up; everything is clamped into [1, 10]. Rescale is idempotent.
func Rescale(n int) int {
	if n > 10 {
		n = (n + 9) / 10
	}
	if n < 1 {
		return 1
	}
	if n > 10 {
		return 10
	}
	return n
}

// UIScale converts a 1-10 score to the 0-100 presentation scale.
func UIScale(n int) int {
	return Rescale(n) * 10
}

// NormalizeMinScore parses a minimum-score filter from user input. Empty
// input and "all" disable the filter (threshold 1). Leading ">=" and ">"
// are tolerated, and 0-100 values are rescaled like Rescale.
func NormalizeMinScore(raw string) int {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" || s == "all" {
		return 1
	}
	s = strings.TrimSpace(strings.TrimPrefix(s, ">="))
	s = strings.TrimSpace(strings.TrimPrefix(s, ">"))
	n, err := strconv.Atoi(s)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return 1
		}
		n = int(f)
	}
	return Rescale(n)
}

// NormalizeLimit clamps a requested result limit into [1, 1000], defaulting
// to 100 when unset or non-positive.
func NormalizeLimit(n int) int {
	if n <= 0 {
		return 100
	}
	if n > 1000 {
		return 1000
	}
	return n
}

// PlaceCategory maps place types onto a prospect category.
func PlaceCategory(primaryType string, types []string) Category {
	has := func(t string) bool {
		if strings.EqualFold(primaryType, t) {
			return true
		}
		for _, v := range types {
			if strings.EqualFold(v, t) {
				return true
			}
		}
		return false
	}
	switch {
	case has("animal_shelter") || has("veterinary_care") || has("pet_store"):
		return CategoryPetIndustry
	case has("nonprofit_organization"):
		return CategoryNonprofit
	case has("corporate_office"):
		return CategoryCorporateCSR
	case has("bank") || has("investment_service"):
		return CategoryFinancial
	default:
		return CategoryLocalBusiness
	}
}

var (
	strongLowFitTypes = map[string]bool{
		"parking": true, "parking_lot": true, "gas_station": true,
		"car_wash": true, "storage": true, "transit_station": true,
		"bus_station": true, "train_station": true, "airport": true,
		"rv_park": true, "campground": true,
		"electric_vehicle_charging_station": true,
	}
	moderateLowFitTypes = map[string]bool{
		"plumber": true, "electrician": true, "roofing_contractor": true,
		"locksmith": true, "car_repair": true, "auto_parts_store": true,
		"towing": true, "laundry": true, "convenience_store": true,
		"atm": true,
	}
	wealthAdjacentTypes = map[string]bool{
		"bank": true, "finance": true, "financial_planner": true,
		"real_estate_agency": true, "lawyer": true, "accounting": true,
		"insurance_agency": true,
	}
)

// ScorePlace assigns a 1-10 donor-likelihood score to a nearby place from
// its types and name signals. Mission-aligned and giving-capable types raise
// the score; low-fit utility businesses lower it.
func ScorePlace(name, primaryType string, types []string, website string) int {
	typeSet := make(map[string]bool, len(types)+1)
	for _, t := range types {
		typeSet[strings.ToLower(t)] = true
	}
	primary := strings.ToLower(primaryType)
	lowered := strings.ToLower(name)

	anyType := func(set map[string]bool) bool {
		for t := range set {
			if typeSet[t] {
				return true
			}
		}
		return false
	}
	nameHas := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(lowered, w) {
				return true
			}
		}
		return false
	}

	score := 3
	if typeSet["animal_shelter"] || typeSet["veterinary_care"] || typeSet["pet_store"] {
		score += 2
	}
	if typeSet["nonprofit_organization"] {
		score += 2
	}
	if typeSet["corporate_office"] {
		score += 2
	}
	if website != "" {
		score++
	}
	if nameHas("foundation", "charities", "charity", "philanthrop", "trust") {
		score += 3
	} else if nameHas("group", "partners", "capital", "holdings") {
		score++
	}
	if anyType(wealthAdjacentTypes) {
		score += 2
	}
	if anyType(strongLowFitTypes) {
		score -= 3
		if strongLowFitTypes[primary] {
			score -= 2
		}
	}
	if anyType(moderateLowFitTypes) {
		score -= 2
		if moderateLowFitTypes[primary] {
			score--
		}
	}
	if typeSet["university"] || typeSet["hospital"] || typeSet["school"] {
		score++
	}
	if nameHas("foundation", "capital", "wealth", "advisors", "holdings", "philanth") {
		score++
	}

	if score < 1 {
		return 1
	}
	if score > 10 {
		return 10
	}
	return score
}
