package planner

import "strings"

// roleQueryTokens gates which role targets become standalone queries.
var roleQueryTokens = []string{"owner", "manager", "director", "csr", "community"}

// BuildQueries blends the static query bank with the plan's output into a
// deduped query set, capped at 22, each suffixed with the location query
// when one is set.
func BuildQueries(base []string, plan Plan, locationQuery string) []string {
	var queries []string
	seen := make(map[string]bool)
	add := func(q string) {
		q = strings.TrimSpace(q)
		if q == "" {
			return
		}
		key := strings.ToLower(q)
		if seen[key] {
			return
		}
		seen[key] = true
		queries = append(queries, q)
	}

	for _, q := range base {
		add(q)
	}
	for _, focus := range plan.QueryFocusTerms {
		add(focus)
	}
	for _, family := range plan.QueryFamilies {
		qs := family.Queries
		if len(qs) > 4 {
			qs = qs[:4]
		}
		for _, q := range qs {
			add(q)
		}
	}
	for _, src := range plan.SourceTypes {
		switch strings.TrimSpace(src) {
		case "municipal_programs":
			add("municipal grant animal welfare program")
		case "grants":
			add("foundation grant animal shelter nonprofit")
		case "wealth_advisors":
			add("wealth advisors community giving philanthropy")
		case "businesses":
			add("local businesses charitable giving sponsor program")
		}
	}
	roles := plan.RoleTargets
	if len(roles) > 6 {
		roles = roles[:6]
	}
	for _, role := range roles {
		lower := strings.ToLower(role)
		for _, tok := range roleQueryTokens {
			if strings.Contains(lower, tok) {
				add(role + " charitable giving local business")
				break
			}
		}
	}

	if len(queries) > 22 {
		queries = queries[:22]
	}
	if locationQuery == "" {
		return queries
	}
	out := make([]string, len(queries))
	for i, q := range queries {
		out[i] = strings.TrimSpace(q + " " + locationQuery)
	}
	return out
}
