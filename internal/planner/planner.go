// Package planner builds the source-targeting plan for a discovery run.
// Planning always succeeds: with no LLM configured the heuristic plan is
// returned directly, and any LLM failure falls back to it.
package planner

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/havenpaws/prospect-cli/internal/candidate"
	"github.com/havenpaws/prospect-cli/pkg/anthropic"
)

// Planner provenance tags recorded on every plan.
const (
	SourceHeuristic = "heuristic"
	SourceLLM       = "llm"
	SourceFallback  = "heuristic_fallback"
)

const systemPrompt = "You are a fundraising prospecting assistant. Return valid JSON only."

// Criteria describes the discovery run the plan is for.
type Criteria struct {
	Location      string  `json:"location,omitempty"`
	RadiusMiles   float64 `json:"radius_miles,omitempty"`
	MinScore      int     `json:"min_score,omitempty"`
	DiscoveryMode string  `json:"discovery_mode,omitempty"`
}

// SourceBucket names a class of prospective supporters with examples.
type SourceBucket struct {
	Bucket   string   `json:"bucket"`
	Examples []string `json:"examples"`
	Why      string   `json:"why_relevant"`
}

// QueryFamily groups related search queries under a contribution mode.
type QueryFamily struct {
	Family           string   `json:"family"`
	ContributionMode string   `json:"contribution_mode"`
	Priority         int      `json:"priority"`
	Queries          []string `json:"queries"`
}

// Plan is the source-targeting strategy for one discovery run.
type Plan struct {
	SourceTypes       []string       `json:"source_types"`
	QueryFocusTerms   []string       `json:"query_focus_terms"`
	ContributionModes []string       `json:"contribution_modes"`
	SourceBuckets     []SourceBucket `json:"source_buckets"`
	RoleTargets       []string       `json:"role_targets"`
	QueryFamilies     []QueryFamily  `json:"query_families"`
	Notes             string         `json:"notes"`
	Planner           string         `json:"planner"`
}

// Planner produces plans, optionally refining the heuristic baseline with an
// LLM. A nil client disables refinement entirely.
type Planner struct {
	client         anthropic.Client
	model          string
	timeout        time.Duration
	justifications bool
}

// New builds a Planner. client may be nil to run heuristics only.
func New(client anthropic.Client, model string, timeout time.Duration) *Planner {
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	return &Planner{client: client, model: model, timeout: timeout}
}

// WithJustifications enables LLM-written candidate justifications. Off by
// default; the heuristic sentences are used otherwise.
func (p *Planner) WithJustifications(on bool) *Planner {
	p.justifications = on
	return p
}

// Plan returns the source-targeting plan for the given criteria.
func (p *Planner) Plan(ctx context.Context, c Criteria) Plan {
	fallback := heuristicPlan(c)
	if p == nil || p.client == nil {
		fallback.Planner = SourceHeuristic
		return fallback
	}

	plan, err := p.refine(ctx, c, fallback)
	if err != nil {
		zap.L().With(zap.String("component", "planner")).
			Warn("plan refinement failed, using heuristic plan", zap.Error(err))
		fallback.Planner = SourceFallback
		return fallback
	}
	return plan
}

// rawPlan is the tolerant shape the LLM response is parsed into.
type rawPlan struct {
	SourceTypes       []string `json:"source_types"`
	QueryFocusTerms   []string `json:"query_focus_terms"`
	ContributionModes []string `json:"contribution_modes"`
	RoleTargets       []string `json:"role_targets"`
	SourceBuckets     []struct {
		Bucket   string   `json:"bucket"`
		Examples []string `json:"examples"`
		Why      string   `json:"why_relevant"`
	} `json:"source_buckets"`
	QueryFamilies []struct {
		Family           string   `json:"family"`
		ContributionMode string   `json:"contribution_mode"`
		Priority         float64  `json:"priority"`
		Queries          []string `json:"queries"`
	} `json:"query_families"`
	Notes string `json:"notes"`
}

func (p *Planner) refine(ctx context.Context, c Criteria, fallback Plan) (Plan, error) {
	body, err := json.Marshal(planPrompt(c))
	if err != nil {
		return Plan{}, eris.Wrap(err, "planner: marshal prompt")
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	temp := 0.2
	resp, err := p.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       p.model,
		MaxTokens:   2048,
		System:      anthropic.BuildCachedSystemBlocks(systemPrompt),
		Messages:    []anthropic.Message{{Role: "user", Content: string(body)}},
		Temperature: &temp,
	})
	if err != nil {
		return Plan{}, eris.Wrap(err, "planner: refine plan")
	}
	resp.Usage.LogCost(p.model, "planner")

	var raw rawPlan
	cleaned := cleanJSON(extractText(resp))
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return Plan{}, eris.Wrap(err, "planner: parse plan JSON")
	}

	sourceTypes := stringList(raw.SourceTypes, 12)
	focus := stringList(raw.QueryFocusTerms, 24)
	modes := stringList(raw.ContributionModes, 16)
	roles := stringList(raw.RoleTargets, 16)
	buckets := normalizeBuckets(raw)
	families := normalizeFamilies(raw)

	// Nothing usable: keep the heuristic plan as-is.
	if len(sourceTypes) == 0 && len(focus) == 0 && len(families) == 0 {
		fallback.Planner = SourceHeuristic
		return fallback, nil
	}

	plan := Plan{
		SourceTypes:       orElse(sourceTypes, fallback.SourceTypes),
		QueryFocusTerms:   orElse(focus, fallback.QueryFocusTerms),
		ContributionModes: orElse(modes, fallback.ContributionModes),
		SourceBuckets:     buckets,
		RoleTargets:       orElse(roles, fallback.RoleTargets),
		QueryFamilies:     families,
		Notes:             strings.TrimSpace(raw.Notes),
		Planner:           SourceLLM,
	}
	if len(plan.SourceBuckets) == 0 {
		plan.SourceBuckets = fallback.SourceBuckets
	}
	if len(plan.QueryFamilies) == 0 {
		plan.QueryFamilies = fallback.QueryFamilies
	}
	if plan.Notes == "" {
		plan.Notes = fallback.Notes
	}
	return plan, nil
}

// planPrompt builds the JSON task payload sent to the model.
func planPrompt(c Criteria) map[string]any {
	return map[string]any{
		"task": "Plan a diverse, creative funding-source discovery strategy for a nonprofit no-kill animal organization.",
		"criteria": map[string]any{
			"location":       c.Location,
			"radius_miles":   c.RadiusMiles,
			"min_score":      c.MinScore,
			"discovery_mode": c.DiscoveryMode,
			"goal":           "Find net-new potential donors and supporters likely to contribute to an animal welfare nonprofit.",
			"accepted_contribution_types": []string{
				"cash donations", "corporate sponsorships", "foundation grants",
				"gift cards", "gift certificates", "in-kind goods",
				"in-kind services", "event partnerships",
			},
		},
		"output_format": map[string]any{
			"source_types":       []string{"businesses", "nonprofits", "foundations", "grants", "municipal_programs", "wealth_advisors"},
			"query_focus_terms":  []string{"..."},
			"contribution_modes": []string{"cash", "gift_cards", "in_kind_goods", "in_kind_services", "sponsorships", "grants"},
			"source_buckets": []map[string]any{
				{"bucket": "gift_cards_certificates", "examples": []string{"restaurants", "salons"}, "why_relevant": "short reason"},
				{"bucket": "in_kind_services", "examples": []string{"printers", "photographers"}, "why_relevant": "short reason"},
			},
			"role_targets": []string{"owner", "community relations manager", "csr manager", "store manager"},
			"query_families": []map[string]any{
				{
					"family":            "gift_cards_certificates",
					"contribution_mode": "gift_cards",
					"priority":          1,
					"queries":           []string{"gift cards donation local business", "raffle prize donation business"},
				},
			},
			"notes": "short rationale",
		},
		"constraints": []string{
			"Prefer practical, searchable source types.",
			"Keep query terms concise and location-relevant.",
			"Include both proven funding sources and creative local partnership ideas.",
			"At least 30% of query_families should target non-cash support (gift cards, goods, or services).",
			"Focus on actionable business/org categories rather than speculative individuals.",
			"Return JSON only.",
		},
	}
}

// stringList trims, drops empties, and caps a string slice.
func stringList(in []string, max int) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, s)
		if len(out) >= max {
			break
		}
	}
	return out
}

func normalizeBuckets(raw rawPlan) []SourceBucket {
	out := make([]SourceBucket, 0, len(raw.SourceBuckets))
	for _, b := range raw.SourceBuckets {
		name := strings.TrimSpace(b.Bucket)
		if name == "" {
			continue
		}
		out = append(out, SourceBucket{
			Bucket:   name,
			Examples: stringList(b.Examples, 8),
			Why:      strings.TrimSpace(b.Why),
		})
		if len(out) >= 12 {
			break
		}
	}
	return out
}

func normalizeFamilies(raw rawPlan) []QueryFamily {
	out := make([]QueryFamily, 0, len(raw.QueryFamilies))
	for _, f := range raw.QueryFamilies {
		name := strings.TrimSpace(f.Family)
		queries := stringList(f.Queries, 8)
		if name == "" || len(queries) == 0 {
			continue
		}
		priority := int(f.Priority)
		if priority < 0 {
			priority = 0
		}
		if priority > 10 {
			priority = 10
		}
		out = append(out, QueryFamily{
			Family:           name,
			ContributionMode: strings.TrimSpace(f.ContributionMode),
			Priority:         priority,
			Queries:          queries,
		})
	}
	sortFamilies(out)
	if len(out) > 16 {
		out = out[:16]
	}
	return out
}

func orElse(vals, fallback []string) []string {
	if len(vals) > 0 {
		return vals
	}
	return fallback
}

// extractText concatenates all text content blocks.
func extractText(resp *anthropic.MessageResponse) string {
	if resp == nil {
		return ""
	}
	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "" || b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return sb.String()
}

// cleanJSON strips markdown fences and extracts the JSON object.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}

// ModeOf is a convenience for callers that need the normalized mode of the
// criteria's free-form discovery mode string.
func (c Criteria) ModeOf() candidate.Mode {
	return candidate.ParseMode(c.DiscoveryMode)
}
