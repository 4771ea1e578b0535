package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/havenpaws/prospect-cli/internal/candidate"
	"github.com/havenpaws/prospect-cli/pkg/anthropic"
)

// JustifyOrg returns a natural-language justification and additional-info
// paragraph for a candidate. The LLM path is gated off by default; heuristic
// sentences are used otherwise and on any failure.
func (p *Planner) JustifyOrg(ctx context.Context, org candidate.Organization, c Criteria) (string, string) {
	if p != nil && p.client != nil && p.justifications {
		if just, info, err := p.llmJustification(ctx, org, c); err == nil {
			return just, info
		}
	}
	return OrgJustification(org), OrgAdditionalInfo(org)
}

func (p *Planner) llmJustification(ctx context.Context, org candidate.Organization, c Criteria) (string, string, error) {
	payload := map[string]any{
		"task":     "Explain why this source may be a donor prospect for an animal welfare nonprofit, based on the provided signals.",
		"criteria": c,
		"candidate": map[string]any{
			"name":      org.Name,
			"category":  string(org.Category),
			"score_10":  candidate.Rescale(org.Score),
			"score_100": candidate.UIScale(org.Score),
			"website":   org.Website,
			"address":   org.Address,
			"city":      org.City,
			"state":     org.State,
			"notes":     org.Notes,
		},
		"output_format": map[string]any{
			"justification":   "one concise paragraph",
			"additional_info": "one concise paragraph",
		},
		"constraints": []string{
			"Do not fabricate facts.",
			"Base reasoning on the provided candidate signals only.",
			"Return JSON only.",
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", "", err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	temp := 0.2
	resp, err := p.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       p.model,
		MaxTokens:   1024,
		System:      anthropic.BuildCachedSystemBlocks(systemPrompt),
		Messages:    []anthropic.Message{{Role: "user", Content: string(body)}},
		Temperature: &temp,
	})
	if err != nil {
		return "", "", err
	}
	resp.Usage.LogCost(p.model, "justification")

	var raw struct {
		Justification  string `json:"justification"`
		AdditionalInfo string `json:"additional_info"`
	}
	if err := json.Unmarshal([]byte(cleanJSON(extractText(resp))), &raw); err != nil {
		return "", "", err
	}

	just := strings.TrimSpace(raw.Justification)
	if just == "" {
		just = OrgJustification(org)
	}
	return just, strings.TrimSpace(raw.AdditionalInfo), nil
}

// OrgJustification composes the heuristic one-sentence donor-prospect
// rationale from the candidate's score, category, and location.
func OrgJustification(org candidate.Organization) string {
	name := strings.TrimSpace(org.Name)
	if name == "" {
		name = "This source"
	}
	category := strings.ReplaceAll(string(org.Category), "_", " ")
	if category == "" {
		category = "other"
	}
	score10 := candidate.Rescale(org.Score)
	score100 := candidate.UIScale(org.Score)

	location := "the search area"
	parts := make([]string, 0, 2)
	if city := strings.TrimSpace(org.City); city != "" {
		parts = append(parts, city)
	}
	if state := strings.TrimSpace(org.State); state != "" {
		parts = append(parts, state)
	}
	if len(parts) > 0 {
		location = strings.Join(parts, ", ")
	}

	var reasons []string
	switch {
	case score10 >= 8:
		reasons = append(reasons, "strong donor-likelihood score based on category and entity signals")
	case score10 >= 5:
		reasons = append(reasons, "moderate donor-likelihood score with some capacity/alignment indicators")
	default:
		reasons = append(reasons, "lower donor-likelihood score but still a potential local outreach candidate")
	}
	switch {
	case strings.Contains(category, "foundation") || strings.Contains(category, "nonprofit"):
		reasons = append(reasons, "category suggests structured giving or mission-driven funding potential")
	case strings.Contains(category, "financial") || strings.Contains(category, "corporate"):
		reasons = append(reasons, "category suggests possible philanthropic programs or sponsorship capacity")
	case strings.Contains(category, "pet"):
		reasons = append(reasons, "category shows direct alignment with animal welfare mission")
	}

	return fmt.Sprintf(
		"%s was scored %d/100 as a %s prospect in %s because it matches the requested search criteria and shows %s.",
		name, score100, category, location, strings.Join(reasons, ", and "),
	)
}

// OrgAdditionalInfo summarizes up to three available data points about a
// candidate in one short paragraph.
func OrgAdditionalInfo(org candidate.Organization) string {
	var bits []string
	if org.Website != "" {
		bits = append(bits, "Website available for further review and contact extraction")
	}
	if org.Phone != "" {
		bits = append(bits, "Organization phone number is available")
	}
	if org.Address != "" || org.City != "" {
		bits = append(bits, "Location details were identified from source data")
	}
	if strings.TrimSpace(org.Notes) != "" {
		bits = append(bits, "Source metadata was captured from discovery provider")
	}
	if len(bits) > 3 {
		bits = bits[:3]
	}
	if len(bits) == 0 {
		return ""
	}
	return strings.Join(bits, ". ") + "."
}

// ContactJustification explains why an extracted contact is worth review.
func ContactJustification(roleCategory, title, orgName, confidence string) string {
	conf := strings.TrimSpace(confidence)
	if conf == "" {
		conf = "low"
	}
	org := strings.TrimSpace(orgName)
	if org == "" {
		org = "the organization"
	}

	var bits []string
	if role := strings.TrimSpace(roleCategory); role != "" {
		bits = append(bits, "Classified as "+role)
	}
	if t := strings.TrimSpace(title); t != "" {
		bits = append(bits, fmt.Sprintf("based on title '%s'", t))
	} else {
		bits = append(bits, "based on available contact details")
	}
	bits = append(bits, "for "+org)
	bits = append(bits, "(confidence: "+conf+")")

	return strings.Join(bits, " ") + ". This contact appears relevant for donation outreach review."
}
