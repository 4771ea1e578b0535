// Package candidate defines the canonical organization-candidate record and
// the normalization from each discovery source's raw shape into it.
package candidate

import "strings"

// Source identifies which provider produced a candidate.
type Source string

const (
	SourceSeed    Source = "seed"
	SourceSerpAPI Source = "serpapi"
	SourcePlaces  Source = "google_places"
	SourceFeed    Source = "feed_import"
)

// Category is the coarse donor-prospect category assigned to a candidate.
type Category string

const (
	CategoryPetIndustry   Category = "pet_industry"
	CategoryVeganBrand    Category = "vegan_brand"
	CategoryCorporateCSR  Category = "corporate_csr"
	CategoryFoundation    Category = "foundation"
	CategoryNonprofit     Category = "nonprofit"
	CategoryFinancial     Category = "financial"
	CategoryLocalBusiness Category = "local_business"
	CategoryOther         Category = "other"
)

// Organization is the canonical candidate record flowing through discovery.
// Candidates are never mutated after being handed to persistence.
type Organization struct {
	ID             string   `json:"id,omitempty" db:"id"`
	Name           string   `json:"name" db:"name"`
	Website        string   `json:"website,omitempty" db:"website"`
	Category       Category `json:"category" db:"category"`
	Score          int      `json:"donation_potential_score" db:"donation_potential_score"`
	Address        string   `json:"address,omitempty" db:"address"`
	City           string   `json:"city,omitempty" db:"city"`
	State          string   `json:"state,omitempty" db:"state"`
	PostalCode     string   `json:"postal_code,omitempty" db:"postal_code"`
	Latitude       *float64 `json:"latitude,omitempty" db:"latitude"`
	Longitude      *float64 `json:"longitude,omitempty" db:"longitude"`
	Email          string   `json:"email,omitempty" db:"email"`
	Phone          string   `json:"phone,omitempty" db:"phone"`
	Notes          string   `json:"notes,omitempty" db:"notes"`
	Justification  string   `json:"justification,omitempty" db:"justification"`
	AdditionalInfo string   `json:"additional_info,omitempty" db:"additional_info"`

	// Provenance, kept out of persistence payloads.
	Source         Source   `json:"source"`
	SourceQuery    string   `json:"source_query,omitempty"`
	LocationHinted bool     `json:"location_hinted,omitempty"`
	PlaceID        string   `json:"place_id,omitempty"`
	PrimaryType    string   `json:"primary_type,omitempty"`
	PlaceTypes     []string `json:"place_types,omitempty"`
	PreviewKey     string   `json:"preview_key,omitempty"`
}

// Seed is a hand-curated candidate with a pre-assigned category and score.
type Seed struct {
	Name     string   `yaml:"name" json:"name"`
	Website  string   `yaml:"website" json:"website"`
	Category Category `yaml:"category" json:"category"`
	Score    int      `yaml:"donation_potential_score" json:"donation_potential_score"`
	Notes    string   `yaml:"notes" json:"notes"`
}

// SearchHit is one organic web-search result.
type SearchHit struct {
	Title         string
	Link          string
	Snippet       string
	Query         string
	LocationQuery string
}

// Place is one nearby-search result from the places API.
type Place struct {
	ID             string
	Name           string
	Address        string
	Website        string
	Phone          string
	Latitude       *float64
	Longitude      *float64
	Types          []string
	PrimaryType    string
	BusinessStatus string
}

// FeedEntry is one item from the shelter-listing feed.
type FeedEntry struct {
	Title string
	Link  string
}

// FromSeed normalizes a curated seed entry.
func FromSeed(s Seed) Organization {
	cat := s.Category
	if cat == "" {
		cat = CategoryOther
	}
	return Organization{
		Name:     s.Name,
		Website:  s.Website,
		Category: cat,
		Score:    s.Score,
		Notes:    s.Notes,
		Source:   SourceSeed,
	}
}

// FromSearch normalizes an organic search hit. Search results carry no
// structured location, so a moderate default score applies and the location
// hint records whether the query itself was location-scoped.
func FromSearch(h SearchHit) Organization {
	return Organization{
		Name:           truncate(h.Title, 200),
		Website:        h.Link,
		Category:       CategoryOther,
		Score:          5,
		Notes:          truncate(h.Snippet, 500),
		Source:         SourceSerpAPI,
		SourceQuery:    h.Query,
		LocationHinted: h.LocationQuery != "",
	}
}

// FromPlace normalizes a nearby-search place, scoring it heuristically and
// parsing city/state/zip out of the formatted address.
func FromPlace(p Place) Organization {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = "Unknown Place"
	}
	city, state, postal := ParseAddress(p.Address)

	var notes []string
	if p.PrimaryType != "" {
		notes = append(notes, "Primary type: "+p.PrimaryType)
	}
	if len(p.Types) > 0 {
		n := len(p.Types)
		if n > 8 {
			n = 8
		}
		notes = append(notes, "Types: "+strings.Join(p.Types[:n], ", "))
	}
	if p.BusinessStatus != "" {
		notes = append(notes, "Business status: "+p.BusinessStatus)
	}
	notes = append(notes, "Discovered via nearby place search.")

	types := make([]string, len(p.Types))
	for i, t := range p.Types {
		types[i] = strings.ToLower(t)
	}

	return Organization{
		Name:           name,
		Website:        p.Website,
		Category:       PlaceCategory(p.PrimaryType, p.Types),
		Score:          ScorePlace(p.Name, p.PrimaryType, p.Types, p.Website),
		Address:        p.Address,
		City:           city,
		State:          state,
		PostalCode:     postal,
		Latitude:       p.Latitude,
		Longitude:      p.Longitude,
		Phone:          p.Phone,
		Notes:          truncate(strings.Join(notes, " "), 1200),
		Source:         SourcePlaces,
		LocationHinted: true,
		PlaceID:        p.ID,
		PrimaryType:    strings.ToLower(p.PrimaryType),
		PlaceTypes:     types,
	}
}

// FromFeed normalizes a shelter-feed entry with a fixed moderate score.
func FromFeed(e FeedEntry) Organization {
	title := strings.TrimSpace(e.Title)
	if title == "" {
		title = "Unknown"
	}
	return Organization{
		Name:     truncate(title, 200),
		Website:  e.Link,
		Category: CategoryNonprofit,
		Score:    5,
		Notes:    "Shelter-feed listed organization.",
		Source:   SourceFeed,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
