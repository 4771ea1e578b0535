// Package peoplesearch provides a client for a people-search enrichment API
// exposing role-filtered person search and verified contact matching.
package peoplesearch

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://api.apollo.io/v1"

// Client performs people-search operations.
type Client interface {
	// SearchPeople finds people at an organization, filtered by role titles.
	SearchPeople(ctx context.Context, req SearchRequest) ([]Person, error)

	// MatchEmail resolves a verified email and phone for an exact
	// (first, last, domain) identity. A miss returns nil without error.
	MatchEmail(ctx context.Context, first, last, domain string) (*MatchResult, error)
}

// SearchRequest describes a role-filtered people search.
type SearchRequest struct {
	OrganizationName    string
	OrganizationDomains []string
	Titles              []string
	PerPage             int
}

// Person is one person returned by the search endpoint.
type Person struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Name      string `json:"name"`
	Title     string `json:"title"`
	Email     string `json:"email"`
}

// MatchResult holds the verified contact details for a matched person.
type MatchResult struct {
	Email string
	Phone string
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a people-search client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type searchRequest struct {
	OrganizationName    string   `json:"q_organization_name,omitempty"`
	OrganizationDomains []string `json:"q_organization_domains,omitempty"`
	PersonTitles        []string `json:"person_titles,omitempty"`
	Page                int      `json:"page"`
	PerPage             int      `json:"per_page"`
}

type searchResponse struct {
	People []Person `json:"people"`
}

func (c *httpClient) SearchPeople(ctx context.Context, req SearchRequest) ([]Person, error) {
	perPage := req.PerPage
	if perPage <= 0 {
		perPage = 10
	}

	body, err := json.Marshal(searchRequest{
		OrganizationName:    req.OrganizationName,
		OrganizationDomains: req.OrganizationDomains,
		PersonTitles:        req.Titles,
		Page:                1,
		PerPage:             perPage,
	})
	if err != nil {
		return nil, eris.Wrap(err, "peoplesearch: marshal request")
	}

	respBody, err := c.post(ctx, "/mixed_people/search", body)
	if err != nil {
		return nil, err
	}

	var result searchResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "peoplesearch: unmarshal response")
	}

	return result.People, nil
}

type matchRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Domain    string `json:"domain"`
}

type matchResponse struct {
	Person *matchedPerson `json:"person"`
}

type matchedPerson struct {
	Email        string        `json:"email"`
	PhoneNumbers []phoneNumber `json:"phone_numbers"`
}

type phoneNumber struct {
	SanitizedNumber string `json:"sanitized_number"`
	RawNumber       string `json:"raw_number"`
}

func (c *httpClient) MatchEmail(ctx context.Context, first, last, domain string) (*MatchResult, error) {
	body, err := json.Marshal(matchRequest{
		FirstName: first,
		LastName:  last,
		Domain:    domain,
	})
	if err != nil {
		return nil, eris.Wrap(err, "peoplesearch: marshal request")
	}

	respBody, err := c.post(ctx, "/people/match", body)
	if err != nil {
		return nil, err
	}

	var result matchResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "peoplesearch: unmarshal response")
	}

	if result.Person == nil {
		return nil, nil
	}

	match := &MatchResult{Email: result.Person.Email}
	for _, p := range result.Person.PhoneNumbers {
		if p.SanitizedNumber != "" {
			match.Phone = p.SanitizedNumber
			break
		}
		if p.RawNumber != "" {
			match.Phone = p.RawNumber
			break
		}
	}
	return match, nil
}

func (c *httpClient) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "peoplesearch: create request")
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "peoplesearch: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "peoplesearch: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("peoplesearch: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}
