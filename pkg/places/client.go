// Package places provides a client for the Google Places (New) Nearby
// Search web service.
package places

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/havenpaws/prospect-cli/internal/resilience"
)

const defaultBaseURL = "https://places.googleapis.com/v1"

// fieldMask lists the place fields every nearby search asks for.
const fieldMask = "places.id," +
	"places.displayName," +
	"places.formattedAddress," +
	"places.location," +
	"places.types," +
	"places.primaryType," +
	"places.businessStatus," +
	"places.websiteUri," +
	"places.nationalPhoneNumber"

// Client performs Places API operations.
type Client interface {
	SearchNearby(ctx context.Context, req NearbyRequest) ([]Place, error)
}

// NearbyRequest describes a single nearby-search call. MaxResults is clamped
// to the API's 1..20 window and RankPreference defaults to DISTANCE.
type NearbyRequest struct {
	Latitude       float64
	Longitude      float64
	RadiusMeters   float64
	MaxResults     int
	IncludedTypes  []string
	RankPreference string
}

// Place represents a place returned by the API.
type Place struct {
	ID                  string      `json:"id"`
	DisplayName         DisplayName `json:"displayName"`
	FormattedAddress    string      `json:"formattedAddress"`
	Location            *LatLng     `json:"location,omitempty"`
	Types               []string    `json:"types,omitempty"`
	PrimaryType         string      `json:"primaryType,omitempty"`
	BusinessStatus      string      `json:"businessStatus,omitempty"`
	WebsiteURI          string      `json:"websiteUri,omitempty"`
	NationalPhoneNumber string      `json:"nationalPhoneNumber,omitempty"`
}

// DisplayName holds the place's display name.
type DisplayName struct {
	Text string `json:"text"`
}

// LatLng is a geographic point.
type LatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
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

// WithRateLimit sets the requests-per-second rate limit for nearby searches.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	retry   resilience.RetryConfig
	limiter *rate.Limiter
}

// NewClient creates a Places API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		retry:   resilience.APIRetry("places"),
		limiter: rate.NewLimiter(10, 2), // shared across parallel tile workers
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type nearbyRequest struct {
	MaxResultCount      int                 `json:"maxResultCount"`
	LocationRestriction locationRestriction `json:"locationRestriction"`
	RankPreference      string              `json:"rankPreference"`
	IncludedTypes       []string            `json:"includedTypes,omitempty"`
}

type locationRestriction struct {
	Circle circle `json:"circle"`
}

type circle struct {
	Center LatLng  `json:"center"`
	Radius float64 `json:"radius"`
}

type nearbyResponse struct {
	Places []Place `json:"places"`
}

func (c *httpClient) SearchNearby(ctx context.Context, req NearbyRequest) ([]Place, error) {
	return resilience.Do(ctx, c.retry, func(ctx context.Context) ([]Place, error) {
		return c.searchNearby(ctx, req)
	})
}

func (c *httpClient) searchNearby(ctx context.Context, req NearbyRequest) ([]Place, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "places: rate limit")
	}

	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}
	if maxResults > 20 {
		maxResults = 20
	}
	radius := req.RadiusMeters
	if radius < 1.0 {
		radius = 1.0
	}
	rank := req.RankPreference
	if rank == "" {
		rank = "DISTANCE"
	}

	body, err := json.Marshal(nearbyRequest{
		MaxResultCount: maxResults,
		LocationRestriction: locationRestriction{
			Circle: circle{
				Center: LatLng{Latitude: req.Latitude, Longitude: req.Longitude},
				Radius: radius,
			},
		},
		RankPreference: rank,
		IncludedTypes:  req.IncludedTypes,
	})
	if err != nil {
		return nil, eris.Wrap(err, "places: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/places:searchNearby", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "places: create request")
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Goog-Api-Key", c.apiKey)
	httpReq.Header.Set("X-Goog-FieldMask", fieldMask)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "places: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "places: read response")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("places: unexpected status %d: %s", resp.StatusCode, string(respBody))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	var result nearbyResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "places: unmarshal response")
	}

	return result.Places, nil
}
