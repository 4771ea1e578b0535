// Package geocode resolves free-form location queries via Nominatim
// (primary) and the Google Geocoding API (fallback).
package geocode

import (
	"context"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// defaultUserAgent identifies the crawler to Nominatim, which rejects
// anonymous clients.
const defaultUserAgent = "Mozilla/5.0 (compatible; HavenPawsBot/1.0; +https://havenpaws.org/bot)"

// Client geocodes location queries such as "Portland, OR" or "97202".
type Client interface {
	// Geocode resolves a single location query to coordinates.
	Geocode(ctx context.Context, query string) (*Result, error)
}

// Result holds the geocoding output for a location query.
type Result struct {
	Latitude    float64
	Longitude   float64
	DisplayName string
	Source      string // "nominatim" or "google"
	Matched     bool
}

// Option configures the geocoder.
type Option func(*geocoder)

// WithGoogleAPIKey enables the Google Geocoding API as a fallback.
func WithGoogleAPIKey(key string) Option {
	return func(g *geocoder) {
		g.googleKey = key
	}
}

// WithHTTPClient sets a custom HTTP client for both Nominatim and Google requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *geocoder) {
		g.httpClient = hc
	}
}

// WithUserAgent overrides the User-Agent sent to Nominatim.
func WithUserAgent(ua string) Option {
	return func(g *geocoder) {
		g.userAgent = ua
	}
}

// WithNominatimURL points the client at a different Nominatim instance.
func WithNominatimURL(base string) Option {
	return func(g *geocoder) {
		g.nominatimURL = strings.TrimSuffix(base, "/") + "/search"
	}
}

// WithRateLimit sets the requests-per-second rate limit for Nominatim calls.
func WithRateLimit(rps float64) Option {
	return func(g *geocoder) {
		g.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

type geocoder struct {
	httpClient   *http.Client
	googleKey    string
	userAgent    string
	nominatimURL string
	limiter      *rate.Limiter
}

// NewClient creates a new geocoding Client with the given options.
func NewClient(opts ...Option) Client {
	g := &geocoder{
		httpClient:   &http.Client{Timeout: 12 * time.Second},
		userAgent:    defaultUserAgent,
		nominatimURL: nominatimSearchURL,
		limiter:      rate.NewLimiter(1, 1), // Nominatim usage policy: 1 req/s
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Geocode resolves a single query, trying Nominatim first, then Google if
// configured. An unresolvable query is not an error, just unmatched.
func (g *geocoder) Geocode(ctx context.Context, query string) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return &Result{Matched: false}, nil
	}

	result, nomErr := g.geocodeNominatim(ctx, query)
	if nomErr == nil && result.Matched {
		return result, nil
	}

	if g.googleKey != "" {
		googleResult, googleErr := g.geocodeGoogle(ctx, query)
		if googleErr == nil && googleResult.Matched {
			return googleResult, nil
		}
	}

	return &Result{Matched: false}, nil
}
