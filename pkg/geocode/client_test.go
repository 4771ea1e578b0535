package geocode

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeocode_NominatimSucceeds_NoGoogleCall(t *testing.T) {
	var googleCalled atomic.Int32

	nominatimSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"lat": "45.5202471", "lon": "-122.6741949", "display_name": "Portland, Multnomah County, Oregon, United States"}]`)
	}))
	defer nominatimSrv.Close()

	googleSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		googleCalled.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"status":"OK","results":[{"geometry":{"location":{"lat":45.5,"lng":-122.7}}}]}`)
	}))
	defer googleSrv.Close()

	g := &geocoder{
		httpClient: newRewriteClient(nominatimSrv.URL, nominatimSearchURL),
		googleKey:  "test-key",
		userAgent:  defaultUserAgent,
		limiter:    newTestLimiter(),
	}

	result, err := g.Geocode(context.Background(), "Portland, OR")
	require.NoError(t, err)
	assert.True(t, result.Matched)
	assert.Equal(t, "nominatim", result.Source)
	assert.InDelta(t, 45.5202471, result.Latitude, 0.0001)
	assert.InDelta(t, -122.6741949, result.Longitude, 0.0001)
	assert.Contains(t, result.DisplayName, "Portland")
	assert.Equal(t, int32(0), googleCalled.Load(), "Google should not be called when Nominatim matches")
}

func TestGeocode_NominatimMisses_GoogleFallback(t *testing.T) {
	nominatimSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[]`)
	}))
	defer nominatimSrv.Close()

	googleSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"status": "OK",
			"results": [{
				"geometry": {"location": {"lat": 40.7128, "lng": -74.0060}},
				"formatted_address": "New York, NY, USA"
			}]
		}`)
	}))
	defer googleSrv.Close()

	g := &geocoder{
		httpClient: &http.Client{
			Transport: &multiRewriteTransport{
				base: http.DefaultTransport,
				rewrites: map[string]string{
					nominatimSearchURL: nominatimSrv.URL,
					googleGeocodeURL:   googleSrv.URL,
				},
			},
		},
		googleKey: "test-key",
		userAgent: defaultUserAgent,
		limiter:   newTestLimiter(),
	}

	result, err := g.Geocode(context.Background(), "New York, NY")
	require.NoError(t, err)
	assert.True(t, result.Matched)
	assert.Equal(t, "google", result.Source)
	assert.Equal(t, "New York, NY, USA", result.DisplayName)
}

func TestGeocode_BothMiss_Unmatched(t *testing.T) {
	nominatimSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[]`)
	}))
	defer nominatimSrv.Close()

	googleSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"status": "ZERO_RESULTS", "results": []}`)
	}))
	defer googleSrv.Close()

	g := &geocoder{
		httpClient: &http.Client{
			Transport: &multiRewriteTransport{
				base: http.DefaultTransport,
				rewrites: map[string]string{
					nominatimSearchURL: nominatimSrv.URL,
					googleGeocodeURL:   googleSrv.URL,
				},
			},
		},
		googleKey: "test-key",
		userAgent: defaultUserAgent,
		limiter:   newTestLimiter(),
	}

	result, err := g.Geocode(context.Background(), "Nowheresville, XX")
	require.NoError(t, err)
	assert.False(t, result.Matched)
}

func TestGeocode_NoGoogleKey_NominatimOnly(t *testing.T) {
	nominatimSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[]`)
	}))
	defer nominatimSrv.Close()

	g := &geocoder{
		httpClient: newRewriteClient(nominatimSrv.URL, nominatimSearchURL),
		userAgent:  defaultUserAgent,
		limiter:    newTestLimiter(),
		// No googleKey set.
	}

	result, err := g.Geocode(context.Background(), "97201")
	require.NoError(t, err)
	assert.False(t, result.Matched)
}

func TestGeocode_BlankQuery_Unmatched(t *testing.T) {
	g := &geocoder{
		httpClient: http.DefaultClient,
		userAgent:  defaultUserAgent,
		limiter:    newTestLimiter(),
	}

	result, err := g.Geocode(context.Background(), "   ")
	require.NoError(t, err)
	assert.False(t, result.Matched)
}
