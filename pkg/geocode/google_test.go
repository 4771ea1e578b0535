package geocode

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeocodeGoogle_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "Seattle, WA", q.Get("address"))
		assert.Equal(t, "test-key", q.Get("key"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"status": "OK",
			"results": [{
				"geometry": {"location": {"lat": 47.6062, "lng": -122.3321}},
				"formatted_address": "Seattle, WA, USA"
			}]
		}`)
	}))
	defer srv.Close()

	g := &geocoder{
		httpClient: newRewriteClient(srv.URL, googleGeocodeURL),
		googleKey:  "test-key",
		userAgent:  defaultUserAgent,
		limiter:    newTestLimiter(),
	}

	result, err := g.geocodeGoogle(context.Background(), "Seattle, WA")
	require.NoError(t, err)
	assert.True(t, result.Matched)
	assert.Equal(t, "google", result.Source)
	assert.InDelta(t, 47.6062, result.Latitude, 0.001)
	assert.Equal(t, "Seattle, WA, USA", result.DisplayName)
}

func TestGeocodeGoogle_ZeroResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"status": "ZERO_RESULTS", "results": []}`)
	}))
	defer srv.Close()

	g := &geocoder{
		httpClient: newRewriteClient(srv.URL, googleGeocodeURL),
		googleKey:  "test-key",
		userAgent:  defaultUserAgent,
		limiter:    newTestLimiter(),
	}

	result, err := g.geocodeGoogle(context.Background(), "nowhere")
	require.NoError(t, err)
	assert.False(t, result.Matched)
	assert.Equal(t, "google", result.Source)
}

func TestGeocodeGoogle_NoKey(t *testing.T) {
	g := &geocoder{
		httpClient: http.DefaultClient,
		userAgent:  defaultUserAgent,
		limiter:    newTestLimiter(),
	}

	_, err := g.geocodeGoogle(context.Background(), "Seattle, WA")
	assert.Error(t, err)
}

func TestGeocodeGoogle_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	g := &geocoder{
		httpClient: newRewriteClient(srv.URL, googleGeocodeURL),
		googleKey:  "bad-key",
		userAgent:  defaultUserAgent,
		limiter:    newTestLimiter(),
	}

	_, err := g.geocodeGoogle(context.Background(), "Seattle, WA")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}
