package render

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/content", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body renderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "https://example.org/team", body.URL)
		require.NotNil(t, body.GotoOptions)
		assert.Equal(t, "networkidle2", body.GotoOptions.WaitUntil)

		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, `<html><body><div class="staff-card"><h3>Dana Reyes</h3></div></body></html>`)
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	html, err := client.Render(context.Background(), "https://example.org/team")

	require.NoError(t, err)
	assert.Contains(t, html, "Dana Reyes")
	assert.Contains(t, html, "staff-card")
}

func TestRender_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "upstream navigation failed")
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	html, err := client.Render(context.Background(), "https://example.org")

	assert.Error(t, err)
	assert.Empty(t, html)
	assert.Contains(t, err.Error(), "502")
}

func TestRender_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := client.Render(ctx, "https://example.org")

	assert.Error(t, err)
}
