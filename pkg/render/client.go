// Package render provides a client for a headless-browser rendering service
// that returns fully rendered HTML for JavaScript-heavy pages.
package render

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://chrome.browserless.io"

// Client fetches JS-rendered page HTML.
type Client interface {
	// Render loads the URL in a headless browser and returns the rendered
	// HTML once the page settles.
	Render(ctx context.Context, pageURL string) (string, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default service base URL.
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

// NewClient creates a rendering-service client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type renderRequest struct {
	URL         string       `json:"url"`
	GotoOptions *gotoOptions `json:"gotoOptions,omitempty"`
}

type gotoOptions struct {
	WaitUntil string `json:"waitUntil,omitempty"`
}

func (c *httpClient) Render(ctx context.Context, pageURL string) (string, error) {
	body, err := json.Marshal(renderRequest{
		URL:         pageURL,
		GotoOptions: &gotoOptions{WaitUntil: "networkidle2"},
	})
	if err != nil {
		return "", eris.Wrap(err, "render: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/content", bytes.NewReader(body))
	if err != nil {
		return "", eris.Wrap(err, "render: create request")
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "render: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "render: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("render: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	// The service responds with the rendered document itself, not JSON.
	return string(respBody), nil
}
