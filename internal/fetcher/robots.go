package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"github.com/temoto/robotstxt"
)

const (
	robotsCacheTTL     = 24 * time.Hour
	robotsMaxBodyBytes = 512 * 1024
)

// Robots checks robots.txt rules before a page fetch, caching the parsed
// rules per host. Unreachable or malformed robots.txt files allow all
// paths, which is the conventional crawler behavior.
type Robots struct {
	client    *http.Client
	userAgent string

	mu    sync.RWMutex
	cache map[string]*robotsEntry
}

type robotsEntry struct {
	data      *robotstxt.RobotsData
	fetchedAt time.Time
	allowAll  bool
}

// NewRobots returns a checker that identifies itself with userAgent both
// when fetching robots.txt and when matching agent groups.
func NewRobots(client *http.Client, userAgent string) *Robots {
	return &Robots{
		client:    client,
		userAgent: userAgent,
		cache:     make(map[string]*robotsEntry),
	}
}

// IsAllowed reports whether rawURL may be fetched under the host's
// robots.txt. Hosts without a readable robots.txt allow everything.
func (r *Robots) IsAllowed(ctx context.Context, rawURL string) (bool, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false, eris.Wrapf(err, "fetcher: parse url %q", rawURL)
	}

	host := strings.ToLower(parsed.Host)
	if host == "" {
		return false, eris.Errorf("fetcher: url %q has no host", rawURL)
	}

	entry := r.cached(host)
	if entry == nil {
		entry = r.fetchEntry(ctx, parsed.Scheme, host)
		r.mu.Lock()
		r.cache[host] = entry
		r.mu.Unlock()
	}

	if entry.allowAll {
		return true, nil
	}
	return entry.data.TestAgent(parsed.Path, r.userAgent), nil
}

func (r *Robots) cached(host string) *robotsEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.cache[host]
	if !ok || time.Since(entry.fetchedAt) > robotsCacheTTL {
		return nil
	}
	return entry
}

// fetchEntry retrieves and parses robots.txt for host. All failure modes
// degrade to allow-all rather than blocking the crawl.
func (r *Robots) fetchEntry(ctx context.Context, scheme, host string) *robotsEntry {
	if scheme == "" {
		scheme = "https"
	}
	robotsURL := scheme + "://" + host + "/robots.txt"

	allowAll := &robotsEntry{fetchedAt: time.Now(), allowAll: true}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, http.NoBody)
	if err != nil {
		return allowAll
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return allowAll
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return allowAll
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, robotsMaxBodyBytes))
	if err != nil {
		return allowAll
	}

	data, err := robotstxt.FromBytes(body)
	if err != nil {
		return allowAll
	}

	return &robotsEntry{data: data, fetchedAt: time.Now()}
}
