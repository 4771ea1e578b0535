// Package fetcher provides the polite page fetcher used by contact
// extraction: identified User-Agent, best-effort robots.txt checks,
// randomized inter-request delay and charset-aware decoding.
package fetcher

import (
	"context"
	"io"
	"math/rand/v2"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"
)

// DefaultUserAgent identifies the crawler and links to its policy page.
const DefaultUserAgent = "Mozilla/5.0 (compatible; HavenPawsBot/1.0; +https://havenpaws.org/bot)"

// pageMaxBodyBytes caps how much of a page is read and parsed.
const pageMaxBodyBytes = 2 << 20

// Options configures the page fetcher.
type Options struct {
	UserAgent string
	Timeout   time.Duration
	MinDelay  time.Duration
	MaxDelay  time.Duration
}

// PageFetcher fetches and parses organization pages politely.
type PageFetcher struct {
	client *http.Client
	robots *Robots
	opts   Options
}

// New creates a PageFetcher with the given options.
func New(opts Options) *PageFetcher {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout == 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.MinDelay == 0 && opts.MaxDelay == 0 {
		opts.MinDelay = 1500 * time.Millisecond
		opts.MaxDelay = 3500 * time.Millisecond
	}
	client := &http.Client{Timeout: opts.Timeout}
	return &PageFetcher{
		client: client,
		robots: NewRobots(client, opts.UserAgent),
		opts:   opts,
	}
}

// FetchPage GETs a page and returns its parsed document. The robots.txt
// check is best-effort: an unreachable robots.txt allows the fetch, an
// explicit disallow returns an error.
func (f *PageFetcher) FetchPage(ctx context.Context, pageURL string) (*goquery.Document, error) {
	allowed, robotsErr := f.robots.IsAllowed(ctx, pageURL)
	if robotsErr != nil {
		zap.L().Debug("robots check failed, proceeding",
			zap.String("url", pageURL),
			zap.Error(robotsErr),
		)
	} else if !allowed {
		return nil, eris.Errorf("fetcher: robots.txt disallows %s", pageURL)
	}

	f.politeDelay(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: fetch page")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, eris.Errorf("fetcher: unexpected status %d from %s", resp.StatusCode, pageURL)
	}

	body := decodeCharset(io.LimitReader(resp.Body, pageMaxBodyBytes), resp.Header.Get("Content-Type"))
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: parse page")
	}

	return doc, nil
}

// politeDelay sleeps a random duration between MinDelay and MaxDelay,
// returning early if the context is canceled.
func (f *PageFetcher) politeDelay(ctx context.Context) {
	if f.opts.MaxDelay <= 0 {
		return
	}
	d := f.opts.MinDelay
	if f.opts.MaxDelay > f.opts.MinDelay {
		d += time.Duration(rand.Int64N(int64(f.opts.MaxDelay - f.opts.MinDelay)))
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// decodeCharset wraps the body in a charset decoder when the Content-Type
// names a non-UTF-8 encoding htmlindex knows. Anything else passes through.
func decodeCharset(r io.Reader, contentType string) io.Reader {
	if contentType == "" {
		return r
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return r
	}
	name := params["charset"]
	if name == "" || strings.EqualFold(name, "utf-8") {
		return r
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return r
	}
	return enc.NewDecoder().Reader(r)
}
