package source

import (
	"context"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/havenpaws/prospect-cli/internal/candidate"
)

// FeedOptions configures the shelter-listing feed import.
type FeedOptions struct {
	URL        string
	MaxEntries int
	HTTPClient *http.Client
}

// FeedImport pulls organizations from a shelter-directory RSS feed. The
// feed is a thin supplemental source: fixed moderate score, nonprofit
// category, entry cap.
type FeedImport struct {
	opts   FeedOptions
	parser *gofeed.Parser
	log    *zap.Logger
}

// NewFeedImport builds the feed provider.
func NewFeedImport(opts FeedOptions) *FeedImport {
	if opts.MaxEntries < 1 {
		opts.MaxEntries = 50
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &FeedImport{
		opts:   opts,
		parser: gofeed.NewParser(),
		log:    zap.L().With(zap.String("component", "source.feed")),
	}
}

func (f *FeedImport) Name() string { return "feed_import" }

func (f *FeedImport) Collect(ctx context.Context, req Request) (Result, error) {
	var res Result
	if f.opts.URL == "" {
		return res, nil
	}

	fctx, cancel := req.Deadline.Context(ctx)
	defer cancel()

	req2, err := http.NewRequestWithContext(fctx, http.MethodGet, f.opts.URL, nil)
	if err != nil {
		return res, eris.Wrap(err, "source: create feed request")
	}

	resp, err := f.opts.HTTPClient.Do(req2)
	if err != nil {
		return res, eris.Wrap(err, "source: fetch feed")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return res, eris.Errorf("source: feed returned status %d", resp.StatusCode)
	}

	feed, err := f.parser.Parse(resp.Body)
	if err != nil {
		return res, eris.Wrap(err, "source: parse feed")
	}

	for _, item := range feed.Items {
		if len(res.Candidates) >= f.opts.MaxEntries {
			break
		}
		res.Candidates = append(res.Candidates, candidate.FromFeed(candidate.FeedEntry{
			Title: item.Title,
			Link:  item.Link,
		}))
	}

	f.log.Debug("feed entries collected", zap.Int("count", len(res.Candidates)))
	return res, nil
}
