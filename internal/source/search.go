package source

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/havenpaws/prospect-cli/internal/candidate"
	"github.com/havenpaws/prospect-cli/internal/deadline"
	"github.com/havenpaws/prospect-cli/internal/resilience"
	"github.com/havenpaws/prospect-cli/pkg/serpapi"
)

// SearchOptions tunes the web-search stage.
type SearchOptions struct {
	// PerPage is the page size per request. The API caps organic pages at 10.
	PerPage int
	// StageBudget bounds the whole stage's wall time.
	StageBudget time.Duration
	// FailureBudget is how many consecutive empty or failed queries the
	// stage tolerates before giving up.
	FailureBudget int
}

// SearchEngine pulls organic web-search hits for each planned query.
// Queries paginate until their per-query target or a short page; the stage
// stops early on the global deadline, its own stage budget, or the
// consecutive-failure budget.
type SearchEngine struct {
	client serpapi.Client
	opts   SearchOptions
	log    *zap.Logger
}

// NewSearchEngine builds the web-search provider.
func NewSearchEngine(client serpapi.Client, opts SearchOptions) *SearchEngine {
	if opts.PerPage < 1 || opts.PerPage > 10 {
		opts.PerPage = 10
	}
	if opts.StageBudget <= 0 {
		opts.StageBudget = 90 * time.Second
	}
	if opts.FailureBudget < 1 {
		opts.FailureBudget = 4
	}
	return &SearchEngine{
		client: client,
		opts:   opts,
		log:    zap.L().With(zap.String("component", "source.serpapi")),
	}
}

func (s *SearchEngine) Name() string { return "serpapi" }

func (s *SearchEngine) Collect(ctx context.Context, req Request) (Result, error) {
	var res Result
	if s.client == nil {
		return res, nil
	}

	stage := req.Deadline.Budget(s.opts.StageBudget)
	failures := resilience.NewFailureBudget(s.opts.FailureBudget)

	for _, query := range req.Queries {
		if req.Deadline.Expired() {
			s.log.Info("global deadline reached before finishing search queries")
			res.StopReasons = append(res.StopReasons, StopGlobalDeadline)
			break
		}
		if stage.Expired() {
			s.log.Info("search stage budget reached")
			res.StopReasons = append(res.StopReasons, StopSearchDeadline)
			break
		}

		hits, err := s.pullQuery(ctx, query, req, stage)
		if err != nil {
			s.log.Warn("search query failed",
				zap.String("query", query),
				zap.Error(err),
			)
		}
		s.log.Debug("search query done", zap.String("query", query), zap.Int("hits", len(hits)))

		res.Candidates = append(res.Candidates, hits...)
		if len(hits) == 0 {
			if failures.Fail() {
				s.log.Info("search failure budget reached",
					zap.Int("consecutive_failures", failures.Failures()),
				)
				res.StopReasons = append(res.StopReasons, StopSearchFailures)
				break
			}
			continue
		}
		failures.Succeed()
	}

	return res, nil
}

// pullQuery paginates one query until its target or a short page. An error
// on any page discards the query's hits; the caller counts it as a failure.
func (s *SearchEngine) pullQuery(ctx context.Context, query string, req Request, stage deadline.Deadline) ([]candidate.Organization, error) {
	target := req.PerQueryTarget
	if target < 1 {
		target = 10
	}
	if target > 100 {
		target = 100
	}

	qctx, cancel := stage.Context(ctx)
	defer cancel()

	var out []candidate.Organization
	start := 0
	for len(out) < target {
		batch := target - len(out)
		if batch > s.opts.PerPage {
			batch = s.opts.PerPage
		}

		results, err := s.client.Search(qctx, query, batch, start)
		if err != nil {
			return nil, eris.Wrapf(err, "source: search %q", query)
		}
		if len(results) == 0 {
			break
		}

		for _, r := range results {
			if len(out) >= target {
				break
			}
			out = append(out, candidate.FromSearch(candidate.SearchHit{
				Title:         r.Title,
				Link:          r.Link,
				Snippet:       r.Snippet,
				Query:         query,
				LocationQuery: req.LocationQuery,
			}))
		}

		if len(results) < batch {
			break
		}
		start += len(results)
	}

	return out, nil
}
