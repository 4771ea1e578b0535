package source

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/havenpaws/prospect-cli/internal/candidate"
	"github.com/havenpaws/prospect-cli/internal/deadline"
	"github.com/havenpaws/prospect-cli/pkg/serpapi"
)

func organicPage(start, n int) []serpapi.OrganicResult {
	out := make([]serpapi.OrganicResult, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, serpapi.OrganicResult{
			Position: start + i + 1,
			Title:    fmt.Sprintf("Result %d", start+i+1),
			Link:     fmt.Sprintf("https://example.org/%d", start+i+1),
			Snippet:  "A company with a charitable giving program.",
		})
	}
	return out
}

func TestSearchEngine_PaginatesToPerQueryTarget(t *testing.T) {
	var starts []int
	mock := &mockSearchClient{
		searchFunc: func(_ context.Context, _ string, num, start int) ([]serpapi.OrganicResult, error) {
			starts = append(starts, start)
			return organicPage(start, num), nil
		},
	}

	engine := NewSearchEngine(mock, SearchOptions{})
	res, err := engine.Collect(context.Background(), Request{
		Queries:        []string{"pet company charitable giving"},
		LocationQuery:  "Portland, OR",
		PerQueryTarget: 25,
	})

	require.NoError(t, err)
	assert.Len(t, res.Candidates, 25)
	assert.Equal(t, []int{0, 10, 20}, starts)
	assert.Empty(t, res.StopReasons)

	first := res.Candidates[0]
	assert.Equal(t, candidate.SourceSerpAPI, first.Source)
	assert.Equal(t, "pet company charitable giving", first.SourceQuery)
	assert.True(t, first.LocationHinted)
	assert.Equal(t, 5, first.Score)
}

func TestSearchEngine_ShortPageEndsQuery(t *testing.T) {
	mock := &mockSearchClient{
		searchFunc: func(_ context.Context, _ string, _, start int) ([]serpapi.OrganicResult, error) {
			return organicPage(start, 3), nil
		},
	}

	engine := NewSearchEngine(mock, SearchOptions{})
	res, err := engine.Collect(context.Background(), Request{
		Queries:        []string{"only three hits"},
		PerQueryTarget: 30,
	})

	require.NoError(t, err)
	assert.Len(t, res.Candidates, 3)
	assert.Equal(t, 1, mock.calls)
}

func TestSearchEngine_FailureBudgetStopsStage(t *testing.T) {
	mock := &mockSearchClient{
		searchFunc: func(context.Context, string, int, int) ([]serpapi.OrganicResult, error) {
			return nil, eris.New("upstream 500")
		},
	}

	engine := NewSearchEngine(mock, SearchOptions{FailureBudget: 4})
	queries := make([]string, 10)
	for i := range queries {
		queries[i] = fmt.Sprintf("query %d", i)
	}
	res, err := engine.Collect(context.Background(), Request{Queries: queries, PerQueryTarget: 10})

	require.NoError(t, err)
	assert.Empty(t, res.Candidates)
	assert.Equal(t, []string{StopSearchFailures}, res.StopReasons)
	assert.Equal(t, 4, mock.calls)
}

func TestSearchEngine_SuccessResetsFailureBudget(t *testing.T) {
	var query int
	mock := &mockSearchClient{
		searchFunc: func(_ context.Context, _ string, _, start int) ([]serpapi.OrganicResult, error) {
			query++
			if query == 3 {
				return organicPage(start, 2), nil
			}
			return nil, nil
		},
	}

	engine := NewSearchEngine(mock, SearchOptions{FailureBudget: 3})
	queries := make([]string, 8)
	for i := range queries {
		queries[i] = fmt.Sprintf("query %d", i)
	}
	res, err := engine.Collect(context.Background(), Request{Queries: queries, PerQueryTarget: 2})

	require.NoError(t, err)
	// Queries 1-2 empty, 3 succeeds and resets, 4-6 empty again -> stop.
	assert.Len(t, res.Candidates, 2)
	assert.Equal(t, []string{StopSearchFailures}, res.StopReasons)
	assert.Equal(t, 6, mock.calls)
}

func TestSearchEngine_ExpiredGlobalDeadline(t *testing.T) {
	mock := &mockSearchClient{
		searchFunc: func(context.Context, string, int, int) ([]serpapi.OrganicResult, error) {
			t.Fatal("no query should run past the deadline")
			return nil, nil
		},
	}

	engine := NewSearchEngine(mock, SearchOptions{})
	res, err := engine.Collect(context.Background(), Request{
		Queries:  []string{"a", "b"},
		Deadline: deadline.At(time.Now().Add(-time.Second)),
	})

	require.NoError(t, err)
	assert.Empty(t, res.Candidates)
	assert.Equal(t, []string{StopGlobalDeadline}, res.StopReasons)
}

func TestSearchEngine_StageCappedAtGlobalDeadline(t *testing.T) {
	global := deadline.After(500 * time.Millisecond)
	var got time.Time
	mock := &mockSearchClient{
		searchFunc: func(ctx context.Context, _ string, _, start int) ([]serpapi.OrganicResult, error) {
			dl, ok := ctx.Deadline()
			require.True(t, ok)
			got = dl
			return organicPage(start, 1), nil
		},
	}

	// The stage budget is far larger than the run deadline; the query
	// context must still cut off at the run deadline.
	engine := NewSearchEngine(mock, SearchOptions{StageBudget: time.Hour})
	_, err := engine.Collect(context.Background(), Request{
		Queries:        []string{"capped"},
		PerQueryTarget: 1,
		Deadline:       global,
	})

	require.NoError(t, err)
	assert.False(t, got.After(global.Time()))
}

func TestSearchEngine_StageBudgetStopsBetweenQueries(t *testing.T) {
	mock := &mockSearchClient{
		searchFunc: func(_ context.Context, _ string, _, start int) ([]serpapi.OrganicResult, error) {
			time.Sleep(20 * time.Millisecond)
			return organicPage(start, 1), nil
		},
	}

	engine := NewSearchEngine(mock, SearchOptions{StageBudget: 10 * time.Millisecond})
	res, err := engine.Collect(context.Background(), Request{
		Queries:        []string{"first", "second", "third"},
		PerQueryTarget: 1,
	})

	require.NoError(t, err)
	// The first query runs, then the stage budget trips before the second.
	assert.Len(t, res.Candidates, 1)
	assert.Equal(t, []string{StopSearchDeadline}, res.StopReasons)
	assert.Equal(t, 1, mock.calls)
}
