package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/havenpaws/prospect-cli/internal/discovery"
)

// mockOrchestrator drives a job's worker from the test.
type mockOrchestrator struct {
	runFunc func(ctx context.Context, p discovery.Params, progress discovery.ProgressFunc) (*discovery.Result, error)
}

var _ Orchestrator = (*mockOrchestrator)(nil)

func (m *mockOrchestrator) Run(ctx context.Context, p discovery.Params, progress discovery.ProgressFunc) (*discovery.Result, error) {
	return m.runFunc(ctx, p, progress)
}

func waitForStatus(t *testing.T, r *Runner, id, status string) Job {
	t.Helper()
	var job Job
	require.Eventually(t, func() bool {
		j, ok := r.Get(id)
		if !ok {
			return false
		}
		job = j
		return j.Status == status
	}, 2*time.Second, 5*time.Millisecond, "job never reached status %q", status)
	return job
}

func TestSubmitValidatesSynchronously(t *testing.T) {
	r := NewRunner(&mockOrchestrator{})
	id, err := r.Submit(context.Background(), discovery.Params{Limit: -1})
	require.Error(t, err)
	assert.Empty(t, id)
}

func TestSubmitWithoutOrchestrator(t *testing.T) {
	r := NewRunner(nil)
	_, err := r.Submit(context.Background(), discovery.Params{})
	require.Error(t, err)
}

func TestGetUnknownJob(t *testing.T) {
	r := NewRunner(&mockOrchestrator{})
	_, ok := r.Get("nope")
	assert.False(t, ok)
}

func TestJobLifecycleCompletes(t *testing.T) {
	orch := &mockOrchestrator{
		runFunc: func(_ context.Context, _ discovery.Params, progress discovery.ProgressFunc) (*discovery.Result, error) {
			progress(discovery.Event{Step: "collecting_sources", Status: discovery.StatusRunning, Message: "Collecting...", Progress: 10})
			progress(discovery.Event{Step: "filtered", Status: discovery.StatusRunning, Progress: 62, Matched: 3})
			return &discovery.Result{MatchedCount: 3, SavedCount: 3}, nil
		},
	}
	r := NewRunner(orch)

	id, err := r.Submit(context.Background(), discovery.Params{
		Location: "Portland OR", Limit: 3, DryRun: true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	job := waitForStatus(t, r, id, StatusCompleted)
	assert.Equal(t, "complete", job.Step)
	assert.Equal(t, 100, job.Progress)
	assert.Equal(t, "3 matches processed.", job.Message)
	require.NotNil(t, job.Result)
	assert.Equal(t, 3, job.Result.MatchedCount)
	assert.Nil(t, job.Error)
	require.NotNil(t, job.StartedAt)
	require.NotNil(t, job.FinishedAt)
	assert.False(t, job.FinishedAt.Before(*job.StartedAt))

	assert.Equal(t, "Portland OR", job.Payload.Location)
	assert.Equal(t, 3, job.Payload.Limit)
	assert.True(t, job.Payload.DryRun)
}

func TestJobProgressMergesMonotonically(t *testing.T) {
	release := make(chan struct{})
	orch := &mockOrchestrator{
		runFunc: func(_ context.Context, _ discovery.Params, progress discovery.ProgressFunc) (*discovery.Result, error) {
			progress(discovery.Event{Step: "upserting", Status: discovery.StatusRunning, Message: "Importing...", Progress: 70})
			progress(discovery.Event{Step: "upserting", Status: discovery.StatusWarning, Message: "Issue importing Paws Co: boom"})
			progress(discovery.Event{Step: "google_places", Status: discovery.StatusRunning, Progress: 20})
			<-release
			return &discovery.Result{}, nil
		},
	}
	r := NewRunner(orch)
	id, err := r.Submit(context.Background(), discovery.Params{})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		j, ok := r.Get(id)
		return ok && j.Step == "google_places"
	}, 2*time.Second, 5*time.Millisecond)

	job, ok := r.Get(id)
	require.True(t, ok)
	assert.Equal(t, 70, job.Progress, "progress never moves backwards")
	assert.Equal(t, "Issue importing Paws Co: boom", job.Message,
		"an event without a message keeps the previous one")

	close(release)
	waitForStatus(t, r, id, StatusCompleted)
}

func TestJobWarningStatusIsTransient(t *testing.T) {
	orch := &mockOrchestrator{
		runFunc: func(_ context.Context, _ discovery.Params, progress discovery.ProgressFunc) (*discovery.Result, error) {
			progress(discovery.Event{
				Step: "serpapi", Status: discovery.StatusWarning,
				Message: "Stopped SerpAPI early.", Progress: 40,
				StoppedEarly: true, StopReason: "serpapi_stage_deadline",
			})
			return &discovery.Result{StoppedEarly: true}, nil
		},
	}
	r := NewRunner(orch)
	id, err := r.Submit(context.Background(), discovery.Params{})
	require.NoError(t, err)

	job := waitForStatus(t, r, id, StatusCompleted)
	require.NotNil(t, job.Result)
	assert.True(t, job.Result.StoppedEarly)
	require.NotNil(t, job.Event)
	assert.Equal(t, "serpapi_stage_deadline", job.Event.StopReason)
}

func TestJobFailureCapturesError(t *testing.T) {
	orch := &mockOrchestrator{
		runFunc: func(context.Context, discovery.Params, discovery.ProgressFunc) (*discovery.Result, error) {
			return nil, eris.New("discovery: radius_miles must not be negative")
		},
	}
	r := NewRunner(orch)
	id, err := r.Submit(context.Background(), discovery.Params{})
	require.NoError(t, err)

	job := waitForStatus(t, r, id, StatusFailed)
	assert.Equal(t, "error", job.Step)
	require.NotNil(t, job.Error)
	assert.Contains(t, job.Error.Message, "radius_miles")
	assert.Empty(t, job.Error.Stack)
	require.NotNil(t, job.FinishedAt)
	assert.Nil(t, job.Result)
}

func TestJobPanicIsCaptured(t *testing.T) {
	orch := &mockOrchestrator{
		runFunc: func(context.Context, discovery.Params, discovery.ProgressFunc) (*discovery.Result, error) {
			panic("nil map write")
		},
	}
	r := NewRunner(orch)
	id, err := r.Submit(context.Background(), discovery.Params{})
	require.NoError(t, err)

	job := waitForStatus(t, r, id, StatusFailed)
	require.NotNil(t, job.Error)
	assert.Contains(t, job.Error.Message, "nil map write")
	assert.NotEmpty(t, job.Error.Stack)
	assert.Contains(t, job.Error.Stack, "goroutine")
}

func TestSubmitIssuesDistinctIDs(t *testing.T) {
	orch := &mockOrchestrator{
		runFunc: func(context.Context, discovery.Params, discovery.ProgressFunc) (*discovery.Result, error) {
			return &discovery.Result{}, nil
		},
	}
	r := NewRunner(orch)

	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		id, err := r.Submit(context.Background(), discovery.Params{})
		require.NoError(t, err)
		assert.False(t, seen[id])
		seen[id] = true
	}
	for id := range seen {
		waitForStatus(t, r, id, StatusCompleted)
	}
}
