// Package jobs runs discovery asynchronously and serves progress snapshots
// to pollers. One goroutine per job; the job map is the only shared state.
package jobs

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/havenpaws/prospect-cli/internal/discovery"
)

// Job statuses. Warning is a transient status surfaced from run events.
const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusWarning   = "warning"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// stackFrames bounds the stack captured from a panicking worker.
const stackFrames = 5

// Error carries a failed job's message and a truncated stack when the
// failure was a panic.
type Error struct {
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

// Payload echoes the submitted parameters back to pollers. Exclude keys
// are summarized as a count; the full list can be large.
type Payload struct {
	Location          string  `json:"location,omitempty"`
	RadiusMiles       float64 `json:"radius_miles,omitempty"`
	Limit             int     `json:"limit,omitempty"`
	MinScore          int     `json:"min_score,omitempty"`
	Mode              string  `json:"discovery_mode,omitempty"`
	MaxRuntimeSeconds float64 `json:"max_runtime_seconds,omitempty"`
	ExcludedKeyCount  int     `json:"exclude_record_keys_count"`
	DryRun            bool    `json:"dry_run"`
	ExtractContacts   bool    `json:"extract_contacts"`
	ContactPreview    bool    `json:"contact_preview,omitempty"`
}

// Job is one tracked discovery run. Snapshots returned by Get are copies;
// Result and Event values are never mutated after being attached.
type Job struct {
	ID         string            `json:"job_id"`
	Type       string            `json:"job_type"`
	Status     string            `json:"status"`
	Step       string            `json:"step"`
	Message    string            `json:"message"`
	Progress   int               `json:"progress"`
	Payload    Payload           `json:"payload"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
	StartedAt  *time.Time        `json:"started_at"`
	FinishedAt *time.Time        `json:"finished_at"`
	Result     *discovery.Result `json:"result"`
	Error      *Error            `json:"error"`
	// Event holds the latest raw progress event for detail fields the
	// summary columns above do not carry.
	Event *discovery.Event `json:"event,omitempty"`
}

// Orchestrator is the work a job executes.
type Orchestrator interface {
	Run(ctx context.Context, p discovery.Params, progress discovery.ProgressFunc) (*discovery.Result, error)
}

// Runner tracks jobs in memory. Jobs are never auto-deleted; the process
// lifetime bounds the map.
type Runner struct {
	orch Orchestrator
	log  *zap.Logger

	mu   sync.Mutex
	jobs map[string]*Job
}

// NewRunner builds a Runner around the given orchestrator.
func NewRunner(orch Orchestrator) *Runner {
	return &Runner{
		orch: orch,
		log:  zap.L().With(zap.String("component", "jobs")),
		jobs: make(map[string]*Job),
	}
}

// Submit validates params synchronously, registers a queued job, and
// spawns its worker. ctx should outlive the submitting request; the
// worker runs until the job finishes or ctx is cancelled.
func (r *Runner) Submit(ctx context.Context, p discovery.Params) (string, error) {
	if r.orch == nil {
		return "", eris.New("jobs: no orchestrator configured")
	}
	if err := p.Validate(); err != nil {
		return "", err
	}

	id := uuid.NewString()
	now := time.Now().UTC()
	job := &Job{
		ID:        id,
		Type:      "discovery",
		Status:    StatusQueued,
		Step:      "queued",
		Message:   "Discovery job queued.",
		CreatedAt: now,
		UpdatedAt: now,
		Payload: Payload{
			Location:          p.Location,
			RadiusMiles:       p.RadiusMiles,
			Limit:             p.Limit,
			MinScore:          p.MinScore,
			Mode:              p.Mode,
			MaxRuntimeSeconds: p.MaxRuntimeSeconds,
			ExcludedKeyCount:  len(p.ExcludeKeys),
			DryRun:            p.DryRun,
			ExtractContacts:   p.ExtractContacts,
			ContactPreview:    p.ContactPreview,
		},
	}

	r.mu.Lock()
	r.jobs[id] = job
	r.mu.Unlock()

	r.log.Info("discovery job submitted", zap.String("job_id", id))
	go r.work(ctx, id, p)
	return id, nil
}

// Get returns a snapshot of the job.
func (r *Runner) Get(id string) (Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

func (r *Runner) work(ctx context.Context, id string, p discovery.Params) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("discovery job panicked", zap.String("job_id", id), zap.Any("panic", rec))
			r.fail(id, fmt.Sprintf("Discovery job failed: %v", rec), truncatedStack())
		}
	}()

	r.update(id, func(j *Job) {
		j.Status = StatusRunning
		j.Step = "starting"
		j.Message = "Starting discovery pipeline..."
		j.Progress = 1
		now := time.Now().UTC()
		j.StartedAt = &now
	})

	res, err := r.orch.Run(ctx, p, func(ev discovery.Event) { r.apply(id, ev) })
	if err != nil {
		r.log.Error("discovery job failed", zap.String("job_id", id), zap.Error(err))
		r.fail(id, "Discovery job failed: "+err.Error(), "")
		return
	}

	r.update(id, func(j *Job) {
		j.Status = StatusCompleted
		j.Step = "complete"
		j.Message = fmt.Sprintf("%d matches processed.", res.MatchedCount)
		j.Progress = 100
		j.Result = res
		now := time.Now().UTC()
		j.FinishedAt = &now
	})
	r.log.Info("discovery job completed", zap.String("job_id", id),
		zap.Int("matched", res.MatchedCount), zap.Int("saved", res.SavedCount))
}

// apply merges a progress event into the job: fields overwrite only when
// the event carries them, and progress never moves backwards.
func (r *Runner) apply(id string, ev discovery.Event) {
	r.update(id, func(j *Job) {
		if ev.Status != "" {
			j.Status = ev.Status
		}
		if ev.Step != "" {
			j.Step = ev.Step
		}
		if ev.Message != "" {
			j.Message = ev.Message
		}
		if ev.Progress > j.Progress {
			j.Progress = ev.Progress
		}
		j.Event = &ev
	})
}

func (r *Runner) fail(id, message, stack string) {
	r.update(id, func(j *Job) {
		j.Status = StatusFailed
		j.Step = "error"
		j.Message = message
		j.Error = &Error{Message: message, Stack: stack}
		now := time.Now().UTC()
		j.FinishedAt = &now
	})
}

func (r *Runner) update(id string, fn func(*Job)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return
	}
	fn(job)
	job.UpdatedAt = time.Now().UTC()
}

// truncatedStack keeps the first frames of the current goroutine's stack,
// enough to locate a panic without dumping the whole trace.
func truncatedStack() string {
	buf := make([]byte, 8192)
	n := runtime.Stack(buf, false)
	lines := strings.Split(string(buf[:n]), "\n")
	keep := 1 + stackFrames*2
	if len(lines) > keep {
		lines = lines[:keep]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
