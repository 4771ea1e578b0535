// Package resilience provides small failure-accounting primitives for
// stages that call flaky external services.
package resilience

import "sync"

// FailureBudget counts failures against a fixed allowance. Succeed resets
// the count, which gives consecutive-failure semantics; callers that never
// report success get a cumulative error counter instead. Safe for
// concurrent use.
type FailureBudget struct {
	mu        sync.Mutex
	threshold int
	failures  int
}

// NewFailureBudget returns a budget that exhausts after threshold failures.
// Thresholds below one are raised to one.
func NewFailureBudget(threshold int) *FailureBudget {
	if threshold < 1 {
		threshold = 1
	}
	return &FailureBudget{threshold: threshold}
}

// Fail records a failure and reports whether the budget is now exhausted.
func (b *FailureBudget) Fail() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	return b.failures >= b.threshold
}

// Succeed resets the failure count.
func (b *FailureBudget) Succeed() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
}

// Exhausted reports whether the budget has been used up.
func (b *FailureBudget) Exhausted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures >= b.threshold
}

// Failures returns the current failure count.
func (b *FailureBudget) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}
