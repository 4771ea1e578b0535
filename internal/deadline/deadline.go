// Package deadline provides a small value type for wall-clock budgets.
//
// Discovery stages share one global deadline and derive shorter per-stage
// deadlines from it. Centralizing the arithmetic here keeps every stage on
// the same rules: check before unit work, degrade on expiry, never block
// past the cutoff.
package deadline

import (
	"context"
	"time"
)

// Deadline is a wall-clock cutoff. The zero value means "no deadline".
type Deadline struct {
	at time.Time
}

// After returns a deadline d from now.
func After(d time.Duration) Deadline {
	return Deadline{at: time.Now().Add(d)}
}

// At returns a deadline at the given instant.
func At(t time.Time) Deadline {
	return Deadline{at: t}
}

// IsZero reports whether no deadline is set.
func (d Deadline) IsZero() bool {
	return d.at.IsZero()
}

// Time returns the cutoff instant. Zero time when no deadline is set.
func (d Deadline) Time() time.Time {
	return d.at
}

// Expired reports whether the cutoff has passed. A zero deadline never expires.
func (d Deadline) Expired() bool {
	if d.at.IsZero() {
		return false
	}
	return !time.Now().Before(d.at)
}

// Remaining returns the time left until the cutoff, clamped at zero.
// A zero deadline reports a very large remaining budget.
func (d Deadline) Remaining() time.Duration {
	if d.at.IsZero() {
		return time.Duration(1<<63 - 1)
	}
	r := time.Until(d.at)
	if r < 0 {
		return 0
	}
	return r
}

// Min returns the earlier of the two deadlines. A zero deadline always loses.
func (d Deadline) Min(other Deadline) Deadline {
	if d.at.IsZero() {
		return other
	}
	if other.at.IsZero() {
		return d
	}
	if other.at.Before(d.at) {
		return other
	}
	return d
}

// Budget returns a deadline at most budget from now, never later than d.
func (d Deadline) Budget(budget time.Duration) Deadline {
	return d.Min(After(budget))
}

// Context derives a context that is cancelled at the cutoff. For a zero
// deadline the parent is returned with a no-op cancel.
func (d Deadline) Context(parent context.Context) (context.Context, context.CancelFunc) {
	if d.at.IsZero() {
		return parent, func() {}
	}
	return context.WithDeadline(parent, d.at)
}
