package deadline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZeroNeverExpires(t *testing.T) {
	var d Deadline
	assert.True(t, d.IsZero())
	assert.False(t, d.Expired())
	assert.Greater(t, d.Remaining(), 24*time.Hour)
}

func TestAfterExpires(t *testing.T) {
	d := After(-time.Second)
	assert.True(t, d.Expired())
	assert.Equal(t, time.Duration(0), d.Remaining())

	d = After(time.Hour)
	assert.False(t, d.Expired())
	assert.Greater(t, d.Remaining(), 59*time.Minute)
}

func TestAt(t *testing.T) {
	cutoff := time.Now().Add(time.Minute)
	d := At(cutoff)
	assert.Equal(t, cutoff, d.Time())
	assert.False(t, d.Expired())
}

func TestMinPicksEarlier(t *testing.T) {
	early := After(time.Minute)
	late := After(time.Hour)

	assert.Equal(t, early.Time(), early.Min(late).Time())
	assert.Equal(t, early.Time(), late.Min(early).Time())
}

func TestMinZeroLoses(t *testing.T) {
	var none Deadline
	d := After(time.Minute)

	assert.Equal(t, d.Time(), none.Min(d).Time())
	assert.Equal(t, d.Time(), d.Min(none).Time())
	assert.True(t, none.Min(none).IsZero())
}

func TestBudgetCapsAtParent(t *testing.T) {
	parent := After(time.Second)
	staged := parent.Budget(time.Hour)
	assert.Equal(t, parent.Time(), staged.Time())

	shorter := parent.Budget(time.Millisecond)
	assert.True(t, shorter.Time().Before(parent.Time()))
}

func TestContextCancelsAtCutoff(t *testing.T) {
	d := After(10 * time.Millisecond)
	ctx, cancel := d.Context(context.Background())
	defer cancel()

	dl, ok := ctx.Deadline()
	require.True(t, ok)
	assert.Equal(t, d.Time(), dl)

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled at deadline")
	}
}

func TestContextZeroPassesThrough(t *testing.T) {
	var none Deadline
	parent := context.Background()
	ctx, cancel := none.Context(parent)
	defer cancel()

	_, ok := ctx.Deadline()
	assert.False(t, ok)
}
