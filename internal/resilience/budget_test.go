package resilience

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFailureBudget_ConsecutiveFailures(t *testing.T) {
	b := NewFailureBudget(3)

	assert.False(t, b.Fail())
	assert.False(t, b.Fail())
	assert.False(t, b.Exhausted())
	assert.True(t, b.Fail())
	assert.True(t, b.Exhausted())
	assert.Equal(t, 3, b.Failures())
}

func TestFailureBudget_SucceedResets(t *testing.T) {
	b := NewFailureBudget(2)

	assert.False(t, b.Fail())
	b.Succeed()
	assert.Equal(t, 0, b.Failures())

	assert.False(t, b.Fail())
	assert.True(t, b.Fail())
}

func TestFailureBudget_MinimumThreshold(t *testing.T) {
	b := NewFailureBudget(0)
	assert.True(t, b.Fail())
}

func TestFailureBudget_ConcurrentFailures(t *testing.T) {
	b := NewFailureBudget(100)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Fail()
		}()
	}
	wg.Wait()

	assert.True(t, b.Exhausted())
	assert.Equal(t, 100, b.Failures())
}
