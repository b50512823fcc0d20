package jobs

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFlagConvergesUnderConcurrency(t *testing.T) {
	r := NewRegistry()
	const workers = 32

	flags := make([]*Flag, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			flags[n] = r.NewFlag("job-1")
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		require.Same(t, flags[0], flags[i], "all callers must get the same flag instance")
	}
}

func TestCancelIsMonotonic(t *testing.T) {
	r := NewRegistry()
	r.NewFlag("job-1")

	assert.False(t, r.Cancelled("job-1"))
	assert.True(t, r.Cancel("job-1"))
	assert.True(t, r.Cancelled("job-1"))

	// Repeated cancels are idempotent and the flag never clears.
	assert.True(t, r.Cancel("job-1"))
	assert.True(t, r.Cancelled("job-1"))
}

func TestCancelGhostJobReturnsFalse(t *testing.T) {
	r := NewRegistry()
	assert.False(t, r.Cancel("ghost-job"))

	// Cancelling an unknown job must not create a flag as a side effect.
	_, ok := r.Get("ghost-job")
	assert.False(t, ok)
	assert.False(t, r.Cancelled("ghost-job"))
}

func TestRemoveIsIdempotent(t *testing.T) {
	r := NewRegistry()
	r.NewFlag("job-1")
	r.Remove("job-1")
	r.Remove("job-1")
	r.Remove("never-registered")

	_, ok := r.Get("job-1")
	assert.False(t, ok)
}

func TestFlagSurvivesRemoveForHolders(t *testing.T) {
	r := NewRegistry()
	f := r.NewFlag("job-1")
	r.Cancel("job-1")
	r.Remove("job-1")

	// A stage still holding the handle keeps observing the cancellation.
	assert.True(t, f.Cancelled())
}
