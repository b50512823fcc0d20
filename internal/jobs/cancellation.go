// Package jobs tracks per-job cooperative cancellation. A flag never stops
// running work by itself; pipeline stages poll it at checkpoints and wind
// down on their own.
package jobs

import (
	"sync"
	"sync/atomic"
)

// Flag is a monotonic cancellation marker: once set it is never cleared.
type Flag struct {
	cancelled atomic.Bool
}

func (f *Flag) Cancel() {
	f.cancelled.Store(true)
}

func (f *Flag) Cancelled() bool {
	return f.cancelled.Load()
}

// Registry associates at most one Flag with each job id.
type Registry struct {
	mu    sync.Mutex
	flags map[string]*Flag
}

func NewRegistry() *Registry {
	return &Registry{flags: make(map[string]*Flag)}
}

// NewFlag returns the flag for jobID, creating it if absent. Concurrent
// callers always converge on the same Flag instance.
func (r *Registry) NewFlag(jobID string) *Flag {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.flags[jobID]; ok {
		return f
	}
	f := &Flag{}
	r.flags[jobID] = f
	return f
}

func (r *Registry) Get(jobID string) (*Flag, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.flags[jobID]
	return f, ok
}

// Cancel sets the flag for jobID and reports whether one was registered.
// Cancelling an unknown job is a no-op and does not create a flag.
func (r *Registry) Cancel(jobID string) bool {
	r.mu.Lock()
	f, ok := r.flags[jobID]
	r.mu.Unlock()
	if !ok {
		return false
	}
	f.Cancel()
	return true
}

func (r *Registry) Cancelled(jobID string) bool {
	f, ok := r.Get(jobID)
	return ok && f.Cancelled()
}

// Remove drops the flag for jobID. Safe to call whether or not one exists;
// invoked when a job reaches a terminal state so the registry stays bounded.
func (r *Registry) Remove(jobID string) {
	r.mu.Lock()
	delete(r.flags, jobID)
	r.mu.Unlock()
}
