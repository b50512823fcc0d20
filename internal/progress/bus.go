// Package progress turns asynchronous, multi-stage job execution into an
// ordered live event stream per job. Pipeline stages push events; a single
// consumer drains them, typically as Server-Sent-Events.
package progress

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultIdleTimeout caps how long a stream waits for the next event before
// giving up with a timeout frame. An idle job's stream never blocks forever.
const DefaultIdleTimeout = 5 * time.Minute

type Kind string

const (
	KindProgress Kind = "progress"
	KindDone     Kind = "done"
	KindError    Kind = "error"
	KindTimeout  Kind = "timeout"

	// kindClose is the internal end-of-stream sentinel; it is never
	// delivered to a consumer.
	kindClose Kind = ""
)

// Event is one frame of a job's progress stream.
type Event struct {
	Kind    Kind
	Payload map[string]any
}

// JSON serializes the event as a flat object: the payload fields plus an
// "event" discriminator.
func (e Event) JSON() []byte {
	obj := make(map[string]any, len(e.Payload)+1)
	for k, v := range e.Payload {
		obj[k] = v
	}
	obj["event"] = string(e.Kind)
	b, err := json.Marshal(obj)
	if err != nil {
		b, _ = json.Marshal(map[string]string{"event": string(KindError), "message": err.Error()})
	}
	return b
}

// queue is an unbounded FIFO for one job. Enqueue/dequeue take only the
// queue's own lock, never the bus registry lock.
type queue struct {
	mu     sync.Mutex
	events []Event
	closed bool
	wake   chan struct{}
}

func newQueue() *queue {
	return &queue{wake: make(chan struct{}, 1)}
}

func (q *queue) push(e Event) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.events = append(q.events, e)
	if e.Kind == kindClose {
		q.closed = true
	}
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

type popStatus int

const (
	popOK popStatus = iota
	popClosed
	popTimeout
	popCancelled
)

// pop blocks until an event is available, the idle timeout elapses, or ctx
// is cancelled. The queue lock is never held while waiting.
func (q *queue) pop(ctx context.Context, idle time.Duration) (Event, popStatus) {
	timer := time.NewTimer(idle)
	defer timer.Stop()
	for {
		q.mu.Lock()
		if len(q.events) > 0 {
			e := q.events[0]
			q.events = q.events[1:]
			q.mu.Unlock()
			if e.Kind == kindClose {
				return Event{}, popClosed
			}
			return e, popOK
		}
		q.mu.Unlock()

		select {
		case <-q.wake:
		case <-timer.C:
			return Event{}, popTimeout
		case <-ctx.Done():
			return Event{}, popCancelled
		}
	}
}

// Bus is the per-process progress event registry, one queue per live job.
type Bus struct {
	mu          sync.Mutex
	queues      map[string]*queue
	IdleTimeout time.Duration
}

func NewBus() *Bus {
	return &Bus{
		queues:      make(map[string]*queue),
		IdleTimeout: DefaultIdleTimeout,
	}
}

// NewJob allocates a fresh job id with a queue attached.
func (b *Bus) NewJob() string {
	jobID := uuid.NewString()
	b.Ensure(jobID)
	return jobID
}

// Ensure installs a queue for jobID if none exists. Idempotent: concurrent
// callers converge on one queue.
func (b *Bus) Ensure(jobID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.queues[jobID]; !ok {
		b.queues[jobID] = newQueue()
	}
}

func (b *Bus) get(jobID string) (*queue, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	q, ok := b.queues[jobID]
	return q, ok
}

// Send enqueues a progress event. Sends for an unknown or already closed
// job are dropped silently; late producer writes after the consumer is gone
// are expected and must not fail.
func (b *Bus) Send(jobID string, payload map[string]any) {
	if q, ok := b.get(jobID); ok {
		q.push(Event{Kind: KindProgress, Payload: payload})
	}
}

// Finalize enqueues a done event followed by the end-of-stream sentinel.
func (b *Bus) Finalize(jobID string, payload map[string]any) {
	if q, ok := b.get(jobID); ok {
		q.push(Event{Kind: KindDone, Payload: payload})
		q.push(Event{Kind: kindClose})
	}
}

// Error enqueues an error event followed by the end-of-stream sentinel.
func (b *Bus) Error(jobID string, message string) {
	if q, ok := b.get(jobID); ok {
		q.push(Event{Kind: KindError, Payload: map[string]any{"message": message}})
		q.push(Event{Kind: kindClose})
	}
}

// Cleanup drops the queue for jobID. Subsequent sends are no-ops.
func (b *Bus) Cleanup(jobID string) {
	b.mu.Lock()
	delete(b.queues, jobID)
	b.mu.Unlock()
}

// Stream drains jobID's queue in FIFO order, invoking fn for every event
// until the stream terminates. fn returning false stops the stream (the
// consumer went away). The stream is finite and not restartable: on any
// termination the queue is removed from the registry.
//
// Termination cases, each ending the stream after at most one final frame:
// unknown job -> one error frame; idle timeout -> one timeout frame;
// sentinel (finalize/error) -> clean close; ctx cancelled -> no extra frame.
func (b *Bus) Stream(ctx context.Context, jobID string, fn func(Event) bool) {
	q, ok := b.get(jobID)
	if !ok {
		fn(Event{Kind: KindError, Payload: map[string]any{"message": "job not found: " + jobID}})
		return
	}
	defer b.Cleanup(jobID)

	for {
		e, status := q.pop(ctx, b.IdleTimeout)
		switch status {
		case popOK:
			if !fn(e) {
				return
			}
		case popClosed:
			return
		case popTimeout:
			fn(Event{Kind: KindTimeout, Payload: map[string]any{"message": "no progress events received", "job_id": jobID}})
			return
		case popCancelled:
			return
		}
	}
}
