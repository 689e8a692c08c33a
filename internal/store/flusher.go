package store

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// snapshot is one unit of work for the background writer: the serialized
// state of a resource, queued while its lock is still held so the queue
// preserves mutation order.
type snapshot struct {
	res  *resource
	data []byte
	// done, when non-nil, receives the final write result (sync flush).
	done chan error
}

// flusher is the single dedicated background writer behind the store.
// Mutations update the in-memory copy synchronously; the serialized
// snapshot is queued here and persisted off the request path. Call sites
// that need durability before responding enqueue with a done channel and
// wait.
//
// A failed write is retried with backoff instead of being dropped; after
// maxRetries the failure is logged at error level (and returned to sync
// callers) so the operator can act on it.
type flusher struct {
	queue      chan snapshot
	maxRetries int
	stopped    chan struct{}
}

func newFlusher(queueSize, maxRetries int) *flusher {
	if queueSize < 1 {
		queueSize = 64
	}
	if maxRetries < 1 {
		maxRetries = 3
	}
	f := &flusher{
		queue:      make(chan snapshot, queueSize),
		maxRetries: maxRetries,
		stopped:    make(chan struct{}),
	}
	go f.run()
	return f
}

func (f *flusher) run() {
	defer close(f.stopped)
	for snap := range f.queue {
		err := f.persist(snap)
		if snap.done != nil {
			snap.done <- err
		}
	}
}

func (f *flusher) persist(snap snapshot) error {
	var err error
	for attempt := 1; attempt <= f.maxRetries; attempt++ {
		err = snap.res.write(snap.data)
		if err == nil {
			return nil
		}
		log.Warn().
			Str("resource", snap.res.name).
			Int("attempt", attempt).
			Err(err).
			Msg("snapshot write failed, retrying")
		time.Sleep(time.Duration(attempt*attempt) * 100 * time.Millisecond)
	}
	log.Error().
		Str("resource", snap.res.name).
		Int("retries", f.maxRetries).
		Err(err).
		Msg("snapshot write failed permanently, durable state is stale")
	return fmt.Errorf("flush %s: %w", snap.res.name, err)
}

// submit schedules a write. The queue is bounded; if it is full the caller
// blocks until the writer catches up, which back-pressures writers instead
// of losing snapshots. With withDone the returned channel receives the
// final write result; otherwise it is nil.
func (f *flusher) submit(res *resource, data []byte, withDone bool) chan error {
	var done chan error
	if withDone {
		done = make(chan error, 1)
	}
	f.queue <- snapshot{res: res, data: data, done: done}
	return done
}

// close drains pending snapshots and stops the writer.
func (f *flusher) close() {
	close(f.queue)
	<-f.stopped
}
