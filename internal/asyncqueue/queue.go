// Package asyncqueue implements the single process-wide event queue that
// backs AsyncImmediate and Hybrid delivery (spec §4.3): an unbounded,
// mutex-protected sequence of events, a background drain task woken by a
// ticker or a manual trigger, and a synchronous flush-now barrier. Async
// immediate mode is loss-free by design (spec §4.1): the queue trades
// memory for completeness and never exerts back-pressure on producers or
// drops an enqueued event.
package asyncqueue // import "github.com/tracescope/scopetrace/internal/asyncqueue"

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/tracescope/scopetrace/internal/event"
	"github.com/tracescope/scopetrace/periodiccaller"
	"github.com/tracescope/scopetrace/successfailurecounter"
)

// Queue is the asynchronous event sink. A Queue is constructed once and
// Start/Stop are idempotent (spec §4.3: "guarded by a one-shot latch").
type Queue struct {
	mu  sync.Mutex
	buf []event.Event

	enqueued atomic.Uint64
	written  atomic.Uint64
	running  atomic.Bool

	sinkSuccess atomic.Uint64
	sinkFailure atomic.Uint64

	startOnce sync.Once
	stopOnce  sync.Once
	stopFn    func()
	trigger   chan bool

	drainInterval time.Duration
	flushTimeout  time.Duration

	// batchSize caps how many events drainOnce hands the sink in a single
	// call (spec §6's queue_batch_hint); it never bounds how many events
	// the queue can hold. 0 means "no chunking, one call per drain pass".
	batchSize uint32

	// sink receives each drained batch, in order, writes it through the
	// text emitter and byte-flushes the underlying file, and reports
	// whether every event in the batch was written successfully. It is
	// called from the drain goroutine only, possibly more than once per
	// drain pass when the pass is split into batchSize-sized chunks.
	sink func([]event.Event) bool
}

// New returns a Queue that drains every interval (or on manual trigger)
// into sink. flushTimeout bounds FlushNow's wait. batchHint caps the
// number of events handed to a single sink call within one drain pass
// (0 disables chunking); it is a throughput knob, not a capacity limit —
// the queue itself never drops an enqueued event.
func New(interval, flushTimeout time.Duration, batchHint uint32, sink func([]event.Event) bool) *Queue {
	return &Queue{
		drainInterval: interval,
		flushTimeout:  flushTimeout,
		trigger:       make(chan bool),
		batchSize:     batchHint,
		sink:          sink,
	}
}

// Start launches the drain task. Subsequent calls are no-ops.
func (q *Queue) Start() {
	q.startOnce.Do(func() {
		q.running.Store(true)
		q.stopFn = periodiccaller.StartWithManualTriggerAndJoin(
			q.drainInterval, q.trigger, q.drainOnce)
	})
}

// Stop signals the drain task to exit, waits for it to perform its
// guaranteed final drain, and joins it. Subsequent calls are no-ops.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() {
		q.running.Store(false)
		if q.stopFn != nil {
			q.stopFn()
		}
	})
}

// Enqueue appends ev to the queue and wakes the drain task. Safe to call
// from any goroutine; never blocks on I/O. The queue grows to hold every
// enqueued event; it never drops one to bound its own size.
func (q *Queue) Enqueue(ev event.Event) {
	q.mu.Lock()
	q.buf = append(q.buf, ev)
	q.mu.Unlock()
	q.enqueued.Add(1)

	select {
	case q.trigger <- true:
	default:
		// Drain task is already awake processing a previous signal or a
		// ticker tick; it will pick this event up on its next pass
		// regardless, so a non-blocking send is sufficient here.
	}
}

// drainOnce swaps the buffer out under the mutex (O(1), no copy), then
// writes the local batch to the sink outside the lock, in chunks of at
// most batchSize events when batchSize is set. Every drained event is
// written; none are dropped. Records one success/failure verdict for
// the whole pass.
func (q *Queue) drainOnce(_ bool) {
	q.mu.Lock()
	local := q.buf
	q.buf = nil
	q.mu.Unlock()

	if len(local) == 0 {
		return
	}

	sfc := successfailurecounter.New(&q.sinkSuccess, &q.sinkFailure)
	defer sfc.DefaultToFailure()

	chunk := len(local)
	if q.batchSize > 0 && int(q.batchSize) < chunk {
		chunk = int(q.batchSize)
	}

	ok := true
	for i := 0; i < len(local); i += chunk {
		end := i + chunk
		if end > len(local) {
			end = len(local)
		}
		if !q.sink(local[i:end]) {
			ok = false
		}
		q.written.Add(uint64(end - i))
	}

	if ok {
		sfc.ReportSuccess()
	} else {
		sfc.ReportFailure()
	}
}

// FlushNow blocks until every enqueued event as of this call has been
// written, or flushTimeout elapses, whichever comes first. Returns false
// on timeout. Matches spec §4.3's "synchronous barrier ... before
// inducing a crash for debugging" use case. Because the queue never
// drops events, written reaches enqueued's snapshot on every successful
// call (spec §8 property 5: total-written equals total-enqueued).
func (q *Queue) FlushNow() bool {
	target := q.enqueued.Load()

	deadline := time.Now().Add(q.flushTimeout)
	for q.written.Load() < target {
		select {
		case q.trigger <- true:
		default:
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(time.Millisecond)
	}
	return true
}

// Stats returns the current enqueued/written counters, exposed for tests
// and the statistics aggregator.
func (q *Queue) Stats() (enqueued, written uint64) {
	return q.enqueued.Load(), q.written.Load()
}

// SinkStats returns the number of drain passes whose sink call(s)
// reported success versus failure, as tracked by
// successfailurecounter.
func (q *Queue) SinkStats() (success, failure uint64) {
	return q.sinkSuccess.Load(), q.sinkFailure.Load()
}

// Running reports whether the drain task is currently active.
func (q *Queue) Running() bool { return q.running.Load() }
