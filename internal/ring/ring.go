// Package ring implements the per-goroutine fixed-capacity event store:
// the circular array(s) of event.Event slots and the parallel depth stack
// used to recover Enter/Exit nesting and duration even when an event is
// filtered out. A Ring is owned exclusively by one producer goroutine;
// other goroutines only read it, through flush (Snapshot/SwapAndDrain)
// and dump (DumpEvents). In double-buffer mode those reads go through
// the swap protocol under flushMu; in single-buffer mode they take no
// lock and can observe a slot the producer is writing (spec §4.1/§4.2/§9).
//
// The buffer/depth-stack mechanics here are grounded on reporter/fifo.go's
// FifoRingBuffer[T] (mutex-guarded head/count/overwrite bookkeeping over a
// fixed slice), generalized from a single array to an optional pair of
// arrays with an atomically-selected active index, and from a destructive
// drain to the non-destructive single-buffer semantics spec.md requires.
package ring // import "github.com/tracescope/scopetrace/internal/ring"

import (
	"sync"
	"sync/atomic"

	"github.com/tracescope/scopetrace/internal/event"
)

// Ring is a per-goroutine circular store of events plus the depth stack
// needed to stamp nested scopes with correct depth and duration.
type Ring struct {
	threadID    uint32
	colorOffset uint8
	capacity    uint32
	double      bool

	// buffers[0] is the only array in use unless double is true, in which
	// case buffers[1] is the standby array swapped in by SwapAndDrain.
	buffers [2][]event.Event
	head    [2]uint32
	wrap    [2]uint32

	// active selects which of buffers[...] the producer currently writes
	// to. Always 0 when double is false.
	active atomic.Int32

	// flushMu guards the double-buffer swap and the read-only dump
	// snapshot against each other; the producer's Write path never takes
	// it.
	flushMu sync.Mutex

	depth      int32
	startStack [event.MaxDepth]int64
	funcStack  [event.MaxDepth]string
	skipStack  [event.MaxDepth]bool

	// Registered is set by the registry once this ring has been added,
	// so a double registration (or a flush racing a not-yet-registered
	// ring) can be detected cheaply.
	Registered atomic.Bool
}

// New allocates a Ring with the given capacity. capacity must be > 0;
// callers (config.Validate) are responsible for enforcing that.
func New(capacity uint32, doubleBuffer bool, threadID uint32, colorOffset uint8) *Ring {
	r := &Ring{
		threadID:    threadID,
		colorOffset: colorOffset,
		capacity:    capacity,
		double:      doubleBuffer,
	}
	r.buffers[0] = make([]event.Event, capacity)
	if doubleBuffer {
		r.buffers[1] = make([]event.Event, capacity)
	}
	return r
}

// ThreadID returns the 32-bit hashed goroutine identity this ring belongs
// to.
func (r *Ring) ThreadID() uint32 { return r.threadID }

// ColorOffset returns the small palette offset derived from ThreadID.
func (r *Ring) ColorOffset() uint8 { return r.colorOffset }

// Depth returns the producer's current nesting depth.
func (r *Ring) Depth() int { return int(atomic.LoadInt32(&r.depth)) }

// CurrentFunction returns the function name at depth-1, or "" at depth 0.
// Used by record-message to attribute a message to its enclosing scope.
func (r *Ring) CurrentFunction() string {
	d := r.depth
	if d == 0 {
		return ""
	}
	idx := d - 1
	if int(idx) < event.MaxDepth {
		return r.funcStack[idx]
	}
	return ""
}

// PushFrame records a scope entry on the depth stack and returns the
// pre-increment depth (the depth an Enter event at this site carries).
// skip marks that the matching event was filtered out, so PopFrame knows
// to emit nothing for the corresponding exit. Pushes beyond event.MaxDepth
// still advance the depth counter but are not recorded, per spec's
// "silently stops updating the depth stacks beyond the limit" rule;
// such frames report a zero duration on exit.
func (r *Ring) PushFrame(startNs int64, function string, skip bool) (enterDepth int) {
	d := r.depth
	if int(d) < event.MaxDepth {
		r.startStack[d] = startNs
		r.funcStack[d] = function
		r.skipStack[d] = skip
	}
	r.depth++
	return int(d)
}

// PopFrame reverses the matching PushFrame, returning the recorded start
// timestamp, function name, the skip flag from Enter, and the
// post-decrement depth. Frames beyond event.MaxDepth were never recorded
// and pop as zero values.
func (r *Ring) PopFrame() (startNs int64, function string, skip bool, exitDepth int) {
	r.depth--
	d := r.depth
	exitDepth = int(d)
	if int(d) < event.MaxDepth {
		startNs = r.startStack[d]
		function = r.funcStack[d]
		skip = r.skipStack[d]
	}
	return
}

// Write stores ev in the active array's head slot, advances head modulo
// capacity and bumps the wrap counter on wraparound. It returns the
// active buffer's post-write occupancy fraction (1.0 once wrapped at
// least once), used by hybrid mode's auto-flush check.
func (r *Ring) Write(ev event.Event) float64 {
	idx := 0
	if r.double {
		idx = int(r.active.Load())
	}
	pos := r.head[idx]
	r.buffers[idx][pos] = ev
	pos++
	if pos == r.capacity {
		pos = 0
		r.wrap[idx]++
	}
	r.head[idx] = pos
	return r.occupancy(idx)
}

func (r *Ring) occupancy(idx int) float64 {
	if r.wrap[idx] > 0 {
		return 1.0
	}
	return float64(r.head[idx]) / float64(r.capacity)
}

// orderedEvents returns a chronologically-ordered copy of buffer idx's
// contents: min(writes, capacity) events, oldest first.
func (r *Ring) orderedEvents(idx int) []event.Event {
	h, w, buf := r.head[idx], r.wrap[idx], r.buffers[idx]
	if w == 0 {
		out := make([]event.Event, h)
		copy(out, buf[:h])
		return out
	}
	out := make([]event.Event, r.capacity)
	n := copy(out, buf[h:])
	copy(out[n:], buf[:h])
	return out
}

// Snapshot returns the ring's current contents without clearing it
// (single-buffer flush semantics, spec §4.2: "observational, not
// destructive"). Safe to call repeatedly; it will re-emit the same
// events until the producer writes more. Only meaningful when the ring
// was constructed without double-buffering.
func (r *Ring) Snapshot() []event.Event {
	return r.orderedEvents(0)
}

// SwapAndDrain atomically swaps the active buffer index so the producer
// starts writing to the other array, then returns the just-deactivated
// array's events in chronological order and resets its head/wrap so it
// is ready to be swapped back in. Only valid when the ring was
// constructed with double-buffering.
func (r *Ring) SwapAndDrain() []event.Event {
	r.flushMu.Lock()
	defer r.flushMu.Unlock()

	oldIdx := r.active.Load()
	newIdx := int32(1) - oldIdx
	r.active.Store(newIdx)

	events := r.orderedEvents(int(oldIdx))
	r.head[oldIdx] = 0
	r.wrap[oldIdx] = 0
	return events
}

// FlushEvents dispatches to Snapshot or SwapAndDrain depending on how the
// ring was constructed, giving callers a single entry point for
// flush-ring (spec §4.2).
func (r *Ring) FlushEvents() []event.Event {
	if r.double {
		return r.SwapAndDrain()
	}
	return r.Snapshot()
}

// DumpEvents returns every event presently held by the ring, read-only,
// for the binary dumper (spec §4.6: "reads the current contents the same
// way a flush would in single-buffer mode, or both arrays in
// double-buffer mode"). It never mutates ring state.
func (r *Ring) DumpEvents() []event.Event {
	if !r.double {
		return r.orderedEvents(0)
	}

	r.flushMu.Lock()
	defer r.flushMu.Unlock()

	active := r.active.Load()
	inactive := int32(1) - active
	out := append(r.orderedEvents(int(inactive)), r.orderedEvents(int(active))...)
	return out
}

// Occupancy reports the active buffer's current occupancy fraction,
// exposed for tests and statistics; production code uses the value
// Write returns instead.
func (r *Ring) Occupancy() float64 {
	idx := 0
	if r.double {
		idx = int(r.active.Load())
	}
	return r.occupancy(idx)
}
