// Package scopetrace is an in-process function-scope tracer: cheap
// Enter/Exit/Message recording into per-goroutine ring buffers, with
// buffered, asynchronous, or hybrid delivery to a text sink, on-demand
// binary dumps, and a statistics aggregator. See the sub-packages for
// the pieces this file wires together: internal/ring (storage),
// internal/registry (directory of live rings), internal/filter
// (selective tracing), internal/asyncqueue (background drain),
// internal/emitter (text formatting), internal/dump (binary format),
// internal/stats (aggregation) and internal/shared (the two-level
// indirection InstallExternalState swaps).
package scopetrace // import "github.com/tracescope/scopetrace"

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/tracescope/scopetrace/config"
	"github.com/tracescope/scopetrace/diag"
	"github.com/tracescope/scopetrace/internal/argfmt"
	"github.com/tracescope/scopetrace/internal/asyncqueue"
	"github.com/tracescope/scopetrace/internal/dump"
	"github.com/tracescope/scopetrace/internal/emitter"
	"github.com/tracescope/scopetrace/internal/event"
	"github.com/tracescope/scopetrace/internal/filter"
	"github.com/tracescope/scopetrace/internal/goroutineid"
	"github.com/tracescope/scopetrace/internal/memsample"
	"github.com/tracescope/scopetrace/internal/registry"
	"github.com/tracescope/scopetrace/internal/ring"
	"github.com/tracescope/scopetrace/internal/shared"
	"github.com/tracescope/scopetrace/internal/stats"
)

var filters = filter.New()

// Enter records entry into a traced scope (record-scope-enter). function,
// file and line identify the call site; the matching Exit call must pass
// the same trio. Depth bookkeeping happens unconditionally even if the
// filter rejects this site, so later unfiltered frames nest correctly.
func Enter(function, file string, line int) {
	now := time.Now().UnixNano()
	rg := currentRing()
	depth := rg.Depth()
	skip := !filters.ShouldTrace(function, file, depth)
	rg.PushFrame(now, function, skip)
	if skip {
		return
	}

	cfg := shared.Config()
	ev := event.Event{
		TimestampNs: now,
		Kind:        event.KindEnter,
		ThreadID:    rg.ThreadID(),
		Depth:       uint32(depth),
		File:        file,
		Line:        int32(line),
		Function:    function,
		ColorOffset: rg.ColorOffset(),
	}
	if cfg.MemoryTracking {
		ev.MemoryBytes = memsample.Current()
	}
	deliver(rg, ev, cfg)
}

// Exit records the matching exit from a traced scope (record-scope-exit),
// computing the elapsed duration from the Enter recorded on the depth
// stack. If the matching Enter was filtered, Exit only unwinds the depth
// stack and emits nothing.
func Exit(function, file string, line int) {
	now := time.Now().UnixNano()
	rg := currentRing()
	startNs, fn, skip, depth := rg.PopFrame()
	if skip {
		return
	}

	durationNs := now - startNs
	if depth >= event.MaxDepth {
		// Frames beyond event.MaxDepth have no recorded start timestamp.
		durationNs = 0
	}

	cfg := shared.Config()
	ev := event.Event{
		TimestampNs: now,
		Kind:        event.KindExit,
		ThreadID:    rg.ThreadID(),
		Depth:       uint32(depth),
		File:        file,
		Line:        int32(line),
		Function:    fn,
		DurationNs:  durationNs,
		ColorOffset: rg.ColorOffset(),
	}
	if cfg.MemoryTracking {
		ev.MemoryBytes = memsample.Current()
	}
	deliver(rg, ev, cfg)

	switch cfg.FlushHook {
	case config.FlushHookEvery:
		FlushAll()
	case config.FlushHookOutermost:
		if depth == 0 {
			FlushAll()
		}
	}
}

// Message attaches a formatted log line to the current scope
// (record-message). It carries the enclosing Enter's function name and
// the ring's current depth (one greater than that Enter's depth), and is
// truncated to fit the inline message payload.
func Message(file string, line int, format string, args ...any) {
	rg := currentRing()
	text := event.TruncateMessage(fmt.Sprintf(format, args...))
	recordAttached(rg, file, line, text)
}

// RecordArgument attaches a name=value pair to the current scope
// (record-argument), formatted the way a Message call's payload is.
func RecordArgument(name string, value any) {
	rg := currentRing()
	recordAttached(rg, "", 0, argfmt.Format(name, value))
}

func recordAttached(rg *ring.Ring, file string, line int, text string) {
	cfg := shared.Config()
	depth := rg.Depth()
	ev := event.Event{
		TimestampNs: time.Now().UnixNano(),
		Kind:        event.KindMessage,
		ThreadID:    rg.ThreadID(),
		Depth:       uint32(depth),
		File:        file,
		Line:        int32(line),
		Function:    rg.CurrentFunction(),
		Message:     text,
		ColorOffset: rg.ColorOffset(),
	}
	if cfg.MemoryTracking {
		ev.MemoryBytes = memsample.Current()
	}
	deliver(rg, ev, cfg)
}

// Scope is the idiomatic Go stand-in for the source macro spec.md
// describes wrapping scope-enter/exit: call it at the top of a function,
// defer the returned closure. It captures the caller's file and line via
// runtime.Caller, the same site recorded on both the Enter and the Exit.
func Scope(name string) func() {
	_, file, line, _ := runtime.Caller(1)
	Enter(name, file, line)
	return func() { Exit(name, file, line) }
}

// deliver routes ev to the configured delivery mode: Buffered writes only
// to the ring, AsyncImmediate only enqueues, Hybrid does both and
// auto-flushes the ring once occupancy crosses AutoFlushThreshold.
func deliver(rg *ring.Ring, ev event.Event, cfg *config.Config) {
	switch cfg.Mode {
	case config.ModeAsyncImmediate:
		asyncQueue().Enqueue(ev)
	case config.ModeHybrid:
		occupancy := rg.Write(ev)
		asyncQueue().Enqueue(ev)
		if occupancy >= cfg.AutoFlushThreshold {
			// flush-current-thread only: the calling goroutine's own ring
			// is read under its own flush mutex. FlushAll would snapshot
			// every other live goroutine's ring too, racing their
			// lock-free Write against this read.
			FlushCurrentThread()
		}
	default:
		rg.Write(ev)
	}
}

// currentRing returns (creating if necessary) the calling goroutine's
// ring buffer.
func currentRing() *ring.Ring {
	gid := goroutineid.Current()
	return shared.Registry().GetOrCreateForThread(gid, func() *ring.Ring {
		cfg := shared.Config()
		hash := goroutineid.Hash32(gid)
		return ring.New(cfg.RingCapacity, cfg.DoubleBuffer, hash, goroutineid.ColorOffset(hash))
	})
}

// ReleaseCurrentThread unregisters and discards the calling goroutine's
// ring. Go has no goroutine-exit hook, so unlike the construct spec.md
// describes (ring destroyed automatically when its owning thread exits),
// scopetrace cannot reclaim a ring on its own; callers that run many
// short-lived goroutines over a pooled worker should call this before a
// worker goroutine returns to its pool, or the registry will accumulate
// one ring per distinct goroutine id ever seen.
func ReleaseCurrentThread() {
	shared.Registry().RemoveForThread(goroutineid.Current())
}

// FlushAll snapshots the registry and flushes every ring (flush-all):
// single-buffered rings are read non-destructively, double-buffered
// rings are swapped and drained.
func FlushAll() {
	for _, rg := range shared.Registry().Snapshot() {
		if events := rg.FlushEvents(); len(events) > 0 {
			emitEvents(events)
		}
	}
}

// FlushCurrentThread flushes only the calling goroutine's ring
// (flush-current-thread).
func FlushCurrentThread() {
	rg := currentRing()
	if events := rg.FlushEvents(); len(events) > 0 {
		emitEvents(events)
	}
}

// StartAsyncImmediate starts the background drain task backing
// AsyncImmediate and Hybrid delivery. Idempotent.
func StartAsyncImmediate() {
	asyncQueue().Start()
}

// StopAsyncImmediate stops the background drain task, joining it after
// its guaranteed final drain. Idempotent.
func StopAsyncImmediate() {
	asyncQueue().Stop()
}

// FlushImmediateQueue blocks until every event enqueued as of this call
// has been written, or the configured timeout elapses (flush-immediate-
// queue). Returns false on timeout.
func FlushImmediateQueue() bool {
	ok := asyncQueue().FlushNow()
	if !ok {
		diag.Warnf("scopetrace: immediate queue did not drain before the flush timeout")
	}
	return ok
}

// DumpBinary writes every registered ring's current events to a new
// TRCLOG10 file and returns its path, or "" on failure (dump-binary). A
// non-empty prefix overrides the configured dump prefix for this call
// only.
func DumpBinary(prefix string) string {
	cfg := dumpConfig(prefix)
	rings := make([][]event.Event, 0, shared.Registry().Len())
	for _, rg := range shared.Registry().Snapshot() {
		rings = append(rings, rg.DumpEvents())
	}
	return dump.Write(cfg, rings, time.Now())
}

// GenerateDumpFilename returns the path DumpBinary would write to if
// called now, without recording anything (generate-dump-filename). A
// non-empty prefix overrides the configured dump prefix for this call
// only.
func GenerateDumpFilename(prefix string) string {
	cfg := dumpConfig(prefix)
	now := time.Now()
	return filepath.Join(dump.ResolveDirectory(cfg, now), dump.GenerateFilename(cfg, now))
}

func dumpConfig(prefix string) *config.Config {
	cfg := shared.Config()
	if prefix == "" {
		return cfg
	}
	clone := cfg.Clone()
	clone.DumpPrefix = prefix
	return clone
}

// LoadConfigFile loads an INI-style configuration file into the active
// Config (load-configuration-from-file), returning false if the file
// could not be read. Intended for use at startup, before any goroutine
// has recorded an event. Any [filter] include/exclude lists the file
// specifies are applied to the process-wide filter on top of whatever
// was already there.
func LoadConfigFile(path string) bool {
	cfg := shared.Config()
	ok := cfg.LoadFile(path)
	if !ok {
		return false
	}
	for _, pattern := range cfg.FilterIncludeFunctions {
		filters.AddIncludeFunction(pattern)
	}
	for _, pattern := range cfg.FilterExcludeFunctions {
		filters.AddExcludeFunction(pattern)
	}
	for _, pattern := range cfg.FilterIncludeFiles {
		filters.AddIncludeFile(pattern)
	}
	for _, pattern := range cfg.FilterExcludeFiles {
		filters.AddExcludeFile(pattern)
	}
	filters.SetMaxDepth(cfg.MaxDepth)
	return true
}

// InstallExternalState installs cfg and reg as the shared configuration
// and registry every scopetrace call reads thereafter (install-external-
// state), switching to centralized ring ownership. It only takes effect
// the first time it is called in a process's lifetime; later calls
// return false and leave the previously-installed state in place.
func InstallExternalState(cfg *config.Config, reg *registry.Registry) bool {
	return shared.InstallExternalState(cfg, reg)
}

// AddIncludeFunction adds a wildcard pattern to the function-include
// list of the process-wide filter.
func AddIncludeFunction(pattern string) { filters.AddIncludeFunction(pattern) }

// AddExcludeFunction adds a wildcard pattern to the function-exclude
// list of the process-wide filter.
func AddExcludeFunction(pattern string) { filters.AddExcludeFunction(pattern) }

// AddIncludeFile adds a wildcard pattern to the file-include list of the
// process-wide filter.
func AddIncludeFile(pattern string) { filters.AddIncludeFile(pattern) }

// AddExcludeFile adds a wildcard pattern to the file-exclude list of the
// process-wide filter.
func AddExcludeFile(pattern string) { filters.AddExcludeFile(pattern) }

// SetMaxDepth caps the depth at which scopes are traced; a negative value
// removes the cap.
func SetMaxDepth(n int) { filters.SetMaxDepth(n) }

// ClearFilters resets every filter list and the depth cap.
func ClearFilters() { filters.Clear() }

// Stats walks the registry and returns a formatted table of per-function
// call counts, durations and peak memory, sorted by total duration
// descending. This has no hot-path effect; it only runs on demand.
func Stats() string {
	report := statsAggregator().Aggregate(shared.Registry())
	return stats.FormatTable(report.Global)
}

var (
	statsOnce sync.Once
	statsInst *stats.Aggregator
)

func statsAggregator() *stats.Aggregator {
	statsOnce.Do(func() { statsInst = stats.NewAggregator() })
	return statsInst
}

var (
	queueOnce sync.Once
	queueInst *asyncqueue.Queue
)

func asyncQueue() *asyncqueue.Queue {
	queueOnce.Do(func() {
		cfg := shared.Config()
		queueInst = asyncqueue.New(
			time.Duration(cfg.DrainIntervalMs)*time.Millisecond,
			cfg.FlushNowTimeout,
			cfg.QueueBatchHint,
			emitEvents,
		)
	})
	return queueInst
}

var (
	sinkMu   sync.Mutex
	sinkFile *os.File
	sinkPath string
)

// sinkWriter returns the configured output's io.Writer, opening (or
// reopening, on a path change) the file in append mode: created if
// missing, never truncated or edited in place.
func sinkWriter() *os.File {
	sinkMu.Lock()
	defer sinkMu.Unlock()

	path := shared.Config().OutputPath
	if path == "" {
		return os.Stdout
	}
	if sinkFile != nil && sinkPath == path {
		return sinkFile
	}
	if sinkFile != nil {
		sinkFile.Close()
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		diag.Errorf("scopetrace: opening output %q: %v", path, err)
		sinkFile, sinkPath = nil, ""
		return os.Stdout
	}
	sinkFile, sinkPath = f, path
	return f
}

// emitMu is the process-global I/O mutex spec §4.2/§4.7 calls for: every
// emission path (FlushAll, FlushCurrentThread and the async drain task's
// sink, all of which feed into emitEvents) takes it for the whole batch,
// so lines from concurrent flushes never interleave. A fresh *emitter.
// Emitter is still built per call so each batch picks up the current sink
// path and display config rather than one frozen at process start, but
// the emitter's own per-instance mutex is redundant with emitMu, not a
// substitute for it: two different Emitter values share nothing unless
// something outside them serializes the calls, which is what emitMu does.
var emitMu sync.Mutex

// emitEvents formats and writes a batch of events to the configured
// sink, under the package-global I/O mutex so concurrent flushes from
// different goroutines (or from the async drain task) never interleave
// lines. Write errors are logged and otherwise ignored, per spec §7:
// "best-effort... the library does not attempt recovery". Reports
// whether every event in the batch was written without error.
func emitEvents(events []event.Event) bool {
	emitMu.Lock()
	defer emitMu.Unlock()

	e := emitter.New(sinkWriter(), shared.Config())
	ok := true
	for _, ev := range events {
		if err := e.Emit(ev); err != nil {
			diag.Errorf("scopetrace: writing event: %v", err)
			ok = false
		}
	}
	return ok
}
