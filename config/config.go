// Package config holds the runtime-tunable knobs every other scopetrace
// component reads: ring sizing, delivery mode, text-emitter formatting,
// dump-file layout and the filter engine's defaults. It is adapted from the
// teacher's package-scope settings record (config/config.go in the ebpf
// profiler this module started from), generalized from one profiling-agent
// struct into the tracer's own [output]/[display]/[formatting]/[markers]/
// [modes]/[filter]/[performance]/[dump] sections.
package config // import "github.com/tracescope/scopetrace/config"

import (
	"fmt"
	"time"
)

// Mode selects the delivery discipline used by the scope/message recorder.
type Mode uint8

const (
	// ModeBuffered is fully in-memory; lossy-overwrite once a ring wraps.
	ModeBuffered Mode = iota
	// ModeAsyncImmediate hands every event to the background drain task;
	// loss-free up to the sink's ability to keep up.
	ModeAsyncImmediate
	// ModeHybrid buffers and enqueues, auto-flushing the ring once its
	// occupancy crosses AutoFlushThreshold.
	ModeHybrid
)

func (m Mode) String() string {
	switch m {
	case ModeBuffered:
		return "buffered"
	case ModeAsyncImmediate:
		return "async_immediate"
	case ModeHybrid:
		return "hybrid"
	default:
		return "unknown"
	}
}

// FlushHook selects when a scope exit triggers a flush-all.
type FlushHook uint8

const (
	// FlushHookNever never triggers a flush from a scope exit.
	FlushHookNever FlushHook = iota
	// FlushHookOutermost flushes only when a scope exit returns depth to
	// zero. This is the default.
	FlushHookOutermost
	// FlushHookEvery flushes on every scope exit.
	FlushHookEvery
)

// DumpLayout selects the sub-directory layout dump-binary uses under the
// configured base path.
type DumpLayout uint8

const (
	// DumpLayoutFlat writes directly under the base path.
	DumpLayoutFlat DumpLayout = iota
	// DumpLayoutByDate writes under a YYYY-MM-DD sub-directory.
	DumpLayoutByDate
	// DumpLayoutBySession writes under a session_NNN sub-directory, NNN
	// auto-incrementing when SessionNumber is zero.
	DumpLayoutBySession
)

// Config is the mutable configuration record consulted by every scopetrace
// component. It is safe to mutate only before tracing starts or at
// quiescent points (no concurrent recording in progress); see
// internal/shared for how a Config is installed and read thereafter.
type Config struct {
	// --- [modes] ---
	Mode      Mode
	FlushHook FlushHook

	// --- [performance] ---
	RingCapacity       uint32
	DoubleBuffer       bool
	AutoFlushThreshold float64
	DrainIntervalMs    uint32
	QueueBatchHint     uint32
	FlushNowTimeout    time.Duration
	MemoryTracking     bool

	// --- [filter] ---
	MaxDepth int

	// FilterIncludeFunctions, FilterExcludeFunctions, FilterIncludeFiles
	// and FilterExcludeFiles hold the comma-separated wildcard lists
	// parsed from the [filter] section's include_functions/
	// exclude_functions/include_files/exclude_files keys. LoadFile only
	// populates these; it is the caller's job to feed them into an
	// internal/filter.Set (scopetrace's top-level LoadConfigFile does
	// this for the process-wide filter).
	FilterIncludeFunctions []string
	FilterExcludeFunctions []string
	FilterIncludeFiles     []string
	FilterExcludeFiles     []string

	// --- [output] ---
	OutputPath string

	// --- [display] ---
	ShowTimestamp bool
	ShowThreadID  bool
	ShowSite      bool
	FilenameWidth int
	LineWidth     int
	FunctionWidth int
	FullPath      bool

	// --- [formatting] ---
	EnableColor  bool
	IndentWidth  int
	UseTwoSpaces bool

	// --- [markers] ---
	EnterMarker    string
	ExitMarker     string
	MessageMarker  string
	IndentMarker   string

	// --- [dump] ---
	DumpBasePath   string
	DumpLayout     DumpLayout
	DumpPrefix     string
	DumpSuffix     string
	SessionNumber  int
}

// Default returns a Config populated with scopetrace's built-in defaults,
// matching the values named throughout spec.md (ring capacity 4096,
// auto-flush threshold 0.9, drain interval 1ms, flush-now timeout 1s,
// outermost-only flush hook).
func Default() *Config {
	return &Config{
		Mode:      ModeBuffered,
		FlushHook: FlushHookOutermost,

		RingCapacity:       4096,
		DoubleBuffer:       false,
		AutoFlushThreshold: 0.9,
		DrainIntervalMs:    1,
		QueueBatchHint:     256,
		FlushNowTimeout:    time.Second,
		MemoryTracking:     false,

		MaxDepth: -1,

		OutputPath: "",

		ShowTimestamp: true,
		ShowThreadID:  true,
		ShowSite:      true,
		FilenameWidth: 24,
		LineWidth:     5,
		FunctionWidth: 28,
		FullPath:      false,

		EnableColor:  false,
		IndentWidth:  2,
		UseTwoSpaces: true,

		EnterMarker:   "-->",
		ExitMarker:    "<--",
		MessageMarker: "***",
		IndentMarker:  "| ",

		DumpBasePath:  ".",
		DumpLayout:    DumpLayoutFlat,
		DumpPrefix:    "trace",
		DumpSuffix:    ".trc",
		SessionNumber: 0,
	}
}

// Clone returns a deep-enough copy of c: the four filter-list fields are
// slices and a plain value copy would alias their backing arrays with c's,
// so each is copied independently. Useful for tests that mutate a Config
// derived from Default() without disturbing other tests.
func (c *Config) Clone() *Config {
	clone := *c
	clone.FilterIncludeFunctions = append([]string(nil), c.FilterIncludeFunctions...)
	clone.FilterExcludeFunctions = append([]string(nil), c.FilterExcludeFunctions...)
	clone.FilterIncludeFiles = append([]string(nil), c.FilterIncludeFiles...)
	clone.FilterExcludeFiles = append([]string(nil), c.FilterExcludeFiles...)
	return &clone
}

// Validate reports the first configuration error found, matching the
// sense of spec §7's configuration-error handling: callers are expected
// to log and continue with defaults rather than treat this as fatal.
func (c *Config) Validate() error {
	if c.RingCapacity == 0 {
		return fmt.Errorf("config: ring capacity must be > 0")
	}
	if c.AutoFlushThreshold <= 0 || c.AutoFlushThreshold > 1 {
		return fmt.Errorf("config: auto-flush threshold must be in (0, 1], got %v",
			c.AutoFlushThreshold)
	}
	if c.DrainIntervalMs == 0 {
		return fmt.Errorf("config: drain interval must be > 0")
	}
	return nil
}
