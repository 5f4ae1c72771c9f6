// Package memsample supplies the optional memory sample attached to an
// event when a Config's MemoryTracking is enabled. The sample is a
// process-wide heap-allocation snapshot, not a per-function allocation
// measurement: Go has no cheap way to attribute allocations to a single
// traced scope, so every event recorded while tracking is on carries the
// same whole-process reading taken at record time.
package memsample // import "github.com/tracescope/scopetrace/internal/memsample"

import "runtime"

// Current returns the process's current heap allocation in bytes,
// mirroring the teacher's metrics/agentmetrics/agent.go and
// libpf/memorydebug, both of which read runtime.MemStats.HeapAlloc as
// the process's live-allocation figure.
func Current() int64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return int64(stats.HeapAlloc)
}
