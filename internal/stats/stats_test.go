package stats

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracescope/scopetrace/internal/event"
	"github.com/tracescope/scopetrace/internal/registry"
	"github.com/tracescope/scopetrace/internal/ring"
)

func TestAggregate_OnlyExitEventsWithFunctionContribute(t *testing.T) {
	reg := registry.New()
	r := ring.New(16, false, 1, 0)
	reg.Add(r)

	r.Write(event.Event{Kind: event.KindEnter, Function: "Foo"})
	r.Write(event.Event{Kind: event.KindExit, Function: "Foo", DurationNs: 100})
	r.Write(event.Event{Kind: event.KindExit, Function: "Foo", DurationNs: 300})
	r.Write(event.Event{Kind: event.KindExit, Function: "", DurationNs: 999})
	r.Write(event.Event{Kind: event.KindMessage, Message: "hi"})

	a := NewAggregator()
	report := a.Aggregate(reg)

	fs := report.Global["Foo"]
	require.NotNil(t, fs)
	assert.Equal(t, uint64(2), fs.Calls)
	assert.Equal(t, int64(400), fs.TotalNs)
	assert.Equal(t, int64(100), fs.MinNs)
	assert.Equal(t, int64(300), fs.MaxNs)

	perThread := report.PerThread[r.ThreadID()]["Foo"]
	require.NotNil(t, perThread)
	assert.Equal(t, uint64(2), perThread.Calls)
}

func TestAggregate_FunctionPeakMemoryFromExitSample(t *testing.T) {
	reg := registry.New()
	r := ring.New(16, false, 7, 0)
	reg.Add(r)

	r.Write(event.Event{Kind: event.KindMessage, MemoryBytes: 1024})
	r.Write(event.Event{Kind: event.KindExit, Function: "F", MemoryBytes: 4096})
	r.Write(event.Event{Kind: event.KindEnter, MemoryBytes: 2048})

	a := NewAggregator()
	report := a.Aggregate(reg)
	assert.NotNil(t, report.PerThread[7])
	require.NotNil(t, report.Global["F"])
	assert.Equal(t, int64(4096), report.Global["F"].PeakMemory)
}

func TestFormatTable_SortedByTotalDurationDescending(t *testing.T) {
	byFunction := map[string]*FunctionStats{
		"Slow": {Function: "Slow", Calls: 1, TotalNs: 5000},
		"Fast": {Function: "Fast", Calls: 1, TotalNs: 100},
		"Mid":  {Function: "Mid", Calls: 1, TotalNs: 1000},
	}
	table := FormatTable(byFunction)

	slowIdx := strings.Index(table, "Slow")
	midIdx := strings.Index(table, "Mid")
	fastIdx := strings.Index(table, "Fast")
	require.True(t, slowIdx < midIdx)
	require.True(t, midIdx < fastIdx)
}
