package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_PassesValidate(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
}

func TestValidate_RejectsBadRingCapacity(t *testing.T) {
	cfg := Default()
	cfg.RingCapacity = 0
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsOutOfRangeAutoFlushThreshold(t *testing.T) {
	cfg := Default()
	cfg.AutoFlushThreshold = 0
	assert.Error(t, cfg.Validate())

	cfg.AutoFlushThreshold = 1.5
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsZeroDrainInterval(t *testing.T) {
	cfg := Default()
	cfg.DrainIntervalMs = 0
	assert.Error(t, cfg.Validate())
}

func TestClone_IsIndependentOfOriginal(t *testing.T) {
	cfg := Default()
	clone := cfg.Clone()
	clone.RingCapacity = 99

	assert.NotEqual(t, cfg.RingCapacity, clone.RingCapacity)
}

func TestLoadFile_AppliesEverySectionKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scopetrace.ini")
	contents := `
; comment line
[modes]
mode=hybrid
flush_hook=every

[performance]
ring_capacity=8192
double_buffer=true
auto_flush_threshold=0.75
drain_interval_ms=10

[filter]
max_depth=32
include_functions=core_*, handler_*
exclude_functions=core_debug

[output]
path=/tmp/trace.log

[display]
show_timestamp=false
full_path=true

[formatting]
enable_color=true

[dump]
prefix=custom
layout=by_date
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg := Default()
	ok := cfg.LoadFile(path)
	require.True(t, ok)

	assert.Equal(t, ModeHybrid, cfg.Mode)
	assert.Equal(t, FlushHookEvery, cfg.FlushHook)
	assert.Equal(t, uint32(8192), cfg.RingCapacity)
	assert.True(t, cfg.DoubleBuffer)
	assert.Equal(t, 0.75, cfg.AutoFlushThreshold)
	assert.Equal(t, uint32(10), cfg.DrainIntervalMs)
	assert.Equal(t, 32, cfg.MaxDepth)
	assert.Equal(t, []string{"core_*", "handler_*"}, cfg.FilterIncludeFunctions)
	assert.Equal(t, []string{"core_debug"}, cfg.FilterExcludeFunctions)
	assert.Equal(t, "/tmp/trace.log", cfg.OutputPath)
	assert.False(t, cfg.ShowTimestamp)
	assert.True(t, cfg.FullPath)
	assert.True(t, cfg.EnableColor)
	assert.Equal(t, "custom", cfg.DumpPrefix)
	assert.Equal(t, DumpLayoutByDate, cfg.DumpLayout)
}

func TestLoadFile_ReturnsFalseOnMissingFile(t *testing.T) {
	cfg := Default()
	ok := cfg.LoadFile(filepath.Join(t.TempDir(), "does-not-exist.ini"))
	assert.False(t, ok)
}
