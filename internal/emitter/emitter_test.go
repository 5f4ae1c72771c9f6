package emitter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracescope/scopetrace/config"
	"github.com/tracescope/scopetrace/internal/event"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.FilenameWidth = 10
	cfg.LineWidth = 4
	cfg.FunctionWidth = 12
	return cfg
}

func TestFormat_EnterExitMessage(t *testing.T) {
	cfg := testConfig()
	e := New(nil, cfg)

	enter := e.Format(event.Event{
		Kind: event.KindEnter, File: "main.go", Line: 10,
		Function: "DoWork", Depth: 0,
	})
	assert.Contains(t, enter, "--> DoWork")
	assert.Contains(t, enter, "main.go")

	exit := e.Format(event.Event{
		Kind: event.KindExit, File: "main.go", Line: 12,
		Function: "DoWork", Depth: 0, DurationNs: 1_500_000,
	})
	assert.Contains(t, exit, "<-- DoWork")
	assert.Contains(t, exit, "[1.50ms]")

	msg := e.Format(event.Event{
		Kind: event.KindMessage, Depth: 1, Message: "checkpoint",
	})
	assert.Contains(t, msg, "*** checkpoint")
	// Depth 1 indentation with the default two-space marker: the separator
	// after the line column, the 12-wide empty function column and the
	// separator after it (14 spaces), then two spaces of indentation.
	assert.Contains(t, msg, strings.Repeat(" ", 16)+"*** checkpoint")
}

func TestFormat_DepthIndentation(t *testing.T) {
	cfg := config.Default()
	cfg.ShowTimestamp = false
	cfg.ShowThreadID = false
	cfg.ShowSite = false
	e := New(nil, cfg)

	line := e.Format(event.Event{Kind: event.KindEnter, Function: "f", Depth: 3})
	require.True(t, strings.HasPrefix(line, "      --> f"))
}

func TestScaleDuration(t *testing.T) {
	assert.Equal(t, "500ns", scaleDuration(500))
	assert.Equal(t, "1.50µs", scaleDuration(1_500))
	assert.Equal(t, "2.00ms", scaleDuration(2_000_000))
	assert.Equal(t, "3.00s", scaleDuration(3_000_000_000))
}

func TestPadTruncate(t *testing.T) {
	assert.Equal(t, "abc       ", padTruncate("abc", 10))
	assert.Equal(t, "opqrstuvwxyz", padTruncate("abcdefghijklmnopqrstuvwxyz", 12))
	assert.Equal(t, "abc", padTruncate("abc", 0))
}

func TestBasename(t *testing.T) {
	assert.Equal(t, "foo.go", basename("/a/b/foo.go"))
	assert.Equal(t, "foo.go", basename("foo.go"))
}

func TestEmit_WritesToSink(t *testing.T) {
	var sb strings.Builder
	e := New(&sb, config.Default())
	require.NoError(t, e.Emit(event.Event{Kind: event.KindEnter, Function: "f"}))
	assert.True(t, strings.HasSuffix(sb.String(), "\n"))
}
