// Package emitter formats a single event into the human-readable text
// line spec.md §4.7 describes, and writes it to the configured sink
// under the Emitter's own mutex. That mutex serializes writes through
// one Emitter only; callers that build several Emitters over the same
// sink serialize them themselves.
package emitter // import "github.com/tracescope/scopetrace/internal/emitter"

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tracescope/scopetrace/config"
	"github.com/tracescope/scopetrace/internal/event"
)

// palette is the small ANSI foreground-color cycle the text emitter
// rotates through, keyed by (depth + thread color offset) modulo its
// length. 8 entries, matching internal/goroutineid's paletteSize.
var palette = [8]string{
	"\x1b[31m", // red
	"\x1b[32m", // green
	"\x1b[33m", // yellow
	"\x1b[34m", // blue
	"\x1b[35m", // magenta
	"\x1b[36m", // cyan
	"\x1b[90m", // bright black
	"\x1b[37m", // white
}

const colorReset = "\x1b[0m"

// Emitter formats and writes events to one io.Writer sink under a single
// per-instance mutex, so lines written through the same Emitter are
// never interleaved.
type Emitter struct {
	mu  sync.Mutex
	out io.Writer
	cfg *config.Config
}

// New returns an Emitter writing formatted lines to out per cfg.
func New(out io.Writer, cfg *config.Config) *Emitter {
	return &Emitter{out: out, cfg: cfg}
}

// Emit formats ev and writes it to the sink, holding the emitter's mutex
// for the duration of the write so concurrent Emit calls on this Emitter
// never interleave lines.
func (e *Emitter) Emit(ev event.Event) error {
	line := e.Format(ev)
	e.mu.Lock()
	defer e.mu.Unlock()
	_, err := io.WriteString(e.out, line)
	return err
}

// Format renders ev to a single newline-terminated line per the
// configured display/formatting/markers sections. It performs no I/O and
// is safe to call concurrently.
func (e *Emitter) Format(ev event.Event) string {
	cfg := e.cfg
	var b strings.Builder

	if cfg.ShowTimestamp {
		t := time.Unix(0, ev.TimestampNs)
		b.WriteByte('[')
		b.WriteString(t.Format("2006-01-02 15:04:05.000"))
		b.WriteString("] ")
	}

	if cfg.ShowThreadID {
		fmt.Fprintf(&b, "(%08x) ", ev.ThreadID)
	}

	if cfg.ShowSite {
		file := ev.File
		if !cfg.FullPath {
			file = basename(file)
		}
		b.WriteString(padTruncate(file, cfg.FilenameWidth))
		b.WriteByte(':')
		b.WriteString(padLeft(strconv.Itoa(int(ev.Line)), cfg.LineWidth))
		b.WriteByte(' ')
		b.WriteString(padTruncate(ev.Function, cfg.FunctionWidth))
		b.WriteByte(' ')
	}

	indent := cfg.IndentMarker
	if cfg.UseTwoSpaces {
		indent = "  "
	}
	for i := 0; i < int(ev.Depth); i++ {
		b.WriteString(indent)
	}

	body := formatBody(ev, cfg)

	if cfg.EnableColor {
		idx := (int(ev.Depth) + int(ev.ColorOffset)) % len(palette)
		b.WriteString(palette[idx])
		b.WriteString(body)
		b.WriteString(colorReset)
	} else {
		b.WriteString(body)
	}

	b.WriteByte('\n')
	return b.String()
}

func formatBody(ev event.Event, cfg *config.Config) string {
	switch ev.Kind {
	case event.KindEnter:
		return fmt.Sprintf("%s %s", cfg.EnterMarker, ev.Function)
	case event.KindExit:
		return fmt.Sprintf("%s %s [%s]", cfg.ExitMarker, ev.Function, scaleDuration(ev.DurationNs))
	case event.KindMessage:
		return fmt.Sprintf("%s %s", cfg.MessageMarker, ev.Message)
	default:
		return ev.Message
	}
}

// scaleDuration auto-scales a nanosecond duration to ns/µs/ms/s by
// magnitude, per spec §4.7.
func scaleDuration(ns int64) string {
	switch {
	case ns < 1_000:
		return fmt.Sprintf("%dns", ns)
	case ns < 1_000_000:
		return fmt.Sprintf("%.2fµs", float64(ns)/1_000)
	case ns < 1_000_000_000:
		return fmt.Sprintf("%.2fms", float64(ns)/1_000_000)
	default:
		return fmt.Sprintf("%.2fs", float64(ns)/1_000_000_000)
	}
}

func basename(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}

// padTruncate head-truncates s to width if oversize, or right-pads it
// with spaces if undersize. width <= 0 disables padding/truncation.
func padTruncate(s string, width int) string {
	if width <= 0 {
		return s
	}
	if len(s) > width {
		return event.HeadTruncate(s, width)
	}
	return s + strings.Repeat(" ", width-len(s))
}

func padLeft(s string, width int) string {
	if width <= 0 || len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}
