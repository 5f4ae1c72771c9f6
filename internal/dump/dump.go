// Package dump implements the binary wire format (spec §4.6, §6):
// magic "TRCLOG10", a 32-bit version, a reserved word, then every
// registered ring's events back to back in chronological order, and the
// dump-file naming/layout policy (flat / by-date / by-session).
package dump // import "github.com/tracescope/scopetrace/internal/dump"

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/tracescope/scopetrace/config"
	"github.com/tracescope/scopetrace/internal/event"
)

// Magic is the fixed 8-byte header every dump file starts with.
const Magic = "TRCLOG10"

// Version is the current binary format version.
const Version uint32 = 2

// Encode writes the magic header, version, and every ring's events (each
// already in the producer's chronological order) to w, in the exact byte
// layout spec §4.6 and §6 define: little-endian integers, three
// length-prefixed strings (file, function, message) per event.
func Encode(w io.Writer, rings [][]event.Event) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.WriteString(Magic); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, Version); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(0)); err != nil {
		return err
	}

	for _, events := range rings {
		for _, ev := range events {
			if err := encodeEvent(bw, ev); err != nil {
				return err
			}
		}
	}

	return bw.Flush()
}

func encodeEvent(w *bufio.Writer, ev event.Event) error {
	if err := w.WriteByte(byte(ev.Kind)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, ev.ThreadID); err != nil {
		return err
	}
	if err := w.WriteByte(ev.ColorOffset); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, ev.TimestampNs); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, ev.Depth); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, ev.DurationNs); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, ev.MemoryBytes); err != nil {
		return err
	}
	for _, s := range []string{ev.File, ev.Function, ev.Message} {
		if err := writeString(w, s); err != nil {
			return err
		}
	}
	return binary.Write(w, binary.LittleEndian, ev.Line)
}

func writeString(w *bufio.Writer, s string) error {
	if len(s) > 0xFFFF {
		s = s[:0xFFFF]
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(len(s))); err != nil {
		return err
	}
	_, err := w.WriteString(s)
	return err
}

// Decode reads a dump file back into a flat, in-file-order slice of
// events, validating the magic and version. Readers must consume until
// EOF; there is no file-level event count or checksum (spec §6).
func Decode(r io.Reader) ([]event.Event, error) {
	br := bufio.NewReader(r)

	magic := make([]byte, len(Magic))
	if _, err := io.ReadFull(br, magic); err != nil {
		return nil, fmt.Errorf("dump: reading magic: %w", err)
	}
	if string(magic) != Magic {
		return nil, fmt.Errorf("dump: bad magic %q", magic)
	}

	var version, reserved uint32
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("dump: reading version: %w", err)
	}
	if err := binary.Read(br, binary.LittleEndian, &reserved); err != nil {
		return nil, fmt.Errorf("dump: reading reserved word: %w", err)
	}
	if version != Version {
		return nil, fmt.Errorf("dump: unsupported version %d", version)
	}

	var events []event.Event
	for {
		ev, err := decodeEvent(br)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

func decodeEvent(r *bufio.Reader) (event.Event, error) {
	var ev event.Event

	kind, err := r.ReadByte()
	if err != nil {
		return ev, err // may be io.EOF, propagated as-is
	}
	ev.Kind = event.Kind(kind)

	if err := binary.Read(r, binary.LittleEndian, &ev.ThreadID); err != nil {
		return ev, unexpectedEOF(err)
	}
	colorOffset, err := r.ReadByte()
	if err != nil {
		return ev, unexpectedEOF(err)
	}
	ev.ColorOffset = colorOffset

	if err := binary.Read(r, binary.LittleEndian, &ev.TimestampNs); err != nil {
		return ev, unexpectedEOF(err)
	}
	if err := binary.Read(r, binary.LittleEndian, &ev.Depth); err != nil {
		return ev, unexpectedEOF(err)
	}
	if err := binary.Read(r, binary.LittleEndian, &ev.DurationNs); err != nil {
		return ev, unexpectedEOF(err)
	}
	if err := binary.Read(r, binary.LittleEndian, &ev.MemoryBytes); err != nil {
		return ev, unexpectedEOF(err)
	}

	var err2 error
	if ev.File, err2 = readString(r); err2 != nil {
		return ev, unexpectedEOF(err2)
	}
	if ev.Function, err2 = readString(r); err2 != nil {
		return ev, unexpectedEOF(err2)
	}
	if ev.Message, err2 = readString(r); err2 != nil {
		return ev, unexpectedEOF(err2)
	}

	if err := binary.Read(r, binary.LittleEndian, &ev.Line); err != nil {
		return ev, unexpectedEOF(err)
	}
	return ev, nil
}

func unexpectedEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

func readString(r *bufio.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// GenerateFilename returns "<prefix>_YYYYMMDD_HHMMSS_mmm<suffix>" for
// the given instant, per spec §4.6's naming policy.
func GenerateFilename(cfg *config.Config, now time.Time) string {
	ms := now.Nanosecond() / int(time.Millisecond)
	return fmt.Sprintf("%s_%s_%03d%s",
		cfg.DumpPrefix, now.Format("20060102_150405"), ms, cfg.DumpSuffix)
}

// ResolveDirectory returns the directory a dump file should be written
// to for the given layout, creating it if missing. On creation failure
// it falls back to the current directory and logs a warning, per spec
// §4.6. nextSessionNumber is consulted only for DumpLayoutBySession when
// cfg.SessionNumber is zero, to auto-increment by scanning siblings.
func ResolveDirectory(cfg *config.Config, now time.Time) string {
	base := cfg.DumpBasePath
	if base == "" {
		base = "."
	}

	var dir string
	switch cfg.DumpLayout {
	case config.DumpLayoutByDate:
		dir = filepath.Join(base, now.Format("2006-01-02"))
	case config.DumpLayoutBySession:
		n := cfg.SessionNumber
		if n == 0 {
			n = nextSessionNumber(base)
		}
		dir = filepath.Join(base, fmt.Sprintf("session_%03d", n))
	default:
		dir = base
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Warnf("dump: could not create directory %q: %v; writing to current directory", dir, err)
		return "."
	}
	return dir
}

// nextSessionNumber scans base for existing "session_NNN" siblings and
// returns one past the highest NNN found (1 if none exist).
func nextSessionNumber(base string) int {
	entries, err := os.ReadDir(base)
	if err != nil {
		return 1
	}
	max := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		n, ok := parseSessionDir(entry.Name())
		if ok && n > max {
			max = n
		}
	}
	return max + 1
}

func parseSessionDir(name string) (int, bool) {
	const prefix = "session_"
	if !strings.HasPrefix(name, prefix) {
		return 0, false
	}
	n, err := strconv.Atoi(name[len(prefix):])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Write assembles the dump path for now, encodes rings to it, and
// returns the generated path, or "" on failure (spec §6: "empty on
// failure").
func Write(cfg *config.Config, rings [][]event.Event, now time.Time) string {
	dir := ResolveDirectory(cfg, now)
	name := GenerateFilename(cfg, now)
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		log.Warnf("dump: could not create %q: %v", path, err)
		return ""
	}
	defer f.Close()

	if err := Encode(f, rings); err != nil {
		log.Warnf("dump: encode failed for %q: %v", path, err)
		return ""
	}
	return path
}
