package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/tracescope/scopetrace/stringutil"
)

// LoadFile populates cfg from an INI-style file: sections [output],
// [display], [formatting], [markers], [modes], [filter], [performance],
// [dump]; comments start with '#' or ';'; values are booleans
// (true|false|1|0|on|off|yes|no, case-insensitive), integers, floats, or
// optionally double-quoted strings. Unknown keys are warned about and
// skipped; parsing continues. Returns false only if the file could not be
// opened, matching spec §7's "function returns a boolean indicating file
// openability".
//
// This is a pragmatic, in-module reader for the file format spec.md
// documents; the reference implementation treats the parser as an
// external collaborator, but scopetrace, being a single self-contained Go
// module, has nowhere else to put it.
func (c *Config) LoadFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		log.Warnf("config: cannot open %q: %v", path, err)
		return false
	}
	defer f.Close()

	section := ""
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.ToLower(strings.TrimSpace(line[1 : len(line)-1]))
			continue
		}
		// Allocation-free key/value split, the way the teacher's
		// stringutil helpers parse fixed-shape lines elsewhere (e.g.
		// proc/proc.go's /proc file scanners) instead of strings.Cut.
		var kv [2]string
		if n := stringutil.SplitN(line, "=", kv[:]); n < 2 {
			log.Warnf("config: %s:%d: cannot parse line %q", path, lineNo, line)
			continue
		}
		key := strings.ToLower(strings.TrimSpace(kv[0]))
		val := unquote(strings.TrimSpace(kv[1]))

		if err := c.applyKey(section, key, val); err != nil {
			log.Warnf("config: %s:%d: %v", path, lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		log.Warnf("config: error reading %q: %v", path, err)
	}
	return true
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// maxPatternsPerList caps the comma-separated wildcard lists a single
// [filter] key can hold; configs needing more belong in code via
// AddIncludeFunction et al. instead.
const maxPatternsPerList = 32

// splitPatternList splits a comma-separated wildcard list using
// stringutil.SplitN (allocation-free up to maxPatternsPerList fields),
// trimming whitespace and dropping empty entries.
func splitPatternList(val string) []string {
	var buf [maxPatternsPerList]string
	n := stringutil.SplitN(val, ",", buf[:])

	out := make([]string, 0, n)
	for _, p := range buf[:n] {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "on", "yes":
		return true, true
	case "false", "0", "off", "no":
		return false, true
	default:
		return false, false
	}
}

// applyKey routes one section/key/value triple onto the matching Config
// field. Unknown section/key pairs are reported to the caller as an error
// (logged as a warning, then skipped) rather than failing the whole load.
func (c *Config) applyKey(section, key, val string) error {
	switch section {
	case "modes":
		switch key {
		case "mode":
			switch strings.ToLower(val) {
			case "buffered":
				c.Mode = ModeBuffered
			case "async_immediate", "async":
				c.Mode = ModeAsyncImmediate
			case "hybrid":
				c.Mode = ModeHybrid
			default:
				return fmt.Errorf("unknown mode %q", val)
			}
		case "flush_hook":
			switch strings.ToLower(val) {
			case "never":
				c.FlushHook = FlushHookNever
			case "outermost":
				c.FlushHook = FlushHookOutermost
			case "every":
				c.FlushHook = FlushHookEvery
			default:
				return fmt.Errorf("unknown flush_hook %q", val)
			}
		default:
			return fmt.Errorf("unknown key %q", key)
		}
	case "performance":
		switch key {
		case "ring_capacity":
			return c.setUint32(&c.RingCapacity, key, val)
		case "double_buffer":
			return c.setBool(&c.DoubleBuffer, key, val)
		case "auto_flush_threshold":
			return c.setFloat(&c.AutoFlushThreshold, key, val)
		case "drain_interval_ms":
			return c.setUint32(&c.DrainIntervalMs, key, val)
		case "queue_batch_hint":
			return c.setUint32(&c.QueueBatchHint, key, val)
		case "memory_tracking":
			return c.setBool(&c.MemoryTracking, key, val)
		default:
			return fmt.Errorf("unknown key %q", key)
		}
	case "filter":
		switch key {
		case "max_depth":
			n, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("invalid max_depth %q", val)
			}
			c.MaxDepth = n
		case "include_functions":
			c.FilterIncludeFunctions = splitPatternList(val)
		case "exclude_functions":
			c.FilterExcludeFunctions = splitPatternList(val)
		case "include_files":
			c.FilterIncludeFiles = splitPatternList(val)
		case "exclude_files":
			c.FilterExcludeFiles = splitPatternList(val)
		default:
			return fmt.Errorf("unknown key %q", key)
		}
	case "output":
		switch key {
		case "path":
			c.OutputPath = val
		default:
			return fmt.Errorf("unknown key %q", key)
		}
	case "display":
		switch key {
		case "show_timestamp":
			return c.setBool(&c.ShowTimestamp, key, val)
		case "show_thread_id":
			return c.setBool(&c.ShowThreadID, key, val)
		case "show_site":
			return c.setBool(&c.ShowSite, key, val)
		case "filename_width":
			return c.setInt(&c.FilenameWidth, key, val)
		case "line_width":
			return c.setInt(&c.LineWidth, key, val)
		case "function_width":
			return c.setInt(&c.FunctionWidth, key, val)
		case "full_path":
			return c.setBool(&c.FullPath, key, val)
		default:
			return fmt.Errorf("unknown key %q", key)
		}
	case "formatting":
		switch key {
		case "enable_color":
			return c.setBool(&c.EnableColor, key, val)
		case "indent_width":
			return c.setInt(&c.IndentWidth, key, val)
		case "use_two_spaces":
			return c.setBool(&c.UseTwoSpaces, key, val)
		default:
			return fmt.Errorf("unknown key %q", key)
		}
	case "markers":
		switch key {
		case "enter":
			c.EnterMarker = val
		case "exit":
			c.ExitMarker = val
		case "message":
			c.MessageMarker = val
		case "indent":
			c.IndentMarker = val
		default:
			return fmt.Errorf("unknown key %q", key)
		}
	case "dump":
		switch key {
		case "base_path":
			c.DumpBasePath = val
		case "layout":
			switch strings.ToLower(val) {
			case "flat":
				c.DumpLayout = DumpLayoutFlat
			case "by_date":
				c.DumpLayout = DumpLayoutByDate
			case "by_session":
				c.DumpLayout = DumpLayoutBySession
			default:
				return fmt.Errorf("unknown layout %q", val)
			}
		case "prefix":
			c.DumpPrefix = val
		case "suffix":
			c.DumpSuffix = val
		case "session_number":
			return c.setInt(&c.SessionNumber, key, val)
		default:
			return fmt.Errorf("unknown key %q", key)
		}
	default:
		return fmt.Errorf("unknown section %q", section)
	}
	return nil
}

func (c *Config) setBool(dst *bool, key, val string) error {
	b, ok := parseBool(val)
	if !ok {
		return fmt.Errorf("invalid boolean for %q: %q", key, val)
	}
	*dst = b
	return nil
}

func (c *Config) setInt(dst *int, key, val string) error {
	n, err := strconv.Atoi(val)
	if err != nil {
		return fmt.Errorf("invalid integer for %q: %q", key, val)
	}
	*dst = n
	return nil
}

func (c *Config) setUint32(dst *uint32, key, val string) error {
	n, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return fmt.Errorf("invalid integer for %q: %q", key, val)
	}
	*dst = uint32(n)
	return nil
}

func (c *Config) setFloat(dst *float64, key, val string) error {
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fmt.Errorf("invalid float for %q: %q", key, val)
	}
	*dst = f
	return nil
}
