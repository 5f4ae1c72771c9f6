// Package argfmt formats the record-argument supplement (SPEC_FULL.md
// §4): scopetrace.RecordArgument(name, value) needs a compact,
// allocation-light textual form for an arbitrary Go value, bounded by
// the same message-payload cap every other recorded string observes.
//
// The type-switch-over-reflect approach is grounded on the retrieved
// instrumentation tool's own argument formatter (FormatAny/FormatBytes
// in its instrumentlog package), which favors a plain type switch over
// reflect for the common scalar kinds and falls back to fmt.Sprintf only
// for everything else.
package argfmt // import "github.com/tracescope/scopetrace/internal/argfmt"

import (
	"fmt"
	"strconv"

	"github.com/tracescope/scopetrace/internal/event"
)

// Format renders name=value, head-truncating the result to
// event.MaxMessageBytes if it would otherwise overflow the message
// payload.
func Format(name string, value any) string {
	s := name + "=" + FormatValue(value)
	return event.TruncateMessage(s)
}

// FormatValue renders a single value compactly: scalars and strings get
// a direct conversion with no heap-heavy reflection; byte slices get a
// length+hex-preview form; everything else falls back to fmt.Sprintf("%v").
func FormatValue(v any) string {
	if v == nil {
		return "nil"
	}
	switch x := v.(type) {
	case string:
		return strconv.Quote(x)
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int8:
		return strconv.FormatInt(int64(x), 10)
	case int16:
		return strconv.FormatInt(int64(x), 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint:
		return strconv.FormatUint(uint64(x), 10)
	case uint8:
		return strconv.FormatUint(uint64(x), 10)
	case uint16:
		return strconv.FormatUint(uint64(x), 10)
	case uint32:
		return strconv.FormatUint(uint64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case []byte:
		return formatBytes(x)
	case error:
		return x.Error()
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprintf("%v", x)
	}
}

// formatBytes renders a byte slice as "len:N,hex:<preview>[...]",
// previewing at most 8 bytes to keep the payload cheap to produce on a
// hot path that may call this from a scope argument.
func formatBytes(b []byte) string {
	if len(b) == 0 {
		return "len:0"
	}
	const previewLen = 8
	n := len(b)
	if n > previewLen {
		n = previewLen
	}
	const hexDigits = "0123456789abcdef"
	preview := make([]byte, 0, 4+8+5+n*2+3)
	preview = append(preview, "len:"...)
	preview = strconv.AppendInt(preview, int64(len(b)), 10)
	preview = append(preview, ",hex:"...)
	for i := 0; i < n; i++ {
		preview = append(preview, hexDigits[b[i]>>4], hexDigits[b[i]&0xf])
	}
	if len(b) > n {
		preview = append(preview, "..."...)
	}
	return string(preview)
}
