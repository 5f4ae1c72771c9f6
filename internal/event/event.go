// Package event defines the fixed-layout trace event record shared by every
// scopetrace component: the ring buffer, the async queue, the text emitter,
// the binary dumper and the statistics aggregator.
package event // import "github.com/tracescope/scopetrace/internal/event"

// Kind identifies what a recorded Event represents.
type Kind uint8

const (
	// KindEnter marks entry into a traced scope.
	KindEnter Kind = iota
	// KindExit marks the matching exit from a traced scope, carrying the
	// elapsed duration.
	KindExit
	// KindMessage is a formatted log line attached to the current frame.
	KindMessage
)

func (k Kind) String() string {
	switch k {
	case KindEnter:
		return "enter"
	case KindExit:
		return "exit"
	case KindMessage:
		return "message"
	default:
		return "unknown"
	}
}

const (
	// MaxMessageBytes bounds the inline message payload. Oversize
	// formatted text is head-truncated; no truncation marker is added.
	MaxMessageBytes = 192
	// MaxDepth bounds the per-ring depth stack. Frames beyond this are not
	// tracked; their duration is reported as zero (spec §7).
	MaxDepth = 512
	// DefaultCapacity is the default number of event slots per ring buffer.
	DefaultCapacity = 4096
)

// Event is a single record in the trace stream.
//
// Enter and its matching Exit in the same goroutine carry identical
// Function and Site; Exit.Depth equals the depth assigned to the matching
// Enter; a Message event carries the enclosing Enter's function name but
// is stamped with the ring's current depth, i.e. one greater than the
// enclosing Enter's own Depth.
type Event struct {
	TimestampNs int64
	Kind        Kind
	ThreadID    uint32
	Depth       uint32
	File        string
	Line        int32
	Function    string
	DurationNs  int64
	Message     string
	MemoryBytes int64
	ColorOffset uint8
}

// TruncateMessage head-truncates s to fit MaxMessageBytes: the tail of the
// message (generally the most specific part) is kept, the way the ring's
// hot path does before storing a Message event.
func TruncateMessage(s string) string {
	return HeadTruncate(s, MaxMessageBytes)
}

// HeadTruncate drops characters from the front of s, keeping at most max
// bytes from its tail. Used both for the message payload and for the text
// emitter's fixed-width filename column.
func HeadTruncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[len(s)-max:]
}
