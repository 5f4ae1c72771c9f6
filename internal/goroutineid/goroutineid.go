// Package goroutineid supplies the per-goroutine identity scopetrace uses in
// place of an OS thread id. Go does not expose thread-local storage or a
// public goroutine id, so the ring buffer's "per-thread" ownership (spec §3)
// is implemented per-goroutine instead, using the same runtime.Stack-parsing
// trick common in Go tracing libraries.
package goroutineid // import "github.com/tracescope/scopetrace/internal/goroutineid"

import (
	"bytes"
	"runtime"
	"strconv"

	"github.com/zeebo/xxh3"
)

// Current returns the calling goroutine's numeric id, parsed out of the
// "goroutine N [running]:" header that runtime.Stack always emits first.
func Current() uint64 {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if idx := bytes.IndexByte(b, ' '); idx >= 0 {
		b = b[:idx]
	}
	n, _ := strconv.ParseUint(string(b), 10, 64)
	return n
}

// Hash32 folds a goroutine id down to the 32-bit thread identifier carried
// by every Event (spec §3: "32-bit hash of the OS thread id").
func Hash32(id uint64) uint32 {
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(id >> (8 * i))
	}
	return uint32(xxh3.Hash(buf[:]))
}

// paletteSize is the number of distinct colors in the small ANSI cycle the
// text emitter uses (spec §4.7, §9: "the core text emitter here specifies
// only the small-palette cycle").
const paletteSize = 8

// ColorOffset derives the small color-offset byte from a hashed thread id.
func ColorOffset(hash uint32) uint8 {
	return uint8(hash % paletteSize)
}
