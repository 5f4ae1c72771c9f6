package argfmt

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stringerID int

func (s stringerID) String() string { return "id#" + string(rune('0'+s)) }

func TestFormatValue_Scalars(t *testing.T) {
	assert.Equal(t, "nil", FormatValue(nil))
	assert.Equal(t, `"hello"`, FormatValue("hello"))
	assert.Equal(t, "true", FormatValue(true))
	assert.Equal(t, "42", FormatValue(42))
	assert.Equal(t, "3.5", FormatValue(3.5))
}

func TestFormatValue_BytesPreview(t *testing.T) {
	assert.Equal(t, "len:0", FormatValue([]byte{}))
	assert.Equal(t, "len:3,hex:010203", FormatValue([]byte{1, 2, 3}))

	long := make([]byte, 20)
	got := FormatValue(long)
	assert.True(t, strings.HasPrefix(got, "len:20,hex:"))
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestFormatValue_ErrorAndStringer(t *testing.T) {
	assert.Equal(t, "boom", FormatValue(errors.New("boom")))
	assert.Equal(t, "id#5", FormatValue(stringerID(5)))
}

func TestFormatValue_Fallback(t *testing.T) {
	type point struct{ X, Y int }
	got := FormatValue(point{1, 2})
	assert.Contains(t, got, "1")
	assert.Contains(t, got, "2")
}

func TestFormat_NameEqualsValue(t *testing.T) {
	assert.Equal(t, `count=7`, Format("count", 7))
}

func TestFormat_TruncatesOversizePayload(t *testing.T) {
	long := strings.Repeat("x", 300)
	got := Format("blob", long)
	assert.LessOrEqual(t, len(got), 192)
}
