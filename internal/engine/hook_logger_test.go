package engine

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", preview("short"))

	ascii := strings.Repeat("a", previewLen+10)
	assert.Equal(t, strings.Repeat("a", previewLen)+"...", preview(ascii))

	// One leading byte shifts every two-byte rune off the cut point.
	multi := "a" + strings.Repeat("é", previewLen)
	got := preview(multi)
	assert.True(t, utf8.ValidString(got), "preview split a rune: %q", got)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.LessOrEqual(t, len(got), previewLen+len("..."))
}
