package subtitles

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forPelevin/shortsmith/internal/types"
)

func TestRenderClipASS_KaraokeHasKTags(t *testing.T) {
	t.Parallel()

	segs := []types.Segment{{Start: 100, End: 102, Text: "Hello world"}}
	ass := RenderClipASS(segs, 100, 110)
	assert.Contains(t, ass, "{\\k")
	assert.Contains(t, ass, "Dialogue: 0,0:00:00.00,0:00:02.00,Short")
}

func TestRenderClipASS_ClipLocalAndClamped(t *testing.T) {
	t.Parallel()

	segs := []types.Segment{
		{Start: 0, End: 10, Text: "antes do corte"},
		{Start: 58, End: 62, Text: "um dois"},
		{Start: 62, End: 64, Text: "três"},
		{Start: 200, End: 210, Text: "depois do corte"},
	}
	ass := RenderClipASS(segs, 60, 100)
	assert.NotContains(t, ass, "antes")
	assert.NotContains(t, ass, "depois")
	// "um" ends before the clip starts; "dois" is clamped to 0
	assert.NotContains(t, ass, "}um")
	assert.Contains(t, ass, "}dois")
	assert.Contains(t, ass, "Dialogue: 0,0:00:00.00,0:00:04.00,Short")
}

func TestRenderClipASS_WrapsLongSegments(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("palavra ", 20)
	ass := RenderClipASS([]types.Segment{{Start: 0, End: 20, Text: text}}, 0, 20)
	assert.Greater(t, strings.Count(ass, "Dialogue:"), 3)
}

func TestRenderClipASS_EmptyClipHasNoEvents(t *testing.T) {
	t.Parallel()

	ass := RenderClipASS(nil, 0, 30)
	require.Contains(t, ass, "[Events]")
	assert.NotContains(t, ass, "Dialogue:")
}

func TestRenderClipASS_SanitizesOverrideBlocks(t *testing.T) {
	t.Parallel()

	ass := RenderClipASS([]types.Segment{{Start: 0, End: 1, Text: `{\b1}olá`}}, 0, 1)
	assert.Contains(t, ass, `(\\b1)olá`)
}

func TestAssTime_Format(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "0:01:01.23", assTime(61*time.Second+234*time.Millisecond))
	assert.Equal(t, "0:00:00.00", assTime(-time.Second))
}
