package videoid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forPelevin/shortsmith/internal/apperr"
)

func TestFromURL_YouTube(t *testing.T) {
	t.Parallel()

	for _, u := range []string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"https://youtube.com/watch?v=dQw4w9WgXcQ&t=42s",
		"https://m.youtube.com/watch/?v=dQw4w9WgXcQ",
		"https://youtu.be/dQw4w9WgXcQ?si=abc",
		"https://www.youtube.com/shorts/dQw4w9WgXcQ",
		"https://www.youtube.com/embed/dQw4w9WgXcQ",
		"https://www.youtube.com/live/dQw4w9WgXcQ?feature=share",
		"  https://www.youtube.com/watch?v=dQw4w9WgXcQ  ",
	} {
		id, err := FromURL(u)
		require.NoError(t, err, u)
		assert.Equal(t, "dQw4w9WgXcQ", id, u)
	}
}

func TestFromURL_OtherURLsAreHashed(t *testing.T) {
	t.Parallel()

	a, err := FromURL("https://vimeo.com/12345")
	require.NoError(t, err)
	b, err := FromURL("https://vimeo.com/12345")
	require.NoError(t, err)
	c, err := FromURL("https://vimeo.com/67890")
	require.NoError(t, err)

	assert.Equal(t, a, b, "deterministic")
	assert.NotEqual(t, a, c)
	assert.True(t, strings.HasPrefix(a, "url-"))
	assert.Len(t, a, len("url-")+12)
	assert.True(t, Valid(a))

	// a youtube page without an id is not a video
	id, err := FromURL("https://www.youtube.com/@canal")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "url-"))
}

func TestFromURL_Invalid(t *testing.T) {
	t.Parallel()

	for _, u := range []string{"", "   ", "not a url", "/relative/path"} {
		_, err := FromURL(u)
		require.Error(t, err, u)
		assert.True(t, apperr.IsKind(err, apperr.KindInvalidInput), u)
	}
}

func TestValid(t *testing.T) {
	t.Parallel()

	assert.True(t, Valid("dQw4w9WgXcQ"))
	assert.False(t, Valid(""))
	assert.False(t, Valid("../etc/passwd"))
	assert.False(t, Valid("a/b"))
	assert.False(t, Valid("indice"))
}
