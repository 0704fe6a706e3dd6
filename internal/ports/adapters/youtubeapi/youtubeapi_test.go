package youtubeapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/forPelevin/shortsmith/internal/apperr"
)

func TestParseISODuration(t *testing.T) {
	t.Parallel()

	tests := map[string]time.Duration{
		"PT15S":    15 * time.Second,
		"PT1H2M3S": time.Hour + 2*time.Minute + 3*time.Second,
		"PT45M":    45 * time.Minute,
		"P1DT2H":   26 * time.Hour,
		"PT0.5S":   500 * time.Millisecond,
		"":         0,
	}
	for in, want := range tests {
		got, err := parseISODuration(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"P", "PT", "1H", "PT1X"} {
		_, err := parseISODuration(bad)
		assert.Error(t, err, bad)
	}
}

func TestFetchInfo(t *testing.T) {
	t.Parallel()

	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("id") != "dQw4w9WgXcQ" {
			_, _ = w.Write([]byte(`{"items":[]}`))
			return
		}
		_, _ = w.Write([]byte(`{"items":[{
			"id":"dQw4w9WgXcQ",
			"snippet":{"title":"Culto","channelTitle":"Igreja","description":"d",
				"publishedAt":"2024-03-05T18:00:00Z",
				"thumbnails":{"high":{"url":"https://i.ytimg.com/hq.jpg"}}},
			"contentDetails":{"duration":"PT1H2M3S"},
			"statistics":{"viewCount":"1234"}}]}`))
	}))
	defer srv.Close()

	a, err := New(context.Background(), "key", option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	got, err := a.FetchInfo(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Contains(t, gotQuery, "part=snippet")
	assert.Equal(t, "Culto", got.Title)
	assert.Equal(t, "Igreja", got.Author)
	assert.Equal(t, 3723.0, got.Duration)
	assert.Equal(t, "20240305", got.UploadDate)
	assert.Equal(t, "https://i.ytimg.com/hq.jpg", got.Thumbnail)
	assert.Equal(t, int64(1234), got.Views)

	_, err = a.FetchInfo(context.Background(), "https://youtu.be/AAAAAAAAAAA")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	_, err = a.FetchInfo(context.Background(), "https://vimeo.com/1")
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidInput))
}
