package objectstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
		key  string
		want string
	}{
		{
			name: "endpoint without ssl",
			cfg:  Config{Endpoint: "localhost:9000", Bucket: "shorts"},
			key:  "abc/abc_short_0_12s.mp4",
			want: "http://localhost:9000/shorts/abc/abc_short_0_12s.mp4",
		},
		{
			name: "endpoint with ssl",
			cfg:  Config{Endpoint: "s3.example.com", Bucket: "shorts", UseSSL: true},
			key:  "a.mp4",
			want: "https://s3.example.com/shorts/a.mp4",
		},
		{
			name: "public url wins",
			cfg:  Config{Endpoint: "minio:9000", Bucket: "shorts", PublicURL: "https://cdn.example.com/"},
			key:  "x y.mp4",
			want: "https://cdn.example.com/shorts/x%20y.mp4",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, objectURL(tt.cfg, tt.key))
		})
	}
}

func TestContentType(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "video/mp4", contentType("/tmp/a.MP4"))
	assert.Equal(t, "text/x-ssa", contentType("a.ass"))
	assert.Equal(t, "application/octet-stream", contentType("a.bin"))
}

func TestNew(t *testing.T) {
	t.Parallel()

	_, err := New(Config{Bucket: "shorts"})
	require.Error(t, err)

	a, err := New(Config{Endpoint: "localhost:9000", Bucket: "shorts", AccessKey: "k", SecretKey: "s"})
	require.NoError(t, err)
	assert.NotNil(t, a.client)
}
