package highlights

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forPelevin/shortsmith/internal/apperr"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	p := Policy{Min: 40, Max: 180}
	tests := []struct {
		name       string
		start, end float64
		video      float64
		want       Interval
	}{
		{name: "expands short interval forward", start: 10, end: 20, video: 1000, want: Interval{10, 50, 40}},
		{name: "truncates long interval", start: 10, end: 300, video: 1000, want: Interval{10, 190, 180}},
		{name: "shifts backward at the end of the video", start: 990, end: 995, video: 1000, want: Interval{960, 1000, 40}},
		{name: "keeps valid interval", start: 100, end: 160, video: 1000, want: Interval{100, 160, 60}},
		{name: "unknown duration", start: 10, end: 20, video: 0, want: Interval{10, 50, 40}},
		{name: "video exactly min", start: 5, end: 10, video: 40, want: Interval{0, 40, 40}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Normalize(tt.start, tt.end, tt.video)
			require.NoError(t, err)
			assert.InDelta(t, tt.want.Start, got.Start, 1e-9)
			assert.InDelta(t, tt.want.End, got.End, 1e-9)
			assert.InDelta(t, tt.want.Duration, got.Duration, 1e-9)
		})
	}
}

func TestNormalize_Pad(t *testing.T) {
	t.Parallel()

	p := DefaultPolicy()

	got, err := p.Normalize(100, 160, 1000)
	require.NoError(t, err)
	assert.InDelta(t, 98.5, got.Start, 1e-9)
	assert.InDelta(t, 161.5, got.End, 1e-9)

	// pad is clamped at both boundaries
	got, err = p.Normalize(0.5, 60, 60.7)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got.Start)
	assert.InDelta(t, 60.7, got.End, 1e-9)
}

func TestNormalize_VideoTooShort(t *testing.T) {
	t.Parallel()

	_, err := DefaultPolicy().Normalize(1, 10, 30)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrVideoTooShort)
	assert.True(t, apperr.IsKind(err, apperr.KindConfig))
}

func TestNormalize_InvalidInput(t *testing.T) {
	t.Parallel()

	p := DefaultPolicy().WithoutPad()
	for _, iv := range [][2]float64{{20, 10}, {10, 10}, {1200, 1300}} {
		_, err := p.Normalize(iv[0], iv[1], 1000)
		require.Error(t, err)
		assert.True(t, apperr.IsKind(err, apperr.KindInvalidInput), "%v", iv)
	}
}

func TestNormalize_InvariantHoldsAcrossInputs(t *testing.T) {
	t.Parallel()

	p := DefaultPolicy()
	video := 743.25
	for start := 0.0; start < video; start += 13.7 {
		for _, length := range []float64{0.4, 5, 39.9, 40, 90, 179, 181, 400} {
			iv, err := p.Normalize(start, start+length, video)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, iv.Duration, p.Min-epsilon)
			assert.LessOrEqual(t, iv.Duration, p.Max+epsilon)
			assert.GreaterOrEqual(t, iv.Start, 0.0)
			assert.Less(t, iv.Start, iv.End)
			assert.LessOrEqual(t, iv.End, video+epsilon)
		}
	}
}
