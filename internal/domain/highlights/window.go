package highlights

import (
	"fmt"
	"iter"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/forPelevin/shortsmith/internal/apperr"
	"github.com/forPelevin/shortsmith/internal/types"
)

const (
	DefaultWindowSeconds  = 600
	DefaultOverlapSeconds = 60
	DefaultMinWindowChars = 200
)

// Windows splits [0, duration) into overlapping half-open windows.
// The cursor starts at 0 and advances by size-overlap until it reaches duration.
func Windows(duration, size, overlap float64) (iter.Seq[types.Window], error) {
	if size <= 0 || math.IsNaN(size) {
		return nil, apperr.Config("windows", "window size must be > 0, got %v", size)
	}
	if overlap < 0 || math.IsNaN(overlap) {
		return nil, apperr.Config("windows", "overlap must be >= 0, got %v", overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("windows: overlap %v, size %v: %w", overlap, size, apperr.ErrInvalidWindowConfig)
	}
	step := size - overlap
	return func(yield func(types.Window) bool) {
		for i := 0; ; i++ {
			// multiply rather than accumulate to keep cursors exact
			cursor := float64(i) * step
			if cursor >= duration {
				return
			}
			w := types.Window{Index: i, Start: cursor, End: math.Min(cursor+size, duration)}
			if !yield(w) {
				return
			}
		}
	}, nil
}

// WindowText joins the text of every segment lying fully inside w.
func WindowText(segs []types.Segment, w types.Window) string {
	var b strings.Builder
	for _, s := range segs {
		if s.Start < w.Start || s.End > w.End {
			continue
		}
		t := strings.TrimSpace(s.Text)
		if t == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(t)
	}
	return b.String()
}

// Qualifies reports whether a window's text is long enough to be worth an inference call.
func Qualifies(text string, minChars int) bool {
	return utf8.RuneCountInString(text) >= minChars
}
