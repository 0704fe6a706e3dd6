package highlights

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/forPelevin/shortsmith/internal/apperr"
	"github.com/forPelevin/shortsmith/internal/types"
)

// Resolver anchors quoted boundary text back onto transcript timestamps.
// Segment text is normalized once; a Resolver is not safe for concurrent use.
type Resolver struct {
	segs  []types.Segment
	texts []string
	fold  cases.Caser
}

func NewResolver(segs []types.Segment) *Resolver {
	r := &Resolver{segs: segs, texts: make([]string, len(segs)), fold: cases.Fold()}
	for i, s := range segs {
		r.texts[i] = r.normalize(s.Text)
	}
	return r
}

// Resolve returns the start of the first segment containing startQuote and
// the end of the first segment at or after that start containing endQuote.
func (r *Resolver) Resolve(startQuote, endQuote string) (float64, float64, error) {
	sq := r.normalize(startQuote)
	eq := r.normalize(endQuote)
	if sq == "" || eq == "" {
		return 0, 0, fmt.Errorf("empty quote: %w", apperr.ErrUnresolved)
	}

	startIdx := -1
	for i, t := range r.texts {
		if strings.Contains(t, sq) {
			startIdx = i
			break
		}
	}
	if startIdx < 0 {
		return 0, 0, fmt.Errorf("start %q: %w", truncate(startQuote, 60), apperr.ErrUnresolved)
	}
	start := r.segs[startIdx].Start

	for i, t := range r.texts {
		if r.segs[i].Start < start {
			continue
		}
		if strings.Contains(t, eq) {
			return start, r.segs[i].End, nil
		}
	}
	return 0, 0, fmt.Errorf("end %q: %w", truncate(endQuote, 60), apperr.ErrUnresolved)
}

func (r *Resolver) normalize(s string) string {
	s = norm.NFC.String(s)
	s = r.fold.String(s)
	s = strings.ReplaceAll(s, "...", " ")
	s = strings.ReplaceAll(s, "…", " ")
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
