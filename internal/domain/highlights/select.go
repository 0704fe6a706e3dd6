package highlights

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"

	"github.com/forPelevin/shortsmith/internal/apperr"
	"github.com/forPelevin/shortsmith/internal/types"
)

const (
	DefaultTitle   = "Short Viral"
	DefaultTrigger = "Impacto Emocional"

	// minimum cap, then one highlight per this many seconds of source
	minCap        = 5
	secondsPerCap = 300
	// overlap share of the shorter interval that marks a duplicate
	duplicateOverlap = 0.5
)

// Cap is the maximum number of highlights kept for a video of the given duration.
func Cap(videoDuration float64) int {
	n := int(math.Floor(videoDuration / secondsPerCap))
	return max(minCap, n)
}

type Drop struct {
	Candidate types.Candidate
	Err       error
}

type Selection struct {
	Highlights []types.Highlight
	Dropped    []Drop
}

// Select ranks candidates by score, resolves and normalizes them in that
// order until Cap(videoDuration) highlights are accepted, and returns the
// accepted set ordered by start time. Candidates that fail resolution or
// duplicate an accepted interval are dropped without counting toward the cap.
func Select(
	cands []types.Candidate,
	segs []types.Segment,
	videoDuration float64,
	p Policy,
	tags []string,
) (Selection, error) {
	ranked := slices.Clone(cands)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })

	limit := Cap(videoDuration)
	r := NewResolver(segs)
	var sel Selection
	for _, c := range ranked {
		if len(sel.Highlights) >= limit {
			break
		}
		start, end, err := r.Resolve(c.StartQuote, c.EndQuote)
		if err != nil {
			sel.Dropped = append(sel.Dropped, Drop{Candidate: c, Err: err})
			continue
		}
		iv, err := p.Normalize(start, end, videoDuration)
		if err != nil {
			if errors.Is(err, apperr.ErrVideoTooShort) {
				return Selection{}, err
			}
			sel.Dropped = append(sel.Dropped, Drop{Candidate: c, Err: err})
			continue
		}
		if i := duplicateOf(sel.Highlights, iv); i >= 0 {
			sel.Dropped = append(sel.Dropped, Drop{
				Candidate: c,
				Err:       fmt.Errorf("overlaps %q", sel.Highlights[i].Title),
			})
			continue
		}
		sel.Highlights = append(sel.Highlights, toHighlight(c, iv, tags))
	}

	if len(sel.Highlights) == 0 {
		return sel, fmt.Errorf("select %d candidates: %w", len(cands), apperr.ErrNoUsableHighlights)
	}
	sort.SliceStable(sel.Highlights, func(i, j int) bool { return sel.Highlights[i].Start < sel.Highlights[j].Start })
	return sel, nil
}

func duplicateOf(accepted []types.Highlight, iv Interval) int {
	for i, h := range accepted {
		overlap := math.Min(h.End, iv.End) - math.Max(h.Start, iv.Start)
		if overlap <= 0 {
			continue
		}
		shorter := math.Min(h.Duration, iv.Duration)
		if overlap >= duplicateOverlap*shorter {
			return i
		}
	}
	return -1
}

func toHighlight(c types.Candidate, iv Interval, tags []string) types.Highlight {
	title := strings.TrimSpace(c.Title)
	if title == "" {
		title = DefaultTitle
	}
	trigger := strings.TrimSpace(c.Trigger)
	if trigger == "" {
		trigger = DefaultTrigger
	}
	return types.Highlight{
		Title:       title,
		Start:       iv.Start,
		End:         iv.End,
		Duration:    iv.Duration,
		Description: strings.TrimSpace(c.Summary),
		Trigger:     trigger,
		Hook:        strings.TrimSpace(c.StartQuote),
		Tags:        append([]string{}, tags...),
	}
}
