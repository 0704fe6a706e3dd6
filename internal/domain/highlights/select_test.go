package highlights

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forPelevin/shortsmith/internal/apperr"
	"github.com/forPelevin/shortsmith/internal/types"
)

// minuteSegments returns one 60s segment per minute with text "trecho NNN".
func minuteSegments(n int) []types.Segment {
	segs := make([]types.Segment, n)
	for i := range segs {
		segs[i] = types.Segment{Start: float64(60 * i), End: float64(60*i + 60), Text: fmt.Sprintf("trecho %03d", i)}
	}
	return segs
}

func minuteCandidate(i int, score float64) types.Candidate {
	q := fmt.Sprintf("trecho %03d", i)
	return types.Candidate{Title: q, StartQuote: q, EndQuote: q, Score: score}
}

func TestCap(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 5, Cap(0))
	assert.Equal(t, 5, Cap(600))
	assert.Equal(t, 5, Cap(1799))
	assert.Equal(t, 6, Cap(1800))
	assert.Equal(t, 10, Cap(3000))
}

func TestSelect_CapsAtDurationFormula(t *testing.T) {
	t.Parallel()

	segs := minuteSegments(50)
	var cands []types.Candidate
	for i := 0; i < 20; i++ {
		cands = append(cands, minuteCandidate(i*2, float64(i)))
	}

	sel, err := Select(cands, segs, 3000, Policy{Min: 40, Max: 180}, nil)
	require.NoError(t, err)
	require.Len(t, sel.Highlights, 10)

	// the ten highest scores are candidates 10..19, i.e. minutes 20..38
	assert.Equal(t, 1200.0, sel.Highlights[0].Start)
	assert.Equal(t, 2280.0, sel.Highlights[9].Start)
	for i := 1; i < len(sel.Highlights); i++ {
		assert.Less(t, sel.Highlights[i-1].Start, sel.Highlights[i].Start, "ordered by start")
	}
}

func TestSelect_FailedResolutionDoesNotCountTowardCap(t *testing.T) {
	t.Parallel()

	segs := minuteSegments(10)
	cands := []types.Candidate{
		{Title: "ghost 1", StartQuote: "nunca dito", EndQuote: "trecho 001", Score: 99},
		{Title: "ghost 2", StartQuote: "trecho 001", EndQuote: "nunca dito", Score: 98},
		{Title: "ghost 3", StartQuote: "", EndQuote: "", Score: 97},
	}
	for i := 0; i < 8; i++ {
		cands = append(cands, minuteCandidate(i, 50))
	}

	sel, err := Select(cands, segs, 600, Policy{Min: 40, Max: 180}, nil)
	require.NoError(t, err)
	assert.Len(t, sel.Highlights, 5)
	require.Len(t, sel.Dropped, 3)
	for _, d := range sel.Dropped {
		assert.ErrorIs(t, d.Err, apperr.ErrUnresolved)
	}
	// equal scores keep discovery order
	assert.Equal(t, "trecho 000", sel.Highlights[0].Title)
	assert.Equal(t, "trecho 004", sel.Highlights[4].Title)
}

func TestSelect_DropsDuplicates(t *testing.T) {
	t.Parallel()

	segs := minuteSegments(10)
	cands := []types.Candidate{
		minuteCandidate(2, 90),
		// same minute, proposed by the overlapping window
		minuteCandidate(2, 80),
		// [120,240] overlaps [120,180] by its full shorter length
		{Title: "longer", StartQuote: "trecho 002", EndQuote: "trecho 003", Score: 70},
		minuteCandidate(5, 60),
	}

	sel, err := Select(cands, segs, 600, Policy{Min: 40, Max: 180}, nil)
	require.NoError(t, err)
	require.Len(t, sel.Highlights, 2)
	assert.Equal(t, 120.0, sel.Highlights[0].Start)
	assert.Equal(t, 300.0, sel.Highlights[1].Start)
	assert.Len(t, sel.Dropped, 2)
}

func TestSelect_FillsDefaultsAndInvariant(t *testing.T) {
	t.Parallel()

	segs := []types.Segment{
		{Start: 0, End: 5, Text: "hello world"},
		{Start: 5, End: 9, Text: "this is a test"},
		{Start: 9, End: 14, Text: "the end"},
	}
	tags := []string{"#gospel", "#shorts"}
	cands := []types.Candidate{{StartQuote: "hello world", EndQuote: "the end", Summary: " resumo ", Score: 70}}

	sel, err := Select(cands, segs, 100, DefaultPolicy(), tags)
	require.NoError(t, err)
	require.Len(t, sel.Highlights, 1)
	h := sel.Highlights[0]
	assert.Equal(t, DefaultTitle, h.Title)
	assert.Equal(t, DefaultTrigger, h.Trigger)
	assert.Equal(t, "hello world", h.Hook)
	assert.Equal(t, "resumo", h.Description)
	assert.Equal(t, tags, h.Tags)
	assert.Equal(t, 0.0, h.Start)
	assert.InDelta(t, 40.0, h.Duration, 1e-9)
	assert.InDelta(t, h.End-h.Start, h.Duration, 1e-9)

	tags[0] = "#changed"
	assert.Equal(t, "#gospel", h.Tags[0], "tags are copied")
}

func TestSelect_NoUsableHighlights(t *testing.T) {
	t.Parallel()

	segs := minuteSegments(5)
	cands := []types.Candidate{{StartQuote: "x", EndQuote: "y", Score: 10}}

	_, err := Select(cands, segs, 300, DefaultPolicy(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrNoUsableHighlights)

	_, err = Select(nil, segs, 300, DefaultPolicy(), nil)
	assert.ErrorIs(t, err, apperr.ErrNoUsableHighlights)
}

func TestSelect_VideoTooShortIsTerminal(t *testing.T) {
	t.Parallel()

	segs := []types.Segment{{Start: 0, End: 10, Text: "curto demais"}}
	cands := []types.Candidate{{StartQuote: "curto", EndQuote: "demais", Score: 50}}

	_, err := Select(cands, segs, 20, DefaultPolicy(), nil)
	assert.ErrorIs(t, err, apperr.ErrVideoTooShort)
}
