package subtitles

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/forPelevin/shortsmith/internal/types"
)

// RenderClipASS renders karaoke subtitles for [start, end) of the source
// timeline. Event times are clip-local. Segments only carry segment-level
// timing, so word timing is spread over each segment by character length.
func RenderClipASS(segs []types.Segment, start, end float64) string {
	clipStart, clipEnd := dur(start), dur(end)
	words := collectWords(segs, clipStart, clipEnd)
	if len(words) == 0 {
		return renderASSPlain("", clipEnd-clipStart)
	}
	return renderASSKaraoke(packWords(words))
}

type wword struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

type line struct {
	Start time.Duration
	End   time.Duration
	Words []wword
}

func collectWords(segs []types.Segment, start, end time.Duration) []wword {
	var out []wword
	for _, s := range segs {
		for _, w := range spreadWords(s) {
			if w.End <= start || w.Start >= end {
				continue
			}
			w.Start = max(w.Start, start) - start
			w.End = min(w.End, end) - start
			out = append(out, w)
		}
	}
	return out
}

func spreadWords(s types.Segment) []wword {
	fields := strings.Fields(s.Text)
	if len(fields) == 0 || s.End <= s.Start {
		return nil
	}
	total := 0
	for _, f := range fields {
		total += utf8.RuneCountInString(f)
	}
	segStart, segDur := dur(s.Start), dur(s.End)-dur(s.Start)
	out := make([]wword, 0, len(fields))
	acc := 0
	for _, f := range fields {
		ws := segStart + segDur*time.Duration(acc)/time.Duration(total)
		acc += utf8.RuneCountInString(f)
		we := segStart + segDur*time.Duration(acc)/time.Duration(total)
		out = append(out, wword{Start: ws, End: we, Text: sanitizeASS(f)})
	}
	return out
}

func packWords(words []wword) []line {
	var out []line
	cur := line{Start: words[0].Start}
	// budgets sized for a vertical 9:16 frame
	charBudget := 32
	wordBudget := 7
	curLen := 0
	for i, w := range words {
		wl := utf8.RuneCountInString(w.Text)
		nextLen := curLen
		if curLen > 0 {
			nextLen++
		}
		nextLen += wl
		if len(cur.Words) > 0 && (len(cur.Words) >= wordBudget || nextLen > charBudget) {
			cur.End = cur.Words[len(cur.Words)-1].End
			out = append(out, cur)
			cur = line{Start: w.Start}
			curLen = 0
		}
		cur.Words = append(cur.Words, w)
		if curLen > 0 {
			curLen++
		}
		curLen += wl
		if i == len(words)-1 {
			cur.End = w.End
			out = append(out, cur)
		}
	}
	return out
}

func renderASSKaraoke(lines []line) string {
	var b strings.Builder
	b.WriteString(assHeader())
	b.WriteString("\n[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	for _, ln := range lines {
		b.WriteString("Dialogue: 0,")
		b.WriteString(assTime(ln.Start))
		b.WriteString(",")
		b.WriteString(assTime(ln.End))
		b.WriteString(",Short,,0,0,0,,")
		parts := make([]string, 0, len(ln.Words))
		for _, w := range ln.Words {
			durCS := max(int((w.End-w.Start)/(10*time.Millisecond)), 1)
			parts = append(parts, fmt.Sprintf("{\\k%d}%s", durCS, w.Text))
		}
		b.WriteString(strings.Join(parts, " "))
		b.WriteString("\n")
	}
	return b.String()
}

func renderASSPlain(text string, d time.Duration) string {
	var b strings.Builder
	b.WriteString(assHeader())
	b.WriteString("\n[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	if text = sanitizeASS(text); text != "" {
		b.WriteString("Dialogue: 0,0:00:00.00,")
		b.WriteString(assTime(d))
		b.WriteString(",Short,,0,0,0,,")
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String()
}

func assHeader() string {
	return strings.TrimSpace(`
[Script Info]
ScriptType: v4.00+
PlayResX: 1080
PlayResY: 1920
ScaledBorderAndShadow: yes

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: Short, Inter, 72, &H00FFFFFF, &H00FFD200, &H00000000, &H64000000, 1,0,0,0,100,100,0,0,1,6,2,2, 60,60,420,1
`)
}

func assTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hs := int(d / time.Hour)
	d -= time.Duration(hs) * time.Hour
	ms := int(d / time.Minute)
	d -= time.Duration(ms) * time.Minute
	s := int(d / time.Second)
	d -= time.Duration(s) * time.Second
	cs := int(d / (10 * time.Millisecond))
	return fmt.Sprintf("%d:%02d:%02d.%02d", hs, ms, s, cs)
}

func sanitizeASS(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "{", "(")
	s = strings.ReplaceAll(s, "}", ")")
	return strings.TrimSpace(s)
}

func dur(sec float64) time.Duration { return time.Duration(sec * float64(time.Second)) }
