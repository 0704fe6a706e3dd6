package assemblyai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	aai "github.com/AssemblyAI/assemblyai-go-sdk"

	"github.com/forPelevin/shortsmith/internal/types"
)

// Adapter transcribes through the AssemblyAI API. Words are grouped into
// segments on pauses, sentence ends and a maximum segment length.
type Adapter struct {
	client *aai.Client
}

func New(apiKey string) *Adapter {
	return &Adapter{client: aai.NewClient(apiKey)}
}

func (a *Adapter) Transcribe(ctx context.Context, audioPath string) (types.Transcript, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return types.Transcript{}, err
	}
	defer f.Close()

	params := &aai.TranscriptOptionalParams{
		LanguageDetection: aai.Bool(true),
		Punctuate:         aai.Bool(true),
		FormatText:        aai.Bool(true),
	}
	tr, err := a.client.Transcripts.TranscribeFromReader(ctx, f, params)
	if err != nil {
		return types.Transcript{}, fmt.Errorf("assemblyai transcribe: %w", err)
	}
	if tr.Status == aai.TranscriptStatusError {
		msg := "transcription failed"
		if tr.Error != nil {
			msg = *tr.Error
		}
		return types.Transcript{}, fmt.Errorf("assemblyai: %s", msg)
	}

	words := make([]word, 0, len(tr.Words))
	for _, w := range tr.Words {
		words = append(words, word{
			start: aai.ToInt64(w.Start),
			end:   aai.ToInt64(w.End),
			text:  aai.ToString(w.Text),
		})
	}
	segs := groupWords(words)
	if len(segs) == 0 {
		return types.Transcript{}, errors.New("assemblyai: empty transcript")
	}
	return types.Transcript{
		Segments: segs,
		Text:     strings.TrimSpace(aai.ToString(tr.Text)),
		Language: string(tr.LanguageCode),
	}, nil
}

type word struct {
	start, end int64 // milliseconds
	text       string
}

const (
	pauseMS      = 800
	sentenceMS   = 3000
	maxSegmentMS = 15000
)

func groupWords(words []word) []types.Segment {
	var (
		out   []types.Segment
		parts []string
		start int64
		last  int64
	)
	flush := func() {
		if len(parts) == 0 {
			return
		}
		out = append(out, types.Segment{
			Start: float64(start) / 1000,
			End:   float64(last) / 1000,
			Text:  strings.Join(parts, " "),
		})
		parts = parts[:0]
	}
	for _, w := range words {
		text := strings.TrimSpace(w.text)
		if text == "" {
			continue
		}
		if len(parts) > 0 && (w.start-last > pauseMS || w.end-start > maxSegmentMS) {
			flush()
		}
		if len(parts) == 0 {
			start = w.start
		}
		parts = append(parts, text)
		last = max(w.end, w.start)
		if endsSentence(text) && last-start >= sentenceMS {
			flush()
		}
	}
	flush()
	return out
}

func endsSentence(s string) bool {
	s = strings.TrimRight(s, `"')]`)
	return strings.HasSuffix(s, ".") || strings.HasSuffix(s, "!") || strings.HasSuffix(s, "?")
}
