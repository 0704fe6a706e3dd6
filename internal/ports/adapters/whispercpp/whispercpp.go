package whispercpp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/forPelevin/shortsmith/internal/types"
)

// AudioConverter produces the 16 kHz mono WAV whisper.cpp reads.
type AudioConverter interface {
	ExtractAudioMono16k(ctx context.Context, in, outWav string) error
}

type Adapter struct {
	bin      string
	model    string
	language string
	conv     AudioConverter
}

func New(binPath, modelPath, language string, conv AudioConverter) *Adapter {
	if language == "" {
		language = "auto"
	}
	return &Adapter{bin: binPath, model: modelPath, language: language, conv: conv}
}

type output struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

// Transcribe returns segments and language. Duration is left zero; whisper.cpp
// does not report the input length.
func (a *Adapter) Transcribe(ctx context.Context, audioPath string) (types.Transcript, error) {
	work, err := os.MkdirTemp("", "whispercpp-*")
	if err != nil {
		return types.Transcript{}, err
	}
	defer os.RemoveAll(work)

	wav := filepath.Join(work, "audio.wav")
	if err := a.conv.ExtractAudioMono16k(ctx, audioPath, wav); err != nil {
		return types.Transcript{}, err
	}

	outPrefix := filepath.Join(work, "whisper")
	args := []string{
		"-m", a.model,
		"-f", wav,
		"-l", a.language,
		"-oj",
		"-of", outPrefix,
	}
	cmd := exec.CommandContext(ctx, a.bin, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return types.Transcript{}, fmt.Errorf("whisper.cpp failed: %w\n%s", err, string(b))
	}

	jb, err := os.ReadFile(outPrefix + ".json")
	if err != nil {
		return types.Transcript{}, err
	}
	return parseOutput(jb)
}

func parseOutput(jb []byte) (types.Transcript, error) {
	var out output
	if err := json.Unmarshal(jb, &out); err != nil {
		return types.Transcript{}, fmt.Errorf("decode whisper.cpp json: %w", err)
	}
	tr := types.Transcript{Language: out.Result.Language}
	texts := make([]string, 0, len(out.Transcription))
	for _, s := range out.Transcription {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		seg := types.Segment{
			Start: float64(s.Offsets.From) / 1000,
			End:   float64(s.Offsets.To) / 1000,
			Text:  text,
		}
		if seg.End < seg.Start {
			seg.End = seg.Start
		}
		tr.Segments = append(tr.Segments, seg)
		texts = append(texts, text)
	}
	tr.Text = strings.Join(texts, " ")
	return tr, nil
}
