package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/forPelevin/shortsmith/internal/domain/highlights"
	"github.com/forPelevin/shortsmith/internal/ports/adapters/langdetect"
	"github.com/forPelevin/shortsmith/internal/store"
	"github.com/forPelevin/shortsmith/internal/types"
)

const (
	testURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
	testID  = "dQw4w9WgXcQ"
	// 120 ten-second segments
	testDuration = 1200.0
)

type fakeMetadata struct {
	info  types.VideoInfo
	calls atomic.Int32
	block bool
}

func (f *fakeMetadata) FetchInfo(ctx context.Context, _ string) (types.VideoInfo, error) {
	f.calls.Add(1)
	if f.block {
		<-ctx.Done()
		return types.VideoInfo{}, fmt.Errorf("yt-dlp: signal: killed")
	}
	return f.info, nil
}

type fakeMedia struct {
	audioCalls atomic.Int32
	videoCalls atomic.Int32
}

func (f *fakeMedia) DownloadAudio(_ context.Context, _, outPath string) error {
	f.audioCalls.Add(1)
	return os.WriteFile(outPath, []byte("mp3-bytes"), 0o644)
}

func (f *fakeMedia) DownloadVideo(_ context.Context, _, outPath string) error {
	f.videoCalls.Add(1)
	return os.WriteFile(outPath, []byte("mp4-bytes"), 0o644)
}

type fakeASR struct {
	tr    types.Transcript
	calls atomic.Int32
}

func (f *fakeASR) Transcribe(_ context.Context, _ string) (types.Transcript, error) {
	f.calls.Add(1)
	return f.tr, nil
}

// fakeLLM answers each window through respond, keyed by the prompt text.
type fakeLLM struct {
	respond func(ctx context.Context, prompt string) (string, error)
	calls   atomic.Int32
}

func (f *fakeLLM) Complete(ctx context.Context, system, user string) (string, error) {
	f.calls.Add(1)
	if system != highlights.SystemPrompt {
		return "", fmt.Errorf("unexpected system prompt %q", system)
	}
	return f.respond(ctx, user)
}

func (f *fakeLLM) Model() string { return "fake-model" }

type fakeVideo struct {
	mu       sync.Mutex
	cuts     []cut
	duration time.Duration
	// failNext makes the next cut leave a truncated file behind and fail.
	failNext error
}

type cut struct {
	src        string
	start, dur float64
	out        string
}

func (f *fakeVideo) CutClip(_ context.Context, src string, start, duration float64, out string) error {
	f.mu.Lock()
	f.cuts = append(f.cuts, cut{src: src, start: start, dur: duration, out: out})
	fail := f.failNext
	f.failNext = nil
	f.mu.Unlock()
	if fail != nil {
		_ = os.WriteFile(out, []byte("clip-"), 0o644)
		return fail
	}
	return os.WriteFile(out, []byte("clip-bytes"), 0o644)
}

func (f *fakeVideo) ProbeDuration(_ context.Context, _ string) (time.Duration, error) {
	if f.duration == 0 {
		return 0, fmt.Errorf("ffprobe: no duration")
	}
	return f.duration, nil
}

type fakePublisher struct {
	keys []string
}

func (f *fakePublisher) Publish(_ context.Context, _, key string) (string, error) {
	f.keys = append(f.keys, key)
	return "https://cdn.example.com/shorts/" + key, nil
}

type fixture struct {
	svc   *Service
	store *store.Store
	dir   string
	meta  *fakeMetadata
	media *fakeMedia
	asr   *fakeASR
	llm   *fakeLLM
	video *fakeVideo
	pub   *fakePublisher
}

func phrase(i int) string {
	return fmt.Sprintf("frase %03d", i)
}

func testSegments() []types.Segment {
	segs := make([]types.Segment, 0, int(testDuration/10))
	for i := 0; i < int(testDuration/10); i++ {
		segs = append(segs, types.Segment{
			Start: float64(i * 10),
			End:   float64(i*10 + 10),
			Text:  phrase(i) + " sobre a fé que não desiste de você",
		})
	}
	return segs
}

func suggestion(title string, from, to, score int) string {
	return fmt.Sprintf(`{"titulo":%q,"citacao_inicio":%q,"citacao_fim":%q,"resumo":"resumo","gatilho_viral":"Esperança","score":%d}`,
		title, phrase(from), phrase(to), score)
}

func reply(items ...string) string {
	return "```json\n{\"sugestoes\":[" + strings.Join(items, ",") + "]}\n```"
}

// defaultRespond proposes one highlight in the first two windows and
// returns unparseable text for the last one.
func defaultRespond(_ context.Context, prompt string) (string, error) {
	switch {
	case strings.Contains(prompt, phrase(0)):
		return reply(suggestion("Deus não desiste", 2, 6, 90)), nil
	case strings.Contains(prompt, phrase(60)):
		return reply(suggestion("A virada", 70, 75, 80)), nil
	default:
		return "desculpe, não consegui", nil
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dir := t.TempDir()
	st, err := store.New([]string{filepath.Join(dir, "dados")})
	require.NoError(t, err)

	f := &fixture{
		store: st,
		dir:   dir,
		meta: &fakeMetadata{info: types.VideoInfo{
			Title:     "Culto de domingo",
			Author:    "Igreja",
			Duration:  testDuration,
			Thumbnail: "https://i.ytimg.com/vi/dQw4w9WgXcQ/hq.jpg",
		}},
		media: &fakeMedia{},
		asr: &fakeASR{tr: types.Transcript{
			Segments: testSegments(),
			Language: "pt-BR",
		}},
		llm:   &fakeLLM{respond: defaultRespond},
		video: &fakeVideo{duration: 1200 * time.Second},
		pub:   &fakePublisher{},
	}

	opt := DefaultOptions()
	opt.UploadsDir = filepath.Join(dir, "uploads")
	opt.Concurrency = 3
	opt.InferenceTimeout = 5 * time.Second
	opt.Tags = []string{"#fé", "#shorts"}
	f.svc = New(Deps{
		Store:     st,
		Metadata:  f.meta,
		Media:     f.media,
		ASR:       f.asr,
		LLM:       f.llm,
		Video:     f.video,
		Publisher: f.pub,
		Lang:      langdetect.New(),
	}, opt)
	return f
}

// seedTranscribed stores a record that is ready for analysis.
func (f *fixture) seedTranscribed(t *testing.T, duration float64) {
	t.Helper()
	_, err := f.store.Update(context.Background(), testID, func(r *types.VideoRecord) error {
		r.URL = testURL
		r.Info = &types.VideoInfo{Title: "Culto", Duration: duration, VideoID: testID}
		r.Audio = &types.AudioStage{Path: filepath.Join(f.dir, "a.mp3"), SizeBytes: 3}
		r.Transcript = &types.Transcript{Segments: testSegments(), Language: "pt", Duration: duration}
		return nil
	})
	require.NoError(t, err)
}

func (f *fixture) recordBytes(t *testing.T) []byte {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(f.dir, "dados", testID+".json"))
	require.NoError(t, err)
	return b
}
