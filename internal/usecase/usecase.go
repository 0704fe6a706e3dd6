package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/forPelevin/shortsmith/internal/apperr"
	"github.com/forPelevin/shortsmith/internal/domain/highlights"
	"github.com/forPelevin/shortsmith/internal/domain/videoid"
	"github.com/forPelevin/shortsmith/internal/ports"
	"github.com/forPelevin/shortsmith/internal/store"
	"github.com/forPelevin/shortsmith/internal/types"
)

// Records is the stage store seen by the orchestrator.
type Records interface {
	Get(ctx context.Context, id string) (*types.VideoRecord, error)
	Update(ctx context.Context, id string, fn func(*types.VideoRecord) error) (*types.VideoRecord, error)
	List(ctx context.Context) ([]store.IndexedVideo, error)
	State(ctx context.Context, id string) (types.StageState, error)
}

type Deps struct {
	Store    Records
	Metadata ports.MetadataFetcher
	Media    ports.MediaFetcher
	ASR      ports.ASR
	LLM      ports.Inference
	Video    ports.VideoTool
	// optional
	Publisher ports.Publisher
	Lang      ports.LanguageDetector
	Log       *zap.Logger
}

type Options struct {
	UploadsDir string

	WindowSeconds  float64
	OverlapSeconds float64
	MinWindowChars int
	Concurrency    int

	Policy highlights.Policy
	Tags   []string

	InferenceTimeout  time.Duration
	DownloadTimeout   time.Duration
	TranscodeTimeout  time.Duration
	TranscribeTimeout time.Duration
	AnalyzeTimeout    time.Duration

	SubtitleSidecar bool
}

func DefaultOptions() Options {
	return Options{
		UploadsDir:        "uploads",
		WindowSeconds:     highlights.DefaultWindowSeconds,
		OverlapSeconds:    highlights.DefaultOverlapSeconds,
		MinWindowChars:    highlights.DefaultMinWindowChars,
		Concurrency:       2,
		Policy:            highlights.DefaultPolicy(),
		InferenceTimeout:  2 * time.Minute,
		DownloadTimeout:   10 * time.Minute,
		TranscodeTimeout:  10 * time.Minute,
		TranscribeTimeout: 2 * time.Hour,
		AnalyzeTimeout:    30 * time.Minute,
		SubtitleSidecar:   true,
	}
}

// Service runs the pipeline stages against the stage store. Every stage
// checks the store first and only calls collaborators on a cache miss.
type Service struct {
	d   Deps
	opt Options
	log *zap.Logger
	now func() time.Time

	analyzeFlight singleflight.Group

	// downloads reading each source video; the sweeper skips those ids
	sourcesMu sync.Mutex
	sources   map[string]int
}

func New(d Deps, opt Options) *Service {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	if opt.Concurrency < 1 {
		opt.Concurrency = 1
	}
	if opt.UploadsDir == "" {
		opt.UploadsDir = "uploads"
	}
	return &Service{d: d, opt: opt, log: log, now: time.Now, sources: make(map[string]int)}
}

func (s *Service) audioPath(id string) string {
	return filepath.Join(s.opt.UploadsDir, "audio", id+".mp3")
}

func (s *Service) sourceVideoPath(id string) string {
	return filepath.Join(s.opt.UploadsDir, "videos", id+".mp4")
}

func (s *Service) shortsDir() string {
	return filepath.Join(s.opt.UploadsDir, "shorts")
}

// resolveID picks the explicit id when given, otherwise derives it from url.
func resolveID(id, url string) (string, error) {
	switch {
	case id != "":
		if !videoid.Valid(id) {
			return "", apperr.InvalidInput("video id", "invalid video id %q", id)
		}
		return id, nil
	case url != "":
		return videoid.FromURL(url)
	default:
		return "", apperr.InvalidInput("video id", "video_id or url is required")
	}
}

// lookup returns the stored record or nil when the id is unknown.
func (s *Service) lookup(ctx context.Context, id string) (*types.VideoRecord, error) {
	rec, err := s.d.Store.Get(ctx, id)
	if apperr.IsKind(err, apperr.KindNotFound) {
		return nil, nil
	}
	return rec, err
}

// videoDuration prefers the metadata duration and falls back to the transcript.
func videoDuration(rec *types.VideoRecord) float64 {
	if rec.Info != nil && rec.Info.Duration > 0 {
		return rec.Info.Duration
	}
	if tr := rec.Transcript; tr != nil {
		if tr.Duration > 0 {
			return tr.Duration
		}
		if n := len(tr.Segments); n > 0 {
			return tr.Segments[n-1].End
		}
	}
	return 0
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// collaboratorErr wraps a failed external call. Subprocesses killed by a
// deadline report "signal: killed", so the context error is attached.
func collaboratorErr(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		err = fmt.Errorf("%w: %w", err, ctxErr)
	}
	return apperr.Collaborator(op, err)
}

func fileSize(p string) (int64, bool) {
	st, err := os.Stat(p)
	if err != nil || st.IsDir() {
		return 0, false
	}
	return st.Size(), true
}
