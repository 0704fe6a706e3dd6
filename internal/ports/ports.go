package ports

import (
	"context"
	"time"

	"github.com/forPelevin/shortsmith/internal/types"
)

type MetadataFetcher interface {
	FetchInfo(ctx context.Context, url string) (types.VideoInfo, error)
}

// MediaFetcher downloads remote media. An existing output file is left untouched.
type MediaFetcher interface {
	DownloadAudio(ctx context.Context, url, outPath string) error
	DownloadVideo(ctx context.Context, url, outPath string) error
}

type ASR interface {
	Transcribe(ctx context.Context, audioPath string) (types.Transcript, error)
}

// Inference is a single chat completion returning the raw assistant text.
type Inference interface {
	Complete(ctx context.Context, system, user string) (string, error)
	Model() string
}

type VideoTool interface {
	CutClip(ctx context.Context, src string, start, duration float64, out string) error
	ProbeDuration(ctx context.Context, path string) (time.Duration, error)
}

// Publisher uploads a finished clip and returns its public URL.
type Publisher interface {
	Publish(ctx context.Context, localPath, key string) (string, error)
}

// LanguageDetector guesses an ISO 639-1 code from text and normalizes codes
// reported by speech-to-text engines. Both return "" when unsure.
type LanguageDetector interface {
	Detect(text string) string
	Normalize(code string) string
}
