package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/forPelevin/shortsmith/internal/apperr"
	"github.com/forPelevin/shortsmith/internal/config"
	"github.com/forPelevin/shortsmith/internal/domain/highlights"
	"github.com/forPelevin/shortsmith/internal/ports"
	"github.com/forPelevin/shortsmith/internal/ports/adapters/assemblyai"
	"github.com/forPelevin/shortsmith/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/shortsmith/internal/ports/adapters/langdetect"
	"github.com/forPelevin/shortsmith/internal/ports/adapters/objectstore"
	"github.com/forPelevin/shortsmith/internal/ports/adapters/openrouter"
	"github.com/forPelevin/shortsmith/internal/ports/adapters/whispercpp"
	"github.com/forPelevin/shortsmith/internal/ports/adapters/youtubeapi"
	"github.com/forPelevin/shortsmith/internal/ports/adapters/ytdlp"
	"github.com/forPelevin/shortsmith/internal/store"
	"github.com/forPelevin/shortsmith/internal/usecase"
)

// App is the wired application: one store and one service per process.
type App struct {
	Config  config.Config
	Log     *zap.Logger
	Store   *store.Store
	Service *usecase.Service

	closers []func() error
}

// ValidateInference checks the inference endpoint settings.
func ValidateInference(c config.InferenceConfig) error {
	if err := openrouter.ValidateBaseURL(c.BaseURL, c.AllowedHosts); err != nil {
		return apperr.Config("config", "%v", err)
	}
	if c.APIKey == "" && !openrouter.IsLoopback(c.BaseURL) {
		return apperr.Config("config", "INFERENCE_API_KEY is required for non-local inference endpoints")
	}
	return nil
}

// Build constructs adapters, store and service from cfg.
func Build(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := ValidateInference(cfg.Inference); err != nil {
		return nil, err
	}
	app := &App{Config: cfg, Log: log}

	locker, err := app.locker(ctx)
	if err != nil {
		return nil, err
	}
	st, err := store.New(cfg.SearchDirs(),
		store.WithLocker(locker),
		store.WithLogger(log.Named("store")),
	)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.Store = st

	video := ffmpeg.New(cfg.FFmpegBin, cfg.FFprobeBin)
	yt := ytdlp.New(cfg.YtDlpBin)

	var metadata ports.MetadataFetcher = yt
	if cfg.MetadataSource == "youtube-api" {
		api, err := youtubeapi.New(ctx, cfg.YouTubeAPIKey)
		if err != nil {
			_ = app.Close()
			return nil, apperr.Config("youtube api", "%v", err)
		}
		metadata = api
	}

	var asr ports.ASR
	switch cfg.ASRProvider {
	case "assemblyai":
		asr = assemblyai.New(cfg.AssemblyAIKey)
	default:
		asr = whispercpp.New(cfg.WhisperBin, cfg.WhisperModel, cfg.WhisperLanguage, video)
	}

	llm := openrouter.New(openrouter.Options{
		APIKey:      cfg.Inference.APIKey,
		Model:       cfg.Inference.Model,
		BaseURL:     cfg.Inference.BaseURL,
		Temperature: cfg.Inference.Temperature,
		Retries:     cfg.Inference.Retries,
	})

	deps := usecase.Deps{
		Store:    st,
		Metadata: metadata,
		Media:    yt,
		ASR:      asr,
		LLM:      llm,
		Video:    video,
		Lang:     langdetect.New(),
		Log:      log.Named("usecase"),
	}
	if cfg.Storage.Enabled() {
		pub, err := objectstore.New(objectstore.Config{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Bucket:    cfg.Storage.Bucket,
			UseSSL:    cfg.Storage.UseSSL,
			PublicURL: cfg.Storage.PublicURL,
		})
		if err != nil {
			_ = app.Close()
			return nil, apperr.Config("storage", "%v", err)
		}
		deps.Publisher = pub
	}

	app.Service = usecase.New(deps, Options(cfg))
	log.Debug("pipeline ready",
		zap.String("metadata", cfg.MetadataSource),
		zap.String("asr", cfg.ASRProvider),
		zap.String("model", cfg.Inference.Model),
		zap.Strings("data_dirs", cfg.SearchDirs()),
		zap.Bool("redis_lock", cfg.RedisAddr != ""),
		zap.Bool("publish", cfg.Storage.Enabled()),
	)
	return app, nil
}

// Options maps configuration onto the orchestrator's options.
func Options(cfg config.Config) usecase.Options {
	return usecase.Options{
		UploadsDir:     cfg.UploadsDir,
		WindowSeconds:  cfg.Chunk.WindowSeconds,
		OverlapSeconds: cfg.Chunk.OverlapSeconds,
		MinWindowChars: cfg.Chunk.MinChars,
		Concurrency:    cfg.Inference.Concurrency,
		Policy: highlights.Policy{
			Min: cfg.Highlight.MinSeconds,
			Max: cfg.Highlight.MaxSeconds,
			Pad: cfg.Highlight.PadSeconds,
		},
		Tags:              cfg.Highlight.Tags,
		InferenceTimeout:  cfg.Inference.Timeout,
		DownloadTimeout:   cfg.Timeouts.Download,
		TranscodeTimeout:  cfg.Timeouts.Transcode,
		TranscribeTimeout: cfg.Timeouts.Transcribe,
		AnalyzeTimeout:    cfg.Timeouts.Analyze,
		SubtitleSidecar:   cfg.SubtitleSidecar,
	}
}

// locker serializes record updates in process, and across processes when
// Redis is configured.
func (a *App) locker(ctx context.Context) (store.Locker, error) {
	local := store.NewKeyedMutex()
	if a.Config.RedisAddr == "" {
		return local, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     a.Config.RedisAddr,
		Password: a.Config.RedisPassword,
		DB:       a.Config.RedisDB,
	})
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		_ = client.Close()
		return nil, apperr.Collaborator("redis ping", fmt.Errorf("%s: %w", a.Config.RedisAddr, err))
	}
	a.closers = append(a.closers, client.Close)
	return store.Chain{local, store.NewRedisLocker(client, a.Log.Named("lock"))}, nil
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// ensure adapters implement ports
var (
	_ ports.MetadataFetcher  = (*ytdlp.Adapter)(nil)
	_ ports.MetadataFetcher  = (*youtubeapi.Adapter)(nil)
	_ ports.MediaFetcher     = (*ytdlp.Adapter)(nil)
	_ ports.VideoTool        = (*ffmpeg.Adapter)(nil)
	_ ports.ASR              = (*whispercpp.Adapter)(nil)
	_ ports.ASR              = (*assemblyai.Adapter)(nil)
	_ ports.Inference        = (*openrouter.Adapter)(nil)
	_ ports.Publisher        = (*objectstore.Adapter)(nil)
	_ ports.LanguageDetector = langdetect.Detector{}
)

var _ whispercpp.AudioConverter = (*ffmpeg.Adapter)(nil)
