// Package config loads the environment-style configuration.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/forPelevin/shortsmith/internal/apperr"
)

type Config struct {
	DataDir        string   `envconfig:"DATA_DIR" default:"dados" validate:"required"`
	DataSearchDirs []string `envconfig:"DATA_SEARCH_DIRS"`
	UploadsDir     string   `envconfig:"UPLOADS_DIR" default:"uploads" validate:"required"`

	Chunk     ChunkConfig
	Highlight HighlightConfig
	Inference InferenceConfig
	Timeouts  TimeoutConfig

	MetadataSource string `envconfig:"METADATA_SOURCE" default:"ytdlp" validate:"oneof=ytdlp youtube-api"`
	YouTubeAPIKey  string `envconfig:"YOUTUBE_API_KEY" validate:"required_if=MetadataSource youtube-api"`

	ASRProvider     string `envconfig:"ASR_PROVIDER" default:"whispercpp" validate:"oneof=whispercpp assemblyai"`
	WhisperBin      string `envconfig:"WHISPER_BIN" default:"whisper-cli"`
	WhisperModel    string `envconfig:"WHISPER_MODEL" default:"models/ggml-base.bin"`
	WhisperLanguage string `envconfig:"WHISPER_LANGUAGE" default:"auto"`
	AssemblyAIKey   string `envconfig:"ASSEMBLYAI_API_KEY" validate:"required_if=ASRProvider assemblyai"`

	YtDlpBin   string `envconfig:"YTDLP_BIN" default:"yt-dlp"`
	FFmpegBin  string `envconfig:"FFMPEG_BIN" default:"ffmpeg"`
	FFprobeBin string `envconfig:"FFPROBE_BIN" default:"ffprobe"`

	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0" validate:"gte=0"`

	Storage StorageConfig

	SubtitleSidecar bool          `envconfig:"SUBTITLE_SIDECAR" default:"true"`
	HTTPAddr        string        `envconfig:"HTTP_ADDR" default:":5000"`
	HTTPOrigins     []string      `envconfig:"HTTP_ALLOWED_ORIGINS"`
	CleanupCron     string        `envconfig:"CLEANUP_CRON" default:"@hourly"`
	SourceVideoTTL  time.Duration `envconfig:"SOURCE_VIDEO_TTL" default:"24h" validate:"gte=0"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"console" validate:"oneof=json console"`
}

type ChunkConfig struct {
	WindowSeconds  float64 `envconfig:"CHUNK_WINDOW_SECONDS" default:"600" validate:"gt=0"`
	OverlapSeconds float64 `envconfig:"CHUNK_OVERLAP_SECONDS" default:"60" validate:"gte=0"`
	MinChars       int     `envconfig:"CHUNK_MIN_CHARS" default:"200" validate:"gte=0"`
}

type HighlightConfig struct {
	MinSeconds float64  `envconfig:"HIGHLIGHT_MIN_SECONDS" default:"40" validate:"gt=0"`
	MaxSeconds float64  `envconfig:"HIGHLIGHT_MAX_SECONDS" default:"180" validate:"gt=0"`
	PadSeconds float64  `envconfig:"HIGHLIGHT_PAD_SECONDS" default:"1.5" validate:"gte=0"`
	Tags       []string `envconfig:"HIGHLIGHT_TAGS" default:"#gospel,#pregação,#fé,#motivação,#shorts"`
}

type InferenceConfig struct {
	Model        string        `envconfig:"INFERENCE_MODEL" default:"llama3.2:3b" validate:"required"`
	BaseURL      string        `envconfig:"INFERENCE_BASE_URL" default:"https://openrouter.ai"`
	APIKey       string        `envconfig:"INFERENCE_API_KEY"`
	AllowedHosts []string      `envconfig:"INFERENCE_ALLOWED_HOSTS"`
	Temperature  float64       `envconfig:"INFERENCE_TEMPERATURE" default:"0.7" validate:"gte=0,lte=2"`
	Concurrency  int           `envconfig:"INFERENCE_CONCURRENCY" default:"2" validate:"gte=1,lte=32"`
	Timeout      time.Duration `envconfig:"INFERENCE_TIMEOUT" default:"2m" validate:"gt=0"`
	Retries      int           `envconfig:"INFERENCE_RETRIES" default:"2" validate:"gte=0,lte=10"`
}

type TimeoutConfig struct {
	Download   time.Duration `envconfig:"DOWNLOAD_TIMEOUT" default:"10m" validate:"gt=0"`
	Transcode  time.Duration `envconfig:"TRANSCODE_TIMEOUT" default:"10m" validate:"gt=0"`
	Transcribe time.Duration `envconfig:"TRANSCRIBE_TIMEOUT" default:"2h" validate:"gt=0"`
	Analyze    time.Duration `envconfig:"ANALYZE_TIMEOUT" default:"30m" validate:"gt=0"`
}

type StorageConfig struct {
	Endpoint  string `envconfig:"STORAGE_ENDPOINT"`
	AccessKey string `envconfig:"STORAGE_ACCESS_KEY" validate:"required_with=Endpoint"`
	SecretKey string `envconfig:"STORAGE_SECRET_KEY" validate:"required_with=Endpoint"`
	Bucket    string `envconfig:"STORAGE_BUCKET" default:"shorts"`
	UseSSL    bool   `envconfig:"STORAGE_USE_SSL" default:"false"`
	PublicURL string `envconfig:"STORAGE_PUBLIC_URL"`
}

// Enabled reports whether clip publishing is configured.
func (s StorageConfig) Enabled() bool { return s.Endpoint != "" }

// Load reads .env if present, then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load() // best-effort: load .env if present
	return FromEnv()
}

func FromEnv() (Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, apperr.Config("config", "%v", err)
	}
	c.DataSearchDirs = trimAll(c.DataSearchDirs)
	c.Highlight.Tags = trimAll(c.Highlight.Tags)
	c.Inference.AllowedHosts = trimAll(c.Inference.AllowedHosts)
	c.HTTPOrigins = trimAll(c.HTTPOrigins)
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

var validate = validator.New()

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return apperr.Config("config", "%v", err)
	}
	if c.Chunk.OverlapSeconds >= c.Chunk.WindowSeconds {
		return fmt.Errorf("config: CHUNK_OVERLAP_SECONDS=%v, CHUNK_WINDOW_SECONDS=%v: %w",
			c.Chunk.OverlapSeconds, c.Chunk.WindowSeconds, apperr.ErrInvalidWindowConfig)
	}
	if c.Highlight.MinSeconds > c.Highlight.MaxSeconds {
		return apperr.Config("config", "HIGHLIGHT_MIN_SECONDS must be <= HIGHLIGHT_MAX_SECONDS")
	}
	return nil
}

// SearchDirs returns every storage directory in lookup order, DataDir first.
func (c Config) SearchDirs() []string {
	out := []string{c.DataDir}
	seen := map[string]struct{}{c.DataDir: {}}
	for _, d := range c.DataSearchDirs {
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}

func trimAll(in []string) []string {
	out := in[:0]
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
