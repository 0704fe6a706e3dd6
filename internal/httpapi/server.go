// Package httpapi exposes the pipeline operations over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/forPelevin/shortsmith/internal/types"
	"github.com/forPelevin/shortsmith/internal/usecase"
)

// Pipeline is the subset of usecase.Service served over HTTP.
type Pipeline interface {
	FetchMetadata(ctx context.Context, url string) (usecase.MetadataResult, error)
	ExtractAudio(ctx context.Context, req usecase.AudioRequest) (usecase.AudioResult, error)
	Transcribe(ctx context.Context, req usecase.TranscribeRequest) (usecase.TranscribeResult, error)
	Analyze(ctx context.Context, req usecase.AnalyzeRequest) (usecase.AnalyzeResult, error)
	AdjustInterval(ctx context.Context, videoID string, index int, start, end float64) (types.Highlight, error)
	DownloadHighlight(ctx context.Context, videoID string, index int) (usecase.DownloadResult, error)
	ListVideos(ctx context.Context) ([]types.LibraryEntry, error)
	ListDownloaded(ctx context.Context, videoID string) ([]types.DownloadedClip, error)
	State(ctx context.Context, videoID string) (types.StageState, error)
	Record(ctx context.Context, videoID string) (types.VideoRecord, error)
	Status(ctx context.Context, url, videoID string) (usecase.StatusResult, error)
	Run(ctx context.Context, url string, reprocess bool) (usecase.RunResult, error)
}

// CustomValidator implements echo.Validator using go-playground/validator.
type CustomValidator struct {
	v *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	return cv.v.Struct(i)
}

type Options struct {
	UploadsDir     string
	AllowedOrigins []string
}

// New returns an echo instance with every route registered.
func New(p Pipeline, opt Options, log *zap.Logger) *echo.Echo {
	if log == nil {
		log = zap.NewNop()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &CustomValidator{v: validator.New()}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				log.Warn("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			log.Info("request", fields...)
			return nil
		},
	}))
	origins := opt.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	h := &handler{p: p, log: log}
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	api := e.Group("/api")
	api.POST("/youtube/info", h.info)
	api.GET("/youtube/estado/:video_id", h.state)
	api.GET("/youtube/dados/:video_id", h.record)
	api.POST("/audio/download", h.audio)
	api.POST("/transcricao", h.transcribe)
	api.POST("/analise/sugestoes", h.analyze)
	api.POST("/analise/atualizar-intervalo", h.adjust)
	api.POST("/shorts/baixar", h.download)
	api.GET("/shorts/listar/:video_id", h.listShorts)
	api.POST("/processar-video", h.status)
	api.POST("/pipeline/executar", h.run)
	api.GET("/biblioteca/listar", h.library)

	if opt.UploadsDir != "" {
		e.Static("/uploads", opt.UploadsDir)
	}
	return e
}

// Serve runs e on addr until ctx is done, then shuts down gracefully.
func Serve(ctx context.Context, e *echo.Echo, addr string, log *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(sctx); err != nil {
		return err
	}
	return <-errCh
}
