package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/forPelevin/shortsmith/internal/apperr"
	"github.com/forPelevin/shortsmith/internal/domain/videoid"
	"github.com/forPelevin/shortsmith/internal/usecase"
)

type handler struct {
	p   Pipeline
	log *zap.Logger
}

// envelope is {success, error} plus the operation's payload.
type envelope struct {
	apperr.Result
	Data any `json:"data,omitempty"`
}

func ok(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, envelope{Result: apperr.Envelope(nil), Data: data})
}

func fail(c echo.Context, err error) error {
	return c.JSON(apperr.HTTPStatus(err), envelope{Result: apperr.Envelope(err)})
}

// bind decodes and validates the request body into v.
func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return apperr.InvalidInput("request", "malformed body: %v", err)
	}
	if err := c.Validate(v); err != nil {
		return apperr.InvalidInput("request", "%v", err)
	}
	return nil
}

type infoRequest struct {
	URL string `json:"url" validate:"required"`
}

func (h *handler) info(c echo.Context) error {
	var req infoRequest
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	res, err := h.p.FetchMetadata(c.Request().Context(), req.URL)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, res)
}

func (h *handler) state(c echo.Context) error {
	st, err := h.p.State(c.Request().Context(), c.Param("video_id"))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, map[string]any{"video_id": c.Param("video_id"), "estado": st, "etapa": st.Current()})
}

func (h *handler) record(c echo.Context) error {
	rec, err := h.p.Record(c.Request().Context(), c.Param("video_id"))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, rec)
}

type videoRequest struct {
	VideoID string `json:"video_id" validate:"required_without=URL"`
	URL     string `json:"url" validate:"required_without=VideoID"`
}

func (h *handler) audio(c echo.Context) error {
	var req videoRequest
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	res, err := h.p.ExtractAudio(c.Request().Context(), usecase.AudioRequest{VideoID: req.VideoID, URL: req.URL})
	if err != nil {
		return fail(c, err)
	}
	return ok(c, res)
}

type transcribeRequest struct {
	AudioPath string `json:"audio_path" validate:"required_without_all=VideoID URL"`
	VideoID   string `json:"video_id"`
	URL       string `json:"url"`
}

func (h *handler) transcribe(c echo.Context) error {
	var req transcribeRequest
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	res, err := h.p.Transcribe(c.Request().Context(), usecase.TranscribeRequest{
		AudioPath: req.AudioPath,
		VideoID:   req.VideoID,
		URL:       req.URL,
	})
	if err != nil {
		return fail(c, err)
	}
	return ok(c, res)
}

type analyzeRequest struct {
	VideoID   string `json:"video_id" validate:"required_without=URL"`
	URL       string `json:"url" validate:"required_without=VideoID"`
	Reprocess bool   `json:"reprocessar"`
}

func (h *handler) analyze(c echo.Context) error {
	var req analyzeRequest
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	res, err := h.p.Analyze(c.Request().Context(), usecase.AnalyzeRequest{
		VideoID:   req.VideoID,
		URL:       req.URL,
		Reprocess: req.Reprocess,
	})
	if err != nil {
		return fail(c, err)
	}
	return ok(c, res)
}

type adjustRequest struct {
	VideoID string   `json:"video_id" validate:"required"`
	Index   *int     `json:"indice" validate:"required,gte=0"`
	Start   *float64 `json:"inicio_segundos" validate:"required,gte=0"`
	End     *float64 `json:"fim_segundos" validate:"required,gt=0"`
}

func (h *handler) adjust(c echo.Context) error {
	var req adjustRequest
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	hl, err := h.p.AdjustInterval(c.Request().Context(), req.VideoID, *req.Index, *req.Start, *req.End)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, map[string]any{"video_id": req.VideoID, "indice": *req.Index, "sugestao": hl})
}

// downloadRequest accepts the web client's payload. The cut always uses
// the stored interval, so inicio_segundos, fim_segundos and titulo are
// read but not trusted.
type downloadRequest struct {
	VideoID string   `json:"video_id" validate:"required_without=URL"`
	URL     string   `json:"url" validate:"required_without=VideoID"`
	Index   *int     `json:"indice_sugestao" validate:"omitempty,gte=0"`
	Start   *float64 `json:"inicio_segundos" validate:"omitempty,gte=0"`
	End     *float64 `json:"fim_segundos" validate:"omitempty,gte=0"`
	Title   string   `json:"titulo"`
}

func (h *handler) download(c echo.Context) error {
	var req downloadRequest
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	id := req.VideoID
	if id == "" {
		var err error
		if id, err = videoid.FromURL(req.URL); err != nil {
			return fail(c, err)
		}
	}
	index := 0
	if req.Index != nil {
		index = *req.Index
	}
	if req.Start != nil && req.End != nil {
		h.log.Debug("client interval ignored, using the stored one",
			zap.String("video_id", id),
			zap.Int("index", index),
			zap.Float64("start", *req.Start),
			zap.Float64("end", *req.End),
		)
	}
	res, err := h.p.DownloadHighlight(c.Request().Context(), id, index)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, res)
}

func (h *handler) listShorts(c echo.Context) error {
	clips, err := h.p.ListDownloaded(c.Request().Context(), c.Param("video_id"))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, map[string]any{"video_id": c.Param("video_id"), "shorts": clips, "total": len(clips)})
}

func (h *handler) status(c echo.Context) error {
	var req videoRequest
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	res, err := h.p.Status(c.Request().Context(), req.URL, req.VideoID)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, res)
}

type runRequest struct {
	URL       string `json:"url" validate:"required"`
	Reprocess bool   `json:"reprocessar"`
}

func (h *handler) run(c echo.Context) error {
	var req runRequest
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	res, err := h.p.Run(c.Request().Context(), req.URL, req.Reprocess)
	if err != nil {
		h.log.Warn("pipeline run stopped", zap.String("video_id", res.VideoID), zap.Error(err))
		return fail(c, err)
	}
	return ok(c, res)
}

func (h *handler) library(c echo.Context) error {
	videos, err := h.p.ListVideos(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return ok(c, map[string]any{"videos": videos, "total": len(videos)})
}
