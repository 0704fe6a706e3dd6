package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/forPelevin/shortsmith/internal/apperr"
	"github.com/forPelevin/shortsmith/internal/domain/highlights"
	"github.com/forPelevin/shortsmith/internal/types"
)

// MethodSlidingWindows is stored in analise.metodo.
const MethodSlidingWindows = "janelas_deslizantes"

type AnalyzeRequest struct {
	VideoID   string `json:"video_id"`
	URL       string `json:"url"`
	Reprocess bool   `json:"reprocessar"`
}

type AnalyzeResult struct {
	VideoID  string         `json:"video_id"`
	Analysis types.Analysis `json:"analise"`
	Cache    bool           `json:"cache"`
}

// Analyze detects highlights over the stored transcript. A stored analysis
// is returned as is unless Reprocess is set. Concurrent calls for the same
// video share one run. The shared run is detached from every caller and
// bounded by AnalyzeTimeout; a caller whose ctx ends stops waiting without
// affecting the others.
func (s *Service) Analyze(ctx context.Context, req AnalyzeRequest) (AnalyzeResult, error) {
	id, err := resolveID(req.VideoID, req.URL)
	if err != nil {
		return AnalyzeResult{}, err
	}
	ch := s.analyzeFlight.DoChan(id+"|"+strconv.FormatBool(req.Reprocess), func() (any, error) {
		actx, cancel := withTimeout(context.WithoutCancel(ctx), s.opt.AnalyzeTimeout)
		defer cancel()
		return s.analyze(actx, id, req.Reprocess)
	})
	select {
	case <-ctx.Done():
		s.log.Info("stopped waiting for analysis", zap.String("video_id", id), zap.Error(ctx.Err()))
		return AnalyzeResult{}, apperr.Collaborator("analyze", ctx.Err())
	case r := <-ch:
		if r.Err != nil {
			return AnalyzeResult{}, r.Err
		}
		if r.Shared {
			s.log.Debug("joined in-flight analysis", zap.String("video_id", id))
		}
		return r.Val.(AnalyzeResult), nil
	}
}

func (s *Service) analyze(ctx context.Context, id string, reprocess bool) (AnalyzeResult, error) {
	rec, err := s.d.Store.Get(ctx, id)
	if err != nil {
		return AnalyzeResult{}, err
	}
	if !reprocess && types.StateOf(rec).Analyzed {
		s.log.Info("analysis ready", zap.String("video_id", id), zap.Bool("cache", true))
		return AnalyzeResult{VideoID: id, Analysis: *rec.Analysis, Cache: true}, nil
	}
	if rec.Transcript == nil || len(rec.Transcript.Segments) == 0 {
		return AnalyzeResult{}, apperr.InvalidInput("analyze", "video %q has no transcript, transcribe first", id)
	}

	segs := rec.Transcript.Segments
	duration := videoDuration(rec)
	if duration < s.opt.Policy.Min {
		return AnalyzeResult{}, fmt.Errorf("analyze %s: %w", id, apperr.ErrVideoTooShort)
	}

	cands, err := s.extract(ctx, id, segs, duration)
	if err != nil {
		return AnalyzeResult{}, err
	}
	sel, err := highlights.Select(cands, segs, duration, s.opt.Policy, s.opt.Tags)
	for _, d := range sel.Dropped {
		s.log.Info("candidate dropped",
			zap.String("video_id", id),
			zap.String("title", d.Candidate.Title),
			zap.Float64("window_start", d.Candidate.WindowStart),
			zap.Error(d.Err),
		)
	}
	if err != nil {
		return AnalyzeResult{}, fmt.Errorf("analyze %s: %w", id, err)
	}

	analysis := types.Analysis{
		Highlights: sel.Highlights,
		Total:      len(sel.Highlights),
		Model:      s.d.LLM.Model(),
		Method:     MethodSlidingWindows,
		RunID:      uuid.NewString(),
		CreatedAt:  s.now().UTC(),
	}
	if _, err := s.d.Store.Update(ctx, id, func(r *types.VideoRecord) error {
		r.Analysis = &analysis
		return nil
	}); err != nil {
		return AnalyzeResult{}, err
	}
	s.log.Info("analysis ready",
		zap.String("video_id", id),
		zap.String("run_id", analysis.RunID),
		zap.Int("candidates", len(cands)),
		zap.Int("highlights", analysis.Total),
		zap.Bool("cache", false),
	)
	return AnalyzeResult{VideoID: id, Analysis: analysis}, nil
}

// extract runs one inference call per qualifying window on a bounded pool.
// A failed window is logged and skipped. Candidates come back in window
// order, then response order, whatever order the calls finish in.
func (s *Service) extract(ctx context.Context, id string, segs []types.Segment, duration float64) ([]types.Candidate, error) {
	seq, err := highlights.Windows(duration, s.opt.WindowSeconds, s.opt.OverlapSeconds)
	if err != nil {
		return nil, err
	}
	var windows []types.Window
	for w := range seq {
		windows = append(windows, w)
	}

	var (
		results = make([][]types.Candidate, len(windows))
		mu      sync.Mutex
		failed  []error
		g       errgroup.Group
	)
	g.SetLimit(s.opt.Concurrency)
	for i, w := range windows {
		text := highlights.WindowText(segs, w)
		if !highlights.Qualifies(text, s.opt.MinWindowChars) {
			s.log.Debug("window skipped, not enough text",
				zap.String("video_id", id), zap.Float64("window_start", w.Start))
			continue
		}
		g.Go(func() error {
			cands, err := s.inferWindow(ctx, w, text)
			if err != nil {
				s.log.Warn("window failed",
					zap.String("video_id", id),
					zap.Float64("window_start", w.Start),
					zap.Float64("window_end", w.End),
					zap.Error(err),
				)
				mu.Lock()
				failed = append(failed, err)
				mu.Unlock()
				return nil
			}
			results[i] = cands
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, apperr.Collaborator("analyze", err)
	}
	var out []types.Candidate
	for _, r := range results {
		out = append(out, r...)
	}
	if len(out) == 0 && len(failed) > 0 {
		return nil, apperr.Collaborator("analyze", fmt.Errorf("all %d windows failed: %w", len(failed), errors.Join(failed...)))
	}
	s.log.Debug("windows analyzed",
		zap.String("video_id", id),
		zap.Int("windows", len(windows)),
		zap.Int("failed", len(failed)),
		zap.Int("candidates", len(out)),
	)
	return out, nil
}

func (s *Service) inferWindow(ctx context.Context, w types.Window, text string) ([]types.Candidate, error) {
	wctx, cancel := withTimeout(ctx, s.opt.InferenceTimeout)
	defer cancel()
	content, err := s.d.LLM.Complete(wctx, highlights.SystemPrompt, highlights.WindowPrompt(text))
	if err != nil {
		return nil, collaboratorErr(wctx, "inference", err)
	}
	return highlights.ParseResponse(content, w.Start)
}
