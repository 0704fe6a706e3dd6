package usecase

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/forPelevin/shortsmith/internal/apperr"
	"github.com/forPelevin/shortsmith/internal/types"
)

// ListVideos returns every known video, newest first, with its stage state.
func (s *Service) ListVideos(ctx context.Context) ([]types.LibraryEntry, error) {
	idx, err := s.d.Store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]types.LibraryEntry, 0, len(idx))
	for _, v := range idx {
		e := types.LibraryEntry{
			VideoID:           v.VideoID,
			URL:               v.URL,
			Title:             v.Title,
			UltimaAtualizacao: v.UltimaAtualizacao,
		}
		rec, err := s.d.Store.Get(ctx, v.VideoID)
		switch {
		case err == nil:
			e.State = types.StateOf(rec)
			if rec.Info != nil {
				e.Thumbnail = rec.Info.Thumbnail
			}
		case apperr.IsKind(err, apperr.KindNotFound):
			s.log.Debug("index entry without record", zap.String("video_id", v.VideoID))
		default:
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *Service) State(ctx context.Context, videoID string) (types.StageState, error) {
	id, err := resolveID(videoID, "")
	if err != nil {
		return types.StageState{}, err
	}
	return s.d.Store.State(ctx, id)
}

func (s *Service) Record(ctx context.Context, videoID string) (types.VideoRecord, error) {
	id, err := resolveID(videoID, "")
	if err != nil {
		return types.VideoRecord{}, err
	}
	rec, err := s.d.Store.Get(ctx, id)
	if err != nil {
		return types.VideoRecord{}, err
	}
	return *rec, nil
}

type StatusResult struct {
	VideoID string           `json:"video_id"`
	Stage   types.Stage      `json:"etapa"`
	State   types.StageState `json:"estado"`
}

// Status reports how far a video has progressed without running anything.
func (s *Service) Status(ctx context.Context, url, videoID string) (StatusResult, error) {
	id, err := resolveID(videoID, url)
	if err != nil {
		return StatusResult{}, err
	}
	st, err := s.d.Store.State(ctx, id)
	if err != nil {
		return StatusResult{}, err
	}
	return StatusResult{VideoID: id, Stage: st.Current(), State: st}, nil
}

type StageReport struct {
	Stage types.Stage `json:"etapa"`
	Cache bool        `json:"cache"`
}

type RunResult struct {
	VideoID  string         `json:"video_id"`
	Stages   []StageReport  `json:"etapas"`
	Analysis types.Analysis `json:"analise"`
}

// Run executes metadata, audio, transcription and analysis in order. Each
// stage honors its cache; a failure stops the run and leaves earlier stages
// persisted.
func (s *Service) Run(ctx context.Context, url string, reprocess bool) (RunResult, error) {
	meta, err := s.FetchMetadata(ctx, url)
	if err != nil {
		return RunResult{}, err
	}
	res := RunResult{VideoID: meta.VideoID}
	res.Stages = append(res.Stages, StageReport{Stage: types.StageMetadata, Cache: meta.Cache})

	audio, err := s.ExtractAudio(ctx, AudioRequest{VideoID: meta.VideoID, URL: url})
	if err != nil {
		return res, err
	}
	res.Stages = append(res.Stages, StageReport{Stage: types.StageAudio, Cache: audio.Cache})

	tr, err := s.Transcribe(ctx, TranscribeRequest{VideoID: meta.VideoID, AudioPath: audio.Path})
	if err != nil {
		return res, err
	}
	res.Stages = append(res.Stages, StageReport{Stage: types.StageTranscribed, Cache: tr.Cache})

	an, err := s.Analyze(ctx, AnalyzeRequest{VideoID: meta.VideoID, Reprocess: reprocess})
	if err != nil {
		return res, err
	}
	res.Stages = append(res.Stages, StageReport{Stage: types.StageAnalyzed, Cache: an.Cache})
	res.Analysis = an.Analysis
	return res, nil
}

// SweepSourceVideos removes downloaded source videos not used for ttl.
// Files a download is currently reading are skipped. Shorts and audio are
// kept.
func (s *Service) SweepSourceVideos(ttl time.Duration) (int, error) {
	dir := filepath.Join(s.opt.UploadsDir, "videos")
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	cutoff := s.now().Add(-ttl)
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		p := filepath.Join(dir, e.Name())
		ok, err := s.removeIdleSource(strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())), p)
		if err != nil {
			s.log.Warn("remove source video", zap.String("path", p), zap.Error(err))
			continue
		}
		if !ok {
			s.log.Debug("source video in use, kept", zap.String("path", p))
			continue
		}
		removed++
	}
	if removed > 0 {
		s.log.Info("source videos swept", zap.Int("removed", removed))
	}
	return removed, nil
}

// removeIdleSource deletes p unless a download holds id.
func (s *Service) removeIdleSource(id, p string) (bool, error) {
	s.sourcesMu.Lock()
	defer s.sourcesMu.Unlock()
	if s.sources[id] > 0 {
		return false, nil
	}
	if err := os.Remove(p); err != nil {
		return false, err
	}
	return true, nil
}
