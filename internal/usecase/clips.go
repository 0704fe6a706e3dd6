package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/forPelevin/shortsmith/internal/apperr"
	"github.com/forPelevin/shortsmith/internal/domain/highlights"
	"github.com/forPelevin/shortsmith/internal/domain/subtitles"
	"github.com/forPelevin/shortsmith/internal/types"
)

func highlightAt(rec *types.VideoRecord, index int) (types.Highlight, error) {
	if rec.Analysis == nil || len(rec.Analysis.Highlights) == 0 {
		return types.Highlight{}, apperr.NotFound("highlight", "video %q has no analysis", rec.VideoID)
	}
	if index < 0 || index >= len(rec.Analysis.Highlights) {
		return types.Highlight{}, apperr.InvalidInput("highlight",
			"index %d out of range, video %q has %d highlights", index, rec.VideoID, len(rec.Analysis.Highlights))
	}
	return rec.Analysis.Highlights[index], nil
}

// AdjustInterval replaces a highlight's interval with a manual edit after
// running it through the duration policy without padding.
func (s *Service) AdjustInterval(ctx context.Context, videoID string, index int, start, end float64) (types.Highlight, error) {
	id, err := resolveID(videoID, "")
	if err != nil {
		return types.Highlight{}, err
	}
	if _, err := s.d.Store.Get(ctx, id); err != nil {
		return types.Highlight{}, err
	}

	var out types.Highlight
	_, err = s.d.Store.Update(ctx, id, func(r *types.VideoRecord) error {
		if _, err := highlightAt(r, index); err != nil {
			return err
		}
		iv, err := s.opt.Policy.WithoutPad().Normalize(start, end, videoDuration(r))
		if err != nil {
			return err
		}
		h := &r.Analysis.Highlights[index]
		h.Start, h.End, h.Duration = iv.Start, iv.End, iv.Duration
		out = *h
		return nil
	})
	if err != nil {
		return types.Highlight{}, err
	}
	s.log.Info("interval adjusted",
		zap.String("video_id", id),
		zap.Int("index", index),
		zap.Float64("start", out.Start),
		zap.Float64("end", out.End),
	)
	return out, nil
}

type DownloadResult struct {
	VideoID string               `json:"video_id"`
	Path    string               `json:"caminho_arquivo"`
	Clip    types.DownloadedClip `json:"short"`
	Cache   bool                 `json:"cache"`
}

// ClipName is the file name of highlight index cut at start seconds.
func ClipName(id string, index int, start float64) string {
	return fmt.Sprintf("%s_short_%d_%ds.mp4", id, index, int(start))
}

// DownloadHighlight cuts highlight index out of the source video. The
// stored interval is re-checked against the video duration first. An
// existing output file is reused and registered once.
func (s *Service) DownloadHighlight(ctx context.Context, videoID string, index int) (DownloadResult, error) {
	id, err := resolveID(videoID, "")
	if err != nil {
		return DownloadResult{}, err
	}
	rec, err := s.d.Store.Get(ctx, id)
	if err != nil {
		return DownloadResult{}, err
	}
	h, err := highlightAt(rec, index)
	if err != nil {
		return DownloadResult{}, err
	}
	iv, err := s.opt.Policy.WithoutPad().Normalize(h.Start, h.End, videoDuration(rec))
	if err != nil {
		return DownloadResult{}, err
	}

	out := filepath.Join(s.shortsDir(), ClipName(id, index, iv.Start))
	for _, c := range rec.Downloaded {
		if c.Path != out {
			continue
		}
		if _, ok := fileSize(out); ok {
			s.log.Info("short ready", zap.String("video_id", id), zap.Int("index", index), zap.Bool("cache", true))
			return DownloadResult{VideoID: id, Path: out, Clip: c, Cache: true}, nil
		}
	}

	cache := true
	if _, ok := fileSize(out); !ok {
		cache = false
		release := s.useSource(id)
		defer release()
		src, err := s.sourceVideo(ctx, rec)
		if err != nil {
			return DownloadResult{}, err
		}
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return DownloadResult{}, err
		}
		if err := s.cut(ctx, src, iv, out); err != nil {
			return DownloadResult{}, err
		}
	}
	size, ok := fileSize(out)
	if !ok {
		return DownloadResult{}, apperr.Collaborator("cut clip", fmt.Errorf("no file at %s", out))
	}

	clip := types.DownloadedClip{
		Path:      out,
		Start:     iv.Start,
		End:       iv.End,
		Duration:  iv.Duration,
		Title:     h.Title,
		Index:     index,
		SizeBytes: size,
	}
	if s.opt.SubtitleSidecar && rec.Transcript != nil {
		clip.Subtitles = s.writeSubtitles(id, out, rec.Transcript.Segments, iv.Start, iv.End)
	}
	if s.d.Publisher != nil {
		key := id + "/" + filepath.Base(out)
		if u, err := s.d.Publisher.Publish(ctx, out, key); err != nil {
			s.log.Warn("publish short failed", zap.String("video_id", id), zap.String("key", key), zap.Error(err))
		} else {
			clip.PublicURL = u
		}
	}

	if _, err := s.d.Store.Update(ctx, id, func(r *types.VideoRecord) error {
		for i := range r.Downloaded {
			if r.Downloaded[i].Path == out {
				r.Downloaded[i] = clip
				return nil
			}
		}
		r.Downloaded = append(r.Downloaded, clip)
		return nil
	}); err != nil {
		return DownloadResult{}, err
	}
	s.log.Info("short ready",
		zap.String("video_id", id),
		zap.Int("index", index),
		zap.String("path", out),
		zap.Float64("duration", iv.Duration),
		zap.Bool("cache", cache),
	)
	return DownloadResult{VideoID: id, Path: out, Clip: clip, Cache: cache}, nil
}

// cut writes the clip next to out and renames it into place only once the
// transcoder succeeded, so an interrupted cut never looks like a cached short.
func (s *Service) cut(ctx context.Context, src string, iv highlights.Interval, out string) error {
	part := partPath(out)
	cctx, cancel := withTimeout(ctx, s.opt.TranscodeTimeout)
	defer cancel()
	if err := s.d.Video.CutClip(cctx, src, iv.Start, iv.Duration, part); err != nil {
		_ = os.Remove(part)
		return collaboratorErr(cctx, "cut clip", err)
	}
	if _, ok := fileSize(part); !ok {
		return apperr.Collaborator("cut clip", fmt.Errorf("no file at %s", part))
	}
	if err := os.Rename(part, out); err != nil {
		_ = os.Remove(part)
		return fmt.Errorf("cut clip: %w", err)
	}
	return nil
}

// partPath keeps the extension so the transcoder still picks the container.
func partPath(out string) string {
	ext := filepath.Ext(out)
	return strings.TrimSuffix(out, ext) + ".part" + ext
}

// useSource marks the source video of id as in use until release is called.
func (s *Service) useSource(id string) (release func()) {
	s.sourcesMu.Lock()
	s.sources[id]++
	s.sourcesMu.Unlock()
	return func() {
		s.sourcesMu.Lock()
		defer s.sourcesMu.Unlock()
		s.sources[id]--
		if s.sources[id] <= 0 {
			delete(s.sources, id)
		}
	}
}

// sourceVideo returns the local full video, downloading it once per id.
// A reused file gets a fresh mtime so the sweeper measures age from its
// last use.
func (s *Service) sourceVideo(ctx context.Context, rec *types.VideoRecord) (string, error) {
	src := s.sourceVideoPath(rec.VideoID)
	if _, ok := fileSize(src); ok {
		now := s.now()
		if err := os.Chtimes(src, now, now); err != nil {
			s.log.Warn("touch source video", zap.String("path", src), zap.Error(err))
		}
		return src, nil
	}
	if rec.URL == "" {
		return "", apperr.InvalidInput("download video", "no url known for video %q", rec.VideoID)
	}
	if err := os.MkdirAll(filepath.Dir(src), 0o755); err != nil {
		return "", err
	}
	dctx, cancel := withTimeout(ctx, s.opt.DownloadTimeout)
	defer cancel()
	if err := s.d.Media.DownloadVideo(dctx, rec.URL, src); err != nil {
		return "", collaboratorErr(dctx, "download video", err)
	}
	return src, nil
}

func (s *Service) writeSubtitles(id, clipPath string, segs []types.Segment, start, end float64) string {
	p := strings.TrimSuffix(clipPath, filepath.Ext(clipPath)) + ".ass"
	if err := os.WriteFile(p, []byte(subtitles.RenderClipASS(segs, start, end)), 0o644); err != nil {
		s.log.Warn("write subtitles failed", zap.String("video_id", id), zap.Error(err))
		return ""
	}
	return p
}

// ListDownloaded returns the registered shorts whose files still exist.
func (s *Service) ListDownloaded(ctx context.Context, videoID string) ([]types.DownloadedClip, error) {
	id, err := resolveID(videoID, "")
	if err != nil {
		return nil, err
	}
	rec, err := s.d.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	out := []types.DownloadedClip{}
	for _, c := range rec.Downloaded {
		if _, ok := fileSize(c.Path); ok {
			out = append(out, c)
		}
	}
	return out, nil
}
