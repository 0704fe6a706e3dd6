package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/forPelevin/shortsmith/internal/apperr"
	"github.com/forPelevin/shortsmith/internal/domain/videoid"
	"github.com/forPelevin/shortsmith/internal/types"
)

type MetadataResult struct {
	VideoID string          `json:"video_id"`
	Info    types.VideoInfo `json:"info_video"`
	Cache   bool            `json:"cache"`
}

// FetchMetadata stores the video's metadata under the id derived from url.
func (s *Service) FetchMetadata(ctx context.Context, url string) (MetadataResult, error) {
	url = strings.TrimSpace(url)
	id, err := videoid.FromURL(url)
	if err != nil {
		return MetadataResult{}, err
	}
	rec, err := s.lookup(ctx, id)
	if err != nil {
		return MetadataResult{}, err
	}
	if rec != nil && rec.Info != nil {
		s.log.Info("metadata ready", zap.String("video_id", id), zap.Bool("cache", true))
		return MetadataResult{VideoID: id, Info: *rec.Info, Cache: true}, nil
	}

	fctx, cancel := withTimeout(ctx, s.opt.DownloadTimeout)
	defer cancel()
	info, err := s.d.Metadata.FetchInfo(fctx, url)
	if err != nil {
		return MetadataResult{}, collaboratorErr(fctx, "fetch metadata", err)
	}
	info.VideoID = id

	if _, err := s.d.Store.Update(ctx, id, func(r *types.VideoRecord) error {
		if r.URL == "" {
			r.URL = url
		}
		r.Info = &info
		return nil
	}); err != nil {
		return MetadataResult{}, err
	}
	s.log.Info("metadata ready", zap.String("video_id", id), zap.String("title", info.Title), zap.Bool("cache", false))
	return MetadataResult{VideoID: id, Info: info}, nil
}

type AudioRequest struct {
	VideoID string `json:"video_id"`
	URL     string `json:"url"`
}

type AudioResult struct {
	VideoID   string `json:"video_id"`
	Path      string `json:"caminho_arquivo"`
	SizeBytes int64  `json:"tamanho_bytes"`
	Cache     bool   `json:"cache"`
}

// ExtractAudio downloads the audio track to uploads/audio/{id}.mp3.
func (s *Service) ExtractAudio(ctx context.Context, req AudioRequest) (AudioResult, error) {
	id, err := resolveID(req.VideoID, req.URL)
	if err != nil {
		return AudioResult{}, err
	}
	rec, err := s.lookup(ctx, id)
	if err != nil {
		return AudioResult{}, err
	}
	if rec != nil && rec.Audio != nil && rec.Audio.Path != "" {
		if _, ok := fileSize(rec.Audio.Path); ok {
			s.log.Info("audio ready", zap.String("video_id", id), zap.Bool("cache", true))
			return AudioResult{VideoID: id, Path: rec.Audio.Path, SizeBytes: rec.Audio.SizeBytes, Cache: true}, nil
		}
		s.log.Warn("stored audio file is missing, downloading again",
			zap.String("video_id", id), zap.String("path", rec.Audio.Path))
	}

	url := req.URL
	if url == "" && rec != nil {
		url = rec.URL
	}
	if url == "" {
		return AudioResult{}, apperr.InvalidInput("extract audio", "no url known for video %q", id)
	}

	out := s.audioPath(id)
	cache := true
	size, ok := fileSize(out)
	if !ok {
		cache = false
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return AudioResult{}, err
		}
		dctx, cancel := withTimeout(ctx, s.opt.DownloadTimeout)
		defer cancel()
		if err := s.d.Media.DownloadAudio(dctx, url, out); err != nil {
			return AudioResult{}, collaboratorErr(dctx, "download audio", err)
		}
		if size, ok = fileSize(out); !ok {
			return AudioResult{}, apperr.Collaborator("download audio", fmt.Errorf("no file at %s", out))
		}
	}

	if _, err := s.d.Store.Update(ctx, id, func(r *types.VideoRecord) error {
		if r.URL == "" {
			r.URL = url
		}
		r.Audio = &types.AudioStage{Path: out, SizeBytes: size}
		return nil
	}); err != nil {
		return AudioResult{}, err
	}
	s.log.Info("audio ready", zap.String("video_id", id), zap.Int64("bytes", size), zap.Bool("cache", cache))
	return AudioResult{VideoID: id, Path: out, SizeBytes: size, Cache: cache}, nil
}

type TranscribeRequest struct {
	AudioPath string `json:"audio_path"`
	VideoID   string `json:"video_id"`
	URL       string `json:"url"`
}

type TranscribeResult struct {
	VideoID    string           `json:"video_id"`
	Transcript types.Transcript `json:"transcricao"`
	Cache      bool             `json:"cache"`
}

// Transcribe runs speech-to-text over the video's audio. Without an id or
// url the id is taken from the audio file name.
func (s *Service) Transcribe(ctx context.Context, req TranscribeRequest) (TranscribeResult, error) {
	vid := req.VideoID
	if vid == "" && req.URL == "" && req.AudioPath != "" {
		vid = strings.TrimSuffix(filepath.Base(req.AudioPath), filepath.Ext(req.AudioPath))
	}
	id, err := resolveID(vid, req.URL)
	if err != nil {
		return TranscribeResult{}, err
	}
	rec, err := s.lookup(ctx, id)
	if err != nil {
		return TranscribeResult{}, err
	}
	if rec != nil && rec.Transcript != nil && len(rec.Transcript.Segments) > 0 {
		s.log.Info("transcript ready", zap.String("video_id", id), zap.Bool("cache", true))
		return TranscribeResult{VideoID: id, Transcript: *rec.Transcript, Cache: true}, nil
	}

	audio := req.AudioPath
	if audio == "" && rec != nil && rec.Audio != nil {
		audio = rec.Audio.Path
	}
	if audio == "" {
		return TranscribeResult{}, apperr.InvalidInput("transcribe", "no audio for video %q, extract audio first", id)
	}
	size, ok := fileSize(audio)
	if !ok {
		return TranscribeResult{}, apperr.NotFound("transcribe", "audio file %s not found", audio)
	}

	tctx, cancel := withTimeout(ctx, s.opt.TranscribeTimeout)
	defer cancel()
	tr, err := s.d.ASR.Transcribe(tctx, audio)
	if err != nil {
		return TranscribeResult{}, collaboratorErr(tctx, "transcribe", err)
	}
	if len(tr.Segments) == 0 {
		return TranscribeResult{}, apperr.Collaborator("transcribe", errors.New("speech-to-text returned no segments"))
	}
	s.completeTranscript(ctx, id, audio, &tr)

	if _, err := s.d.Store.Update(ctx, id, func(r *types.VideoRecord) error {
		if r.URL == "" {
			r.URL = req.URL
		}
		if r.Audio == nil || r.Audio.Path == "" {
			r.Audio = &types.AudioStage{Path: audio, SizeBytes: size}
		}
		r.Transcript = &tr
		return nil
	}); err != nil {
		return TranscribeResult{}, err
	}
	s.log.Info("transcript ready",
		zap.String("video_id", id),
		zap.Int("segments", len(tr.Segments)),
		zap.String("language", tr.Language),
		zap.Float64("duration", tr.Duration),
		zap.Bool("cache", false),
	)
	return TranscribeResult{VideoID: id, Transcript: tr}, nil
}

// completeTranscript fills text, duration and language when the engine
// left them out.
func (s *Service) completeTranscript(ctx context.Context, id, audio string, tr *types.Transcript) {
	if strings.TrimSpace(tr.Text) == "" {
		parts := make([]string, 0, len(tr.Segments))
		for _, seg := range tr.Segments {
			if t := strings.TrimSpace(seg.Text); t != "" {
				parts = append(parts, t)
			}
		}
		tr.Text = strings.Join(parts, " ")
	}

	if tr.Duration <= 0 {
		pctx, cancel := withTimeout(ctx, s.opt.TranscodeTimeout)
		d, err := s.d.Video.ProbeDuration(pctx, audio)
		cancel()
		if err == nil && d > 0 {
			tr.Duration = d.Seconds()
		} else {
			tr.Duration = tr.Segments[len(tr.Segments)-1].End
			s.log.Warn("probe audio duration failed, using last segment end",
				zap.String("video_id", id), zap.Error(err))
		}
	}

	if s.d.Lang != nil {
		lang := s.d.Lang.Normalize(tr.Language)
		if lang == "" {
			lang = s.d.Lang.Detect(tr.Text)
		}
		tr.Language = lang
	}
}
