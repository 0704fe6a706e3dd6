package ytdlp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/forPelevin/shortsmith/internal/types"
)

type Adapter struct {
	bin string
}

func New(binPath string) *Adapter {
	if binPath == "" {
		binPath = "yt-dlp"
	}
	return &Adapter{bin: binPath}
}

type info struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Uploader    string  `json:"uploader"`
	Channel     string  `json:"channel"`
	Duration    float64 `json:"duration"`
	Thumbnail   string  `json:"thumbnail"`
	UploadDate  string  `json:"upload_date"`
	Description string  `json:"description"`
	ViewCount   int64   `json:"view_count"`
}

func (a *Adapter) FetchInfo(ctx context.Context, url string) (types.VideoInfo, error) {
	cmd := exec.CommandContext(ctx, a.bin,
		"--dump-single-json",
		"--no-playlist",
		"--no-warnings",
		"--skip-download",
		url,
	)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	b, err := cmd.Output()
	if err != nil {
		return types.VideoInfo{}, fmt.Errorf("yt-dlp info: %w\n%s", err, stderr.String())
	}
	var in info
	if err := json.Unmarshal(b, &in); err != nil {
		return types.VideoInfo{}, fmt.Errorf("yt-dlp info: decode: %w", err)
	}
	author := in.Uploader
	if author == "" {
		author = in.Channel
	}
	return types.VideoInfo{
		Title:       in.Title,
		Author:      author,
		Duration:    in.Duration,
		Thumbnail:   in.Thumbnail,
		UploadDate:  in.UploadDate,
		Description: in.Description,
		Views:       in.ViewCount,
		VideoID:     in.ID,
	}, nil
}

// DownloadAudio extracts the best audio track as mp3 into outPath.
func (a *Adapter) DownloadAudio(ctx context.Context, url, outPath string) error {
	if exists(outPath) {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}
	// yt-dlp picks the extension after post-processing
	tmpl := strings.TrimSuffix(outPath, filepath.Ext(outPath)) + ".%(ext)s"
	cmd := exec.CommandContext(ctx, a.bin,
		"-f", "bestaudio/best",
		"--extract-audio",
		"--audio-format", "mp3",
		"--audio-quality", "0",
		"--no-playlist",
		"--no-progress",
		"-o", tmpl,
		url,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("yt-dlp audio: %w\n%s", err, string(b))
	}
	if !exists(outPath) {
		return fmt.Errorf("yt-dlp audio: %s was not produced", outPath)
	}
	return nil
}

// DownloadVideo fetches the full source video as mp4 into outPath.
func (a *Adapter) DownloadVideo(ctx context.Context, url, outPath string) error {
	if exists(outPath) {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}
	tmp := strings.TrimSuffix(outPath, filepath.Ext(outPath)) + "_temp.mp4"
	cmd := exec.CommandContext(ctx, a.bin,
		"-f", "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best",
		"--merge-output-format", "mp4",
		"--no-playlist",
		"--no-progress",
		"-o", tmp,
		url,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("yt-dlp video: %w\n%s", err, string(b))
	}
	return os.Rename(tmp, outPath)
}

func exists(p string) bool {
	st, err := os.Stat(p)
	return err == nil && st.Size() > 0
}
