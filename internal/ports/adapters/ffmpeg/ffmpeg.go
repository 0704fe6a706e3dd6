package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

type Adapter struct {
	ffmpeg  string
	ffprobe string
}

func New(ffmpegPath, ffprobePath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

// ExtractAudioMono16k converts any audio or video input to the 16 kHz mono
// WAV whisper.cpp expects.
func (a *Adapter) ExtractAudioMono16k(ctx context.Context, in, outWav string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-i", in,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-f", "wav",
		outWav,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg extract audio: %w\n%s", err, string(b))
	}
	return nil
}

// CutClip copies [start, start+duration) of src into out without
// re-encoding, and retries once with a re-encode when the copy fails.
// out is removed whenever an error is returned.
func (a *Adapter) CutClip(ctx context.Context, src string, start, duration float64, out string) error {
	copyErr := a.run(ctx, cutArgs(src, start, duration, out, "-c", "copy", "-avoid_negative_ts", "make_zero"))
	if copyErr == nil {
		return nil
	}
	_ = os.Remove(out)
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("ffmpeg cut clip: %w", copyErr)
	}
	err := a.run(ctx, cutArgs(src, start, duration, out,
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "20",
		"-c:a", "aac",
		"-b:a", "192k",
		"-movflags", "+faststart",
	))
	if err != nil {
		_ = os.Remove(out)
		return fmt.Errorf("ffmpeg cut clip (copy failed: %v): %w", firstLine(copyErr.Error()), err)
	}
	return nil
}

func cutArgs(src string, start, duration float64, out string, codec ...string) []string {
	args := []string{
		"-y",
		"-ss", fmtSeconds(secs(start)),
		"-i", src,
		"-t", fmtSeconds(secs(duration)),
	}
	args = append(args, codec...)
	return append(args, out)
}

func (a *Adapter) run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w\n%s", err, string(b))
	}
	return nil
}

func (a *Adapter) ProbeDuration(ctx context.Context, in string) (time.Duration, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		in,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w\n%s", err, string(b))
	}
	s := strings.TrimSpace(string(b))
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return secs(sec), nil
}

func secs(s float64) time.Duration { return time.Duration(s * float64(time.Second)) }

func fmtSeconds(d time.Duration) string {
	sec := float64(d) / float64(time.Second)
	return strconv.FormatFloat(sec, 'f', 3, 64)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
