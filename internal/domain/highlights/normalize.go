package highlights

import (
	"fmt"
	"math"

	"github.com/forPelevin/shortsmith/internal/apperr"
)

const (
	DefaultMinSeconds = 40
	DefaultMaxSeconds = 180
	DefaultPadSeconds = 1.5
)

// Policy is the clip duration policy in seconds.
type Policy struct {
	Min float64
	Max float64
	Pad float64
}

func DefaultPolicy() Policy {
	return Policy{Min: DefaultMinSeconds, Max: DefaultMaxSeconds, Pad: DefaultPadSeconds}
}

// WithoutPad is used for manual edits and download re-checks.
func (p Policy) WithoutPad() Policy {
	p.Pad = 0
	return p
}

type Interval struct {
	Start    float64
	End      float64
	Duration float64
}

const epsilon = 1e-6

// Normalize pads, expands, truncates and shifts [start, end] until
// Min <= duration <= Max and 0 <= start < end <= videoDuration.
// A videoDuration <= 0 means the duration is unknown.
func (p Policy) Normalize(start, end, videoDuration float64) (Interval, error) {
	if p.Min <= 0 || p.Max < p.Min || p.Pad < 0 {
		return Interval{}, apperr.Config("normalize", "invalid policy min=%v max=%v pad=%v", p.Min, p.Max, p.Pad)
	}
	if math.IsNaN(start) || math.IsNaN(end) || math.IsInf(start, 0) || math.IsInf(end, 0) {
		return Interval{}, apperr.InvalidInput("normalize", "interval must be finite")
	}
	if end <= start {
		return Interval{}, apperr.InvalidInput("normalize", "end %v must be after start %v", end, start)
	}
	known := videoDuration > 0
	if known && videoDuration < p.Min {
		return Interval{}, fmt.Errorf("normalize: video %.2fs, minimum %.2fs: %w", videoDuration, p.Min, apperr.ErrVideoTooShort)
	}
	if known && start >= videoDuration {
		return Interval{}, apperr.InvalidInput("normalize", "start %v is past the end of the video (%v)", start, videoDuration)
	}

	start = math.Max(0, start-p.Pad)
	end += p.Pad
	if known {
		end = math.Min(end, videoDuration)
	}

	if end-start < p.Min {
		end = start + p.Min
	}
	if end-start > p.Max {
		end = start + p.Max
	}

	if known && end > videoDuration {
		dur := end - start
		end = videoDuration
		start = math.Max(0, end-dur)
		if end-start < p.Min {
			start = end - p.Min
		}
	}

	iv := Interval{Start: start, End: end, Duration: end - start}
	if err := p.check(iv, videoDuration); err != nil {
		return Interval{}, err
	}
	return iv, nil
}

func (p Policy) check(iv Interval, videoDuration float64) error {
	switch {
	case iv.Start < 0 || iv.Start >= iv.End:
		return apperr.Config("normalize", "invalid interval [%v, %v]", iv.Start, iv.End)
	case iv.Duration < p.Min-epsilon || iv.Duration > p.Max+epsilon:
		return apperr.Config("normalize", "duration %v outside [%v, %v]", iv.Duration, p.Min, p.Max)
	case videoDuration > 0 && iv.End > videoDuration+epsilon:
		return apperr.Config("normalize", "end %v past video duration %v", iv.End, videoDuration)
	}
	return nil
}
