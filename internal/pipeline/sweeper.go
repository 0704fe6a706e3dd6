package pipeline

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper is the part of the service the cleanup schedule drives.
type Sweeper interface {
	SweepSourceVideos(ttl time.Duration) (int, error)
}

// StartSweeper runs s on the standard five-field cron spec (descriptors
// such as @hourly allowed). A zero ttl disables the sweeper. Stop the
// returned cron to end it.
func StartSweeper(spec string, ttl time.Duration, s Sweeper, log *zap.Logger) (*cron.Cron, error) {
	if ttl <= 0 || spec == "" {
		return nil, nil
	}
	c := cron.New(cron.WithParser(cron.NewParser(
		cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
	)))
	if _, err := c.AddFunc(spec, func() {
		if _, err := s.SweepSourceVideos(ttl); err != nil {
			log.Warn("sweep source videos", zap.Error(err))
		}
	}); err != nil {
		return nil, fmt.Errorf("invalid CLEANUP_CRON %q: %w", spec, err)
	}
	c.Start()
	log.Info("source video sweeper scheduled", zap.String("cron", spec), zap.Duration("ttl", ttl))
	return c, nil
}
