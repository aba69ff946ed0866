// Package digest posts a periodic observer status summary to an ops chat.
package digest

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"losbot/internal/observer"
	"losbot/internal/transport"
	logx "losbot/pkg/logx"
)

const defaultSchedule = "0 9 * * *"

type StatusFunc func() observer.Status

type Config struct {
	Schedule string
	Chat     transport.ChatTarget
}

type Service struct {
	cfg    Config
	ad     transport.Adapter
	status StatusFunc
	log    logx.Logger

	c   *cron.Cron
	now func() time.Time
}

func New(cfg Config, ad transport.Adapter, status StatusFunc, log logx.Logger) *Service {
	if cfg.Schedule == "" {
		cfg.Schedule = defaultSchedule
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{cfg: cfg, ad: ad, status: status, log: log, now: time.Now}
}

func (s *Service) Start() error {
	c := cron.New()
	if _, err := c.AddFunc(s.cfg.Schedule, s.run); err != nil {
		return fmt.Errorf("digest schedule %q: %w", s.cfg.Schedule, err)
	}
	s.c = c
	c.Start()
	s.log.Info("digest scheduled", logx.String("spec", s.cfg.Schedule))
	return nil
}

func (s *Service) Stop(ctx context.Context) error {
	if s.c == nil {
		return nil
	}
	stopped := s.c.Stop()
	select {
	case <-stopped.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	text := Render(s.status(), s.now())
	if _, err := s.ad.SendText(ctx, s.cfg.Chat, text, nil); err != nil {
		s.log.Warn("digest send failed", logx.Err(err))
	}
}

// Render summarizes observer status: gate state, tracked device count and
// how many devices were announced within the last day.
func Render(st observer.Status, now time.Time) string {
	recent := 0
	cutoff := now.Add(-24 * time.Hour)
	for _, ts := range st.Devices {
		if ts.After(cutoff) {
			recent++
		}
	}
	return fmt.Sprintf(
		"Updates observer digest\nEnabled: %t\nDevices tracked: %d\nAnnounced in the last 24h: %d",
		st.Enabled, len(st.Devices), recent)
}
