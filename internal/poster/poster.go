// Package poster renders and delivers build announcements.
package poster

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"losbot/internal/lineage"
	"losbot/internal/transport"
	logx "losbot/pkg/logx"
)

// DeviceResolver resolves announcement metadata for a codename.
type DeviceResolver interface {
	Device(ctx context.Context, codename string) (lineage.DeviceInfo, error)
}

type Config struct {
	// Channel is the default announcement destination.
	Channel transport.ChatTarget

	// RatePerSec caps outgoing posts (Telegram flood protection). Default 1.
	RatePerSec int
}

type Service struct {
	cfg     Config
	ad      transport.Adapter
	devices DeviceResolver
	limiter *rate.Limiter
	log     logx.Logger
}

func New(cfg Config, ad transport.Adapter, devices DeviceResolver, log logx.Logger) *Service {
	rps := cfg.RatePerSec
	if rps < 1 {
		rps = 1
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:     cfg,
		ad:      ad,
		devices: devices,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		log:     log,
	}
}

// Post announces a build to the configured channel.
func (s *Service) Post(ctx context.Context, device string, b lineage.Build) error {
	return s.PostTo(ctx, s.cfg.Channel, device, b)
}

// PostTo announces a build to an explicit chat (admin test posts).
func (s *Service) PostTo(ctx context.Context, to transport.ChatTarget, device string, b lineage.Build) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	info, err := s.devices.Device(ctx, device)
	if err != nil {
		return fmt.Errorf("resolve device %s: %w", device, err)
	}

	// The channel tag is decoration; a lookup failure doesn't block the post.
	username, err := s.ad.ChatUsername(ctx, to.ChatID)
	if err != nil {
		s.log.Debug("chat username lookup failed", logx.Int64("chat_id", to.ChatID), logx.Err(err))
		username = ""
	}

	text := RenderAnnouncement(info, b, username)
	if _, err := s.ad.SendText(ctx, to, text, &transport.SendOptions{ParseMode: transport.ParseModeMarkdownV2}); err != nil {
		return fmt.Errorf("post %s build: %w", device, err)
	}
	return nil
}
