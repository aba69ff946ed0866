// Package app wires configuration, transport, the lineage client, the update
// observer and the command surface into one runnable bot.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"losbot/internal/config"
	"losbot/internal/digest"
	"losbot/internal/lineage"
	"losbot/internal/observer"
	"losbot/internal/poster"
	"losbot/internal/storage"
	"losbot/internal/transport"
	telegram "losbot/internal/transport/telegram"
	"losbot/internal/transport/telegram/router"
	logx "losbot/pkg/logx"
)

type App struct {
	cfgm   *config.Manager
	logSvc *logx.Service
	log    logx.Logger

	ad     *telegram.Adapter
	client *lineage.Client
	store  storage.Store
	post   *poster.Service
	obs    *observer.Observer
	dig    *digest.Service
	router *router.Router

	updates chan transport.Update

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	pollTimeout, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}

	bootLog := logx.NewConsole(cfg.Logging.Level).With(logx.String("comp", "telegram"))
	ad, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
	}, bootLog)
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLogConfig(cfg), ad)
	log = log.With(logx.String("comp", "app"))

	if groupLog, _ := config.ParseChatID("telegram.group_log", cfg.Telegram.GroupLog); groupLog != 0 {
		logSvc.SetTelegramTarget(groupLog, cfg.Telegram.LogThreadID)
	}
	cfgm.SetLogger(logSvc.Logger().With(logx.String("comp", "config")))

	lineageTimeout, err := config.ParseDurationOrDefault("lineage.timeout", cfg.Lineage.Timeout, 30*time.Second)
	if err != nil {
		return nil, err
	}
	client := lineage.NewClient(lineage.Options{
		APIBase:    cfg.Lineage.APIBase,
		HudsonURL:  cfg.Lineage.HudsonURL,
		WikiBase:   cfg.Lineage.WikiBase,
		Timeout:    lineageTimeout,
		MaxVariant: cfg.Lineage.MaxVariant,
	}, logSvc.Logger().With(logx.String("comp", "lineage")))

	store, err := openStorage(cfg, logSvc.Logger())
	if err != nil {
		return nil, err
	}

	a := &App{
		cfgm:   cfgm,
		logSvc: logSvc,
		log:    log,
		ad:     ad,
		client: client,
		store:  store,
	}

	channel, _ := config.ParseChatID("telegram.channel", cfg.Telegram.Channel)
	a.post = poster.New(poster.Config{
		Channel:    transport.ChatTarget{ChatID: channel},
		RatePerSec: cfg.Observer.RatePerSec,
	}, ad, client, logSvc.Logger().With(logx.String("comp", "poster")))

	// The observer only runs when an announcement channel is configured;
	// query commands work either way.
	if channel != 0 {
		obsCfg, err := mapObserverConfig(cfg)
		if err != nil {
			return nil, err
		}
		a.obs = observer.New(obsCfg, client, a.post, store,
			logSvc.Logger().With(logx.String("comp", "observer")))
	}

	if cfg.Digest != nil && cfg.Digest.Enabled && a.obs != nil {
		chatRaw := cfg.Digest.Chat
		if chatRaw == "" {
			chatRaw = cfg.Telegram.GroupLog
		}
		digestChat, _ := config.ParseChatID("digest.chat", chatRaw)
		if digestChat != 0 {
			a.dig = digest.New(digest.Config{
				Schedule: cfg.Digest.Schedule,
				Chat:     transport.ChatTarget{ChatID: digestChat},
			}, ad, a.obs.Status, logSvc.Logger().With(logx.String("comp", "digest")))
		} else {
			log.Warn("digest enabled but no chat configured")
		}
	}

	a.router = router.New(ad, logSvc.Logger().With(logx.String("comp", "router")), cfg.Telegram.Admins)
	a.registerCommands()

	return a, nil
}

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    cfg.Logging.Telegram.Enabled,
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	}
}

func mapObserverConfig(cfg *config.Config) (observer.Config, error) {
	interval, err := config.ParseDurationOrDefault("observer.interval", cfg.Observer.Interval, 10*time.Minute)
	if err != nil {
		return observer.Config{}, err
	}
	callTimeout, err := config.ParseDurationOrDefault("observer.call_timeout", cfg.Observer.CallTimeout, 30*time.Second)
	if err != nil {
		return observer.Config{}, err
	}
	enabled := true
	if cfg.Observer.Enabled != nil {
		enabled = *cfg.Observer.Enabled
	}
	return observer.Config{
		Interval:    interval,
		CallTimeout: callTimeout,
		Enabled:     enabled,
	}, nil
}

func openStorage(cfg *config.Config, log logx.Logger) (storage.Store, error) {
	if cfg.Storage == nil {
		return nil, nil
	}
	busy, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	if err != nil {
		return nil, err
	}
	return storage.Open(storage.Config{
		Enabled:     cfg.Storage.Enabled,
		Path:        cfg.Storage.Path,
		BusyTimeout: busy,
	}, log.With(logx.String("comp", "storage")))
}

func (a *App) Start(ctx context.Context) error {
	rctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.updates = make(chan transport.Update, 128)
	if err := a.ad.Start(rctx, a.updates); err != nil {
		cancel()
		return err
	}

	if err := a.ad.UpdateMenuCommands(rctx, a.router.MenuCommands()); err != nil {
		a.log.Warn("command menu update failed", logx.Err(err))
	}

	// Dispatch loop: each update gets its own goroutine, handlers carry
	// their own timeouts and panic recovery.
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		for {
			select {
			case <-rctx.Done():
				return
			case up := <-a.updates:
				go a.router.Dispatch(rctx, up)
			}
		}
	}()

	if a.obs != nil {
		// Ledger seeding is part of construction: builds published before
		// this point must never be announced.
		if err := a.obs.Seed(rctx); err != nil {
			cancel()
			return fmt.Errorf("seed observer ledger: %w", err)
		}
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := a.obs.Run(rctx); err != nil && rctx.Err() == nil {
				a.log.Error("observer stopped", logx.Err(err))
			}
		}()
	}

	if a.dig != nil {
		if err := a.dig.Start(); err != nil {
			cancel()
			return err
		}
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.cfgm.Watch(rctx, a.applyConfig); err != nil && rctx.Err() == nil {
			a.log.Warn("config watch stopped", logx.Err(err))
		}
	}()

	a.log.Info("bot started", logx.Bool("observer", a.obs != nil))
	return nil
}

// applyConfig applies the hot-reloadable subset of a new config snapshot:
// log sinks/levels and the observer polling interval.
func (a *App) applyConfig(cfg *config.Config) {
	a.logSvc.Apply(mapLogConfig(cfg))
	if a.obs != nil {
		if interval, err := config.ParseDurationOrDefault("observer.interval", cfg.Observer.Interval, 10*time.Minute); err == nil {
			a.obs.SetInterval(interval)
		}
	}
	a.log.Info("config changes applied")
}

func (a *App) Stop(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}
	if a.dig != nil {
		_ = a.dig.Stop(ctx)
	}
	_ = a.ad.Stop(ctx)

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}

	if a.store != nil {
		_ = a.store.Close()
	}
	_ = a.logSvc.Close()
	return nil
}
