package observer

import (
	"context"
	"sync/atomic"
	"time"

	"losbot/internal/lineage"
	"losbot/internal/storage"
	logx "losbot/pkg/logx"
)

// Source provides the device roster and per-device builds.
type Source interface {
	ListTargets(ctx context.Context) ([]lineage.BuildTarget, error)
	Builds(ctx context.Context, device string) ([]lineage.Build, error)
}

// Poster delivers one build announcement. It must tolerate being called twice
// for the same build: a post that succeeded but whose confirmation was lost is
// retried next cycle.
type Poster interface {
	Post(ctx context.Context, device string, b lineage.Build) error
}

type Config struct {
	// Interval between polling cycles.
	Interval time.Duration

	// CallTimeout bounds each roster fetch, build fetch and post so one
	// unresponsive upstream cannot stall a cycle indefinitely.
	CallTimeout time.Duration

	// Enabled sets the initial gate state.
	Enabled bool
}

type Status struct {
	Enabled bool
	Devices map[string]time.Time
}

type Observer struct {
	src    Source
	poster Poster
	store  storage.Store // optional, nil when history is disabled
	log    logx.Logger

	gate   *Gate
	ledger *Ledger

	interval    atomic.Int64 // nanoseconds, hot-reloadable
	callTimeout atomic.Int64

	now func() time.Time
}

func New(cfg Config, src Source, poster Poster, store storage.Store, log logx.Logger) *Observer {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Minute
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 30 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	o := &Observer{
		src:    src,
		poster: poster,
		store:  store,
		log:    log,
		gate:   NewGate(cfg.Enabled),
		ledger: NewLedger(),
		now:    time.Now,
	}
	o.interval.Store(int64(cfg.Interval))
	o.callTimeout.Store(int64(cfg.CallTimeout))
	return o
}

func (o *Observer) Enable()       { o.gate.Enable() }
func (o *Observer) Disable()      { o.gate.Disable() }
func (o *Observer) Enabled() bool { return o.gate.Enabled() }

func (o *Observer) Interval() time.Duration { return time.Duration(o.interval.Load()) }

// SetInterval applies a new polling interval. Takes effect at the next
// inter-cycle sleep.
func (o *Observer) SetInterval(d time.Duration) {
	if d > 0 {
		o.interval.Store(int64(d))
	}
}

// Seed initializes the ledger for every device currently on the roster to
// "now", so builds published before the observer existed are never announced.
func (o *Observer) Seed(ctx context.Context) error {
	targets, err := o.listTargets(ctx)
	if err != nil {
		return err
	}
	o.ledger.SetAll(deviceNames(targets), o.now())
	o.log.Info("ledger seeded", logx.Int("devices", o.ledger.Len()))
	return nil
}

// Run drives the polling loop until ctx is cancelled. Upstream and delivery
// failures never terminate the loop.
func (o *Observer) Run(ctx context.Context) error {
	for {
		if err := o.gate.Wait(ctx); err != nil {
			return err
		}
		o.cycle(ctx)
		if err := sleepCtx(ctx, o.Interval()); err != nil {
			return err
		}
	}
}

func (o *Observer) cycle(ctx context.Context) {
	targets, err := o.listTargets(ctx)
	if err != nil {
		o.log.Error("can't get build targets", logx.Err(err))
		return
	}
	for _, t := range targets {
		if ctx.Err() != nil {
			return
		}
		o.checkDevice(ctx, t.Device)
	}
}

// checkDevice announces the newest build for one device if the ledger hasn't
// seen it. A failure here only skips this device.
func (o *Observer) checkDevice(ctx context.Context, device string) {
	builds, err := o.builds(ctx, device)
	if err != nil {
		o.log.Info("no updates", logx.String("device", device), logx.Err(err))
		return
	}
	if len(builds) == 0 {
		o.log.Info("no updates", logx.String("device", device))
		return
	}

	latest := Latest(builds)
	if last, ok := o.ledger.Last(device); ok && !latest.Datetime.After(last) {
		return
	}

	pctx, cancel := context.WithTimeout(ctx, o.timeout())
	err = o.poster.Post(pctx, device, latest)
	cancel()
	if err != nil {
		o.log.Error("failed to post build",
			logx.String("device", device),
			logx.Time("build", latest.Datetime),
			logx.Err(err))
		// Ledger unchanged: the same build is retried next cycle.
		return
	}

	o.ledger.Record(device, latest.Datetime)
	o.recordHistory(ctx, device, latest)
	o.log.Info("build announced",
		logx.String("device", device),
		logx.Time("build", latest.Datetime),
		logx.String("version", latest.Version))
}

// Latest picks the build with the maximum timestamp; on ties the first seen
// wins.
func Latest(builds []lineage.Build) lineage.Build {
	latest := builds[0]
	for _, b := range builds[1:] {
		if b.Datetime.After(latest.Datetime) {
			latest = b
		}
	}
	return latest
}

// Status snapshots the gate state and the per-device ledger. Safe to call
// while a cycle is in flight.
func (o *Observer) Status() Status {
	return Status{
		Enabled: o.gate.Enabled(),
		Devices: o.ledger.Snapshot(),
	}
}

// SetStartDate rewinds (or fast-forwards) every currently-known device to ts.
// The roster is re-enumerated at call time, not taken from a cached cycle.
func (o *Observer) SetStartDate(ctx context.Context, ts time.Time) error {
	targets, err := o.listTargets(ctx)
	if err != nil {
		return err
	}
	o.ledger.SetAll(deviceNames(targets), ts)
	o.log.Info("start date set", logx.Time("start", ts), logx.Int("devices", len(targets)))
	return nil
}

func (o *Observer) recordHistory(ctx context.Context, device string, b lineage.Build) {
	if o.store == nil {
		return
	}
	a := storage.Announcement{
		At:      o.now(),
		Device:  device,
		BuildTS: b.Datetime,
		Version: b.Version,
	}
	if ota, ok := b.OTA(); ok {
		a.Filename = ota.Filename
		a.Size = ota.Size
	}
	if err := o.store.AppendAnnouncement(ctx, a); err != nil {
		o.log.Warn("history append failed", logx.String("device", device), logx.Err(err))
	}
}

func (o *Observer) timeout() time.Duration { return time.Duration(o.callTimeout.Load()) }

func (o *Observer) listTargets(ctx context.Context) ([]lineage.BuildTarget, error) {
	cctx, cancel := context.WithTimeout(ctx, o.timeout())
	defer cancel()
	return o.src.ListTargets(cctx)
}

func (o *Observer) builds(ctx context.Context, device string) ([]lineage.Build, error) {
	cctx, cancel := context.WithTimeout(ctx, o.timeout())
	defer cancel()
	return o.src.Builds(cctx, device)
}

func deviceNames(targets []lineage.BuildTarget) []string {
	names := make([]string, 0, len(targets))
	for _, t := range targets {
		names = append(names, t.Device)
	}
	return names
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
