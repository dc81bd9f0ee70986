package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/randalmurphal/convlog/pkg/convlog"
	"github.com/randalmurphal/convlog/pkg/convlog/bus"
	"github.com/randalmurphal/convlog/pkg/convlog/config"
	"github.com/randalmurphal/convlog/pkg/convlog/dispatch"
	"github.com/randalmurphal/convlog/pkg/convlog/listener"
	"github.com/randalmurphal/convlog/pkg/convlog/logstore"
	"github.com/randalmurphal/convlog/pkg/convlog/observability"
)

// daemon holds everything run wires together.
type daemon struct {
	logger *slog.Logger
	store  logstore.Store
	unit   *listener.Unit
	bus    *bus.LocalBus
	queue  *dispatch.ContextQueue
	cron   *cron.Cron
}

func run(ctx context.Context, opts options) error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}

	path := opts.configPath
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) && path == "convlog.yaml" {
		// The default file is optional; an explicit -config must exist.
		path = ""
	}
	settings, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	level, _ := settings.Level()
	logger := newLogger(level, settings.LogFormat)

	d, err := newDaemon(ctx, settings, logger)
	if err != nil {
		return err
	}
	defer d.close()

	if opts.requestSchedule != "" {
		if _, err := d.cron.AddFunc(opts.requestSchedule, func() { d.queue.RequestContext() }); err != nil {
			return fmt.Errorf("request schedule %q: %w", opts.requestSchedule, err)
		}
	}

	d.cron.Start()
	logger.Info("convlogd started",
		slog.String("backend", settings.Store.Backend),
		slog.Int("listeners", d.unit.Len()),
		slog.Int("cron_jobs", len(d.cron.Entries())),
	)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		d.pump(ctx)
	}()

	<-ctx.Done()
	logger.Info("convlogd shutting down")
	wg.Wait()
	return nil
}

// newDaemon opens the store and builds the listener unit, bus, queue and
// scheduler from settings. The cron scheduler is returned stopped.
func newDaemon(ctx context.Context, settings config.Settings, logger *slog.Logger) (*daemon, error) {
	store, err := openStore(ctx, settings.Store)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", settings.Store.Backend, err)
	}

	unit, err := listener.NewUnit(settings.Listeners, listener.DefaultFactories(), listener.Deps{
		Store:      store,
		Logger:     logger,
		Metrics:    observability.NewMetricsRecorder(),
		Spans:      observability.NewSpanManager(),
		PendingTTL: settings.Pending.TTL,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	b := bus.NewBus(bus.Config{
		BufferSize:  settings.Bus.BufferSize,
		NonBlocking: settings.Bus.NonBlocking,
		Logger:      logger,
		OnDrop: func(n convlog.Notification, subscriberID string) {
			logger.Warn("notification dropped",
				slog.String("subscription", subscriberID),
				slog.String("channel", n.Channel.String()),
				slog.Int("utterances", len(n.Utterances)),
			)
		},
	})
	unit.Subscribe(b)

	d := &daemon{
		logger: logger,
		store:  store,
		unit:   unit,
		bus:    b,
		queue: dispatch.NewContextQueue(
			dispatch.WithTimeout(settings.Dispatch.Timeout),
			dispatch.WithLogger(logger),
			dispatch.WithMetrics(observability.NewMetricsRecorder()),
		),
		cron: cron.New(cron.WithLocation(time.UTC)),
	}

	if settings.Pending.TTL > 0 {
		if _, err := d.cron.AddFunc(settings.Pending.SweepSchedule, d.sweep); err != nil {
			d.close()
			return nil, fmt.Errorf("pending.sweep_schedule %q: %w", settings.Pending.SweepSchedule, err)
		}
	}
	return d, nil
}

// sweep evicts expired pending responses from every scoring listener.
func (d *daemon) sweep() {
	now := time.Now()
	for _, s := range d.unit.Sweepers() {
		s.Sweep(now)
	}
}

// pump feeds taken context records to the bus as INPUT notifications
// until ctx is done.
func (d *daemon) pump(ctx context.Context) {
	for ctx.Err() == nil {
		rec, ok := d.queue.TakeInput(ctx)
		if !ok {
			continue
		}
		n := convlog.Notification{
			Channel: convlog.ChannelInput,
			Utterances: []convlog.Utterance{{
				ConversationID: rec.ID,
				ContextID:      rec.ID,
				Data:           convlog.Text(rec.Data),
			}},
		}
		if err := d.bus.Publish(ctx, n); err != nil && ctx.Err() == nil {
			d.logger.Error("publish context", slog.String("context_id", rec.ID), slog.String("error", err.Error()))
		}
	}
}

func (d *daemon) close() {
	<-d.cron.Stop().Done()
	if err := d.bus.Close(); err != nil && !errors.Is(err, bus.ErrClosed) {
		d.logger.Warn("close bus", slog.String("error", err.Error()))
	}
	if err := d.store.Close(); err != nil {
		d.logger.Warn("close store", slog.String("error", err.Error()))
	}
}

func openStore(ctx context.Context, s config.StoreSettings) (logstore.Store, error) {
	switch s.Backend {
	case config.BackendFile:
		var opts []logstore.FileOption
		if s.Fsync {
			opts = append(opts, logstore.WithFsync())
		}
		return logstore.NewFileStore(s.Dir, opts...)
	case config.BackendSQLite:
		return logstore.NewSQLiteStore(s.SQLitePath)
	case config.BackendRedis:
		return logstore.DialRedis(ctx, s.RedisAddr, s.RedisPassword, s.RedisDB, s.RedisPrefix)
	case config.BackendMongo:
		return logstore.DialMongo(ctx, s.MongoURI, s.MongoDatabase, s.MongoCollection)
	case config.BackendMemory:
		return logstore.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", s.Backend)
	}
}
