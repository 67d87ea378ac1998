// Package monitor runs the driver loop: it feeds events from the configured
// sources through the reducer and runs enrichment and publishing alongside.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lobbywatch/backend/internal/enrich"
	"github.com/lobbywatch/backend/internal/lobby"
	"github.com/lobbywatch/backend/internal/metrics"
	"github.com/lobbywatch/backend/internal/ws"
)

const DefaultPollInterval = time.Second

// Driver owns the event queue and the goroutines that act on the store.
// Only the reducer goroutine applies events; the poller and publisher take
// the store lock briefly on their own schedules.
type Driver struct {
	store        *lobby.Store
	reducer      *lobby.Reducer
	poller       *enrich.Poller
	publisher    *ws.Publisher
	watcher      *ProcessWatcher
	sources      []Source
	health       map[string]*sourceHealth
	pollInterval time.Duration
	queue        *eventQueue
	applied      atomic.Uint64
	logger       *slog.Logger
}

type Options struct {
	Store     *lobby.Store
	Reducer   *lobby.Reducer
	Poller    *enrich.Poller
	Publisher *ws.Publisher
	// Watcher is optional.
	Watcher *ProcessWatcher
	Sources []Source
	// PollInterval is how often sources are polled.
	PollInterval time.Duration
	Logger       *slog.Logger
}

func NewDriver(opts Options) *Driver {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	health := make(map[string]*sourceHealth, len(opts.Sources))
	for _, src := range opts.Sources {
		health[src.Name()] = &sourceHealth{}
	}
	return &Driver{
		store:        opts.Store,
		reducer:      opts.Reducer,
		poller:       opts.Poller,
		publisher:    opts.Publisher,
		watcher:      opts.Watcher,
		sources:      opts.Sources,
		health:       health,
		pollInterval: opts.PollInterval,
		queue:        newEventQueue(),
		logger:       opts.Logger.With(slog.String("component", "driver")),
	}
}

// Submit enqueues events in order. It never blocks.
func (d *Driver) Submit(events ...lobby.Event) {
	d.queue.push(events...)
	metrics.QueueDepth.Set(float64(d.queue.len()))
}

// Applied is the number of events the reducer has processed.
func (d *Driver) Applied() uint64 {
	return d.applied.Load()
}

// Run starts every component and blocks until ctx is cancelled.
func (d *Driver) Run(ctx context.Context) error {
	if d.watcher != nil && d.publisher != nil {
		d.publisher.SetGameRunning(d.watcher.Running)
	}

	names := make([]string, len(d.sources))
	for i, s := range d.sources {
		names[i] = s.Name()
	}
	d.logger.Info("driver started", slog.Any("sources", names))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return d.reduce(ctx) })
	if len(d.sources) > 0 {
		g.Go(func() error { return d.pollSources(ctx) })
	}
	if d.poller != nil {
		g.Go(func() error { return d.poller.Run(ctx) })
	}
	if d.publisher != nil {
		g.Go(func() error { return d.publisher.Run(ctx) })
	}
	if d.watcher != nil {
		g.Go(func() error { return d.watcher.Run(ctx) })
	}

	err := g.Wait()
	d.logger.Info("driver stopped")
	return err
}

func (d *Driver) reduce(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-d.queue.ready:
			d.ApplyPending()
		}
	}
}

// ApplyPending applies everything currently queued and returns the count.
// Each event is applied under its own short store lock.
func (d *Driver) ApplyPending() int {
	events := d.queue.drain()
	metrics.QueueDepth.Set(float64(d.queue.len()))
	for _, ev := range events {
		d.apply(ev)
	}
	return len(events)
}

func (d *Driver) apply(ev lobby.Event) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("recovered panic applying event",
				slog.String("kind", ev.Kind()),
				slog.Any("panic", r))
		}
	}()
	d.store.Update(func(l *lobby.Lobby) {
		d.reducer.Apply(l, ev)
	})
	d.applied.Add(1)
	metrics.EventsApplied.WithLabelValues(ev.Kind()).Inc()
}

func (d *Driver) pollSources(ctx context.Context) error {
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	d.PollSources()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			d.PollSources()
		}
	}
}

// PollSources polls each source once and enqueues what they return. A
// failing or panicking source is recorded in health and skipped.
func (d *Driver) PollSources() int {
	total := 0
	for _, src := range d.sources {
		events, err := d.pollOne(src)
		h := d.health[src.Name()]
		if err != nil {
			h.recordFailure(err)
			d.logger.Warn("source poll failed",
				slog.String("source", src.Name()),
				slog.Any("error", err))
		} else {
			h.recordSuccess()
		}
		// A failed poll may still have produced events before the error.
		d.Submit(events...)
		total += len(events)
	}
	return total
}

func (d *Driver) pollOne(src Source) (events []lobby.Event, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in source %s: %v", src.Name(), r)
		}
	}()
	return src.Poll()
}

// Health implements ws.StatusSource.
func (d *Driver) Health() ws.Health {
	h := ws.Health{
		Status:        "ok",
		QueueDepth:    d.queue.len(),
		EventsApplied: d.applied.Load(),
	}
	if d.poller != nil {
		h.EnrichmentEnabled = d.poller.Enabled()
	}
	if d.watcher != nil {
		h.GameRunning = d.watcher.Running()
	}
	if len(d.health) > 0 {
		h.Sources = make(map[string]ws.SourceHealth, len(d.health))
		for name, sh := range d.health {
			s := sh.snapshot()
			h.Sources[name] = s
			if s.Status != string(statusHealthy) {
				h.Status = "degraded"
			}
		}
	}
	return h
}
