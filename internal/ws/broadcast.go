package ws

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/lobbywatch/backend/internal/lobby"
	"github.com/lobbywatch/backend/internal/metrics"
)

const (
	DefaultPublishInterval  = 5 * time.Second
	DefaultSubscriberBuffer = 4
)

// Subscriber receives snapshots on C. Snapshots are shared between
// subscribers and must not be modified. C is closed by Unsubscribe.
type Subscriber struct {
	ID      string
	C       <-chan *lobby.Snapshot
	send    chan *lobby.Snapshot
	dropped atomic.Int64
}

// Dropped is the number of snapshots skipped because C was full.
func (s *Subscriber) Dropped() int64 {
	return s.dropped.Load()
}

// Publisher copies the lobby on a fixed interval and hands the copy to
// every subscriber. Delivery never blocks: a subscriber whose queue is full
// skips that cycle.
type Publisher struct {
	mu          sync.RWMutex
	subscribers map[*Subscriber]struct{}
	store       *lobby.Store
	interval    time.Duration
	bufferSize  int
	self        lobby.SteamID
	gameRunning func() bool
	seq         atomic.Uint64
	latest      atomic.Pointer[lobby.Snapshot]
	logger      *slog.Logger
}

// NewPublisher creates a Publisher. self is stamped onto every snapshot.
func NewPublisher(store *lobby.Store, interval time.Duration, bufferSize int, self lobby.SteamID, logger *slog.Logger) *Publisher {
	if interval <= 0 {
		interval = DefaultPublishInterval
	}
	if bufferSize <= 0 {
		bufferSize = DefaultSubscriberBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		subscribers: make(map[*Subscriber]struct{}),
		store:       store,
		interval:    interval,
		bufferSize:  bufferSize,
		self:        self,
		logger:      logger.With(slog.String("component", "publisher")),
	}
}

// SetGameRunning installs a probe reporting whether the game is running.
// Must be called before Run.
func (p *Publisher) SetGameRunning(probe func() bool) {
	p.gameRunning = probe
}

// Subscribe registers a new subscriber. It only sees snapshots published
// after this call.
func (p *Publisher) Subscribe() *Subscriber {
	s, _ := p.TrySubscribe(0)
	return s
}

// TrySubscribe registers a new subscriber unless limit subscribers are
// already registered. A limit of zero or less means unlimited.
func (p *Publisher) TrySubscribe(limit int) (*Subscriber, bool) {
	ch := make(chan *lobby.Snapshot, p.bufferSize)
	s := &Subscriber{ID: uuid.NewString(), C: ch, send: ch}

	p.mu.Lock()
	if limit > 0 && len(p.subscribers) >= limit {
		p.mu.Unlock()
		return nil, false
	}
	p.subscribers[s] = struct{}{}
	count := len(p.subscribers)
	p.mu.Unlock()

	p.logger.Debug("subscriber added", slog.String("subscriber", s.ID), slog.Int("total", count))
	return s, true
}

// Unsubscribe removes s and closes its channel. Safe to call twice.
func (p *Publisher) Unsubscribe(s *Subscriber) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.subscribers[s]; ok {
		delete(p.subscribers, s)
		close(s.send)
		p.logger.Debug("subscriber removed", slog.String("subscriber", s.ID), slog.Int("total", len(p.subscribers)))
	}
}

func (p *Publisher) SubscriberCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subscribers)
}

// Latest returns the most recently published snapshot, or nil before the
// first publish.
func (p *Publisher) Latest() *lobby.Snapshot {
	return p.latest.Load()
}

// Run publishes every interval until ctx is cancelled.
func (p *Publisher) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("publisher started", slog.Duration("interval", p.interval))
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("publisher stopped")
			return nil
		case <-ticker.C:
			p.Publish()
		}
	}
}

// Publish takes one snapshot and delivers it. Only the copy happens under
// the store lock; delivery happens afterwards.
func (p *Publisher) Publish() *lobby.Snapshot {
	snap := p.store.Snapshot()

	snap.Seq = p.seq.Add(1)
	snap.TakenAt = time.Now()
	snap.Self = p.self
	if p.gameRunning != nil {
		snap.GameRunning = p.gameRunning()
	}
	p.latest.Store(snap)

	metrics.SnapshotsPublished.Inc()
	metrics.RosterSize.Set(float64(len(snap.Players)))

	p.mu.RLock()
	defer p.mu.RUnlock()
	for s := range p.subscribers {
		select {
		case s.send <- snap:
		default:
			s.dropped.Add(1)
			metrics.DeliveriesDropped.Inc()
			p.logger.Debug("subscriber queue full, skipping snapshot",
				slog.String("subscriber", s.ID),
				slog.Uint64("seq", snap.Seq))
		}
	}
	return snap
}
