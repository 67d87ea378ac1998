// Package enrich attaches Steam profile data to roster entries in the
// background.
package enrich

import (
	"context"
	"log/slog"
	"time"

	"github.com/lobbywatch/backend/internal/lobby"
	"github.com/lobbywatch/backend/internal/metrics"
)

// DefaultInterval is the enrichment cadence.
const DefaultInterval = 5 * time.Second

// Fetcher resolves SteamIDs to profiles. steam.Client implements it.
type Fetcher interface {
	HasKey() bool
	PlayerSummaries(ctx context.Context, ids []lobby.SteamID) ([]lobby.ProfileInfo, error)
}

// Poller periodically finds players without a profile, fetches their
// profiles and merges them into the store. The fetch runs without holding
// the store lock; only the final merge takes it.
type Poller struct {
	store    *lobby.Store
	fetcher  Fetcher
	cache    Cache
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
}

// NewPoller creates a Poller. cache may be nil.
func NewPoller(store *lobby.Store, fetcher Fetcher, cache Cache, interval, timeout time.Duration, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		store:    store,
		fetcher:  fetcher,
		cache:    cache,
		interval: interval,
		timeout:  timeout,
		logger:   logger.With(slog.String("component", "enrich")),
	}
}

// Enabled reports whether a credential is configured.
func (p *Poller) Enabled() bool {
	return p.fetcher != nil && p.fetcher.HasKey()
}

// Run polls until ctx is cancelled. Without a credential it logs once and
// returns immediately.
func (p *Poller) Run(ctx context.Context) error {
	if !p.Enabled() {
		p.logger.Info("steam enrichment disabled: no api key")
		return nil
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("enrichment started", slog.Duration("interval", p.interval))
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("enrichment stopped")
			return nil
		case <-ticker.C:
			p.Poll(ctx)
		}
	}
}

// Poll runs one enrichment cycle and returns how many profiles were merged.
// A failed fetch abandons the cycle without touching the store; the next
// cycle retries.
func (p *Poller) Poll(ctx context.Context) int {
	if !p.Enabled() {
		return 0
	}

	ids := p.store.MissingProfiles()
	if len(ids) == 0 {
		metrics.EnrichCycles.WithLabelValues("skipped").Inc()
		return 0
	}

	infos, remaining := p.fromCache(ctx, ids)

	if len(remaining) > 0 {
		fetchCtx, cancel := context.WithTimeout(ctx, p.timeout)
		fetched, err := p.fetcher.PlayerSummaries(fetchCtx, remaining)
		cancel()
		if err != nil {
			metrics.EnrichCycles.WithLabelValues("failed").Inc()
			p.logger.Warn("profile fetch failed, retrying next cycle",
				slog.Int("requested", len(remaining)),
				slog.Any("error", err))
			return 0
		}
		p.toCache(ctx, fetched)
		infos = append(infos, fetched...)
	}

	merged := p.store.MergeProfiles(infos)
	metrics.EnrichCycles.WithLabelValues("ok").Inc()
	metrics.ProfilesMerged.Add(float64(merged))
	if discarded := len(infos) - merged; discarded > 0 {
		p.logger.Debug("discarded profiles for departed players", slog.Int("count", discarded))
	}
	return merged
}

// fromCache splits ids into cached profiles and ids still to fetch. Cache
// errors are treated as misses.
func (p *Poller) fromCache(ctx context.Context, ids []lobby.SteamID) ([]lobby.ProfileInfo, []lobby.SteamID) {
	if p.cache == nil {
		return nil, ids
	}
	found, err := p.cache.Get(ctx, ids)
	if err != nil {
		p.logger.Warn("profile cache lookup failed", slog.Any("error", err))
		return nil, ids
	}
	var infos []lobby.ProfileInfo
	var remaining []lobby.SteamID
	for _, id := range ids {
		if info, ok := found[id]; ok {
			infos = append(infos, info)
			continue
		}
		remaining = append(remaining, id)
	}
	metrics.ProfileCacheHits.Add(float64(len(infos)))
	return infos, remaining
}

func (p *Poller) toCache(ctx context.Context, infos []lobby.ProfileInfo) {
	if p.cache == nil {
		return
	}
	if err := p.cache.Put(ctx, infos); err != nil {
		p.logger.Warn("profile cache store failed", slog.Any("error", err))
	}
}
