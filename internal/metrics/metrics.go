// Package metrics holds the Prometheus collectors shared by the driver,
// the enrichment poller and the publisher.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lobbywatch_events_applied_total",
		Help: "Log events applied to the lobby, by kind",
	}, []string{"kind"})

	EventsDecodeFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lobbywatch_events_decode_failed_total",
		Help: "Inbound event lines that could not be decoded",
	})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lobbywatch_event_queue_depth",
		Help: "Events waiting to be applied",
	})

	RosterSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lobbywatch_roster_size",
		Help: "Players in the current lobby at last publish",
	})

	EnrichCycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lobbywatch_enrich_cycles_total",
		Help: "Enrichment cycles by outcome (skipped, ok, failed)",
	}, []string{"outcome"})

	ProfilesMerged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lobbywatch_profiles_merged_total",
		Help: "Profiles attached to roster entries",
	})

	ProfileCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lobbywatch_profile_cache_hits_total",
		Help: "Profiles served from the cache instead of the Steam API",
	})

	SnapshotsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lobbywatch_snapshots_published_total",
		Help: "Snapshots produced by the publisher",
	})

	DeliveriesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lobbywatch_deliveries_dropped_total",
		Help: "Snapshot deliveries skipped because a subscriber queue was full",
	})
)
