package monitor

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

const DefaultProcessInterval = 10 * time.Second

// ProcessLister returns the executable names of running processes.
type ProcessLister func(ctx context.Context) ([]string, error)

// ProcessWatcher periodically checks whether one of the configured game
// executables is running.
type ProcessWatcher struct {
	names    map[string]struct{}
	interval time.Duration
	list     ProcessLister
	running  atomic.Bool
	logger   *slog.Logger
}

// NewProcessWatcher watches for any of names. Matching ignores case and a
// trailing ".exe".
func NewProcessWatcher(names []string, interval time.Duration, logger *slog.Logger) *ProcessWatcher {
	if interval <= 0 {
		interval = DefaultProcessInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n = normalizeExe(n); n != "" {
			set[n] = struct{}{}
		}
	}
	return &ProcessWatcher{
		names:    set,
		interval: interval,
		list:     listProcesses,
		logger:   logger.With(slog.String("component", "process")),
	}
}

// Running reports the result of the most recent check.
func (w *ProcessWatcher) Running() bool {
	return w.running.Load()
}

// Run checks immediately and then every interval until ctx is cancelled.
func (w *ProcessWatcher) Run(ctx context.Context) error {
	if len(w.names) == 0 {
		w.logger.Info("process detection disabled: no names configured")
		return nil
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.Check(ctx)
		}
	}
}

// Check lists processes once and updates Running. A listing error leaves
// the previous result in place.
func (w *ProcessWatcher) Check(ctx context.Context) bool {
	names, err := w.list(ctx)
	if err != nil {
		w.logger.Warn("listing processes failed", slog.Any("error", err))
		return w.running.Load()
	}

	found := false
	for _, n := range names {
		if _, ok := w.names[normalizeExe(n)]; ok {
			found = true
			break
		}
	}
	if prev := w.running.Swap(found); prev != found {
		w.logger.Info("game process state changed", slog.Bool("running", found))
	}
	return found
}

func normalizeExe(name string) string {
	name = strings.ToLower(filepath.Base(strings.TrimSpace(name)))
	return strings.TrimSuffix(name, ".exe")
}

func listProcesses(ctx context.Context) ([]string, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(procs))
	for _, p := range procs {
		// Processes can exit between listing and lookup.
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}
