package monitor

import (
	"sync"
	"time"

	"github.com/lobbywatch/backend/internal/ws"
)

// failureThreshold is the number of consecutive failed polls after which a
// source reports itself as failed rather than degraded.
const failureThreshold = 3

type sourceStatus string

const (
	statusHealthy  sourceStatus = "healthy"
	statusDegraded sourceStatus = "degraded"
	statusFailed   sourceStatus = "failed"
)

// sourceHealth tracks consecutive poll failures for one source. Written by
// the source goroutine, read by the HTTP health handler.
type sourceHealth struct {
	mu       sync.Mutex
	failures int
	lastErr  string
	lastFail time.Time
}

func (h *sourceHealth) recordSuccess() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failures = 0
	h.lastErr = ""
}

func (h *sourceHealth) recordFailure(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failures++
	h.lastErr = err.Error()
	h.lastFail = time.Now()
}

func (h *sourceHealth) snapshot() ws.SourceHealth {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := ws.SourceHealth{Status: string(statusHealthy), Failures: h.failures}
	if h.failures == 0 {
		return out
	}
	out.Status = string(statusDegraded)
	if h.failures >= failureThreshold {
		out.Status = string(statusFailed)
	}
	out.LastError = h.lastErr
	out.LastFailure = h.lastFail
	return out
}
