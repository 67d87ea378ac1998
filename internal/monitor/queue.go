package monitor

import (
	"sync"

	"github.com/lobbywatch/backend/internal/lobby"
)

// eventQueue is an unbounded FIFO. Producers never block; the consumer
// waits on ready and drains everything queued so far.
type eventQueue struct {
	mu      sync.Mutex
	pending []lobby.Event
	ready   chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{ready: make(chan struct{}, 1)}
}

func (q *eventQueue) push(events ...lobby.Event) {
	if len(events) == 0 {
		return
	}
	q.mu.Lock()
	q.pending = append(q.pending, events...)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *eventQueue) drain() []lobby.Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.pending
	q.pending = nil
	return out
}

func (q *eventQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
