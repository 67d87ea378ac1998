package ws

import (
	"time"

	"github.com/lobbywatch/backend/internal/lobby"
)

type MessageType string

const (
	MsgSnapshot MessageType = "snapshot"
	MsgError    MessageType = "error"
)

type WSMessage struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// Health is the body of /api/health.
type Health struct {
	Status            string `json:"status"`
	EnrichmentEnabled bool   `json:"enrichmentEnabled"`
	GameRunning       bool   `json:"gameRunning"`
	QueueDepth        int    `json:"queueDepth"`
	EventsApplied     uint64 `json:"eventsApplied"`
	Subscribers       int    `json:"subscribers"`
	Players           int    `json:"players"`
	LastSeq           uint64 `json:"lastSeq"`

	Sources map[string]SourceHealth `json:"sources,omitempty"`
}

type SourceHealth struct {
	Status      string    `json:"status"`
	Failures    int       `json:"failures"`
	LastError   string    `json:"lastError,omitempty"`
	LastFailure time.Time `json:"lastFailure,omitempty"`
}

// IngestResponse is the body returned by POST /api/events.
type IngestResponse struct {
	Accepted int `json:"accepted"`
}

// playerResponse is the body of /api/players/{steamid}.
type playerResponse struct {
	lobby.Player
	Steam3         string `json:"steam3"`
	AccountCreated string `json:"accountCreated"`
	NewAccount     bool   `json:"newAccount"`
}
