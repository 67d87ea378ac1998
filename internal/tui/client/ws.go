// Package client connects the TUI to a lobbywatch server's snapshot stream.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"

	"github.com/lobbywatch/backend/internal/lobby"
	"github.com/lobbywatch/backend/internal/ws"
)

const (
	reconnectBaseDelay = 1 * time.Second
	reconnectMaxDelay  = 30 * time.Second
	writeTimeout       = 10 * time.Second
	pongTimeout        = 60 * time.Second
	pingInterval       = 30 * time.Second
)

// WSClient manages the WebSocket connection to the server.
type WSClient struct {
	url   string
	token string

	mu         sync.Mutex
	writeMu    sync.Mutex // serialises pings
	conn       *websocket.Conn
	seq        uint64
	pingCancel context.CancelFunc
}

func NewWSClient(url, token string) *WSClient {
	return &WSClient{url: url, token: token}
}

// --- Bubble Tea messages ---

type ConnectedMsg struct{}

type DisconnectedMsg struct{ Err error }

// SnapshotMsg delivers one published lobby snapshot.
type SnapshotMsg struct{ Snapshot *lobby.Snapshot }

// ErrorMsg wraps a server-side error message.
type ErrorMsg struct{ Message string }

type wireMessage struct {
	Type    ws.MessageType  `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// dialURL appends the auth token as a query parameter.
func (c *WSClient) dialURL() string {
	if c.token == "" {
		return c.url
	}
	u, err := url.Parse(c.url)
	if err != nil {
		return c.url
	}
	q := u.Query()
	q.Set("token", c.token)
	u.RawQuery = q.Encode()
	return u.String()
}

// Listen returns a command that connects, retrying with backoff until it
// succeeds or ctx is cancelled.
func (c *WSClient) Listen(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		delay := reconnectBaseDelay
		for {
			conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.dialURL(), nil)
			if err == nil {
				c.mu.Lock()
				if c.pingCancel != nil {
					c.pingCancel()
				}
				pingCtx, cancel := context.WithCancel(ctx)
				c.conn = conn
				c.pingCancel = cancel
				c.mu.Unlock()

				go c.pingLoop(pingCtx, conn)
				return ConnectedMsg{}
			}

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(delay):
			}
			delay = min(delay*2, reconnectMaxDelay)
		}
	}
}

// ReadLoop returns a command that blocks until the next message the TUI
// cares about, or until the connection drops.
func (c *WSClient) ReadLoop(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return DisconnectedMsg{Err: fmt.Errorf("no connection")}
		}

		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongTimeout))
		})
		_ = conn.SetReadDeadline(time.Now().Add(pongTimeout))

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				c.mu.Lock()
				if c.conn == conn {
					c.conn = nil
				}
				c.mu.Unlock()
				conn.Close()
				return DisconnectedMsg{Err: err}
			}

			var msg wireMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}
			if teaMsg := c.dispatch(msg); teaMsg != nil {
				return teaMsg
			}
		}
	}
}

func (c *WSClient) dispatch(msg wireMessage) tea.Msg {
	switch msg.Type {
	case ws.MsgSnapshot:
		var snap lobby.Snapshot
		if err := json.Unmarshal(msg.Payload, &snap); err != nil {
			return ErrorMsg{Message: fmt.Sprintf("decode snapshot: %v", err)}
		}
		c.mu.Lock()
		c.seq = snap.Seq
		c.mu.Unlock()
		return SnapshotMsg{Snapshot: &snap}
	case ws.MsgError:
		var p ws.ErrorPayload
		_ = json.Unmarshal(msg.Payload, &p)
		return ErrorMsg{Message: p.Message}
	}
	return nil
}

func (c *WSClient) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			current := c.conn
			c.mu.Unlock()
			if current != conn {
				return
			}
			c.writeMu.Lock()
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// Seq is the sequence number of the last snapshot received.
func (c *WSClient) Seq() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Close drops the current connection.
func (c *WSClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pingCancel != nil {
		c.pingCancel()
		c.pingCancel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}
