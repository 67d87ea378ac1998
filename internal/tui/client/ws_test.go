package client

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lobbywatch/backend/internal/lobby"
	"github.com/lobbywatch/backend/internal/ws"
)

func startServer(t *testing.T, token string) (*ws.Publisher, string) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := lobby.NewStore()
	store.Update(func(l *lobby.Lobby) {
		l.UpsertSeen(2, lobby.SteamID(76561197960265839), "alice", time.Now())
	})
	pub := ws.NewPublisher(store, time.Hour, 4, 0, logger)
	srv := httptest.NewServer(ws.NewServer(store, pub, nil, nil, token, 0, logger).Router())
	t.Cleanup(srv.Close)
	return pub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func runCmd(t *testing.T, cmd func() any) any {
	t.Helper()
	done := make(chan any, 1)
	go func() { done <- cmd() }()
	select {
	case msg := <-done:
		return msg
	case <-time.After(3 * time.Second):
		t.Fatal("command did not return")
		return nil
	}
}

func TestDialURL(t *testing.T) {
	tests := []struct {
		url, token, want string
	}{
		{"ws://host:8090/ws", "", "ws://host:8090/ws"},
		{"ws://host:8090/ws", "s3cret", "ws://host:8090/ws?token=s3cret"},
		{"ws://host:8090/ws?x=1", "a b", "ws://host:8090/ws?token=a+b&x=1"},
	}
	for _, tt := range tests {
		if got := NewWSClient(tt.url, tt.token).dialURL(); got != tt.want {
			t.Errorf("dialURL(%q, %q) = %q, want %q", tt.url, tt.token, got, tt.want)
		}
	}
}

func TestWSClient_ReceivesSnapshot(t *testing.T) {
	pub, url := startServer(t, "s3cret")
	c := NewWSClient(url, "s3cret")
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, ok := runCmd(t, func() any { return c.Listen(ctx)() }).(ConnectedMsg); !ok {
		t.Fatal("expected ConnectedMsg")
	}

	deadline := time.Now().Add(2 * time.Second)
	for pub.SubscriberCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	pub.Publish()

	msg := runCmd(t, func() any { return c.ReadLoop(ctx)() })
	snap, ok := msg.(SnapshotMsg)
	if !ok {
		t.Fatalf("expected SnapshotMsg, got %T", msg)
	}
	if snap.Snapshot.Seq != 1 || len(snap.Snapshot.Players) != 1 {
		t.Errorf("snapshot seq=%d players=%d", snap.Snapshot.Seq, len(snap.Snapshot.Players))
	}
	if c.Seq() != 1 {
		t.Errorf("Seq = %d, want 1", c.Seq())
	}
}

func TestWSClient_DisconnectReported(t *testing.T) {
	// Server that accepts the upgrade and hangs up straight away.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.Close()
	}))
	defer srv.Close()
	c := NewWSClient("ws"+strings.TrimPrefix(srv.URL, "http"), "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, ok := runCmd(t, func() any { return c.Listen(ctx)() }).(ConnectedMsg); !ok {
		t.Fatal("expected ConnectedMsg")
	}
	if _, ok := runCmd(t, func() any { return c.ReadLoop(ctx)() }).(DisconnectedMsg); !ok {
		t.Fatal("expected DisconnectedMsg")
	}
}

func TestWSClient_MalformedSnapshotReported(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"snapshot","payload":{"players":"nope"}}`))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()
	c := NewWSClient("ws"+strings.TrimPrefix(srv.URL, "http"), "")
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, ok := runCmd(t, func() any { return c.Listen(ctx)() }).(ConnectedMsg); !ok {
		t.Fatal("expected ConnectedMsg")
	}
	msg := runCmd(t, func() any { return c.ReadLoop(ctx)() })
	errMsg, ok := msg.(ErrorMsg)
	if !ok {
		t.Fatalf("expected ErrorMsg, got %T", msg)
	}
	if !strings.Contains(errMsg.Message, "decode snapshot") {
		t.Errorf("message = %q", errMsg.Message)
	}
	if c.Seq() != 0 {
		t.Errorf("Seq = %d, want 0", c.Seq())
	}
}

func TestWSClient_ReceivesSnapshotWithoutSelf(t *testing.T) {
	pub, url := startServer(t, "")
	c := NewWSClient(url, "")
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, ok := runCmd(t, func() any { return c.Listen(ctx)() }).(ConnectedMsg); !ok {
		t.Fatal("expected ConnectedMsg")
	}
	deadline := time.Now().Add(2 * time.Second)
	for pub.SubscriberCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	pub.Publish()

	msg := runCmd(t, func() any { return c.ReadLoop(ctx)() })
	snap, ok := msg.(SnapshotMsg)
	if !ok {
		t.Fatalf("expected SnapshotMsg, got %T", msg)
	}
	if !snap.Snapshot.Self.IsZero() {
		t.Errorf("Self = %d, want zero", snap.Snapshot.Self)
	}
}

func TestWSClient_ListenStopsOnCancel(t *testing.T) {
	c := NewWSClient("ws://127.0.0.1:1/ws", "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if msg := runCmd(t, func() any { return c.Listen(ctx)() }); msg != nil {
		t.Errorf("expected nil after cancel, got %T", msg)
	}
}

func TestReadLoop_NoConnection(t *testing.T) {
	c := NewWSClient("ws://127.0.0.1:1/ws", "")
	msg := c.ReadLoop(context.Background())()
	if _, ok := msg.(DisconnectedMsg); !ok {
		t.Fatalf("expected DisconnectedMsg, got %T", msg)
	}
}
