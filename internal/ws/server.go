package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lobbywatch/backend/internal/lobby"
)

const (
	maxIngestBody = 1 << 20
	writeWait     = 10 * time.Second
)

// EventSink accepts decoded events for the driver loop.
type EventSink interface {
	Submit(events ...lobby.Event)
}

// StatusSource reports component health for /api/health.
type StatusSource interface {
	Health() Health
}

type Server struct {
	store          *lobby.Store
	publisher      *Publisher
	sink           EventSink
	status         StatusSource
	authToken      string
	maxConnections int
	logger         *slog.Logger
}

func NewServer(store *lobby.Store, publisher *Publisher, sink EventSink, status StatusSource, authToken string, maxConnections int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:          store,
		publisher:      publisher,
		sink:           sink,
		status:         status,
		authToken:      authToken,
		maxConnections: maxConnections,
		logger:         logger.With(slog.String("component", "http")),
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/ws", s.handleWS).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.requireAuth)
	api.HandleFunc("/lobby", s.handleLobby).Methods(http.MethodGet)
	api.HandleFunc("/lobby/teams", s.handleTeams).Methods(http.MethodGet)
	api.HandleFunc("/lobby/chat", s.handleChat).Methods(http.MethodGet)
	api.HandleFunc("/players/{steamid}", s.handlePlayer).Methods(http.MethodGet)
	api.HandleFunc("/events", s.handleEvents).Methods(http.MethodPost)
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	r.Handle("/metrics", promhttp.Handler())
	return securityHeaders(r)
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Content-Security-Policy", "default-src 'self'")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.authorize(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	// Reserve the slot before upgrading.
	sub, ok := s.publisher.TrySubscribe(s.maxConnections)
	if !ok {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	upgrader := websocket.Upgrader{CheckOrigin: checkOrigin}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.publisher.Unsubscribe(sub)
		s.logger.Warn("ws upgrade failed", slog.Any("error", err))
		return
	}

	s.logger.Info("websocket client connected",
		slog.String("remote", r.RemoteAddr),
		slog.String("subscriber", sub.ID))

	go s.writePump(conn, sub)
	go func() {
		defer func() {
			s.publisher.Unsubscribe(sub)
			s.logger.Info("websocket client disconnected", slog.String("subscriber", sub.ID))
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// writePump forwards snapshots until the subscription closes or a write
// fails.
func (s *Server) writePump(conn *websocket.Conn, sub *Subscriber) {
	defer conn.Close()
	for snap := range sub.C {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(WSMessage{Type: MsgSnapshot, Payload: snap}); err != nil {
			s.publisher.Unsubscribe(sub)
			return
		}
	}
}

// current returns the latest published snapshot, falling back to a fresh
// copy before the first publish.
func (s *Server) current() *lobby.Snapshot {
	if snap := s.publisher.Latest(); snap != nil {
		return snap
	}
	return s.store.Snapshot()
}

func (s *Server) handleLobby(w http.ResponseWriter, r *http.Request) {
	snap := s.current()
	if r.URL.Query().Get("swap") == "1" {
		snap = snap.SwapTeams()
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleTeams(w http.ResponseWriter, r *http.Request) {
	snap := s.current()
	if r.URL.Query().Get("swap") == "1" {
		snap = snap.SwapTeams()
	}
	writeJSON(w, http.StatusOK, snap.Teams())
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.current().AttributeChat())
}

func (s *Server) handlePlayer(w http.ResponseWriter, r *http.Request) {
	raw, err := url.PathUnescape(mux.Vars(r)["steamid"])
	if err != nil {
		http.Error(w, "invalid steam id", http.StatusBadRequest)
		return
	}
	id, err := lobby.ParseSteamID(raw)
	if err != nil {
		http.Error(w, "invalid steam id", http.StatusBadRequest)
		return
	}
	p, ok := s.current().Player(id)
	if !ok {
		http.Error(w, "player not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, playerResponse{
		Player:         p,
		Steam3:         id.Steam3(),
		AccountCreated: p.Profile.AccountCreatedString(),
		NewAccount:     p.Profile.IsNewAccount(time.Now()),
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.sink == nil {
		http.Error(w, "ingest not available", http.StatusServiceUnavailable)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxIngestBody))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			http.Error(w, "body too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}
	events, err := lobby.DecodeEvents(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, WSMessage{Type: MsgError, Payload: ErrorPayload{Message: err.Error()}})
		return
	}
	s.sink.Submit(events...)
	writeJSON(w, http.StatusAccepted, IngestResponse{Accepted: len(events)})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	var h Health
	if s.status != nil {
		h = s.status.Health()
	}
	if h.Status == "" {
		h.Status = "ok"
	}
	h.Subscribers = s.publisher.SubscriberCount()
	h.Players = s.store.PlayerCount()
	if snap := s.publisher.Latest(); snap != nil {
		h.LastSeq = snap.Seq
	}
	writeJSON(w, http.StatusOK, h)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) authorize(r *http.Request) bool {
	if s.authToken == "" {
		return true
	}
	if r.URL.Query().Get("token") == s.authToken {
		return true
	}
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.authToken
}

// checkOrigin allows same-host and loopback origins.
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}
	if parsed.Host == r.Host {
		return true
	}
	switch parsed.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

// NewHTTPServer wraps the router in an http.Server bound to host:port.
func (s *Server) NewHTTPServer(host string, port int) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", host, port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}
