// Package statusfeed implements the orchestrator's external status surface
// named in the DOMAIN STACK: a gorilla/mux router serving /healthz and
// /metrics, plus a gorilla/websocket hub broadcasting the 30-second
// heartbeat snapshot to any connected dashboard. Grounded on the teacher's
// web.WSManager (internal/adapters/web/websocket/ws_manager.go) for the
// hub/broadcast shape and web/server/router.go for mux wiring, generalized
// from device-graph pushes into heartbeat pushes.
package statusfeed

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Heartbeat is the periodic snapshot broadcast to connected clients and
// served by /healthz (§4.H).
type Heartbeat struct {
	Timestamp         time.Time `json:"timestamp"`
	Networks          int       `json:"networks"`
	Handshakes        int       `json:"handshakes"`
	CrackedKeys       int       `json:"cracked_keys"`
	Scans             int       `json:"scans"`
	Vulnerabilities   int       `json:"vulnerabilities"`
	EnumerationActive bool      `json:"enumeration_active"`
	ActiveCaptures    int       `json:"active_captures"`
}

// Server hosts the status HTTP/websocket surface.
type Server struct {
	addr   string
	logger *slog.Logger

	httpServer *http.Server

	mu      sync.Mutex
	clients map[*websocket.Conn]string // conn -> connection ID, for log correlation
	latest  Heartbeat
}

// New builds a statusfeed Server bound to addr (e.g. ":8090").
func New(addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:    addr,
		logger:  logger,
		clients: make(map[*websocket.Conn]string),
	}
}

func (s *Server) router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.handleWebSocket).Methods(http.MethodGet)
	return r
}

// Run starts the HTTP server and blocks until ctx is cancelled, then
// performs a graceful shutdown (§4.H).
func (s *Server) Run(ctx context.Context) error {
	instrumentedHandler := otelhttp.NewHandler(s.router(), "pendonn-statusfeed")
	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: instrumentedHandler,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("statusfeed: listening", "addr", s.addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

// Publish updates the latest heartbeat and broadcasts it to every
// connected websocket client.
func (s *Server) Publish(hb Heartbeat) {
	s.mu.Lock()
	s.latest = hb
	clients := make([]*websocket.Conn, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	payload, err := json.Marshal(hb)
	if err != nil {
		s.logger.Error("statusfeed: failed to marshal heartbeat", "error", err)
		return
	}
	for _, c := range clients {
		if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
			s.removeClient(c)
		}
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	hb := s.latest
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(hb); err != nil {
		s.logger.Error("statusfeed: failed to encode healthz response", "error", err)
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("statusfeed: websocket upgrade failed", "error", err)
		return
	}

	clientID := uuid.NewString()
	s.logger.Debug("statusfeed: client connected", "client_id", clientID)

	s.mu.Lock()
	s.clients[conn] = clientID
	hb := s.latest
	s.mu.Unlock()

	if payload, err := json.Marshal(hb); err == nil {
		_ = conn.WriteMessage(websocket.TextMessage, payload)
	}

	go func() {
		defer func() {
			s.removeClient(conn)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) removeClient(c *websocket.Conn) {
	s.mu.Lock()
	clientID := s.clients[c]
	delete(s.clients, c)
	s.mu.Unlock()
	if clientID != "" {
		s.logger.Debug("statusfeed: client disconnected", "client_id", clientID)
	}
}
