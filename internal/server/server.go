// Package server exposes the controller's HTTP surface: statistics and
// configuration endpoints plus the websocket state stream for observers.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/muzaddid-faruque/ai-traffic-light/internal/broadcast"
	"github.com/muzaddid-faruque/ai-traffic-light/internal/config"
	"github.com/muzaddid-faruque/ai-traffic-light/internal/stats"
)

// Version is reported by the root and health endpoints.
const Version = "2.0.0"

// Server handles the API and observer connections.
type Server struct {
	cfg      *config.Store
	registry *stats.Registry
	bcast    *broadcast.Broadcaster
	upgrader websocket.Upgrader
	log      *logrus.Entry
}

// New returns a configured server.
func New(cfg *config.Store, registry *stats.Registry, bcast *broadcast.Broadcaster) *Server {
	s := &Server{
		cfg:      cfg,
		registry: registry,
		bcast:    bcast,
		log:      logrus.WithField("module", "server"),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := s.cfg.Current().CORSOrigin
			return origin == "*" || origin == r.Header.Get("Origin")
		},
	}
	return s
}

// Handler exposes the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.cors(s.handleRoot))
	mux.HandleFunc("/health", s.cors(s.handleHealth))
	mux.HandleFunc("/stats", s.cors(s.handleStats))
	mux.HandleFunc("/config", s.cors(s.handleConfig))
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

func (s *Server) cors(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.cfg.Current().CORSOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, map[string]any{
		"message": "AI Traffic Light System API",
		"version": Version,
		"endpoints": map[string]string{
			"websocket": "/ws",
			"health":    "/health",
			"stats":     "/stats",
			"config":    "/config",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   Version,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.registry.Snapshot())
}

// handleConfig applies a partial configuration update. A rejected update
// leaves the previous snapshot active and reports the reason to the caller.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var update config.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeJSONWithStatus(w, map[string]any{"error": "invalid request body"}, http.StatusBadRequest)
		return
	}

	if _, err := s.cfg.Apply(update); err != nil {
		s.log.Warnf("configuration update rejected: %v", err)
		writeJSONWithStatus(w, map[string]any{"error": err.Error()}, http.StatusBadRequest)
		return
	}

	s.log.Infof("configuration updated")
	writeJSON(w, map[string]any{
		"status":  "success",
		"message": "Configuration updated",
		"config":  update,
	})
}

// handleWS upgrades the connection and registers it as a state observer. The
// connection lives until the client leaves or delivery fails.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnf("websocket upgrade failed: %v", err)
		return
	}

	obs := s.bcast.Register()
	defer conn.Close()

	// Reader goroutine only watches for the client closing the connection.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.bcast.Unregister(obs.ID)
				return
			}
		}
	}()

	for {
		select {
		case msg := <-obs.C():
			if err := conn.WriteJSON(msg); err != nil {
				s.log.Infof("observer %s write failed: %v", obs.ID, err)
				s.bcast.Unregister(obs.ID)
				return
			}
		case <-obs.Done():
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, payload any) {
	writeJSONWithStatus(w, payload, http.StatusOK)
}

func writeJSONWithStatus(w http.ResponseWriter, payload any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		_, _ = fmt.Fprintf(w, `{"error":%q}`, err.Error())
	}
}
