// Package server wires the signaling Hub and runtime config onto an
// http.ServeMux: the /ws upgrade, the /config GET, and the /healthz liveness
// probe.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/relaybeam/relaybeam/internal/serverconfig"
	"github.com/relaybeam/relaybeam/internal/signaling"
	"github.com/relaybeam/relaybeam/internal/wire"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServeWs upgrades the request to a WebSocket and registers a signaling
// Client with hub. The connection is anonymous until the hub assigns it a
// PeerHandle on registration.
func ServeWs(hub *signaling.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("websocket upgrade failed", "err", err, "remote", r.RemoteAddr)
			return
		}

		client := &signaling.Client{
			Hub:  hub,
			Conn: conn,
			Send: make(chan *wire.Envelope, 256),
		}

		client.Hub.Register <- client

		go client.WritePump()
		go client.ReadPump()
	}
}

// ServeConfig returns the client-visible configuration subset.
func ServeConfig(cfg *serverconfig.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		if err := json.NewEncoder(w).Encode(cfg.ClientView()); err != nil {
			slog.Error("failed to encode /config response", "err", err)
		}
	}
}

// ServeHealthz answers GET and HEAD with 200 and Cache-Control: no-store.
func ServeHealthz() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
	}
}

// withCORS wraps a handler, echoing the request Origin when it appears in
// allowed (or allowing any origin when allowed is empty).
func withCORS(allowed []string, h http.Handler) http.Handler {
	allowSet := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		allowSet[o] = struct{}{}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			if len(allowSet) == 0 {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			} else if _, ok := allowSet[origin]; ok {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
			}
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.ServeHTTP(w, r)
	})
}

// NewMux builds the complete HTTP handler: /ws, /config, /healthz.
func NewMux(hub *signaling.Hub, cfg *serverconfig.Config) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", ServeWs(hub))
	mux.Handle("/config", ServeConfig(cfg))
	mux.Handle("/healthz", ServeHealthz())
	return withCORS(cfg.CorsOrigins, mux)
}
