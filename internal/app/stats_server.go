package app

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WebSocket upgrader for real-time stats
var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// startHealthServer starts an HTTP server for health checks and stats.
func (r *Runner) startHealthServer(port int) {
	r.healthServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           r.statsMux(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := r.healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.clients.Logger.Error("health server error", zap.Error(err))
		}
	}()

	r.clients.Logger.Info("health server listening", zap.Int("port", port))
}

func (r *Runner) statsMux() *http.ServeMux {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// JSON stats endpoint
	mux.HandleFunc("/stats", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(r.GetStats())
	})

	// WebSocket endpoint for real-time stats
	mux.HandleFunc("/ws", func(w http.ResponseWriter, req *http.Request) {
		conn, err := wsUpgrader.Upgrade(w, req, nil)
		if err != nil {
			r.clients.Logger.Error("websocket upgrade failed", zap.Error(err))
			return
		}
		defer conn.Close()

		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()

		for {
			if err := conn.WriteJSON(r.GetStats()); err != nil {
				return // Client disconnected
			}
			select {
			case <-req.Context().Done():
				return
			case <-ticker.C:
			}
		}
	})

	return mux
}
