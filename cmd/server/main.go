// Command server runs the relaybeam signaling server: room lifecycle,
// signal relay, and the /config and /healthz endpoints.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/relaybeam/relaybeam/internal/logging"
	"github.com/relaybeam/relaybeam/internal/room"
	"github.com/relaybeam/relaybeam/internal/server"
	"github.com/relaybeam/relaybeam/internal/serverconfig"
	"github.com/relaybeam/relaybeam/internal/signaling"
)

func main() {
	logging.Init()

	cfg, err := serverconfig.Load(serverconfig.Options{})
	if err != nil {
		slog.Error("failed to load server configuration", "err", err)
		os.Exit(1)
	}

	hub := signaling.NewHub(signaling.Options{
		MaxPeersPerRoom:  cfg.MaxPeersPerRoom,
		RoomTTL:          time.Duration(cfg.RoomTTLMs) * time.Millisecond,
		SweepInterval:    room.DefaultSweepInterval,
		MaxSignalPayload: cfg.MaxSignalPayloadBytes,
		RateWindow:       1 * time.Second,
		RateMax:          10,
	})
	go hub.Run()

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: server.NewMux(hub, cfg),
	}

	go func() {
		slog.Info("signaling server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server exited", "err", err)
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "err", err)
	}
}
