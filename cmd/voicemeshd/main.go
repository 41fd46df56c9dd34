// Command voicemeshd serves voicemesh sessions over websockets. Each
// connection is one conversation: text frames carry recognized user speech,
// chunk frames carry reply text for speech synthesis.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hupe1980/voicemesh/config"
	"github.com/hupe1980/voicemesh/logging"
)

func main() {
	configPath := flag.String("config", os.Getenv("VOICEMESH_CONFIG"), "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := logging.NewLogger(cfg.LoggerConfig()).WithComponent("voicemeshd")

	ctx := context.Background()

	app, err := build(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("build: %v", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", newServer(app.mesh, logger))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	httpServer := &http.Server{Addr: cfg.Server.Listen, Handler: mux}

	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info("voicemeshd.listen", "addr", cfg.Server.Listen, "provider", cfg.Model.Provider, "memory", cfg.Memory.Backend)

		err := httpServer.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		serverErrCh <- err
	}()

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serverErrCh:
		if err != nil {
			log.Fatalf("server exited: %v", err)
		}

		return
	case <-sigCtx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("voicemeshd.shutdown.http", "error", err.Error())
	}

	if err := app.Close(shutdownCtx); err != nil {
		logger.Error("voicemeshd.shutdown", "error", err.Error())
		os.Exit(1)
	}

	logger.Info("voicemeshd.stopped")
}
