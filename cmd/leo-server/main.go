// Command leo-server runs the LEO file-transfer server. It reads its
// entire configuration from the environment (LEO_HOST, LEO_PORT,
// LEO_STORAGE, LEO_USER, LEO_PASS, LEO_METRICS_ADDR, LEO_MAX_FRAME_BYTES)
// and serves until it receives SIGINT or SIGTERM.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/opd-ai/leo/logging"
	"github.com/opd-ai/leo/metrics"
	"github.com/opd-ai/leo/session"
	"github.com/opd-ai/leo/storage"
)

func main() {
	log := logging.For("main")

	cfg := session.ConfigFromEnv()
	if cfg.Username == "" || cfg.Password == "" {
		fmt.Fprintln(os.Stderr, "leo-server: LEO_USER and LEO_PASS must both be set")
		os.Exit(1)
	}

	root, err := storage.NewRoot(cfg.StoragePath)
	if err != nil {
		log.WithError(err).WithField("path", cfg.StoragePath).Error("failed to initialize storage root")
		os.Exit(1)
	}

	rec := metrics.New()
	srv := session.NewServer(cfg, root, rec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.WithField("signal", sig.String()).Info("shutting down")
		cancel()
	}()

	if err := srv.Serve(ctx); err != nil {
		log.WithError(err).Error("server exited with error")
		os.Exit(1)
	}
}
