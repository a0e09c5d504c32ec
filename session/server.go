package session

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/opd-ai/leo/logging"
	"github.com/opd-ai/leo/metrics"
	"github.com/opd-ai/leo/storage"
	"github.com/opd-ai/leo/wire"
)

// Server accepts TCP connections and runs one Session actor per connection.
type Server struct {
	cfg           Config
	info          ServerInfo
	storage       *storage.Root
	metrics       *metrics.Recorder
	maxFrameBytes int
}

// NewServer builds a Server serving files under root, using cfg for
// credentials and advertised capabilities. rec may be nil, in which case
// metrics collection is skipped entirely.
func NewServer(cfg Config, root *storage.Root, rec *metrics.Recorder) *Server {
	maxFrame := cfg.MaxFrameBytes
	if maxFrame <= 0 {
		maxFrame = wire.DefaultMaxFrameBytes
	}
	return &Server{
		cfg:           cfg,
		info:          infoFromConfig(cfg, cfg.StoragePath),
		storage:       root,
		metrics:       rec,
		maxFrameBytes: maxFrame,
	}
}

// Serve listens on cfg.Host:cfg.Port and runs Session actors for every
// accepted connection until ctx is cancelled, at which point it stops
// accepting new connections and closes the listener.
func (s *Server) Serve(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("session: listen %s: %w", addr, err)
	}
	defer ln.Close()

	log := logging.For("session").WithField("addr", ln.Addr().String())
	log.Info("listening")

	if s.cfg.MetricsAddr != "" && s.metrics != nil {
		go s.serveMetrics(ctx)
	}

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.WithError(err).Warn("accept failed")
			continue
		}
		go s.handleConn(ctx, conn)
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	sess := newSession(conn, s.cfg, s.info, s.storage, s.metrics, s.maxFrameBytes)
	s.metrics.SessionOpened()
	defer s.metrics.SessionClosed()
	sess.run(ctx)
}

func (s *Server) serveMetrics(ctx context.Context) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.metrics.Handler())
	srv := &http.Server{Addr: s.cfg.MetricsAddr, Handler: mux}

	log := logging.For("session").WithField("addr", s.cfg.MetricsAddr)
	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	log.Info("serving metrics")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Warn("metrics listener failed")
	}
}
