// Package server wires all components together and runs the service until
// shutdown.
package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/AxlHim26/gview-server/internal/api/rest"
	"github.com/AxlHim26/gview-server/internal/config"
	"github.com/AxlHim26/gview-server/internal/directory"
	"github.com/AxlHim26/gview-server/internal/directory/store"
	"github.com/AxlHim26/gview-server/internal/liveness"
	"github.com/AxlHim26/gview-server/internal/metrics"
	"github.com/AxlHim26/gview-server/internal/registry"
	"github.com/AxlHim26/gview-server/internal/relay"
	"github.com/AxlHim26/gview-server/internal/transport/ws"
)

// Server bootstraps the rendezvous service: directory, registry, liveness,
// relay dispatch and both HTTP edges.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger
}

// New creates a Server.
func New(cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{
		cfg:    cfg,
		logger: logger,
	}
}

// Run wires all components and blocks until SIGINT/SIGTERM or context
// cancellation.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// --- Durable peer store + directory ---
	st := store.NewPebbleStore(s.cfg.Storage.Path, s.logger)
	if err := st.Init(); err != nil {
		return err
	}
	defer st.Close()
	dir := directory.New(st, s.logger)

	// --- Volatile session state ---
	reg := registry.New()

	// evict is the single idempotent eviction path shared by clean
	// disconnects, connect-supersede and the liveness sweep. The registry
	// binding is authoritative for reachability; the directory's online
	// flag is updated as its projection in the same operation.
	var hub *ws.Hub
	evict := func(sessionID string) {
		peerID, bound := reg.PeerOf(sessionID)
		reg.UnbindBySession(sessionID)
		if bound {
			dir.MarkOffline(peerID)
		}
		hub.CloseSession(sessionID)
		s.logger.Info("Session evicted",
			zap.String("sessionID", sessionID), zap.String("peerID", peerID))
	}
	tracker := liveness.NewTracker(s.cfg.Schedule.LivenessTimeout, evict, s.logger)

	// --- Transport, metrics, relay ---
	hub = ws.NewHub(dir, reg, tracker, s.logger)
	agg := metrics.New(reg, s.logger)
	dispatcher := relay.NewDispatcher(dir, reg, hub, agg, s.cfg.Relay.MaxDecodedBytes, s.logger)
	hub.SetDispatcher(dispatcher)

	restSrv := rest.New(dir, reg, s.logger)

	wsMux := http.NewServeMux()
	wsMux.HandleFunc(s.cfg.Server.WSPath, hub.HandleWS)
	wsHTTP := &http.Server{Addr: s.cfg.Server.WSAddr, Handler: wsMux}
	restHTTP := &http.Server{Addr: s.cfg.Server.RestAddr, Handler: restSrv.Handler()}

	s.logger.Info("Server starting",
		zap.String("rest", s.cfg.Server.RestAddr),
		zap.String("ws", s.cfg.Server.WSAddr+s.cfg.Server.WSPath),
		zap.String("store", s.cfg.Storage.Path),
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		tracker.Run(ctx, s.cfg.Schedule.LivenessSweep)
		return nil
	})
	g.Go(func() error {
		agg.Run(ctx, s.cfg.Schedule.MetricsSummary)
		return nil
	})
	g.Go(func() error {
		if err := restHTTP.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := wsHTTP.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		select {
		case <-sigCh:
			s.logger.Info("Shutdown signal received")
			cancel()
		case <-ctx.Done():
		}

		shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutCancel()
		restHTTP.Shutdown(shutCtx)
		wsHTTP.Shutdown(shutCtx)
		return nil
	})

	return g.Wait()
}
