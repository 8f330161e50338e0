// ABOUTME: HTTP server for the experiment API with graceful shutdown.
// ABOUTME: Storage work runs on the worker pool against a per-request connection.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/harperreed/rocketry/internal/config"
	"github.com/harperreed/rocketry/internal/ingest"
	"github.com/harperreed/rocketry/internal/logging"
	"github.com/harperreed/rocketry/internal/storage"
	"github.com/harperreed/rocketry/internal/worker"
)

// Server serves the experiment API.
type Server struct {
	cfg      *config.Config
	db       *storage.DB
	pool     *worker.Pool
	pipeline *ingest.Pipeline
}

// NewServer wires a Server from explicit dependencies.
func NewServer(cfg *config.Config, db *storage.DB) *Server {
	return &Server{
		cfg:      cfg,
		db:       db,
		pool:     worker.NewPool(cfg.Worker.PoolSize),
		pipeline: ingest.NewPipeline(),
	}
}

// ListenAndServe runs until ctx is cancelled, then drains in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.Handler(),
		ReadTimeout:       s.cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.cfg.Server.WriteTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", srv.Addr).Msg("http server listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	logging.Info().Msg("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.pool.Wait()
	return nil
}

// withRepo runs fn on the worker pool with a connection pinned for this call.
func withRepo[T any](ctx context.Context, s *Server, fn func(context.Context, storage.Repository) (T, error)) (T, error) {
	return worker.Do(ctx, s.pool, func(ctx context.Context) (T, error) {
		sess, err := s.db.Acquire(ctx)
		if err != nil {
			var zero T
			return zero, err
		}
		defer sess.Close()
		return fn(ctx, sess)
	})
}
