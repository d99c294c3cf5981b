// File: internal/adminapi/server.go
package adminapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/net/netutil"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/wa-humanizer/internal/config"
)

// shutdownTimeout bounds how long in-flight requests may finish after Run's
// context is cancelled.
const shutdownTimeout = 15 * time.Second

// Server hosts the admin API.
type Server struct {
	cfg     config.AdminConfig
	logger  *zap.Logger
	handler http.Handler
}

// compressionLevel applies to both gzip and brotli responses.
const compressionLevel = 5

// NewServer wires the router: request IDs, panic recovery, request logging,
// response compression, a per-request timeout and, on the API routes, rate
// limiting and optional bearer-token auth.
func NewServer(cfg config.AdminConfig, handlers *Handlers, logger *zap.Logger) *Server {
	log := logger.Named("admin_api")

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(newCompressor().Handler)
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	burst := cfg.RateBurst
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	apiMiddleware := []func(http.Handler) http.Handler{rateLimit(limiter, log)}
	if cfg.AuthSecret != "" {
		apiMiddleware = append(apiMiddleware, requireToken(cfg.AuthSecret, time.Now, log))
	}
	handlers.RegisterRoutes(r, apiMiddleware...)

	return &Server{cfg: cfg, logger: log, handler: r}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.handler }

// Run serves on cfg.ListenAddr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.ListenAddr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.cfg.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, s.cfg.MaxConnections)
	}
	httpServer := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Admin API starting", zap.String("address", ln.Addr().String()))
		errCh <- httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("admin API stopped: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down admin API gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("admin API shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("admin API stopped: %w", err)
	}
	s.logger.Info("Admin API stopped.")
	return nil
}

// newCompressor compresses JSON replies with brotli when the client accepts
// it, falling back to gzip and deflate.
func newCompressor() *middleware.Compressor {
	c := middleware.NewCompressor(compressionLevel, "application/json")
	c.SetEncoder("br", func(w io.Writer, level int) io.Writer {
		return brotli.NewWriterLevel(w, level)
	})
	return c
}
