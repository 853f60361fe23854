package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"todoitems/internal/adapter/http/routes"
	"todoitems/internal/core/port"
	"todoitems/internal/core/telemetry"
	"todoitems/pkg/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// shutdownGrace is used when no shutdown timeout is configured.
const shutdownGrace = 10 * time.Second

// Server owns the HTTP listener and everything it needs to shut down cleanly.
type Server struct {
	srv       *http.Server
	container *Container
	redis     *redis.Client
	config    *config.AppConfig
	logger    *config.LokiLogger
}

func NewServer(ctx context.Context, cfg *config.AppConfig, metrics *telemetry.AppMetrics, probe port.Telemetry, logger *config.LokiLogger) (*Server, error) {
	container, err := NewContainer(ctx, cfg, probe, logger)

	if err != nil {
		return nil, err
	}

	server := &Server{container: container, config: cfg, logger: logger}

	var store config.RateLimitStore

	if cfg.RateLimit.Enabled && cfg.RateLimit.Store == config.StoreRedis {
		server.redis, err = config.NewRedisClient(ctx, cfg.Redis)

		if err != nil {
			_ = container.DB.Close()
			return nil, err
		}

		store = config.NewRedisRateLimitStore(server.redis, logger.Zap())
	}

	router, err := routes.SetupRouter(routes.HandlersConfig{
		TodoHandler:   container.TodoHandler,
		HealthHandler: container.HealthHandler,
	}, cfg, metrics, logger, store)

	if err != nil {
		_ = server.close()
		return nil, err
	}

	server.srv = &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	return server, nil
}

// Run serves until ctx is cancelled, then drains in-flight requests for at
// most the configured shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Zap().Info("Server starting",
			zap.String("port", s.config.HTTP.Port),
			zap.String("environment", s.config.Environment),
			zap.String("database", s.config.Database.Driver),
			zap.Bool("rate_limit_enabled", s.config.RateLimit.Enabled),
			zap.Bool("https_enforced", s.config.HTTP.EnforceHTTPS))

		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	select {
	case err := <-errCh:
		_ = s.close()
		return err
	case <-ctx.Done():
	}

	s.logger.Zap().Info("Shutting down gracefully...")

	timeout := s.config.HTTP.ShutdownTimeout
	if timeout <= 0 {
		timeout = shutdownGrace
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := s.srv.Shutdown(shutdownCtx)

	return errors.Join(err, s.close())
}

func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

func (s *Server) close() error {
	var errs []error

	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}

	errs = append(errs, s.container.DB.Close())

	return errors.Join(errs...)
}
