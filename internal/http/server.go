package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/learninglab-backend/internal/config"
)

type Server struct {
	Engine *gin.Engine
	srv    *http.Server
	cfg    config.HTTPConfig
}

func NewServer(httpCfg config.HTTPConfig, cfg RouterConfig) *Server {
	if cfg.CORSOrigins == nil {
		cfg.CORSOrigins = httpCfg.CORSOrigins
	}
	if cfg.MaxRequestBytes == 0 {
		cfg.MaxRequestBytes = httpCfg.MaxRequestBytes
	}
	engine := NewRouter(cfg)
	return &Server{
		Engine: engine,
		cfg:    httpCfg,
		srv: &http.Server{
			Addr:              httpCfg.Addr,
			Handler:           engine,
			ReadHeaderTimeout: httpCfg.ReadHeaderTimeout.Duration,
			IdleTimeout:       httpCfg.IdleTimeout.Duration,
		},
	}
}

// Run blocks until ctx is cancelled or the listener fails, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout.Duration
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
