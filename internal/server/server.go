// Package server exposes the cached snapshot over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/captainnews-gr/captainnews-harvester/internal/logger"
	"github.com/captainnews-gr/captainnews-harvester/internal/newscache"
)

// NewsPath is the route serving the aggregated snapshot.
const NewsPath = "/news.json"

// Snapshotter returns the current serialized snapshot.
type Snapshotter interface {
	Latest(ctx context.Context) ([]byte, error)
}

// Server is the read endpoint.
type Server struct {
	echo *echo.Echo
	addr string
	news Snapshotter
	log  logger.Logger
}

// New builds the router. metrics may be nil.
func New(addr string, news Snapshotter, metrics http.Handler, log logger.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{echo: e, addr: addr, news: news, log: logger.Ensure(log)}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path != NewsPath
		},
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			entry := map[string]any{
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency_ms": v.Latency.Milliseconds(),
			}
			if v.Error != nil {
				entry["error"] = v.Error.Error()
				s.log.WarnObj("request failed", "request", entry)
				return nil
			}
			s.log.DebugObj("request completed", "request", entry)
			return nil
		},
	}))

	e.GET(NewsPath, s.handleNews)
	e.GET("/healthz", s.handleHealth)
	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(metrics))
	}
	return s
}

// Handler returns the underlying http.Handler.
func (s *Server) Handler() http.Handler { return s.echo }

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.InfoObj("http server listening", "addr", s.addr)
		if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleNews(c echo.Context) error {
	payload, err := s.news.Latest(c.Request().Context())
	if err != nil && !(errors.Is(err, newscache.ErrCacheWrite) && len(payload) > 0) {
		if errors.Is(err, context.Canceled) {
			return c.NoContent(http.StatusServiceUnavailable)
		}
		s.log.ErrorObj("snapshot unavailable", "error", err)
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"error": "news temporarily unavailable",
		})
	}

	c.Response().Header().Set("Cache-Control", "public, max-age=60")
	return c.JSONBlob(http.StatusOK, payload)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
