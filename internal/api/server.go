package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"xhscrawler/pkg/config"
	"xhscrawler/pkg/logger"
)

const defaultShutdownTimeout = 5 * time.Second

// Server serves the crawl and detail endpoints
type Server struct {
	cfg        config.ServerConfig
	spider     Spider
	downloader Downloader
	logger     logger.Logger
	engine     *gin.Engine
	http       *http.Server
}

// New builds the engine. spider or downloader may be nil when the module
// is switched off; their routes then answer with a disabled error.
func New(cfg config.ServerConfig, sp Spider, dl Downloader, log logger.Logger) *Server {
	if log == nil {
		log = logger.GetLogger()
	}
	switch cfg.Mode {
	case gin.DebugMode, gin.TestMode, gin.ReleaseMode:
		gin.SetMode(cfg.Mode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{cfg: cfg, spider: sp, downloader: dl, logger: log}
	s.engine = s.routes()
	s.http = &http.Server{
		Addr:              cfg.Address,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(requestID(), recovery(s.logger), accessLog(s.logger))

	r.GET("/health", s.health)

	g := r.Group("/spider-xhs")
	{
		g.POST("/notes:batch", s.wrap(s.notesBatch))
		g.POST("/user-notes", s.wrap(s.userNotes))
		g.POST("/search", s.wrap(s.search))
		g.POST("/users:batch", s.wrap(s.usersBatch))
		g.POST("/comments", s.wrap(s.comments))
	}
	r.POST("/xhs-downloader/detail", s.wrap(s.detail))

	r.NoRoute(func(c *gin.Context) {
		fail(c, http.StatusNotFound, "route not found")
	})
	return r
}

// Handler exposes the engine, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then drains in-flight requests for
// at most shutdown_timeout
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.InfoWithFields("http server listening", map[string]interface{}{"address": s.http.Addr})
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return errors.Wrap(err, "http server failed")
		}
		return nil
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info("shutting down http server")
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "graceful shutdown timed out")
	}
	s.logger.Info("http server stopped")
	return nil
}
