// Package web provides the HTTP status and remote-control server for the
// microwave daemon.
package web

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sweeney/microwave/internal/history"
	"github.com/sweeney/microwave/internal/logger"
	"github.com/sweeney/microwave/internal/oven"
	"github.com/sweeney/microwave/internal/panel"
	"github.com/sweeney/microwave/internal/status"
)

// Controller applies panel events and waits for the result. *oven.Oven
// satisfies it.
type Controller interface {
	Do(ctx context.Context, ev panel.Event) error
}

// HistoryLister lists recorded sessions. *history.Store satisfies it.
type HistoryLister interface {
	List(ctx context.Context, limit int) ([]history.Entry, error)
}

// Option configures a Server.
type Option func(*Server)

// WithHistory enables GET /api/history.
func WithHistory(h HistoryLister) Option {
	return func(s *Server) { s.history = h }
}

// WithMetrics serves h on GET /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Server) { s.log = logger.OrNop(l) }
}

// Server serves the status page, the JSON API and the live stream over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	oven       Controller
	history    HistoryLister
	metrics    http.Handler
	log        *logger.Logger
}

// New creates a Server that reads state from tracker and sends panel events
// to ctl.
func New(addr string, tracker *status.Tracker, ctl Controller, opts ...Option) *Server {
	s := &Server{tracker: tracker, oven: ctl, log: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.routes(),
	}
	return s
}

// Handler returns the router. Useful for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/", s.handleIndex)
	router.GET("/index.html", s.handleIndex)
	router.GET("/index.json", s.handleStatus)
	router.GET("/ws", s.handleStream)
	if s.metrics != nil {
		router.GET("/metrics", gin.WrapH(s.metrics))
	}

	api := router.Group("/api")
	{
		api.GET("/status", s.handleStatus)
		api.POST("/buttons/:name", s.handleButton)
		api.POST("/door/:action", s.handleDoor)
		api.GET("/history", s.handleHistory)
	}
	return router
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(c *gin.Context) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	renderHTML(c.Writer, s.tracker.Snapshot())
}

func (s *Server) handleStatus(c *gin.Context) {
	c.Data(http.StatusOK, "application/json", status.FormatJSON(s.tracker.Snapshot()))
}

func (s *Server) handleButton(c *gin.Context) {
	ev, err := oven.ParseButton(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, errorJSON{Error: err.Error()})
		return
	}
	s.apply(c, ev)
}

func (s *Server) handleDoor(c *gin.Context) {
	ev, err := oven.ParseDoor(c.Param("action"))
	if err != nil {
		c.JSON(http.StatusNotFound, errorJSON{Error: err.Error()})
		return
	}
	s.apply(c, ev)
}

// apply sends ev and answers with the resulting oven state.
func (s *Server) apply(c *gin.Context, ev panel.Event) {
	if err := s.oven.Do(c.Request.Context(), ev); err != nil {
		code := http.StatusConflict
		if errors.Is(err, oven.ErrStopped) {
			code = http.StatusServiceUnavailable
		}
		s.log.Warnw("remote event failed", "event", ev, "err", err)
		c.JSON(code, errorJSON{Error: err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/json", status.FormatOvenJSON(s.tracker.Snapshot()))
}

func (s *Server) handleHistory(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusNotFound, errorJSON{Error: "history disabled"})
		return
	}

	limit := history.DefaultLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, errorJSON{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}

	entries, err := s.history.List(c.Request.Context(), limit)
	if err != nil {
		s.log.Errorw("list history", "err", err)
		c.JSON(http.StatusInternalServerError, errorJSON{Error: "history unavailable"})
		return
	}
	c.JSON(http.StatusOK, FormatHistory(entries))
}
