// Package api serves the tracking control surface over HTTP, plus a
// websocket stream of recorded events.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mj1618/page-tracker/internal/model"
	"github.com/mj1618/page-tracker/internal/session"
	"go.uber.org/zap"
)

// Controller is the tracking control surface. *tracker.Tracker implements it.
type Controller interface {
	Session() *session.Session
	Events() []model.Event
	Bundle() (model.ExportBundle, error)
	GetTrackingSummary() (model.Summary, error)
	ExportTrackingData() (string, error)
	ClearTrackingData() int
	PauseTracking()
	ResumeTracking()
	Observe(fn func(model.Event)) (cancel func())
}

// Server wires a Controller to gin routes.
type Server struct {
	ctrl   Controller
	log    *zap.Logger
	hub    *Hub
	engine *gin.Engine
}

// New builds the router. Call Close to detach the event stream.
func New(ctrl Controller, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		ctrl: ctrl,
		log:  log,
		hub:  NewHub(log),
	}
	s.hub.attach(ctrl)

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log))
	r.GET("/healthz", s.health)
	r.GET("/summary", s.summary)
	r.GET("/events", s.events)
	r.GET("/events/stream", s.hub.Serve)
	r.GET("/export", s.bundle)
	r.POST("/export", s.export)
	r.POST("/pause", s.pause)
	r.POST("/resume", s.resume)
	r.POST("/clear", s.clear)
	s.engine = r
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Hub returns the event stream hub.
func (s *Server) Hub() *Hub { return s.hub }

// Close stops streaming and disconnects websocket clients.
func (s *Server) Close() { s.hub.Close() }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully. ready, if non-nil, receives the bound address.
func (s *Server) ListenAndServe(ctx context.Context, addr string, ready func(net.Addr)) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("control API listen on %s: %w", addr, err)
	}
	srv := &http.Server{Handler: s.engine, ReadHeaderTimeout: 10 * time.Second}
	if ready != nil {
		ready(ln.Addr())
	}
	s.log.Info("control API listening", zap.String("addr", ln.Addr().String()))

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		s.Close()
		return err
	case <-ctx.Done():
	}
	s.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("control API shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

type healthData struct {
	SessionID string `json:"sessionId"`
	Paused    bool   `json:"paused"`
	Events    int    `json:"events"`
	Clients   int    `json:"streamClients"`
}

func (s *Server) health(c *gin.Context) {
	sess := s.ctrl.Session()
	success(c, healthData{
		SessionID: sess.ID(),
		Paused:    sess.Paused(),
		Events:    sess.Len(),
		Clients:   s.hub.Len(),
	})
}

func (s *Server) summary(c *gin.Context) {
	sum, err := s.ctrl.GetTrackingSummary()
	if errors.Is(err, session.ErrNoData) {
		notFound(c, err.Error())
		return
	}
	if err != nil {
		internalError(c, err.Error())
		return
	}
	success(c, sum)
}

// events lists the log, optionally filtered by ?type= and ?after=<sequence>.
func (s *Server) events(c *gin.Context) {
	after := 0
	if v := c.Query("after"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			badRequest(c, "after must be a non-negative event number")
			return
		}
		after = n
	}
	kind := model.EventType(c.Query("type"))
	out := []model.Event{}
	for _, ev := range s.ctrl.Events() {
		if ev.Sequence <= after || (kind != "" && ev.Type != kind) {
			continue
		}
		out = append(out, ev)
	}
	success(c, out)
}

// bundle returns the export document itself as a download.
func (s *Server) bundle(c *gin.Context) {
	b, err := s.ctrl.Bundle()
	if errors.Is(err, session.ErrNoData) {
		notFound(c, err.Error())
		return
	}
	if err != nil {
		internalError(c, err.Error())
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", model.ExportFileName(b.SessionID, "json")))
	c.IndentedJSON(http.StatusOK, b)
}

func (s *Server) export(c *gin.Context) {
	path, err := s.ctrl.ExportTrackingData()
	if errors.Is(err, session.ErrNoData) {
		notFound(c, err.Error())
		return
	}
	if err != nil {
		internalError(c, err.Error())
		return
	}
	successWithMessage(c, "tracking data exported", gin.H{"path": path})
}

func (s *Server) pause(c *gin.Context) {
	s.ctrl.PauseTracking()
	successWithMessage(c, "tracking paused", gin.H{"paused": true})
}

func (s *Server) resume(c *gin.Context) {
	s.ctrl.ResumeTracking()
	successWithMessage(c, "tracking resumed", gin.H{"paused": false})
}

func (s *Server) clear(c *gin.Context) {
	n := s.ctrl.ClearTrackingData()
	successWithMessage(c, fmt.Sprintf("cleared %d tracked events", n), gin.H{"cleared": n})
}
