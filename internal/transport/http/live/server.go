// Package livehttp exposes the read-only engine API: positions, performance
// buckets, the decision journal and basic health.
package livehttp

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"empire/internal/logger"
	"empire/internal/orchestrator"
	"empire/internal/performance"
	"empire/internal/position"
	"empire/internal/store"
)

// Deps are the read-only views the API serves from.
type Deps struct {
	Registry *position.Registry
	Tracker  *performance.Tracker
	Store    store.Store
	Stats    *orchestrator.Stats
}

type Server struct {
	addr   string
	router *gin.Engine
	deps   Deps
}

func NewServer(addr string, deps Deps) *Server {
	if addr == "" {
		addr = ":9991"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	s := &Server{addr: addr, router: router, deps: deps}
	s.register()
	return s
}

func (s *Server) register() {
	s.router.GET("/healthz", s.handleHealth)
	api := s.router.Group("/api")
	api.GET("/positions", s.handlePositions)
	api.GET("/performance", s.handlePerformance)
	api.GET("/decisions", s.handleDecisions)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"equity": s.deps.Stats.Equity(),
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handlePositions(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Registry.ActivePositions())
}

func (s *Server) handlePerformance(c *gin.Context) {
	snapshot := s.deps.Tracker.Snapshot()
	out := make([]gin.H, 0, len(snapshot))
	for key, b := range snapshot {
		out = append(out, gin.H{
			"symbol":      key.Symbol,
			"agent":       key.Agent,
			"timeframe":   key.Timeframe,
			"regime":      key.Regime,
			"count":       b.Count,
			"weight":      b.Weight,
			"win_rate":    b.WinRate,
			"outcome_ema": b.OutcomeEMA,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleDecisions(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	records, err := s.deps.Store.RecentDecisions(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, records)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		c.Next()
		logger.Debugf("HTTP %s %s status=%d dur=%s", method, path, c.Writer.Status(), time.Since(start))
	}
}

// Start serves until ctx cancels, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	logger.Infof("http api listening on %s", s.addr)

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shCtx)
	case err := <-errCh:
		return err
	}
}
