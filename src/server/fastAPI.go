package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"volume-screener/src/logger"
	"volume-screener/src/models"
	"volume-screener/src/utils"

	"github.com/gin-gonic/gin"
)

const (
	shutdownTimeout = 5 * time.Second
	historySize     = 48
)

// -----------------------------------------------------------------------------
// FastAPIServer
// -----------------------------------------------------------------------------

type FastAPIServer struct {
	Config *models.MConfig
	Logger *logger.Logger
	engine *gin.Engine
	http   *http.Server

	// WebSocket clients
	clients    map[*Client]struct{}
	broadcast  chan *models.MLatestData // Strongly typed and Buffered Queue
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once

	// Local cache
	latestState *models.MLatestData
	stateMutex  sync.RWMutex
	history     *utils.RingBuffer[models.MRunSummary]

	// trigger schedules an out-of-band screening; false means one is running
	trigger func() bool
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewFastAPIServer(cfg *models.MConfig, logger *logger.Logger) *FastAPIServer {
	// Set Gin mode
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &FastAPIServer{
		Config:  cfg,
		Logger:  logger,
		engine:  gin.New(),
		clients: make(map[*Client]struct{}),
		// Queue size of 256 absorbs bursts of runs
		broadcast:  make(chan *models.MLatestData, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		history:    utils.NewRingBuffer[models.MRunSummary](historySize),
		latestState: &models.MLatestData{
			Type:    "INITIAL",
			Results: []models.MScreeningResult{},
			Pairs:   []string{},
		},
	}
	s.engine.Use(gin.Recovery())

	// Add CORS Middleware
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// setup web routes
	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *FastAPIServer) setupRoutes() {
	// REST API endpoints
	s.engine.GET("/api/health", s.getHealth)
	s.engine.GET("/api/config", s.getConfig)
	s.engine.GET("/api/metrics", s.getMetrics)
	s.engine.GET("/api/results", s.getResults)
	s.engine.GET("/api/pairs", s.getPairs)
	s.engine.GET("/api/history", s.getHistory)
	s.engine.POST("/api/screen", s.postScreen)

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------

// Handler exposes the router, mainly for httptest.
func (s *FastAPIServer) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------

// SetTrigger installs the callback behind POST /api/screen.
func (s *FastAPIServer) SetTrigger(fn func() bool) {
	s.stateMutex.Lock()
	s.trigger = fn
	s.stateMutex.Unlock()
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// Start runs the hub and blocks serving HTTP until Stop is called.
func (s *FastAPIServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting server on %s", addr)

	go s.handleWebsockets()

	s.stateMutex.Lock()
	s.http = &http.Server{Addr: addr, Handler: s.engine, ReadHeaderTimeout: 10 * time.Second}
	srv := s.http
	s.stateMutex.Unlock()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		close(s.done)

		s.stateMutex.RLock()
		srv := s.http
		s.stateMutex.RUnlock()
		if srv == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err = srv.Shutdown(ctx)
	})
	return err
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *FastAPIServer) getMetrics(c *gin.Context) {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()

	c.JSON(http.StatusOK, s.latestState.Metrics)
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"screening":      s.Config.Screening,
		"refresh_period": s.Config.Output.RefreshPeriod,
		"cache_mode":     s.Config.Cache.Mode,
		"cache_ttl":      s.Config.Cache.TTLSeconds,
	})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getHealth(c *gin.Context) {
	s.stateMutex.RLock()
	connections := len(s.clients)
	timestamp := s.latestState.Timestamp
	s.stateMutex.RUnlock()

	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"connections":   connections,
		"latest_update": timestamp,
	})
}

// -----------------------------------------------------------------------------

// getResults returns the latest results, optionally filtered by ?symbols=A,B
// and truncated by ?limit=N.
func (s *FastAPIServer) getResults(c *gin.Context) {
	var symbols []string
	if raw := c.Query("symbols"); raw != "" {
		symbols = strings.Split(raw, ",")
	}

	limit, ok := queryLimit(c)
	if !ok {
		return
	}

	s.stateMutex.RLock()
	results := filterResults(s.latestState.Results, symbols)
	timestamp := s.latestState.Timestamp
	s.stateMutex.RUnlock()

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	c.JSON(http.StatusOK, gin.H{
		"timestamp": timestamp,
		"count":     len(results),
		"results":   results,
	})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getPairs(c *gin.Context) {
	s.stateMutex.RLock()
	pairs := s.latestState.Pairs
	s.stateMutex.RUnlock()

	c.JSON(http.StatusOK, models.MPairsOutput{
		Pairs:         pairs,
		RefreshPeriod: s.Config.Output.RefreshPeriod,
	})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) postScreen(c *gin.Context) {
	s.stateMutex.RLock()
	trigger := s.trigger
	s.stateMutex.RUnlock()

	if trigger == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	if !trigger() {
		c.JSON(http.StatusConflict, gin.H{"status": "busy"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "scheduled"})
}

// -----------------------------------------------------------------------------

// getHistory returns the most recent runs, oldest first.
func (s *FastAPIServer) getHistory(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	if limit == 0 {
		limit = s.history.Capacity()
	}

	runs := s.history.GetLatest(limit)
	c.JSON(http.StatusOK, gin.H{
		"count": len(runs),
		"runs":  runs,
	})
}

// -----------------------------------------------------------------------------

// queryLimit parses ?limit=N. On a bad value it writes 400 and returns false.
func queryLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
		return 0, false
	}
	return n, true
}
