// Package server exposes the ingestion and monitoring HTTP API.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Fadeefcom/Aggregator/ingest"
	"github.com/Fadeefcom/Aggregator/metrics"
	"github.com/Fadeefcom/Aggregator/shared"
	"github.com/Fadeefcom/Aggregator/status"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	// sourceOfflineThreshold is the heartbeat age past which a source is
	// reported offline.
	sourceOfflineThreshold = 30 * time.Second
	// shutdownTimeout bounds the http server shutdown.
	shutdownTimeout = 5 * time.Second
)

// ServerConfig represents the api server configuration.
type ServerConfig struct {
	// ListenAddr is the address the server listens on.
	ListenAddr string
	// Queue is the ingestion queue fed by the ingest endpoint.
	Queue *ingest.Queue
	// Tracker provides source statuses for the monitoring report.
	Tracker *status.Tracker
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Server serves the tick ingestion endpoint and the monitoring report.
type Server struct {
	cfg    *ServerConfig
	engine *gin.Engine
	httpd  *http.Server
}

// tickRequest is the wire form of a submitted tick.
type tickRequest struct {
	Symbol    string          `json:"symbol" binding:"required"`
	Price     decimal.Decimal `json:"price"`
	Volume    decimal.Decimal `json:"volume"`
	Timestamp time.Time       `json:"timestamp"`
	Source    string          `json:"source" binding:"required"`
}

// NewServer initializes a new api server.
func NewServer(cfg *ServerConfig) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	srv := &Server{
		cfg:    cfg,
		engine: engine,
		httpd: &http.Server{
			Addr:    cfg.ListenAddr,
			Handler: engine,
		},
	}

	engine.POST("/api/ticks", srv.handleIngest)
	engine.GET("/api/monitoring/report", srv.handleReport)
	engine.GET("/healthz", srv.handleHealth)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return srv
}

// handleIngest validates a submitted tick and enqueues it for processing. The
// response only reflects acceptance into the queue, persistence is
// asynchronous and batched.
func (s *Server) handleIngest(c *gin.Context) {
	var req tickRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "rejected", "error": err.Error()})
		return
	}

	symbol, err := shared.NewSymbol(req.Symbol)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "rejected", "error": err.Error()})
		return
	}

	timestamp := req.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	tick, err := shared.NewTick(symbol, req.Price, req.Volume, timestamp, req.Source)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "rejected", "error": err.Error()})
		return
	}

	err = s.cfg.Queue.Enqueue(c.Request.Context(), tick)
	switch {
	case errors.Is(err, ingest.ErrQueueClosed):
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "rejected", "error": "ingestion stopped"})
		return
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"status": "rejected", "error": err.Error()})
		return
	}

	metrics.TicksReceived.WithLabelValues(tick.Source).Inc()
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted", "id": tick.ID})
}

// handleReport reports per-source liveness and pipeline lag. A source is
// offline when its last heartbeat is older than the offline threshold.
func (s *Server) handleReport(c *gin.Context) {
	now := time.Now().UTC()
	statuses := s.cfg.Tracker.Snapshot()

	sources := make([]gin.H, 0, len(statuses))
	for idx := range statuses {
		stat := &statuses[idx]
		online := stat.IsOnline && now.Sub(stat.LastUpdate) <= sourceOfflineThreshold

		state := "offline"
		if online {
			state = "online"
		}

		sources = append(sources, gin.H{
			"sourceName":             stat.SourceName,
			"status":                 state,
			"lastSeen":               stat.LastUpdate,
			"totalTicks":             stat.TicksCount,
			"secondsSinceLastUpdate": now.Sub(stat.LastUpdate).Seconds(),
			"lastError":              stat.LastError,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"generatedAt": now,
		"queueDepth":  s.cfg.Queue.Len(),
		"sources":     sources,
	})
}

// handleHealth reports process liveness.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Run serves the api until the provided context is cancelled.
func (s *Server) Run(ctx context.Context) {
	go func() {
		err := s.httpd.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.cfg.Logger.Error().Msgf("serving api on %s: %v", s.cfg.ListenAddr, err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := s.httpd.Shutdown(shutdownCtx)
	if err != nil {
		s.cfg.Logger.Error().Msgf("shutting down api server: %v", err)
	}
}
