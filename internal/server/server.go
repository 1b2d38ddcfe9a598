// Package server exposes the connector registry over HTTP.
package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/omniverse/omnimarket/internal/connector"
	"github.com/omniverse/omnimarket/internal/envelope"
	"github.com/omniverse/omnimarket/internal/metrics"
)

type Server struct {
	log      *zap.Logger
	registry *connector.Registry
	timeout  time.Duration
}

// New builds the server. requestTimeout bounds every request's context so
// upstream retries cannot outlive the caller's budget; zero disables it.
func New(log *zap.Logger, registry *connector.Registry, requestTimeout time.Duration) *Server {
	return &Server{
		log:      log.With(zap.String("component", "server")),
		registry: registry,
		timeout:  requestTimeout,
	}
}

// Router assembles the gin engine: logging, recovery, CORS, metrics and the
// versioned API routes.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(ginzap.Ginzap(s.log, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(s.log, true))
	router.Use(cors.Default())
	router.Use(metricsMiddleware())
	if s.timeout > 0 {
		router.Use(timeoutMiddleware(s.timeout))
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, envelope.Failure(envelope.CodeNotFound, "no such route", meta(nil)))
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	{
		api.GET("/health", s.handleHealth)
		api.GET("/markets", s.handleListMarkets)
		api.GET("/markets/:id", s.handleGetMarket)
		api.GET("/markets/:id/price", s.handleGetPrice)
		api.GET("/markets/:id/timeseries", s.handleGetTimeseries)
		api.GET("/markets/:id/orderbook", s.handleGetOrderbook)
		api.GET("/markets/:id/events", s.handleGetEvents)
		api.POST("/ingest/:provider/sync", s.handleSync)
	}
	return router
}

// metricsMiddleware records request durations per route and status.
func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := strconv.Itoa(c.Writer.Status())
		metrics.HTTPRequestDuration.WithLabelValues(route, status).Observe(time.Since(start).Seconds())
	}
}

func timeoutMiddleware(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
