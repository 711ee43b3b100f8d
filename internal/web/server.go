// internal/web/server.go
package web

import (
    "context"
    "net/http"
    "sync"
    "time"

    "github.com/gin-gonic/gin"
    "github.com/prometheus/client_golang/prometheus/promhttp"
    "github.com/sirupsen/logrus"

    "beacon/internal/config"
    "beacon/internal/database"
    "beacon/internal/metrics"
    "beacon/internal/monitoring"
    "beacon/internal/ratelimit"
)

type Server struct {
    config    *config.Config
    store     database.Store
    engine    *monitoring.Engine
    metrics   *metrics.Collector
    limiter   *ratelimit.Limiter
    router    *gin.Engine
    wsClients map[*WSClient]bool
    wsMu      sync.Mutex
    server    *http.Server
}

func NewServer(cfg *config.Config, store database.Store, engine *monitoring.Engine, metricsCollector *metrics.Collector) *Server {
    if cfg.Logging.Level != "debug" {
        gin.SetMode(gin.ReleaseMode)
    }

    router := gin.New()
    router.Use(gin.Logger())
    router.Use(gin.Recovery())
    router.Use(corsMiddleware())

    server := &Server{
        config:    cfg,
        store:     store,
        engine:    engine,
        metrics:   metricsCollector,
        limiter:   ratelimit.NewLimiter(cfg.RateLimit.Window, cfg.RateLimit.MaxRequests),
        router:    router,
        wsClients: make(map[*WSClient]bool),
    }

    // Feed committed transitions to connected dashboard clients
    engine.SetTransitionFunc(server.broadcastTransition)

    server.setupRoutes()
    return server
}

func (s *Server) Start(ctx context.Context) error {
    s.server = &http.Server{
        Addr:         s.config.Server.Port,
        Handler:      s.router,
        ReadTimeout:  s.config.Server.ReadTimeout,
        WriteTimeout: s.config.Server.WriteTimeout,
    }

    logrus.WithField("port", s.config.Server.Port).Info("Starting web server")

    // Start metrics update routine
    go s.updateMetricsRoutine(ctx)

    go func() {
        if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
            logrus.WithError(err).Fatal("Failed to start server")
        }
    }()

    return nil
}

func (s *Server) Stop(ctx context.Context) error {
    if s.server != nil {
        return s.server.Shutdown(ctx)
    }
    return nil
}

func (s *Server) setupRoutes() {
    s.router.GET("/", s.serviceInfo)
    s.router.GET("/healthz", s.healthCheck)

    api := s.router.Group("/api")
    if s.config.RateLimit.Enabled {
        api.Use(s.rateLimitMiddleware())
    }
    {
        api.GET("/endpoints", s.getEndpoints)
        api.GET("/endpoints/:id", s.getEndpoint)
        api.POST("/endpoints", s.createEndpoint)
        api.PUT("/endpoints/:id", s.updateEndpoint)
        api.DELETE("/endpoints/:id", s.deleteEndpoint)

        api.GET("/endpoints/:id/log", s.getEndpointStatusLog)
        api.GET("/endpoints/:id/breaker", s.getEndpointBreaker)
        api.GET("/endpoints/:id/alerts", s.getEndpointAlertConfigs)

        api.GET("/alerts/:id", s.getAlertConfig)
        api.POST("/alerts", s.createAlertConfig)
        api.PUT("/alerts/:id", s.updateAlertConfig)
        api.DELETE("/alerts/:id", s.deleteAlertConfig)

        api.GET("/log", s.getStatusLog)
        api.GET("/stats", s.getStats)

        // Manual triggers share the timer's code path
        api.POST("/monitor/run", s.runHealthCheck)
        api.POST("/monitor/heal", s.runSelfHeal)
    }

    // WebSocket endpoint
    s.router.GET("/ws", s.handleWebSocket)

    // Prometheus metrics
    if s.config.Prometheus.Enabled {
        s.router.GET(s.config.Prometheus.MetricsPath, gin.WrapH(promhttp.Handler()))
    }
}

func (s *Server) updateMetricsRoutine(ctx context.Context) {
    ticker := time.NewTicker(30 * time.Second)
    defer ticker.Stop()

    for {
        select {
        case <-ctx.Done():
            return
        case <-ticker.C:
            if err := s.metrics.UpdateSystemMetrics(ctx); err != nil {
                logrus.WithError(err).Warn("Failed to update system metrics")
            }
        }
    }
}
