// internal/web/handlers.go - Control-plane CRUD and manual triggers
package web

import (
    "errors"
    "net/http"
    "net/mail"
    "net/url"
    "strconv"
    "time"

    "github.com/gin-gonic/gin"
    "github.com/sirupsen/logrus"

    "beacon/internal/database"
)

type EndpointRequest struct {
    Name            string `json:"name" binding:"required"`
    URL             string `json:"url" binding:"required"`
    TimeoutMS       int    `json:"timeout_ms"`
    IntervalSeconds int    `json:"interval_seconds"`
    Enabled         *bool  `json:"enabled"`
    AlertsEnabled   *bool  `json:"alerts_enabled"`
}

type AlertConfigRequest struct {
    EndpointID  string `json:"endpoint_id" binding:"required"`
    Channel     string `json:"channel" binding:"required"`
    Destination string `json:"destination" binding:"required"`
    Enabled     *bool  `json:"enabled"`
}

func (s *Server) serviceInfo(c *gin.Context) {
    c.JSON(http.StatusOK, gin.H{
        "service": "beacon",
        "status":  "ok",
    })
}

func (s *Server) healthCheck(c *gin.Context) {
    if _, err := s.store.GetDatabaseStats(c.Request.Context()); err != nil {
        c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
        return
    }
    c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
}

func (s *Server) getEndpoints(c *gin.Context) {
    filters := database.EndpointFilters{
        Status: c.Query("status"),
    }
    if v := c.Query("enabled"); v != "" {
        enabled := v == "true"
        filters.Enabled = &enabled
    }

    endpoints, err := s.store.GetEndpoints(c.Request.Context(), filters)
    if err != nil {
        c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
        return
    }
    if endpoints == nil {
        endpoints = []database.Endpoint{}
    }
    c.JSON(http.StatusOK, endpoints)
}

func (s *Server) getEndpoint(c *gin.Context) {
    ep, err := s.store.GetEndpoint(c.Request.Context(), c.Param("id"))
    if err != nil {
        s.notFoundOrError(c, err)
        return
    }
    c.JSON(http.StatusOK, ep)
}

func (s *Server) createEndpoint(c *gin.Context) {
    var req EndpointRequest
    if err := c.ShouldBindJSON(&req); err != nil {
        c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
        return
    }

    if _, err := url.ParseRequestURI(req.URL); err != nil {
        c.JSON(http.StatusBadRequest, gin.H{"error": "invalid endpoint URL"})
        return
    }

    ep := &database.Endpoint{
        Name:            req.Name,
        URL:             req.URL,
        TimeoutMS:       req.TimeoutMS,
        IntervalSeconds: req.IntervalSeconds,
        Status:          database.StatusUnknown,
        Enabled:         true,
        AlertsEnabled:   true,
    }
    if ep.TimeoutMS <= 0 {
        ep.TimeoutMS = 5000
    }
    if ep.IntervalSeconds <= 0 {
        ep.IntervalSeconds = 300
    }
    if req.Enabled != nil {
        ep.Enabled = *req.Enabled
    }
    if req.AlertsEnabled != nil {
        ep.AlertsEnabled = *req.AlertsEnabled
    }

    if err := s.store.CreateEndpoint(c.Request.Context(), ep); err != nil {
        c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
        return
    }

    logrus.WithFields(logrus.Fields{"endpoint": ep.Name, "url": ep.URL}).Info("Created endpoint")
    c.JSON(http.StatusCreated, ep)
}

func (s *Server) updateEndpoint(c *gin.Context) {
    ep, err := s.store.GetEndpoint(c.Request.Context(), c.Param("id"))
    if err != nil {
        s.notFoundOrError(c, err)
        return
    }

    var req EndpointRequest
    if err := c.ShouldBindJSON(&req); err != nil {
        c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
        return
    }

    if _, err := url.ParseRequestURI(req.URL); err != nil {
        c.JSON(http.StatusBadRequest, gin.H{"error": "invalid endpoint URL"})
        return
    }

    ep.Name = req.Name
    ep.URL = req.URL
    if req.TimeoutMS > 0 {
        ep.TimeoutMS = req.TimeoutMS
    }
    if req.IntervalSeconds > 0 {
        ep.IntervalSeconds = req.IntervalSeconds
    }
    if req.Enabled != nil {
        ep.Enabled = *req.Enabled
    }
    if req.AlertsEnabled != nil {
        ep.AlertsEnabled = *req.AlertsEnabled
    }

    if err := s.store.UpdateEndpoint(c.Request.Context(), ep); err != nil {
        c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusOK, ep)
}

func (s *Server) deleteEndpoint(c *gin.Context) {
    id := c.Param("id")
    if err := s.store.DeleteEndpoint(c.Request.Context(), id); err != nil {
        c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
        return
    }
    s.engine.ForgetEndpoint(id)
    c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func (s *Server) getEndpointStatusLog(c *gin.Context) {
    filters := database.StatusLogFilters{
        EndpointID: c.Param("id"),
        Status:     c.Query("status"),
        Limit:      100,
    }
    if v := c.Query("limit"); v != "" {
        if n, err := strconv.Atoi(v); err == nil && n > 0 {
            filters.Limit = n
        }
    }

    entries, err := s.store.GetStatusLog(c.Request.Context(), filters)
    if err != nil {
        c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
        return
    }
    if entries == nil {
        entries = []database.StatusLogEntry{}
    }
    c.JSON(http.StatusOK, entries)
}

func (s *Server) getEndpointBreaker(c *gin.Context) {
    if _, err := s.store.GetEndpoint(c.Request.Context(), c.Param("id")); err != nil {
        s.notFoundOrError(c, err)
        return
    }
    c.JSON(http.StatusOK, s.engine.BreakerSnapshot(c.Param("id")))
}

func (s *Server) getEndpointAlertConfigs(c *gin.Context) {
    configs, err := s.store.GetAlertConfigs(c.Request.Context(), c.Param("id"))
    if err != nil {
        c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
        return
    }
    if configs == nil {
        configs = []database.AlertConfig{}
    }
    c.JSON(http.StatusOK, configs)
}

func (s *Server) getAlertConfig(c *gin.Context) {
    cfg, err := s.store.GetAlertConfig(c.Request.Context(), c.Param("id"))
    if err != nil {
        s.notFoundOrError(c, err)
        return
    }
    c.JSON(http.StatusOK, cfg)
}

func (s *Server) createAlertConfig(c *gin.Context) {
    var req AlertConfigRequest
    if err := c.ShouldBindJSON(&req); err != nil {
        c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
        return
    }

    // Channel and destination are rejected here so the dispatcher can
    // assume every stored config is valid.
    if err := validateAlertConfig(req.Channel, req.Destination); err != nil {
        c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
        return
    }

    if _, err := s.store.GetEndpoint(c.Request.Context(), req.EndpointID); err != nil {
        s.notFoundOrError(c, err)
        return
    }

    cfg := &database.AlertConfig{
        EndpointID:  req.EndpointID,
        Channel:     req.Channel,
        Destination: req.Destination,
        Enabled:     true,
    }
    if req.Enabled != nil {
        cfg.Enabled = *req.Enabled
    }

    if err := s.store.CreateAlertConfig(c.Request.Context(), cfg); err != nil {
        c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusCreated, cfg)
}

func (s *Server) updateAlertConfig(c *gin.Context) {
    cfg, err := s.store.GetAlertConfig(c.Request.Context(), c.Param("id"))
    if err != nil {
        s.notFoundOrError(c, err)
        return
    }

    var req AlertConfigRequest
    if err := c.ShouldBindJSON(&req); err != nil {
        c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
        return
    }
    if err := validateAlertConfig(req.Channel, req.Destination); err != nil {
        c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
        return
    }

    cfg.Channel = req.Channel
    cfg.Destination = req.Destination
    if req.Enabled != nil {
        cfg.Enabled = *req.Enabled
    }

    if err := s.store.UpdateAlertConfig(c.Request.Context(), cfg); err != nil {
        c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusOK, cfg)
}

func (s *Server) deleteAlertConfig(c *gin.Context) {
    if err := s.store.DeleteAlertConfig(c.Request.Context(), c.Param("id")); err != nil {
        c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusOK, gin.H{"deleted": c.Param("id")})
}

func (s *Server) getStatusLog(c *gin.Context) {
    filters := database.StatusLogFilters{
        EndpointID: c.Query("endpoint_id"),
        Status:     c.Query("status"),
        Limit:      100,
    }
    if v := c.Query("limit"); v != "" {
        if n, err := strconv.Atoi(v); err == nil && n > 0 {
            filters.Limit = n
        }
    }
    if v := c.Query("since"); v != "" {
        since, err := time.Parse(time.RFC3339, v)
        if err != nil {
            c.JSON(http.StatusBadRequest, gin.H{"error": "since must be RFC3339"})
            return
        }
        filters.Since = &since
    }

    entries, err := s.store.GetStatusLog(c.Request.Context(), filters)
    if err != nil {
        c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
        return
    }
    if entries == nil {
        entries = []database.StatusLogEntry{}
    }
    c.JSON(http.StatusOK, entries)
}

func (s *Server) getStats(c *gin.Context) {
    stats, err := s.store.GetDatabaseStats(c.Request.Context())
    if err != nil {
        c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusOK, stats)
}

func (s *Server) runHealthCheck(c *gin.Context) {
    summary, err := s.engine.RunHealthCheck(c.Request.Context())
    if err != nil {
        c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusOK, summary)
}

func (s *Server) runSelfHeal(c *gin.Context) {
    summary, err := s.engine.RunSelfHeal(c.Request.Context())
    if err != nil {
        c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusOK, summary)
}

func (s *Server) notFoundOrError(c *gin.Context, err error) {
    if errors.Is(err, database.ErrNotFound) {
        c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
        return
    }
    c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func validateAlertConfig(channel, destination string) error {
    if !database.ValidChannel(channel) {
        return errors.New("unknown channel type: " + channel)
    }
    if channel == database.ChannelEmail {
        if _, err := mail.ParseAddress(destination); err != nil {
            return errors.New("invalid email destination")
        }
        return nil
    }
    u, err := url.ParseRequestURI(destination)
    if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
        return errors.New("destination must be an http(s) URL")
    }
    return nil
}
