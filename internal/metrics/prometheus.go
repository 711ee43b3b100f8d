// internal/metrics/prometheus.go
package metrics

import (
    "context"
    "time"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promauto"

    "beacon/internal/database"
)

// Prometheus metrics
var (
    ProbeDuration = promauto.NewHistogramVec(
        prometheus.HistogramOpts{
            Name:    "beacon_probe_duration_seconds",
            Help:    "Time spent probing endpoints",
            Buckets: prometheus.DefBuckets,
        },
        []string{"endpoint", "status"},
    )

    ProbeTotal = promauto.NewCounterVec(
        prometheus.CounterOpts{
            Name: "beacon_probes_total",
            Help: "Total number of probes executed",
        },
        []string{"endpoint", "status"},
    )

    EndpointStatus = promauto.NewGaugeVec(
        prometheus.GaugeOpts{
            Name: "beacon_endpoint_status",
            Help: "Current status of endpoints (0=unknown, 1=online, 2=offline, 3=disabled)",
        },
        []string{"endpoint"},
    )

    BreakerPhase = promauto.NewGaugeVec(
        prometheus.GaugeOpts{
            Name: "beacon_breaker_phase",
            Help: "Circuit breaker phase per endpoint (0=closed, 1=open, 2=half-open)",
        },
        []string{"endpoint"},
    )

    AlertDeliveries = promauto.NewCounterVec(
        prometheus.CounterOpts{
            Name: "beacon_alert_deliveries_total",
            Help: "Alert delivery attempts by channel and outcome",
        },
        []string{"channel", "outcome"},
    )

    ActiveEndpoints = promauto.NewGauge(
        prometheus.GaugeOpts{
            Name: "beacon_active_endpoints_total",
            Help: "Number of enabled endpoints being monitored",
        },
    )

    RateLimitedRequests = promauto.NewCounter(
        prometheus.CounterOpts{
            Name: "beacon_rate_limited_requests_total",
            Help: "API requests rejected by the rate limiter",
        },
    )

    WebSocketConnections = promauto.NewGauge(
        prometheus.GaugeOpts{
            Name: "beacon_websocket_connections_active",
            Help: "Number of active WebSocket connections",
        },
    )
)

type Collector struct {
    store database.Store
}

func NewCollector(store database.Store) *Collector {
    return &Collector{store: store}
}

func (c *Collector) RecordProbe(endpoint, status string, duration time.Duration) {
    ProbeDuration.WithLabelValues(endpoint, status).Observe(duration.Seconds())
    ProbeTotal.WithLabelValues(endpoint, status).Inc()
}

func (c *Collector) UpdateEndpointStatus(endpoint, status string) {
    EndpointStatus.WithLabelValues(endpoint).Set(float64(statusValue(status)))
}

func (c *Collector) UpdateBreakerPhase(endpoint, phase string) {
    BreakerPhase.WithLabelValues(endpoint).Set(float64(phaseValue(phase)))
}

func (c *Collector) RecordAlertDelivery(channel string, success bool) {
    outcome := "failure"
    if success {
        outcome = "success"
    }
    AlertDeliveries.WithLabelValues(channel, outcome).Inc()
}

func (c *Collector) RecordRateLimited() {
    RateLimitedRequests.Inc()
}

func (c *Collector) RecordWebSocketConnection(delta int) {
    WebSocketConnections.Add(float64(delta))
}

func (c *Collector) UpdateSystemMetrics(ctx context.Context) error {
    endpoints, err := c.store.GetEndpoints(ctx, database.EndpointFilters{})
    if err != nil {
        return err
    }

    enabled := 0
    for _, ep := range endpoints {
        if ep.Enabled {
            enabled++
        }
        c.UpdateEndpointStatus(ep.Name, ep.Status)
    }
    ActiveEndpoints.Set(float64(enabled))

    return nil
}

func statusValue(status string) int {
    switch status {
    case database.StatusOnline:
        return 1
    case database.StatusOffline:
        return 2
    case database.StatusDisabled:
        return 3
    default:
        return 0
    }
}

func phaseValue(phase string) int {
    switch phase {
    case "open":
        return 1
    case "half-open":
        return 2
    default:
        return 0
    }
}
