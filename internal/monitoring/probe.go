// internal/monitoring/probe.go - HTTP liveness probe
package monitoring

import (
    "context"
    "errors"
    "io"
    "net"
    "net/http"
    "time"

    "beacon/internal/database"
)

const probeUserAgent = "Beacon Uptime Monitor/1.0"

// Failure classifications for an offline probe result.
const (
    ReasonTimeout    = "timeout"
    ReasonConnection = "connection_error"
    ReasonHTTPStatus = "http_status"
)

// ProbeResult is the classified outcome of one liveness check. A failed
// probe is a value, never an error; callers handle online and offline
// uniformly.
type ProbeResult struct {
    Status         string
    ResponseTimeMS int64
    HTTPStatus     int
    Reason         string
    Error          string
    CheckedAt      time.Time
}

// Online reports whether the probe classified the endpoint as reachable.
func (r *ProbeResult) Online() bool {
    return r.Status == database.StatusOnline
}

// ResponseTime returns the measured response time, or nil when the probe
// failed before a response arrived.
func (r *ProbeResult) ResponseTime() *int64 {
    if r.Reason == ReasonTimeout || r.Reason == ReasonConnection {
        return nil
    }
    ms := r.ResponseTimeMS
    return &ms
}

// Prober performs bounded-timeout liveness checks against endpoint URLs.
type Prober struct {
    client *http.Client
}

func NewProber() *Prober {
    return &Prober{
        client: &http.Client{
            // Per-probe timeout comes from the endpoint via context
            Transport: &http.Transport{
                MaxIdleConns:        100,
                MaxIdleConnsPerHost: 2,
                IdleConnTimeout:     90 * time.Second,
                DisableKeepAlives:   false,
            },
        },
    }
}

// Probe issues one GET bounded by the endpoint's timeout and classifies the
// outcome. 2xx and 3xx count as online; anything else is offline with a
// timeout, connection, or HTTP status classification.
func (p *Prober) Probe(ctx context.Context, ep *database.Endpoint) *ProbeResult {
    start := time.Now()
    result := &ProbeResult{CheckedAt: start}

    ctx, cancel := context.WithTimeout(ctx, ep.Timeout())
    defer cancel()

    req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep.URL, nil)
    if err != nil {
        result.Status = database.StatusOffline
        result.Reason = ReasonConnection
        result.Error = err.Error()
        return result
    }
    req.Header.Set("User-Agent", probeUserAgent)
    req.Header.Set("Accept", "*/*")

    resp, err := p.client.Do(req)
    result.ResponseTimeMS = time.Since(start).Milliseconds()

    if err != nil {
        result.Status = database.StatusOffline
        result.Reason = classifyProbeError(err)
        result.Error = err.Error()
        return result
    }
    defer resp.Body.Close()

    // Drain a little so the connection can be reused; the body itself is
    // irrelevant to liveness.
    io.CopyN(io.Discard, resp.Body, 512)

    result.HTTPStatus = resp.StatusCode

    if resp.StatusCode >= 200 && resp.StatusCode < 400 {
        result.Status = database.StatusOnline
        return result
    }

    result.Status = database.StatusOffline
    result.Reason = ReasonHTTPStatus
    result.Error = "unexpected HTTP status " + resp.Status
    return result
}

func classifyProbeError(err error) string {
    if errors.Is(err, context.DeadlineExceeded) {
        return ReasonTimeout
    }
    var netErr net.Error
    if errors.As(err, &netErr) && netErr.Timeout() {
        return ReasonTimeout
    }
    return ReasonConnection
}
