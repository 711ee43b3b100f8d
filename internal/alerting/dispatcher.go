// internal/alerting/dispatcher.go - Multi-channel alert escalation
package alerting

import (
    "bytes"
    "context"
    "encoding/json"
    "fmt"
    "io"
    "net/http"
    "sync"
    "time"

    "github.com/sirupsen/logrus"

    "beacon/internal/config"
    "beacon/internal/database"
)

const webhookUserAgent = "Beacon Uptime Monitor/1.0 (alerts)"

// DeliveryResult reports the outcome of one channel's delivery, including
// how many attempts it took. One channel exhausting its retries never
// affects sibling channels.
type DeliveryResult struct {
    ConfigID string `json:"config_id"`
    Channel  string `json:"channel"`
    Success  bool   `json:"success"`
    Attempts int    `json:"attempts"`
    Error    string `json:"error,omitempty"`
}

// ConfigSource yields the enabled alert configs for an endpoint.
type ConfigSource interface {
    SelectEnabledAlertConfigs(ctx context.Context, endpointID string) ([]database.AlertConfig, error)
}

// Dispatcher delivers a notification to every enabled alert config of an
// endpoint when its status transitions.
type Dispatcher struct {
    store        ConfigSource
    client       *http.Client
    mailer       Mailer
    policy       RetryPolicy
    appName      string
    dashboardURL string
}

func NewDispatcher(store ConfigSource, cfg config.AlertingConfig) *Dispatcher {
    d := &Dispatcher{
        store: store,
        client: &http.Client{
            Timeout: cfg.SendTimeout,
        },
        policy: RetryPolicy{
            MaxAttempts: cfg.MaxAttempts,
            BaseDelay:   cfg.BaseDelay,
            Multiplier:  2,
            MaxDelay:    cfg.MaxDelay,
        },
        appName:      cfg.AppName,
        dashboardURL: cfg.DashboardURL,
    }

    if cfg.SMTP.Enabled {
        d.mailer = NewSMTPMailer(cfg.SMTP)
    }

    return d
}

// SetMailer replaces the SMTP mailer, used by tests.
func (d *Dispatcher) SetMailer(m Mailer) {
    d.mailer = m
}

// Dispatch loads the endpoint's enabled alert configs and delivers one
// notification per channel. Channels run concurrently; retries within a
// channel are strictly sequential. It returns one result per config and
// errors only for invalid input (an unknown channel type), never for
// partial delivery failure.
func (d *Dispatcher) Dispatch(ctx context.Context, ep *database.Endpoint, oldStatus, newStatus string) ([]DeliveryResult, error) {
    configs, err := d.store.SelectEnabledAlertConfigs(ctx, ep.ID)
    if err != nil {
        return nil, fmt.Errorf("failed to load alert configs: %w", err)
    }
    if len(configs) == 0 {
        return nil, nil
    }

    for _, cfg := range configs {
        if !database.ValidChannel(cfg.Channel) {
            return nil, fmt.Errorf("unknown channel type: %s", cfg.Channel)
        }
    }

    alert := Alert{
        App:          d.appName,
        EndpointName: ep.Name,
        URL:          ep.URL,
        OldStatus:    oldStatus,
        NewStatus:    newStatus,
        Severity:     SeverityFor(oldStatus, newStatus),
        Timestamp:    time.Now(),
        DashboardURL: d.dashboardURL,
    }

    results := make([]DeliveryResult, len(configs))
    var wg sync.WaitGroup

    for i, cfg := range configs {
        wg.Add(1)
        go func(i int, cfg database.AlertConfig) {
            defer wg.Done()
            results[i] = d.deliver(ctx, cfg, alert)
        }(i, cfg)
    }
    wg.Wait()

    for _, res := range results {
        fields := logrus.Fields{
            "endpoint": ep.Name,
            "channel":  res.Channel,
            "severity": alert.Severity,
            "attempts": res.Attempts,
        }
        if res.Success {
            logrus.WithFields(fields).Info("Alert delivered")
        } else {
            logrus.WithFields(fields).WithField("error", res.Error).Warn("Alert delivery failed")
        }
    }

    return results, nil
}

// deliver runs one channel's delivery with sequential retries.
func (d *Dispatcher) deliver(ctx context.Context, cfg database.AlertConfig, alert Alert) DeliveryResult {
    result := DeliveryResult{ConfigID: cfg.ID, Channel: cfg.Channel}

    var send func(context.Context) error
    if cfg.Channel == database.ChannelEmail {
        send = func(ctx context.Context) error {
            return d.sendEmail(cfg.Destination, alert)
        }
    } else {
        formatter, err := FormatterFor(cfg.Channel, cfg.Destination)
        if err != nil {
            result.Error = err.Error()
            return result
        }
        payload, err := json.Marshal(formatter(alert))
        if err != nil {
            result.Error = err.Error()
            return result
        }
        send = func(ctx context.Context) error {
            return d.postJSON(ctx, cfg.Destination, payload)
        }
    }

    attempts, err := d.policy.Do(ctx, send)
    result.Attempts = attempts
    if err != nil {
        result.Error = err.Error()
        return result
    }
    result.Success = true
    return result
}

func (d *Dispatcher) sendEmail(to string, alert Alert) error {
    if d.mailer == nil {
        return fmt.Errorf("email channel is not configured")
    }
    return d.mailer.SendMail(to, emailSubject(alert), emailBody(alert))
}

func (d *Dispatcher) postJSON(ctx context.Context, url string, payload []byte) error {
    req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
    if err != nil {
        return fmt.Errorf("failed to create request: %w", err)
    }
    req.Header.Set("Content-Type", "application/json")
    req.Header.Set("User-Agent", webhookUserAgent)

    resp, err := d.client.Do(req)
    if err != nil {
        return fmt.Errorf("failed to send request: %w", err)
    }
    defer resp.Body.Close()
    io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

    if resp.StatusCode < 200 || resp.StatusCode >= 300 {
        return fmt.Errorf("webhook returned status %d", resp.StatusCode)
    }
    return nil
}
