// internal/database/models.go
package database

import (
    "time"
)

// Endpoint status values as stored in the database.
const (
    StatusUnknown  = "unknown"
    StatusOnline   = "online"
    StatusOffline  = "offline"
    StatusDisabled = "disabled"
)

// Alert channel types.
const (
    ChannelEmail   = "email"
    ChannelWebhook = "webhook"
    ChannelSlack   = "slack"
    ChannelDiscord = "discord"
    ChannelMSTeams = "msteams"
)

// Endpoint is a monitored target. Mutated only by the monitoring engine
// after a probe; created and deleted through the control-plane API.
type Endpoint struct {
    ID                 string     `json:"id"`
    Name               string     `json:"name"`
    URL                string     `json:"url"`
    TimeoutMS          int        `json:"timeout_ms"`
    IntervalSeconds    int        `json:"interval_seconds"`
    Status             string     `json:"status"`
    Enabled            bool       `json:"enabled"`
    AlertsEnabled      bool       `json:"alerts_enabled"`
    LastCheckedAt      *time.Time `json:"last_checked_at"`
    LastResponseTimeMS *int64     `json:"last_response_time_ms"`
    UptimePercent      float64    `json:"uptime_percent"`
    CreatedAt          time.Time  `json:"created_at"`
    UpdatedAt          time.Time  `json:"updated_at"`
}

// Timeout returns the probe timeout as a duration.
func (e *Endpoint) Timeout() time.Duration {
    return time.Duration(e.TimeoutMS) * time.Millisecond
}

// Interval returns the check interval as a duration.
func (e *Endpoint) Interval() time.Duration {
    return time.Duration(e.IntervalSeconds) * time.Second
}

// StatusLogEntry is an append-only record of one probe outcome.
// ResponseTimeMS is nil when the probe failed before a response arrived.
type StatusLogEntry struct {
    ID             string    `json:"id"`
    EndpointID     string    `json:"endpoint_id"`
    Status         string    `json:"status"`
    ResponseTimeMS *int64    `json:"response_time_ms"`
    Error          string    `json:"error,omitempty"`
    CheckedAt      time.Time `json:"checked_at"`
}

// AlertConfig subscribes one endpoint to one notification channel.
// Read-only to the alert dispatcher; validated at creation time.
type AlertConfig struct {
    ID          string    `json:"id"`
    EndpointID  string    `json:"endpoint_id"`
    Channel     string    `json:"channel"`
    Destination string    `json:"destination"`
    Enabled     bool      `json:"enabled"`
    CreatedAt   time.Time `json:"created_at"`
    UpdatedAt   time.Time `json:"updated_at"`
}

type EndpointFilters struct {
    Status  string
    Enabled *bool
}

type StatusLogFilters struct {
    EndpointID string
    Status     string
    Since      *time.Time
    Limit      int
}

// ValidChannel reports whether t names a supported alert channel.
func ValidChannel(t string) bool {
    switch t {
    case ChannelEmail, ChannelWebhook, ChannelSlack, ChannelDiscord, ChannelMSTeams:
        return true
    }
    return false
}

// ValidStatus reports whether s is one of the stored endpoint statuses.
func ValidStatus(s string) bool {
    switch s {
    case StatusUnknown, StatusOnline, StatusOffline, StatusDisabled:
        return true
    }
    return false
}
