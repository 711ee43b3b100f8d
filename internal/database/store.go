// internal/database/store.go
package database

import (
    "context"
    "errors"
    "time"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Store defines the interface for database operations
type Store interface {
    // Endpoint operations
    GetEndpoints(ctx context.Context, filters EndpointFilters) ([]Endpoint, error)
    GetEndpoint(ctx context.Context, id string) (*Endpoint, error)
    CreateEndpoint(ctx context.Context, ep *Endpoint) error
    UpdateEndpoint(ctx context.Context, ep *Endpoint) error
    DeleteEndpoint(ctx context.Context, id string) error

    // Monitoring engine operations
    SelectDueEndpoints(ctx context.Context, now time.Time, limit int) ([]Endpoint, error)
    SelectOfflineEndpoints(ctx context.Context) ([]Endpoint, error)
    UpdateEndpointStatus(ctx context.Context, id, status string, checkedAt time.Time, responseTimeMS *int64, uptimePercent float64) error

    // Status log operations
    AppendStatusLog(ctx context.Context, entry *StatusLogEntry) error
    GetStatusLog(ctx context.Context, filters StatusLogFilters) ([]StatusLogEntry, error)
    StatusLogSince(ctx context.Context, endpointID string, since time.Time) ([]StatusLogEntry, error)

    // Alert config operations
    GetAlertConfigs(ctx context.Context, endpointID string) ([]AlertConfig, error)
    SelectEnabledAlertConfigs(ctx context.Context, endpointID string) ([]AlertConfig, error)
    GetAlertConfig(ctx context.Context, id string) (*AlertConfig, error)
    CreateAlertConfig(ctx context.Context, cfg *AlertConfig) error
    UpdateAlertConfig(ctx context.Context, cfg *AlertConfig) error
    DeleteAlertConfig(ctx context.Context, id string) error

    // Maintenance operations
    DeleteStatusLogBefore(ctx context.Context, cutoff time.Time) (int, error)
    GetDatabaseStats(ctx context.Context) (*DatabaseStats, error)

    // Close the database connection
    Close() error
}

// DatabaseStats provides information about database size and health
type DatabaseStats struct {
    TotalEndpoints    int       `json:"total_endpoints"`
    TotalAlertConfigs int       `json:"total_alert_configs"`
    TotalLogEntries   int       `json:"total_log_entries"`
    OldestLogEntry    time.Time `json:"oldest_log_entry"`
    NewestLogEntry    time.Time `json:"newest_log_entry"`
}
