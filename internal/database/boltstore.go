// internal/database/boltstore.go - Complete BoltDB implementation
package database

import (
    "context"
    "encoding/json"
    "fmt"
    "os"
    "path/filepath"
    "sort"
    "strings"
    "time"

    "github.com/google/uuid"
    "go.etcd.io/bbolt"
)

var (
    EndpointsBucket    = []byte("endpoints")
    StatusLogBucket    = []byte("status_log")
    AlertConfigsBucket = []byte("alert_configs")
    MetaBucket         = []byte("meta")
)

type BoltStore struct {
    db   *bbolt.DB
    path string
}

func NewBoltStore(path string) (Store, error) {
    // Create directory if it doesn't exist
    if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
        return nil, fmt.Errorf("failed to create data directory: %w", err)
    }

    db, err := bbolt.Open(path, 0600, &bbolt.Options{
        Timeout: 1 * time.Second,
    })
    if err != nil {
        return nil, fmt.Errorf("failed to open BoltDB: %w", err)
    }

    store := &BoltStore{db: db, path: path}

    if err := store.initBuckets(); err != nil {
        db.Close()
        return nil, fmt.Errorf("failed to initialize buckets: %w", err)
    }

    return store, nil
}

func (s *BoltStore) initBuckets() error {
    return s.db.Update(func(tx *bbolt.Tx) error {
        buckets := [][]byte{EndpointsBucket, StatusLogBucket, AlertConfigsBucket, MetaBucket}
        for _, bucket := range buckets {
            if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
                return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
            }
        }
        return nil
    })
}

// statusLogKey orders log entries by endpoint then time so prefix scans
// return one endpoint's history in chronological order.
func statusLogKey(endpointID string, checkedAt time.Time) []byte {
    return []byte(fmt.Sprintf("%s:%019d", endpointID, checkedAt.UnixNano()))
}

func (s *BoltStore) GetEndpoints(ctx context.Context, filters EndpointFilters) ([]Endpoint, error) {
    var endpoints []Endpoint

    err := s.db.View(func(tx *bbolt.Tx) error {
        b := tx.Bucket(EndpointsBucket)
        return b.ForEach(func(k, v []byte) error {
            var ep Endpoint
            if err := json.Unmarshal(v, &ep); err != nil {
                return fmt.Errorf("failed to unmarshal endpoint %s: %w", k, err)
            }

            // Apply filters
            if filters.Status != "" && ep.Status != filters.Status {
                return nil
            }
            if filters.Enabled != nil && ep.Enabled != *filters.Enabled {
                return nil
            }

            endpoints = append(endpoints, ep)
            return nil
        })
    })

    return endpoints, err
}

func (s *BoltStore) GetEndpoint(ctx context.Context, id string) (*Endpoint, error) {
    var ep Endpoint

    err := s.db.View(func(tx *bbolt.Tx) error {
        b := tx.Bucket(EndpointsBucket)
        v := b.Get([]byte(id))
        if v == nil {
            return ErrNotFound
        }
        return json.Unmarshal(v, &ep)
    })

    if err != nil {
        return nil, err
    }
    return &ep, nil
}

func (s *BoltStore) CreateEndpoint(ctx context.Context, ep *Endpoint) error {
    if ep.ID == "" {
        ep.ID = uuid.New().String()
    }
    if ep.Status == "" {
        ep.Status = StatusUnknown
    }
    ep.CreatedAt = time.Now()
    ep.UpdatedAt = time.Now()

    return s.db.Update(func(tx *bbolt.Tx) error {
        b := tx.Bucket(EndpointsBucket)

        data, err := json.Marshal(ep)
        if err != nil {
            return fmt.Errorf("failed to marshal endpoint: %w", err)
        }

        return b.Put([]byte(ep.ID), data)
    })
}

func (s *BoltStore) UpdateEndpoint(ctx context.Context, ep *Endpoint) error {
    ep.UpdatedAt = time.Now()

    return s.db.Update(func(tx *bbolt.Tx) error {
        b := tx.Bucket(EndpointsBucket)
        if b.Get([]byte(ep.ID)) == nil {
            return ErrNotFound
        }

        data, err := json.Marshal(ep)
        if err != nil {
            return fmt.Errorf("failed to marshal endpoint: %w", err)
        }

        return b.Put([]byte(ep.ID), data)
    })
}

func (s *BoltStore) DeleteEndpoint(ctx context.Context, id string) error {
    return s.db.Update(func(tx *bbolt.Tx) error {
        b := tx.Bucket(EndpointsBucket)
        if err := b.Delete([]byte(id)); err != nil {
            return err
        }

        // Drop the endpoint's alert configs with it
        ab := tx.Bucket(AlertConfigsBucket)
        var stale [][]byte
        ab.ForEach(func(k, v []byte) error {
            var cfg AlertConfig
            if err := json.Unmarshal(v, &cfg); err != nil {
                return nil
            }
            if cfg.EndpointID == id {
                stale = append(stale, append([]byte(nil), k...))
            }
            return nil
        })
        for _, k := range stale {
            if err := ab.Delete(k); err != nil {
                return err
            }
        }
        return nil
    })
}

// SelectDueEndpoints returns enabled endpoints whose interval has elapsed,
// oldest-checked first, never-checked ahead of everything.
func (s *BoltStore) SelectDueEndpoints(ctx context.Context, now time.Time, limit int) ([]Endpoint, error) {
    var due []Endpoint

    err := s.db.View(func(tx *bbolt.Tx) error {
        b := tx.Bucket(EndpointsBucket)
        return b.ForEach(func(k, v []byte) error {
            var ep Endpoint
            if err := json.Unmarshal(v, &ep); err != nil {
                return nil // Skip malformed entries
            }

            if !ep.Enabled || ep.Status == StatusDisabled {
                return nil
            }
            if ep.LastCheckedAt != nil && now.Sub(*ep.LastCheckedAt) < ep.Interval() {
                return nil
            }

            due = append(due, ep)
            return nil
        })
    })
    if err != nil {
        return nil, err
    }

    sort.Slice(due, func(i, j int) bool {
        a, b := due[i].LastCheckedAt, due[j].LastCheckedAt
        if a == nil {
            return true
        }
        if b == nil {
            return false
        }
        return a.Before(*b)
    })

    if limit > 0 && len(due) > limit {
        due = due[:limit]
    }
    return due, nil
}

func (s *BoltStore) SelectOfflineEndpoints(ctx context.Context) ([]Endpoint, error) {
    enabled := true
    return s.GetEndpoints(ctx, EndpointFilters{Status: StatusOffline, Enabled: &enabled})
}

func (s *BoltStore) UpdateEndpointStatus(ctx context.Context, id, status string, checkedAt time.Time, responseTimeMS *int64, uptimePercent float64) error {
    return s.db.Update(func(tx *bbolt.Tx) error {
        b := tx.Bucket(EndpointsBucket)
        v := b.Get([]byte(id))
        if v == nil {
            return ErrNotFound
        }

        var ep Endpoint
        if err := json.Unmarshal(v, &ep); err != nil {
            return fmt.Errorf("failed to unmarshal endpoint: %w", err)
        }

        ep.Status = status
        ep.LastCheckedAt = &checkedAt
        ep.LastResponseTimeMS = responseTimeMS
        ep.UptimePercent = uptimePercent
        ep.UpdatedAt = time.Now()

        data, err := json.Marshal(&ep)
        if err != nil {
            return fmt.Errorf("failed to marshal endpoint: %w", err)
        }

        return b.Put([]byte(id), data)
    })
}

func (s *BoltStore) AppendStatusLog(ctx context.Context, entry *StatusLogEntry) error {
    if entry.ID == "" {
        entry.ID = uuid.New().String()
    }
    if entry.CheckedAt.IsZero() {
        entry.CheckedAt = time.Now()
    }

    return s.db.Update(func(tx *bbolt.Tx) error {
        b := tx.Bucket(StatusLogBucket)

        data, err := json.Marshal(entry)
        if err != nil {
            return fmt.Errorf("failed to marshal status log entry: %w", err)
        }

        return b.Put(statusLogKey(entry.EndpointID, entry.CheckedAt), data)
    })
}

func (s *BoltStore) GetStatusLog(ctx context.Context, filters StatusLogFilters) ([]StatusLogEntry, error) {
    var entries []StatusLogEntry

    err := s.db.View(func(tx *bbolt.Tx) error {
        b := tx.Bucket(StatusLogBucket)
        return b.ForEach(func(k, v []byte) error {
            var entry StatusLogEntry
            if err := json.Unmarshal(v, &entry); err != nil {
                return nil // Skip malformed entries
            }

            // Apply filters
            if filters.EndpointID != "" && entry.EndpointID != filters.EndpointID {
                return nil
            }
            if filters.Status != "" && entry.Status != filters.Status {
                return nil
            }
            if filters.Since != nil && entry.CheckedAt.Before(*filters.Since) {
                return nil
            }

            entries = append(entries, entry)

            if filters.Limit > 0 && len(entries) >= filters.Limit {
                return errLimitReached
            }

            return nil
        })
    })

    if err == errLimitReached {
        err = nil
    }

    return entries, err
}

var errLimitReached = fmt.Errorf("limit_reached")

func (s *BoltStore) StatusLogSince(ctx context.Context, endpointID string, since time.Time) ([]StatusLogEntry, error) {
    var entries []StatusLogEntry

    err := s.db.View(func(tx *bbolt.Tx) error {
        b := tx.Bucket(StatusLogBucket)
        c := b.Cursor()

        prefix := endpointID + ":"

        for k, v := c.Seek([]byte(prefix)); k != nil && strings.HasPrefix(string(k), prefix); k, v = c.Next() {
            var entry StatusLogEntry
            if err := json.Unmarshal(v, &entry); err != nil {
                continue
            }

            if entry.CheckedAt.After(since) {
                entries = append(entries, entry)
            }
        }

        return nil
    })

    return entries, err
}

func (s *BoltStore) GetAlertConfigs(ctx context.Context, endpointID string) ([]AlertConfig, error) {
    return s.scanAlertConfigs(endpointID, false)
}

func (s *BoltStore) SelectEnabledAlertConfigs(ctx context.Context, endpointID string) ([]AlertConfig, error) {
    return s.scanAlertConfigs(endpointID, true)
}

func (s *BoltStore) scanAlertConfigs(endpointID string, enabledOnly bool) ([]AlertConfig, error) {
    var configs []AlertConfig

    err := s.db.View(func(tx *bbolt.Tx) error {
        b := tx.Bucket(AlertConfigsBucket)
        return b.ForEach(func(k, v []byte) error {
            var cfg AlertConfig
            if err := json.Unmarshal(v, &cfg); err != nil {
                return fmt.Errorf("failed to unmarshal alert config %s: %w", k, err)
            }

            if endpointID != "" && cfg.EndpointID != endpointID {
                return nil
            }
            if enabledOnly && !cfg.Enabled {
                return nil
            }

            configs = append(configs, cfg)
            return nil
        })
    })

    return configs, err
}

func (s *BoltStore) GetAlertConfig(ctx context.Context, id string) (*AlertConfig, error) {
    var cfg AlertConfig

    err := s.db.View(func(tx *bbolt.Tx) error {
        b := tx.Bucket(AlertConfigsBucket)
        v := b.Get([]byte(id))
        if v == nil {
            return ErrNotFound
        }
        return json.Unmarshal(v, &cfg)
    })

    if err != nil {
        return nil, err
    }
    return &cfg, nil
}

func (s *BoltStore) CreateAlertConfig(ctx context.Context, cfg *AlertConfig) error {
    if cfg.ID == "" {
        cfg.ID = uuid.New().String()
    }
    cfg.CreatedAt = time.Now()
    cfg.UpdatedAt = time.Now()

    return s.db.Update(func(tx *bbolt.Tx) error {
        b := tx.Bucket(AlertConfigsBucket)

        data, err := json.Marshal(cfg)
        if err != nil {
            return fmt.Errorf("failed to marshal alert config: %w", err)
        }

        return b.Put([]byte(cfg.ID), data)
    })
}

func (s *BoltStore) UpdateAlertConfig(ctx context.Context, cfg *AlertConfig) error {
    cfg.UpdatedAt = time.Now()

    return s.db.Update(func(tx *bbolt.Tx) error {
        b := tx.Bucket(AlertConfigsBucket)
        if b.Get([]byte(cfg.ID)) == nil {
            return ErrNotFound
        }

        data, err := json.Marshal(cfg)
        if err != nil {
            return fmt.Errorf("failed to marshal alert config: %w", err)
        }

        return b.Put([]byte(cfg.ID), data)
    })
}

func (s *BoltStore) DeleteAlertConfig(ctx context.Context, id string) error {
    return s.db.Update(func(tx *bbolt.Tx) error {
        b := tx.Bucket(AlertConfigsBucket)
        return b.Delete([]byte(id))
    })
}

func (s *BoltStore) Close() error {
    return s.db.Close()
}
