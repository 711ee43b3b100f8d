// internal/database/boltstore_maintenance.go - Status log retention and stats
package database

import (
    "context"
    "encoding/json"
    "time"

    "github.com/sirupsen/logrus"
    "go.etcd.io/bbolt"
)

// DeleteStatusLogBefore removes log entries older than cutoff and returns
// the number deleted. Retention is the only path that mutates the log.
func (s *BoltStore) DeleteStatusLogBefore(ctx context.Context, cutoff time.Time) (int, error) {
    deletedCount := 0

    err := s.db.Update(func(tx *bbolt.Tx) error {
        b := tx.Bucket(StatusLogBucket)
        if b == nil {
            return nil
        }

        cursor := b.Cursor()
        var keysToDelete [][]byte

        for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
            var entry StatusLogEntry
            if err := json.Unmarshal(v, &entry); err != nil {
                continue
            }

            if entry.CheckedAt.Before(cutoff) {
                keysToDelete = append(keysToDelete, copyBytes(k))
            }
        }

        for _, key := range keysToDelete {
            if err := b.Delete(key); err != nil {
                return err
            }
            deletedCount++
        }

        return nil
    })

    if deletedCount > 0 {
        logrus.WithFields(logrus.Fields{
            "deleted": deletedCount,
            "cutoff":  cutoff,
        }).Debug("Purged status log entries")
    }

    return deletedCount, err
}

// GetDatabaseStats reports record counts and the log's time span.
func (s *BoltStore) GetDatabaseStats(ctx context.Context) (*DatabaseStats, error) {
    stats := &DatabaseStats{}

    err := s.db.View(func(tx *bbolt.Tx) error {
        stats.TotalEndpoints = tx.Bucket(EndpointsBucket).Stats().KeyN
        stats.TotalAlertConfigs = tx.Bucket(AlertConfigsBucket).Stats().KeyN

        b := tx.Bucket(StatusLogBucket)
        return b.ForEach(func(k, v []byte) error {
            var entry StatusLogEntry
            if err := json.Unmarshal(v, &entry); err != nil {
                return nil
            }

            stats.TotalLogEntries++
            if stats.OldestLogEntry.IsZero() || entry.CheckedAt.Before(stats.OldestLogEntry) {
                stats.OldestLogEntry = entry.CheckedAt
            }
            if entry.CheckedAt.After(stats.NewestLogEntry) {
                stats.NewestLogEntry = entry.CheckedAt
            }
            return nil
        })
    })

    return stats, err
}

func copyBytes(b []byte) []byte {
    c := make([]byte, len(b))
    copy(c, b)
    return c
}
