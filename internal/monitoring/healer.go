// internal/monitoring/healer.go - Out-of-cycle recovery pass for offline endpoints
package monitoring

import (
    "context"

    "github.com/sirupsen/logrus"
)

// RunHealPass re-probes every endpoint currently stored as offline,
// regardless of its normal check interval, to detect recovery sooner. It
// shares the probe/breaker/commit path with the scheduler; the in-flight
// marker keeps overlapping scheduler and healer passes from double-probing
// the same endpoint. Open breakers do not suppress this pass: the healer's
// probe is the trial that can close them.
func (s *Scheduler) RunHealPass(ctx context.Context) (PassSummary, error) {
    ctx, cancel := context.WithTimeout(ctx, s.cfg.PassDeadline)
    defer cancel()

    offline, err := s.store.SelectOfflineEndpoints(ctx)
    if err != nil {
        return PassSummary{}, err
    }
    if len(offline) == 0 {
        return PassSummary{}, nil
    }

    summary := s.runBatch(ctx, offline)

    if summary.Healed > 0 {
        logrus.WithFields(logrus.Fields{
            "probed": summary.Checked,
            "healed": summary.Healed,
        }).Info("Self-heal pass recovered endpoints")
    }

    return summary, nil
}
