// internal/monitoring/scheduler.go - Due-endpoint selection and probe execution
package monitoring

import (
    "context"
    "sync"
    "time"

    "github.com/sirupsen/logrus"

    "beacon/internal/alerting"
    "beacon/internal/config"
    "beacon/internal/database"
    "beacon/internal/metrics"
)

// AlertDispatcher is the slice of the alerting dispatcher the scheduler
// needs; tests substitute a fake.
type AlertDispatcher interface {
    Dispatch(ctx context.Context, ep *database.Endpoint, oldStatus, newStatus string) ([]alerting.DeliveryResult, error)
}

// TransitionFunc is invoked for every observed status transition, after the
// result has been committed. Used for the websocket feed.
type TransitionFunc func(ep *database.Endpoint, oldStatus, newStatus string, at time.Time)

// PassSummary aggregates the outcome of one scheduler or self-heal pass.
type PassSummary struct {
    Checked      int `json:"checked"`
    Skipped      int `json:"skipped"`
    Transitions  int `json:"transitions"`
    Healed       int `json:"healed"`
    AlertsSent   int `json:"alerts_sent"`
    AlertsFailed int `json:"alerts_failed"`
}

func (s *PassSummary) merge(o endpointOutcome) {
    s.Checked++
    if o.transitioned {
        s.Transitions++
    }
    if o.recovered {
        s.Healed++
    }
    s.AlertsSent += o.alertsSent
    s.AlertsFailed += o.alertsFailed
}

type endpointOutcome struct {
    transitioned bool
    recovered    bool
    alertsSent   int
    alertsFailed int
}

// Scheduler selects due endpoints and probes them with bounded concurrency,
// committing each result independently.
type Scheduler struct {
    store        database.Store
    prober       *Prober
    breakers     *BreakerRegistry
    dispatcher   AlertDispatcher
    metrics      *metrics.Collector
    cfg          config.MonitoringConfig
    onTransition TransitionFunc
    now          func() time.Time
}

func NewScheduler(store database.Store, prober *Prober, breakers *BreakerRegistry, dispatcher AlertDispatcher, collector *metrics.Collector, cfg config.MonitoringConfig) *Scheduler {
    return &Scheduler{
        store:      store,
        prober:     prober,
        breakers:   breakers,
        dispatcher: dispatcher,
        metrics:    collector,
        cfg:        cfg,
        now:        time.Now,
    }
}

// SetTransitionFunc registers the transition callback.
func (s *Scheduler) SetTransitionFunc(fn TransitionFunc) {
    s.onTransition = fn
}

// RunPass executes one scheduling pass: select due endpoints (oldest
// checked first, bounded batch), drop the ones whose breaker is open, and
// probe the rest through the worker pool. A failure on one endpoint never
// aborts the batch.
func (s *Scheduler) RunPass(ctx context.Context) (PassSummary, error) {
    ctx, cancel := context.WithTimeout(ctx, s.cfg.PassDeadline)
    defer cancel()

    due, err := s.store.SelectDueEndpoints(ctx, s.now(), s.cfg.BatchSize)
    if err != nil {
        return PassSummary{}, err
    }

    var eligible []database.Endpoint
    skipped := 0
    for _, ep := range due {
        if !s.breakers.Allow(ep.ID) {
            skipped++
            continue
        }
        eligible = append(eligible, ep)
    }

    summary := s.runBatch(ctx, eligible)
    summary.Skipped += skipped

    if summary.Checked > 0 {
        logrus.WithFields(logrus.Fields{
            "checked":     summary.Checked,
            "skipped":     summary.Skipped,
            "transitions": summary.Transitions,
        }).Debug("Scheduler pass completed")
    }

    return summary, nil
}

// runBatch probes the given endpoints with bounded concurrency. Endpoints
// that already have a probe in flight are skipped, preserving the
// single-in-flight-probe invariant.
func (s *Scheduler) runBatch(ctx context.Context, endpoints []database.Endpoint) PassSummary {
    var (
        summary PassSummary
        mu      sync.Mutex
        wg      sync.WaitGroup
    )

    sem := make(chan struct{}, s.cfg.MaxConcurrent)

    for i := range endpoints {
        ep := endpoints[i]

        if !s.breakers.TryAcquire(ep.ID) {
            mu.Lock()
            summary.Skipped++
            mu.Unlock()
            continue
        }

        wg.Add(1)
        sem <- struct{}{}
        go func() {
            defer func() {
                s.breakers.Release(ep.ID)
                <-sem
                wg.Done()
            }()

            outcome := s.processEndpoint(ctx, &ep)

            mu.Lock()
            summary.merge(outcome)
            mu.Unlock()
        }()
    }

    wg.Wait()
    return summary
}

// processEndpoint probes one endpoint and commits the outcome: breaker
// update, status log entry, uptime recomputation, endpoint row update, and
// alert escalation if the stored status changed.
func (s *Scheduler) processEndpoint(ctx context.Context, ep *database.Endpoint) endpointOutcome {
    var outcome endpointOutcome

    result := s.prober.Probe(ctx, ep)

    s.metrics.RecordProbe(ep.Name, result.Status, time.Duration(result.ResponseTimeMS)*time.Millisecond)

    if result.Online() {
        s.breakers.RecordSuccess(ep.ID)
    } else {
        s.breakers.RecordFailure(ep.ID)
    }
    s.metrics.UpdateBreakerPhase(ep.Name, s.breakers.Phase(ep.ID))

    entry := &database.StatusLogEntry{
        EndpointID:     ep.ID,
        Status:         result.Status,
        ResponseTimeMS: result.ResponseTime(),
        Error:          result.Error,
        CheckedAt:      result.CheckedAt,
    }
    if err := s.store.AppendStatusLog(ctx, entry); err != nil {
        logrus.WithError(err).WithField("endpoint", ep.Name).Error("Failed to append status log")
    }

    uptime := s.computeUptime(ctx, ep.ID)

    if err := s.store.UpdateEndpointStatus(ctx, ep.ID, result.Status, result.CheckedAt, result.ResponseTime(), uptime); err != nil {
        logrus.WithError(err).WithField("endpoint", ep.Name).Error("Failed to update endpoint status")
        return outcome
    }
    s.metrics.UpdateEndpointStatus(ep.Name, result.Status)

    oldStatus := ep.Status
    if oldStatus == result.Status {
        return outcome
    }

    outcome.transitioned = true
    if oldStatus == database.StatusOffline && result.Status == database.StatusOnline {
        outcome.recovered = true
    }

    logrus.WithFields(logrus.Fields{
        "endpoint":   ep.Name,
        "old_status": oldStatus,
        "new_status": result.Status,
        "reason":     result.Reason,
    }).Info("Endpoint status changed")

    if s.onTransition != nil {
        s.onTransition(ep, oldStatus, result.Status, result.CheckedAt)
    }

    if s.dispatcher != nil && ep.AlertsEnabled {
        results, err := s.dispatcher.Dispatch(ctx, ep, oldStatus, result.Status)
        if err != nil {
            logrus.WithError(err).WithField("endpoint", ep.Name).Error("Alert dispatch rejected")
            return outcome
        }
        for _, res := range results {
            s.metrics.RecordAlertDelivery(res.Channel, res.Success)
            if res.Success {
                outcome.alertsSent++
            } else {
                outcome.alertsFailed++
            }
        }
    }

    return outcome
}

// computeUptime recomputes the rolling uptime percentage over the trailing
// window of the status log. No samples in the window means 0.
func (s *Scheduler) computeUptime(ctx context.Context, endpointID string) float64 {
    since := s.now().Add(-s.cfg.UptimeWindow)
    entries, err := s.store.StatusLogSince(ctx, endpointID, since)
    if err != nil {
        logrus.WithError(err).WithField("endpoint_id", endpointID).Warn("Failed to load status log for uptime")
        return 0
    }
    if len(entries) == 0 {
        return 0
    }

    online := 0
    for _, e := range entries {
        if e.Status == database.StatusOnline {
            online++
        }
    }
    return float64(online) / float64(len(entries)) * 100
}
