// internal/monitoring/engine.go
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

// Engine owns the monitoring lifecycle: the scheduler tick loop, the
// self-heal loop, and status log retention. Manual triggers reuse the exact
// pass code the timers drive.
type Engine struct {
    config     *config.Config
    store      database.Store
    metrics    *metrics.Collector
    breakers   *BreakerRegistry
    scheduler  *Scheduler
    dispatcher *alerting.Dispatcher
    mu         sync.RWMutex
    running    bool
}

func NewEngine(cfg *config.Config, store database.Store, metricsCollector *metrics.Collector) *Engine {
    breakers := NewBreakerRegistry(
        cfg.Monitoring.FailureThreshold,
        cfg.Monitoring.Cooldown,
        cfg.Monitoring.MaxCooldown,
    )
    dispatcher := alerting.NewDispatcher(store, cfg.Alerting)
    scheduler := NewScheduler(store, NewProber(), breakers, dispatcher, metricsCollector, cfg.Monitoring)

    return &Engine{
        config:     cfg,
        store:      store,
        metrics:    metricsCollector,
        breakers:   breakers,
        scheduler:  scheduler,
        dispatcher: dispatcher,
    }
}

func (e *Engine) Start(ctx context.Context) error {
    e.mu.Lock()
    if e.running {
        e.mu.Unlock()
        return nil
    }
    e.running = true
    e.mu.Unlock()

    logrus.WithFields(logrus.Fields{
        "tick_interval":     e.config.Monitoring.TickInterval,
        "heal_interval":     e.config.Monitoring.HealInterval,
        "batch_size":        e.config.Monitoring.BatchSize,
        "max_concurrent":    e.config.Monitoring.MaxConcurrent,
        "failure_threshold": e.config.Monitoring.FailureThreshold,
    }).Info("Starting monitoring engine")

    go e.runScheduleLoop(ctx)
    go e.runHealLoop(ctx)
    go e.runRetentionLoop(ctx)

    return nil
}

func (e *Engine) Stop() {
    e.mu.Lock()
    defer e.mu.Unlock()

    if !e.running {
        return
    }

    logrus.Info("Stopping monitoring engine")
    e.running = false
}

func (e *Engine) runScheduleLoop(ctx context.Context) {
    ticker := time.NewTicker(e.config.Monitoring.TickInterval)
    defer ticker.Stop()

    for {
        select {
        case <-ctx.Done():
            return
        case <-ticker.C:
            if _, err := e.scheduler.RunPass(ctx); err != nil {
                logrus.WithError(err).Error("Scheduler pass failed")
            }
        }
    }
}

func (e *Engine) runHealLoop(ctx context.Context) {
    ticker := time.NewTicker(e.config.Monitoring.HealInterval)
    defer ticker.Stop()

    for {
        select {
        case <-ctx.Done():
            return
        case <-ticker.C:
            if _, err := e.scheduler.RunHealPass(ctx); err != nil {
                logrus.WithError(err).Error("Self-heal pass failed")
            }
        }
    }
}

func (e *Engine) runRetentionLoop(ctx context.Context) {
    ticker := time.NewTicker(e.config.Database.CleanupInterval)
    defer ticker.Stop()

    for {
        select {
        case <-ctx.Done():
            return
        case <-ticker.C:
            cutoff := time.Now().Add(-e.config.Database.LogRetention)
            deleted, err := e.store.DeleteStatusLogBefore(ctx, cutoff)
            if err != nil {
                logrus.WithError(err).Error("Status log retention purge failed")
                continue
            }
            if deleted > 0 {
                logrus.WithField("deleted", deleted).Info("Status log retention purge completed")
            }
        }
    }
}

// RunHealthCheck runs one scheduling pass now. The manual API trigger and
// the timer go through this same path.
func (e *Engine) RunHealthCheck(ctx context.Context) (PassSummary, error) {
    return e.scheduler.RunPass(ctx)
}

// RunSelfHeal runs one self-heal pass now.
func (e *Engine) RunSelfHeal(ctx context.Context) (PassSummary, error) {
    return e.scheduler.RunHealPass(ctx)
}

// SetTransitionFunc registers the callback fired on every committed status
// transition.
func (e *Engine) SetTransitionFunc(fn TransitionFunc) {
    e.scheduler.SetTransitionFunc(fn)
}

// BreakerSnapshot exposes one endpoint's circuit state for the API.
func (e *Engine) BreakerSnapshot(id string) CircuitState {
    return e.breakers.Snapshot(id)
}

// ForgetEndpoint drops process-local state after an endpoint is deleted.
func (e *Engine) ForgetEndpoint(id string) {
    e.breakers.Forget(id)
}
