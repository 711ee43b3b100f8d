// internal/monitoring/breaker.go - Per-endpoint circuit breaker registry
package monitoring

import (
    "sync"
    "time"

    "github.com/sirupsen/logrus"
)

// Breaker phases.
const (
    PhaseClosed   = "closed"
    PhaseOpen     = "open"
    PhaseHalfOpen = "half-open"
)

// CircuitState is the process-local runtime state for one endpoint. It is
// created lazily on first observation and reset on recovery; it is never
// persisted.
type CircuitState struct {
    Phase                string    `json:"phase"`
    ConsecutiveFailures  int       `json:"consecutive_failures"`
    ConsecutiveSuccesses int       `json:"consecutive_successes"`
    OpenUntil            time.Time `json:"open_until"`

    cooldown time.Duration
    probing  bool
}

// BreakerRegistry tracks circuit state per endpoint id and enforces the
// single-in-flight-probe invariant through TryAcquire/Release.
type BreakerRegistry struct {
    mu          sync.Mutex
    states      map[string]*CircuitState
    threshold   int
    cooldown    time.Duration
    maxCooldown time.Duration
    now         func() time.Time
}

func NewBreakerRegistry(threshold int, cooldown, maxCooldown time.Duration) *BreakerRegistry {
    return &BreakerRegistry{
        states:      make(map[string]*CircuitState),
        threshold:   threshold,
        cooldown:    cooldown,
        maxCooldown: maxCooldown,
        now:         time.Now,
    }
}

func (r *BreakerRegistry) state(id string) *CircuitState {
    st, ok := r.states[id]
    if !ok {
        st = &CircuitState{Phase: PhaseClosed, cooldown: r.cooldown}
        r.states[id] = st
    }
    return st
}

// Allow reports whether the endpoint may be probed now. An open breaker
// suppresses probing until its cool-down expires, at which point it moves
// to half-open and permits one trial probe.
func (r *BreakerRegistry) Allow(id string) bool {
    r.mu.Lock()
    defer r.mu.Unlock()

    st := r.state(id)
    switch st.Phase {
    case PhaseOpen:
        if r.now().Before(st.OpenUntil) {
            return false
        }
        st.Phase = PhaseHalfOpen
        logrus.WithField("endpoint_id", id).Debug("Circuit half-open, trial probe permitted")
        return true
    default:
        return true
    }
}

// TryAcquire marks the endpoint as having a probe in flight. It returns
// false if a probe is already running, which guarantees no two probes for
// the same id overlap even when scheduler and healer passes coincide.
func (r *BreakerRegistry) TryAcquire(id string) bool {
    r.mu.Lock()
    defer r.mu.Unlock()

    st := r.state(id)
    if st.probing {
        return false
    }
    st.probing = true
    return true
}

// Release clears the in-flight marker set by TryAcquire.
func (r *BreakerRegistry) Release(id string) {
    r.mu.Lock()
    defer r.mu.Unlock()
    r.state(id).probing = false
}

// RecordSuccess notes a successful probe. A success while half-open closes
// the circuit; counters and the cool-down reset either way.
func (r *BreakerRegistry) RecordSuccess(id string) {
    r.mu.Lock()
    defer r.mu.Unlock()

    st := r.state(id)
    if st.Phase != PhaseClosed {
        logrus.WithFields(logrus.Fields{
            "endpoint_id": id,
            "phase":       st.Phase,
        }).Info("Circuit closed after successful probe")
    }
    st.Phase = PhaseClosed
    st.ConsecutiveFailures = 0
    st.ConsecutiveSuccesses++
    st.cooldown = r.cooldown
    st.OpenUntil = time.Time{}
}

// RecordFailure notes a failed probe. The threshold's worth of consecutive
// failures opens the circuit; a failure while half-open re-opens it with
// the cool-down doubled, capped at the configured maximum.
func (r *BreakerRegistry) RecordFailure(id string) {
    r.mu.Lock()
    defer r.mu.Unlock()

    st := r.state(id)
    st.ConsecutiveSuccesses = 0
    st.ConsecutiveFailures++

    switch st.Phase {
    case PhaseHalfOpen:
        st.cooldown *= 2
        if st.cooldown > r.maxCooldown {
            st.cooldown = r.maxCooldown
        }
        r.open(id, st)
    case PhaseClosed:
        if st.ConsecutiveFailures >= r.threshold {
            r.open(id, st)
        }
    }
}

func (r *BreakerRegistry) open(id string, st *CircuitState) {
    st.Phase = PhaseOpen
    st.OpenUntil = r.now().Add(st.cooldown)
    logrus.WithFields(logrus.Fields{
        "endpoint_id":          id,
        "consecutive_failures": st.ConsecutiveFailures,
        "cooldown":             st.cooldown,
    }).Warn("Circuit opened, probing suppressed")
}

// Snapshot returns a copy of the endpoint's circuit state.
func (r *BreakerRegistry) Snapshot(id string) CircuitState {
    r.mu.Lock()
    defer r.mu.Unlock()
    return *r.state(id)
}

// Phase returns the breaker phase for one endpoint without creating state.
func (r *BreakerRegistry) Phase(id string) string {
    r.mu.Lock()
    defer r.mu.Unlock()

    st, ok := r.states[id]
    if !ok {
        return PhaseClosed
    }
    return st.Phase
}

// Forget drops the state for a deleted endpoint.
func (r *BreakerRegistry) Forget(id string) {
    r.mu.Lock()
    defer r.mu.Unlock()
    delete(r.states, id)
}
