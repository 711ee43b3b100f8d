package monitoring

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
)

func newTestRegistry(now *time.Time) *BreakerRegistry {
    r := NewBreakerRegistry(3, time.Minute, 30*time.Minute)
    r.now = func() time.Time { return *now }
    return r
}

func TestBreakerOpensAfterThresholdFailures(t *testing.T) {
    now := time.Now()
    r := newTestRegistry(&now)

    r.RecordFailure("ep")
    assert.Equal(t, PhaseClosed, r.Phase("ep"))
    r.RecordFailure("ep")
    assert.Equal(t, PhaseClosed, r.Phase("ep"))
    r.RecordFailure("ep")
    assert.Equal(t, PhaseOpen, r.Phase("ep"))

    // Probing is suppressed for the cool-down window
    assert.False(t, r.Allow("ep"))
    now = now.Add(30 * time.Second)
    assert.False(t, r.Allow("ep"))
}

func TestBreakerHalfOpenAfterCooldown(t *testing.T) {
    now := time.Now()
    r := newTestRegistry(&now)

    for i := 0; i < 3; i++ {
        r.RecordFailure("ep")
    }
    assert.Equal(t, PhaseOpen, r.Phase("ep"))

    now = now.Add(61 * time.Second)
    assert.True(t, r.Allow("ep"))
    assert.Equal(t, PhaseHalfOpen, r.Phase("ep"))
}

func TestBreakerClosesOnHalfOpenSuccess(t *testing.T) {
    now := time.Now()
    r := newTestRegistry(&now)

    for i := 0; i < 3; i++ {
        r.RecordFailure("ep")
    }
    now = now.Add(61 * time.Second)
    assert.True(t, r.Allow("ep"))

    r.RecordSuccess("ep")
    st := r.Snapshot("ep")
    assert.Equal(t, PhaseClosed, st.Phase)
    assert.Equal(t, 0, st.ConsecutiveFailures)
    assert.True(t, r.Allow("ep"))
}

func TestBreakerReopensWithBackoffOnHalfOpenFailure(t *testing.T) {
    now := time.Now()
    r := newTestRegistry(&now)

    for i := 0; i < 3; i++ {
        r.RecordFailure("ep")
    }
    now = now.Add(61 * time.Second)
    assert.True(t, r.Allow("ep"))

    // Trial probe fails: re-open with the cool-down doubled
    r.RecordFailure("ep")
    st := r.Snapshot("ep")
    assert.Equal(t, PhaseOpen, st.Phase)
    assert.Equal(t, now.Add(2*time.Minute), st.OpenUntil)

    // One minute is not enough any more
    now = now.Add(61 * time.Second)
    assert.False(t, r.Allow("ep"))
    now = now.Add(61 * time.Second)
    assert.True(t, r.Allow("ep"))
}

func TestBreakerCooldownCapped(t *testing.T) {
    now := time.Now()
    r := newTestRegistry(&now)

    for i := 0; i < 3; i++ {
        r.RecordFailure("ep")
    }

    // Repeated half-open failures keep doubling up to the cap
    for i := 0; i < 10; i++ {
        now = r.Snapshot("ep").OpenUntil.Add(time.Second)
        assert.True(t, r.Allow("ep"))
        r.RecordFailure("ep")
    }

    st := r.Snapshot("ep")
    assert.Equal(t, now.Add(30*time.Minute), st.OpenUntil)
}

func TestBreakerSuccessResetsCooldown(t *testing.T) {
    now := time.Now()
    r := newTestRegistry(&now)

    for i := 0; i < 3; i++ {
        r.RecordFailure("ep")
    }
    now = now.Add(61 * time.Second)
    r.Allow("ep")
    r.RecordFailure("ep") // cooldown now 2m
    now = r.Snapshot("ep").OpenUntil.Add(time.Second)
    r.Allow("ep")
    r.RecordSuccess("ep")

    // Next open window is back to the base cool-down
    for i := 0; i < 3; i++ {
        r.RecordFailure("ep")
    }
    st := r.Snapshot("ep")
    assert.Equal(t, now.Add(time.Minute), st.OpenUntil)
}

func TestSingleFlightAcquire(t *testing.T) {
    now := time.Now()
    r := newTestRegistry(&now)

    assert.True(t, r.TryAcquire("ep"))
    assert.False(t, r.TryAcquire("ep"))
    assert.True(t, r.TryAcquire("other"))

    r.Release("ep")
    assert.True(t, r.TryAcquire("ep"))
}

func TestForgetDropsState(t *testing.T) {
    now := time.Now()
    r := newTestRegistry(&now)

    for i := 0; i < 3; i++ {
        r.RecordFailure("ep")
    }
    assert.Equal(t, PhaseOpen, r.Phase("ep"))

    r.Forget("ep")
    assert.Equal(t, PhaseClosed, r.Phase("ep"))
    assert.True(t, r.Allow("ep"))
}
