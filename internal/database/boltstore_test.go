package database

import (
    "context"
    "path/filepath"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) Store {
    t.Helper()
    store, err := NewBoltStore(filepath.Join(t.TempDir(), "beacon.db"))
    require.NoError(t, err)
    t.Cleanup(func() { store.Close() })
    return store
}

func makeEndpoint(name string) *Endpoint {
    return &Endpoint{
        Name:            name,
        URL:             "https://" + name + ".example.com/health",
        TimeoutMS:       5000,
        IntervalSeconds: 300,
        Enabled:         true,
        AlertsEnabled:   true,
    }
}

func TestEndpointCRUD(t *testing.T) {
    store := newTestStore(t)
    ctx := context.Background()

    ep := makeEndpoint("api")
    require.NoError(t, store.CreateEndpoint(ctx, ep))
    assert.NotEmpty(t, ep.ID, "create assigns an id")
    assert.Equal(t, StatusUnknown, ep.Status)

    got, err := store.GetEndpoint(ctx, ep.ID)
    require.NoError(t, err)
    assert.Equal(t, "api", got.Name)
    assert.Equal(t, ep.URL, got.URL)

    got.Name = "api-v2"
    require.NoError(t, store.UpdateEndpoint(ctx, got))
    got, err = store.GetEndpoint(ctx, ep.ID)
    require.NoError(t, err)
    assert.Equal(t, "api-v2", got.Name)

    require.NoError(t, store.DeleteEndpoint(ctx, ep.ID))
    _, err = store.GetEndpoint(ctx, ep.ID)
    assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetEndpointNotFound(t *testing.T) {
    store := newTestStore(t)
    _, err := store.GetEndpoint(context.Background(), "no-such-id")
    assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateEndpointNotFound(t *testing.T) {
    store := newTestStore(t)
    ep := makeEndpoint("ghost")
    ep.ID = "no-such-id"
    err := store.UpdateEndpoint(context.Background(), ep)
    assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetEndpointsFilters(t *testing.T) {
    store := newTestStore(t)
    ctx := context.Background()

    online := makeEndpoint("up")
    online.Status = StatusOnline
    require.NoError(t, store.CreateEndpoint(ctx, online))

    offline := makeEndpoint("down")
    offline.Status = StatusOffline
    require.NoError(t, store.CreateEndpoint(ctx, offline))

    disabled := makeEndpoint("off")
    disabled.Enabled = false
    require.NoError(t, store.CreateEndpoint(ctx, disabled))

    all, err := store.GetEndpoints(ctx, EndpointFilters{})
    require.NoError(t, err)
    assert.Len(t, all, 3)

    offlineOnly, err := store.GetEndpoints(ctx, EndpointFilters{Status: StatusOffline})
    require.NoError(t, err)
    require.Len(t, offlineOnly, 1)
    assert.Equal(t, "down", offlineOnly[0].Name)

    enabled := true
    enabledOnly, err := store.GetEndpoints(ctx, EndpointFilters{Enabled: &enabled})
    require.NoError(t, err)
    assert.Len(t, enabledOnly, 2)
}

func TestSelectDueEndpointsOrderingAndInterval(t *testing.T) {
    store := newTestStore(t)
    ctx := context.Background()
    now := time.Now()

    fresh := makeEndpoint("fresh")
    checked := now.Add(-10 * time.Second)
    fresh.LastCheckedAt = &checked
    require.NoError(t, store.CreateEndpoint(ctx, fresh))

    stale := makeEndpoint("stale")
    staleChecked := now.Add(-400 * time.Second)
    stale.LastCheckedAt = &staleChecked
    require.NoError(t, store.CreateEndpoint(ctx, stale))

    older := makeEndpoint("older")
    olderChecked := now.Add(-900 * time.Second)
    older.LastCheckedAt = &olderChecked
    require.NoError(t, store.CreateEndpoint(ctx, older))

    never := makeEndpoint("never")
    require.NoError(t, store.CreateEndpoint(ctx, never))

    paused := makeEndpoint("paused")
    paused.Enabled = false
    require.NoError(t, store.CreateEndpoint(ctx, paused))

    due, err := store.SelectDueEndpoints(ctx, now, 50)
    require.NoError(t, err)
    require.Len(t, due, 3)

    // Never-checked first, then oldest-checked
    assert.Equal(t, "never", due[0].Name)
    assert.Equal(t, "older", due[1].Name)
    assert.Equal(t, "stale", due[2].Name)

    limited, err := store.SelectDueEndpoints(ctx, now, 2)
    require.NoError(t, err)
    assert.Len(t, limited, 2)
}

func TestSelectOfflineEndpoints(t *testing.T) {
    store := newTestStore(t)
    ctx := context.Background()

    up := makeEndpoint("up")
    up.Status = StatusOnline
    require.NoError(t, store.CreateEndpoint(ctx, up))

    down := makeEndpoint("down")
    down.Status = StatusOffline
    require.NoError(t, store.CreateEndpoint(ctx, down))

    pausedDown := makeEndpoint("paused")
    pausedDown.Status = StatusOffline
    pausedDown.Enabled = false
    require.NoError(t, store.CreateEndpoint(ctx, pausedDown))

    offline, err := store.SelectOfflineEndpoints(ctx)
    require.NoError(t, err)
    require.Len(t, offline, 1)
    assert.Equal(t, "down", offline[0].Name)
}

func TestUpdateEndpointStatus(t *testing.T) {
    store := newTestStore(t)
    ctx := context.Background()

    ep := makeEndpoint("api")
    require.NoError(t, store.CreateEndpoint(ctx, ep))

    checkedAt := time.Now().Truncate(time.Second)
    rt := int64(42)
    require.NoError(t, store.UpdateEndpointStatus(ctx, ep.ID, StatusOnline, checkedAt, &rt, 99.5))

    got, err := store.GetEndpoint(ctx, ep.ID)
    require.NoError(t, err)
    assert.Equal(t, StatusOnline, got.Status)
    require.NotNil(t, got.LastCheckedAt)
    assert.True(t, got.LastCheckedAt.Equal(checkedAt))
    require.NotNil(t, got.LastResponseTimeMS)
    assert.Equal(t, int64(42), *got.LastResponseTimeMS)
    assert.InDelta(t, 99.5, got.UptimePercent, 0.001)

    err = store.UpdateEndpointStatus(ctx, "no-such-id", StatusOnline, checkedAt, nil, 0)
    assert.ErrorIs(t, err, ErrNotFound)
}

func appendLog(t *testing.T, store Store, endpointID, status string, checkedAt time.Time) {
    t.Helper()
    rt := int64(10)
    var rtp *int64
    if status == StatusOnline {
        rtp = &rt
    }
    require.NoError(t, store.AppendStatusLog(context.Background(), &StatusLogEntry{
        EndpointID:     endpointID,
        Status:         status,
        ResponseTimeMS: rtp,
        CheckedAt:      checkedAt,
    }))
}

func TestStatusLogSince(t *testing.T) {
    store := newTestStore(t)
    ctx := context.Background()
    now := time.Now()

    appendLog(t, store, "ep-1", StatusOnline, now.Add(-3*time.Hour))
    appendLog(t, store, "ep-1", StatusOffline, now.Add(-2*time.Hour))
    appendLog(t, store, "ep-1", StatusOnline, now.Add(-30*time.Minute))
    appendLog(t, store, "ep-2", StatusOnline, now.Add(-10*time.Minute))

    entries, err := store.StatusLogSince(ctx, "ep-1", now.Add(-1*time.Hour))
    require.NoError(t, err)
    require.Len(t, entries, 1)
    assert.Equal(t, StatusOnline, entries[0].Status)

    all, err := store.StatusLogSince(ctx, "ep-1", now.Add(-24*time.Hour))
    require.NoError(t, err)
    assert.Len(t, all, 3)
}

func TestGetStatusLogChronological(t *testing.T) {
    store := newTestStore(t)
    ctx := context.Background()
    now := time.Now()

    appendLog(t, store, "ep-1", StatusOnline, now.Add(-3*time.Minute))
    appendLog(t, store, "ep-1", StatusOffline, now.Add(-2*time.Minute))
    appendLog(t, store, "ep-1", StatusOnline, now.Add(-1*time.Minute))

    entries, err := store.GetStatusLog(ctx, StatusLogFilters{EndpointID: "ep-1"})
    require.NoError(t, err)
    require.Len(t, entries, 3)
    assert.True(t, entries[0].CheckedAt.Before(entries[1].CheckedAt))
    assert.True(t, entries[1].CheckedAt.Before(entries[2].CheckedAt))

    limited, err := store.GetStatusLog(ctx, StatusLogFilters{EndpointID: "ep-1", Limit: 2})
    require.NoError(t, err)
    assert.Len(t, limited, 2)
}

func TestAlertConfigLifecycle(t *testing.T) {
    store := newTestStore(t)
    ctx := context.Background()

    cfg := &AlertConfig{
        EndpointID:  "ep-1",
        Channel:     ChannelSlack,
        Destination: "https://hooks.slack.com/services/T00/B00/xyz",
        Enabled:     true,
    }
    require.NoError(t, store.CreateAlertConfig(ctx, cfg))
    assert.NotEmpty(t, cfg.ID)

    disabled := &AlertConfig{
        EndpointID:  "ep-1",
        Channel:     ChannelEmail,
        Destination: "ops@example.com",
        Enabled:     false,
    }
    require.NoError(t, store.CreateAlertConfig(ctx, disabled))

    other := &AlertConfig{
        EndpointID:  "ep-2",
        Channel:     ChannelWebhook,
        Destination: "https://example.com/hook",
        Enabled:     true,
    }
    require.NoError(t, store.CreateAlertConfig(ctx, other))

    all, err := store.GetAlertConfigs(ctx, "ep-1")
    require.NoError(t, err)
    assert.Len(t, all, 2)

    enabled, err := store.SelectEnabledAlertConfigs(ctx, "ep-1")
    require.NoError(t, err)
    require.Len(t, enabled, 1)
    assert.Equal(t, ChannelSlack, enabled[0].Channel)

    got, err := store.GetAlertConfig(ctx, cfg.ID)
    require.NoError(t, err)
    got.Enabled = false
    require.NoError(t, store.UpdateAlertConfig(ctx, got))

    enabled, err = store.SelectEnabledAlertConfigs(ctx, "ep-1")
    require.NoError(t, err)
    assert.Empty(t, enabled)

    require.NoError(t, store.DeleteAlertConfig(ctx, cfg.ID))
    _, err = store.GetAlertConfig(ctx, cfg.ID)
    assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteEndpointCascadesAlertConfigs(t *testing.T) {
    store := newTestStore(t)
    ctx := context.Background()

    ep := makeEndpoint("api")
    require.NoError(t, store.CreateEndpoint(ctx, ep))
    require.NoError(t, store.CreateAlertConfig(ctx, &AlertConfig{
        EndpointID:  ep.ID,
        Channel:     ChannelWebhook,
        Destination: "https://example.com/hook",
        Enabled:     true,
    }))

    require.NoError(t, store.DeleteEndpoint(ctx, ep.ID))

    configs, err := store.GetAlertConfigs(ctx, ep.ID)
    require.NoError(t, err)
    assert.Empty(t, configs)
}

func TestDeleteStatusLogBefore(t *testing.T) {
    store := newTestStore(t)
    ctx := context.Background()
    now := time.Now()

    appendLog(t, store, "ep-1", StatusOnline, now.Add(-48*time.Hour))
    appendLog(t, store, "ep-1", StatusOnline, now.Add(-36*time.Hour))
    appendLog(t, store, "ep-1", StatusOnline, now.Add(-1*time.Hour))

    deleted, err := store.DeleteStatusLogBefore(ctx, now.Add(-24*time.Hour))
    require.NoError(t, err)
    assert.Equal(t, 2, deleted)

    remaining, err := store.GetStatusLog(ctx, StatusLogFilters{EndpointID: "ep-1"})
    require.NoError(t, err)
    assert.Len(t, remaining, 1)
}

func TestGetDatabaseStats(t *testing.T) {
    store := newTestStore(t)
    ctx := context.Background()
    now := time.Now()

    require.NoError(t, store.CreateEndpoint(ctx, makeEndpoint("api")))
    appendLog(t, store, "ep-1", StatusOnline, now.Add(-2*time.Hour))
    appendLog(t, store, "ep-1", StatusOnline, now.Add(-1*time.Hour))

    stats, err := store.GetDatabaseStats(ctx)
    require.NoError(t, err)
    assert.Equal(t, 1, stats.TotalEndpoints)
    assert.Equal(t, 2, stats.TotalLogEntries)
    assert.True(t, stats.OldestLogEntry.Before(stats.NewestLogEntry))
}
