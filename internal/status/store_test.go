package status

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(monitored ...string) (*Store, *Registry, *Reconciler) {
	rec := NewReconciler()
	rec.SetMonitored(monitored)
	registry := NewRegistry(zap.NewNop())
	return NewStore(rec, registry), registry, rec
}

func ext(extension string, state State, ts time.Time) ExtensionStatus {
	return ExtensionStatus{Extension: extension, State: state, LastChecked: ts}
}

func TestStoreNilBeforeFirstLoad(t *testing.T) {
	store, _, _ := newTestStore("100")
	assert.Nil(t, store.Get())
}

func TestStoreDerivedCountsRecomputed(t *testing.T) {
	store, _, _ := newTestStore("100", "101", "102", "103")
	now := time.Now()

	store.ApplyBatch([]ExtensionStatus{
		ext("100", StateOffline, now),
		ext("101", StateOnline, now),
		ext("102", StateBusy, now),
		ext("103", StateAway, now),
	})

	snap := store.Get()
	require.NotNil(t, snap)
	assert.Equal(t, 4, snap.TotalExtensions)
	// busy counts as online, away does not
	assert.Equal(t, 2, snap.OnlineCount)
	assert.Equal(t, []string{"101", "102"}, snap.OnlineExtensions)

	// flip one offline, counts must follow
	store.Apply(ext("101", StateOffline, now.Add(time.Second)))

	snap = store.Get()
	assert.Equal(t, 1, snap.OnlineCount)
	assert.Equal(t, []string{"102"}, snap.OnlineExtensions)
	assert.Equal(t, 4, snap.TotalExtensions)
}

func TestStoreBatchCoalescesNotifications(t *testing.T) {
	store, registry, _ := newTestStore("100", "101", "102")

	var notifications int32
	registry.Add(func(Snapshot) { atomic.AddInt32(&notifications, 1) })

	now := time.Now()
	applied := store.ApplyBatch([]ExtensionStatus{
		ext("100", StateOnline, now),
		ext("101", StateOnline, now),
		ext("102", StateOffline, now),
	})

	assert.Equal(t, 3, applied)
	assert.Equal(t, int32(1), atomic.LoadInt32(&notifications),
		"a batch of updates must produce exactly one fan-out")
}

func TestStoreNoNotificationWhenNothingAdmitted(t *testing.T) {
	store, registry, _ := newTestStore("100")

	now := time.Now()
	store.Apply(ext("100", StateOnline, now))

	var notifications int32
	registry.Add(func(Snapshot) { atomic.AddInt32(&notifications, 1) })

	// stale update and an unmonitored key: nothing applies, no fan-out
	store.ApplyBatch([]ExtensionStatus{
		ext("100", StateOffline, now.Add(-time.Minute)),
		ext("200", StateOnline, now),
	})

	assert.Equal(t, int32(0), atomic.LoadInt32(&notifications))
	assert.True(t, store.IsOnline("100"))
}

func TestStoreConsumersGetCopies(t *testing.T) {
	store, _, _ := newTestStore("100")
	store.Apply(ext("100", StateOnline, time.Now()))

	snap := store.Get()
	snap.Extensions["100"] = ExtensionStatus{Extension: "100", State: StateOffline}
	snap.OnlineExtensions[0] = "mutated"

	fresh := store.Get()
	assert.Equal(t, StateOnline, fresh.Extensions["100"].State)
	assert.Equal(t, []string{"100"}, fresh.OnlineExtensions)
}

func TestStoreReplaceAllMergesPerKeyRecency(t *testing.T) {
	store, _, _ := newTestStore("100", "101")
	now := time.Now()

	// realtime already delivered a newer value for 100
	store.Apply(ext("100", StateOnline, now.Add(time.Second)))

	full := Snapshot{Extensions: map[string]ExtensionStatus{
		"100": ext("100", StateOffline, now), // stale poll result
		"101": ext("101", StateOnline, now),
	}}
	store.ReplaceAll(full)

	snap := store.Get()
	assert.Equal(t, StateOnline, snap.Extensions["100"].State,
		"full refresh must not regress a newer per-key value")
	assert.Equal(t, StateOnline, snap.Extensions["101"].State)
	assert.Equal(t, 2, snap.OnlineCount)
}

func TestStoreReplaceAllFallbackKeepsPreviousEntries(t *testing.T) {
	store, registry, _ := newTestStore("100")
	store.Apply(ext("100", StateOnline, time.Now()))

	var got Snapshot
	registry.Add(func(s Snapshot) { got = s })

	store.ReplaceAll(Fallback("status fetch failed"))

	snap := store.Get()
	require.NotNil(t, snap)
	assert.Equal(t, "status fetch failed", snap.Error)
	assert.Equal(t, 1, snap.OnlineCount, "fallback means no new information, not everyone offline")
	assert.True(t, store.IsOnline("100"))
	assert.Equal(t, "status fetch failed", got.Error, "degraded snapshot still fans out")
}

func TestStoreClear(t *testing.T) {
	store, _, _ := newTestStore("100")
	store.Apply(ext("100", StateOnline, time.Now()))

	store.Clear()

	assert.Nil(t, store.Get())
	assert.Equal(t, 0, store.OnlineCount())
	assert.False(t, store.IsOnline("100"))
}
