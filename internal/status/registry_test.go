package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestRegistryAddNotifyUnsubscribe(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	var calls int
	unsubscribe := r.Add(func(Snapshot) { calls++ })
	assert.Equal(t, 1, r.Len())

	r.Notify(Snapshot{})
	assert.Equal(t, 1, calls)

	unsubscribe()
	assert.Equal(t, 0, r.Len())

	r.Notify(Snapshot{})
	assert.Equal(t, 1, calls)

	// unsubscribe is safe to call again
	unsubscribe()
}

func TestRegistryPanickingListenerIsIsolated(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	var delivered int
	r.Add(func(Snapshot) { panic("broken listener") })
	r.Add(func(Snapshot) { delivered++ })

	assert.NotPanics(t, func() { r.Notify(Snapshot{}) })
	assert.Equal(t, 1, delivered, "one failing subscriber must not block the others")
}

func TestRegistryClear(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	var calls int
	r.Add(func(Snapshot) { calls++ })
	r.Add(func(Snapshot) { calls++ })

	r.Clear()
	assert.Equal(t, 0, r.Len())

	r.Notify(Snapshot{})
	assert.Equal(t, 0, calls)
}
