package status

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestGuard(t *testing.T, handler http.HandlerFunc, teardowns *atomic.Int32) *Guard {
	t.Helper()
	url := ""
	if handler != nil {
		srv := httptest.NewServer(handler)
		t.Cleanup(srv.Close)
		url = srv.URL
	}
	return NewGuard(url, "", time.Hour, time.Hour, func(string) { teardowns.Add(1) }, zap.NewNop())
}

func TestGuardTripsOnSuspended(t *testing.T) {
	var teardowns atomic.Int32
	g := newTestGuard(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]bool{"suspended": true})
	}, &teardowns)

	g.Check(context.Background())

	assert.True(t, g.Tripped())
	assert.Equal(t, int32(1), teardowns.Load())
}

func TestGuardTripsOnForcedLogout(t *testing.T) {
	var teardowns atomic.Int32
	g := newTestGuard(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]bool{"forceLogout": true})
	}, &teardowns)

	g.Check(context.Background())

	assert.True(t, g.Tripped())
	assert.Equal(t, int32(1), teardowns.Load())
}

func TestGuardHealthyPrincipalDoesNotTrip(t *testing.T) {
	var teardowns atomic.Int32
	g := newTestGuard(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]bool{"suspended": false})
	}, &teardowns)

	g.Check(context.Background())

	assert.False(t, g.Tripped())
	assert.Equal(t, int32(0), teardowns.Load())
}

func TestGuardSwallowsCheckFailures(t *testing.T) {
	var teardowns atomic.Int32
	g := NewGuard("http://127.0.0.1:1", "", time.Hour, time.Hour,
		func(string) { teardowns.Add(1) }, zap.NewNop())

	assert.NotPanics(t, func() { g.Check(context.Background()) })
	assert.False(t, g.Tripped())
	assert.Equal(t, int32(0), teardowns.Load())
}

func TestGuardTripIsIdempotent(t *testing.T) {
	var teardowns atomic.Int32
	g := newTestGuard(t, nil, &teardowns)

	g.Trip("first")
	g.Trip("second")
	g.HandleUnauthorized(true)

	assert.Equal(t, int32(1), teardowns.Load(), "repeated triggers must not re-run teardown")
}

func TestGuardResetReArms(t *testing.T) {
	var teardowns atomic.Int32
	g := newTestGuard(t, nil, &teardowns)

	g.Trip("stale session")
	g.Reset()
	g.Trip("new session")

	assert.Equal(t, int32(2), teardowns.Load())
}

func TestGuardHandleUnauthorizedWithoutFlag(t *testing.T) {
	var teardowns atomic.Int32
	g := newTestGuard(t, nil, &teardowns)

	// A plain 401 without the explicit signal is not a forced logout.
	g.HandleUnauthorized(false)

	assert.False(t, g.Tripped())
	assert.Equal(t, int32(0), teardowns.Load())
}

func TestGuardCadence(t *testing.T) {
	var checks atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		checks.Add(1)
		json.NewEncoder(w).Encode(map[string]bool{"suspended": false})
	}))
	defer srv.Close()

	g := NewGuard(srv.URL, "", 20*time.Millisecond, 5*time.Millisecond, nil, zap.NewNop())
	g.Start(context.Background())
	defer g.Stop()

	assert.Eventually(t, func() bool { return checks.Load() >= 3 }, time.Second, time.Millisecond,
		"one check shortly after activation, then one per interval")
}

func TestGuardStopIdempotent(t *testing.T) {
	g := NewGuard("", "", time.Hour, time.Hour, nil, zap.NewNop())
	g.Start(context.Background())

	assert.NotPanics(t, func() {
		g.Stop()
		g.Stop()
	})
}
