package status

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSchedulerImmediateTickThenInterval(t *testing.T) {
	var ticks atomic.Int32
	s := NewScheduler(20*time.Millisecond, nil, func(context.Context, string, bool) {
		ticks.Add(1)
	}, zap.NewNop())

	s.Start(context.Background(), "dashboard")
	defer s.Stop()

	require.Eventually(t, func() bool { return ticks.Load() >= 1 }, time.Second, time.Millisecond,
		"first tick fires immediately on start")
	require.Eventually(t, func() bool { return ticks.Load() >= 3 }, time.Second, time.Millisecond)
}

func TestSchedulerRefusesUnlistedContext(t *testing.T) {
	var ticks atomic.Int32
	s := NewScheduler(10*time.Millisecond, AllowList([]string{"dashboard"}), func(context.Context, string, bool) {
		ticks.Add(1)
	}, zap.NewNop())

	s.Start(context.Background(), "settings")

	assert.False(t, s.Running())
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), ticks.Load())
}

func TestSchedulerStartIsIdempotent(t *testing.T) {
	var firstTicks atomic.Int32
	s := NewScheduler(time.Hour, nil, func(_ context.Context, _ string, first bool) {
		if first {
			firstTicks.Add(1)
		}
	}, zap.NewNop())

	s.Start(context.Background(), "dashboard")
	s.Start(context.Background(), "dashboard")
	s.Start(context.Background(), "dashboard")
	defer s.Stop()

	require.Eventually(t, func() bool { return firstTicks.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), firstTicks.Load(), "repeated Start must not spawn duplicate timers")
}

func TestSchedulerContextSwitchReconciles(t *testing.T) {
	contexts := make(chan string, 16)
	s := NewScheduler(15*time.Millisecond, nil, func(_ context.Context, id string, _ bool) {
		select {
		case contexts <- id:
		default:
		}
	}, zap.NewNop())

	s.Start(context.Background(), "dashboard")
	defer s.Stop()

	s.Start(context.Background(), "agents")

	require.Eventually(t, func() bool {
		for {
			select {
			case id := <-contexts:
				if id == "agents" {
					return true
				}
			default:
				return false
			}
		}
	}, time.Second, 5*time.Millisecond, "a second Start reconciles the tracked context")
	assert.True(t, s.Running())
}

func TestSchedulerStopIsDeterministicAndIdempotent(t *testing.T) {
	var ticks atomic.Int32
	s := NewScheduler(5*time.Millisecond, nil, func(context.Context, string, bool) {
		ticks.Add(1)
	}, zap.NewNop())

	s.Start(context.Background(), "dashboard")
	require.Eventually(t, func() bool { return ticks.Load() >= 2 }, time.Second, time.Millisecond)

	s.Stop()
	after := ticks.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, ticks.Load(), "no tick may fire after Stop returns")

	assert.NotPanics(t, func() {
		s.Stop()
		s.Stop()
	})
	assert.False(t, s.Running())
}

func TestSchedulerRestartAfterStop(t *testing.T) {
	var ticks atomic.Int32
	s := NewScheduler(10*time.Millisecond, nil, func(context.Context, string, bool) {
		ticks.Add(1)
	}, zap.NewNop())

	s.Start(context.Background(), "dashboard")
	require.Eventually(t, func() bool { return ticks.Load() >= 1 }, time.Second, time.Millisecond)
	s.Stop()

	before := ticks.Load()
	s.Start(context.Background(), "dashboard")
	defer s.Stop()
	require.Eventually(t, func() bool { return ticks.Load() > before }, time.Second, time.Millisecond)
}
