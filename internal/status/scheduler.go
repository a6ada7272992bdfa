package status

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ActivationPredicate reports whether a given view context is allowed
// to drive live polling. The scheduler refuses to start for contexts
// that fail it, keeping idle pages from loading the backend.
type ActivationPredicate func(contextID string) bool

// AllowList builds a predicate from a fixed set of context ids.
func AllowList(contexts []string) ActivationPredicate {
	set := make(map[string]struct{}, len(contexts))
	for _, c := range contexts {
		set[c] = struct{}{}
	}
	return func(id string) bool {
		_, ok := set[id]
		return ok
	}
}

// Scheduler drives a periodic refresh: one immediate tick on start,
// then one per interval. At most one timer runs per scheduler; starting
// while running is idempotent, and starting with a different context id
// reconciles the tracked context instead of spawning a second timer.
type Scheduler struct {
	interval       time.Duration
	tick           func(ctx context.Context, contextID string, first bool)
	shouldActivate ActivationPredicate
	logger         *zap.Logger

	mu        sync.Mutex
	running   bool
	contextID string
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewScheduler(interval time.Duration, shouldActivate ActivationPredicate, tick func(ctx context.Context, contextID string, first bool), logger *zap.Logger) *Scheduler {
	return &Scheduler{
		interval:       interval,
		tick:           tick,
		shouldActivate: shouldActivate,
		logger:         logger,
	}
}

// Start begins the refresh loop for the given context. A no-op when the
// context is not on the allow-list or when already running for the same
// context.
func (s *Scheduler) Start(ctx context.Context, contextID string) {
	if s.shouldActivate != nil && !s.shouldActivate(contextID) {
		s.logger.Debug("polling not activated for context", zap.String("context", contextID))
		return
	}

	s.mu.Lock()
	if s.running {
		if s.contextID != contextID {
			s.logger.Info("polling context reconciled",
				zap.String("from", s.contextID),
				zap.String("to", contextID),
			)
			s.contextID = contextID
		}
		s.mu.Unlock()
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.running = true
	s.contextID = contextID
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	s.logger.Info("polling started",
		zap.String("context", contextID),
		zap.Duration("interval", s.interval),
	)

	go s.run(runCtx, done)
}

func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	s.tick(ctx, s.currentContext(), true)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx, s.currentContext(), false)
		}
	}
}

func (s *Scheduler) currentContext() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contextID
}

// Stop cancels the timer and waits for the loop to exit, so no tick
// fires after it returns. Safe to call repeatedly.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	cancel()
	<-done

	s.logger.Info("polling stopped")
}

// Running reports whether a timer is currently active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
