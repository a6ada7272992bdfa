package status

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Options carries the engine tuning knobs. Zero values fall back to the
// deployment defaults in config.
type Options struct {
	PollInterval         time.Duration
	FallbackInterval     time.Duration
	SuspendCheckInterval time.Duration
	SuspendCheckDelay    time.Duration
	BatchCap             int
	NotifyChannel        string
	AuthCheckURL         string
	APIToken             string

	// ShouldActivate gates live polling per view context. Nil allows all.
	ShouldActivate ActivationPredicate

	// OnForcedLogout receives the logout signal after internal teardown
	// (session drop, navigation). Optional.
	OnForcedLogout func(reason string)
}

// Service is the one coordination point per process: it owns the store,
// the fan-out registry, both refresh cadences and the push channel, and
// exposes the consumer surface. Construct it once at startup and pass
// it by reference; tests build isolated instances the same way.
type Service struct {
	opts    Options
	logger  *zap.Logger
	fetcher *Fetcher

	rec      *Reconciler
	registry *Registry
	store    *Store
	guard    *Guard
	poller   *Scheduler
	fallback *Scheduler
	realtime *RealtimeSubscriber

	loadedOnce atomic.Bool
}

func NewService(opts Options, fetcher *Fetcher, pool *pgxpool.Pool, logger *zap.Logger) *Service {
	s := &Service{
		opts:    opts,
		logger:  logger,
		fetcher: fetcher,
	}

	s.rec = NewReconciler()
	s.registry = NewRegistry(logger)
	s.store = NewStore(s.rec, s.registry)
	s.guard = NewGuard(opts.AuthCheckURL, opts.APIToken,
		opts.SuspendCheckInterval, opts.SuspendCheckDelay, s.teardown, logger)

	fetcher.OnUnauthorized(s.guard.HandleUnauthorized)

	s.poller = NewScheduler(opts.PollInterval, opts.ShouldActivate, s.pollTick, logger)
	// The coarse fallback cycle runs alongside realtime; it is an
	// internal cadence, not page-driven, so no activation predicate.
	s.fallback = NewScheduler(opts.FallbackInterval, nil, s.fallbackTick, logger)

	if pool != nil {
		s.realtime = NewRealtimeSubscriber(pool, opts.NotifyChannel, s.onRealtimeEvent, logger)
	}

	return s
}

// =======================
// CONSUMER SURFACE
// =======================

// AddListener registers a snapshot listener and returns its
// unsubscribe func.
func (s *Service) AddListener(fn Listener) func() {
	return s.registry.Add(fn)
}

// GetLastStatus returns the last snapshot, or nil before first load.
func (s *Service) GetLastStatus() *Snapshot {
	return s.store.Get()
}

func (s *Service) IsExtensionOnline(extension string) bool {
	return s.store.IsOnline(extension)
}

func (s *Service) GetOnlineCount() int {
	return s.store.OnlineCount()
}

func (s *Service) GetOnlineExtensions() []string {
	return s.store.OnlineExtensions()
}

// EngineStats describes the engine's own monitoring state.
type EngineStats struct {
	IsMonitoring  bool      `json:"isMonitoring"`
	RealtimeState string    `json:"realtimeState"`
	LastUpdate    time.Time `json:"lastUpdate"`
	CacheSize     int       `json:"cacheSize"`
	OnlineCount   int       `json:"onlineCount"`
	Listeners     int       `json:"listeners"`
}

func (s *Service) Stats() EngineStats {
	st := EngineStats{
		IsMonitoring:  s.poller.Running() || s.fallback.Running(),
		RealtimeState: RealtimeIdle,
		OnlineCount:   s.store.OnlineCount(),
		Listeners:     s.registry.Len(),
	}
	if s.realtime != nil {
		st.RealtimeState = s.realtime.State()
	}
	if snap := s.store.Get(); snap != nil {
		st.LastUpdate = snap.LastUpdate
		st.CacheSize = snap.TotalExtensions
	}
	return st
}

// =======================
// POLLING MODE
// =======================

// StartAutoUpdate begins the full-refresh polling cycle for a view
// context. Contexts outside the allow-list are refused; starting twice
// for the same context is a no-op; a different context reconciles the
// running cycle instead of doubling it.
func (s *Service) StartAutoUpdate(ctx context.Context, contextID string) {
	s.guard.Reset()
	s.poller.Start(ctx, contextID)
	if s.poller.Running() {
		s.guard.Start(ctx)
	}
}

// StopAutoUpdate halts polling. Safe to call repeatedly.
func (s *Service) StopAutoUpdate() {
	s.poller.Stop()
	if !s.fallback.Running() {
		s.guard.Stop()
	}
}

func (s *Service) pollTick(ctx context.Context, _ string, _ bool) {
	prov := ProvenanceFallback
	if !s.loadedOnce.Load() {
		prov = ProvenanceInitialLoad
	}

	snap := s.fetcher.FetchAll(ctx, prov == ProvenanceInitialLoad, prov)

	if snap.Error == "" {
		// A successful full fetch is the authority on which keys this
		// session tracks, unless an explicit realtime list is active.
		if !s.fallback.Running() {
			keys := make([]string, 0, len(snap.Extensions))
			for ext := range snap.Extensions {
				keys = append(keys, ext)
			}
			s.rec.SetMonitored(keys)
		}
		s.loadedOnce.Store(true)
	}

	s.store.ReplaceAll(snap)

	// Suspension check runs alongside, never in the fetch path.
	go s.guard.Check(ctx)
}

// =======================
// REALTIME MODE
// =======================

// StartRealtimeForAgents tracks an explicit extension list for one
// owner: push events drive the store, with a coarse batch cycle as the
// eventually-consistent baseline. An empty list is a no-op.
func (s *Service) StartRealtimeForAgents(ctx context.Context, extensions []string, ownerID string) {
	if len(extensions) == 0 {
		return
	}

	s.guard.Reset()
	s.rec.SetMonitored(extensions)

	if s.realtime != nil {
		s.realtime.Subscribe(ctx, ownerID)
	}
	s.fallback.Start(ctx, "realtime-fallback")
	s.guard.Start(ctx)

	s.logger.Info("realtime monitoring started",
		zap.String("owner", ownerID),
		zap.Int("extensions", len(extensions)),
	)
}

// StopRealtime closes the push channel and the fallback cycle.
func (s *Service) StopRealtime() {
	if s.realtime != nil {
		s.realtime.Unsubscribe()
	}
	s.fallback.Stop()
	if !s.poller.Running() {
		s.guard.Stop()
	}
}

// UpdateMonitoredAgents swaps the tracked extension list without
// restarting the push channel.
func (s *Service) UpdateMonitoredAgents(extensions []string) {
	s.rec.SetMonitored(extensions)
}

func (s *Service) fallbackTick(ctx context.Context, _ string, _ bool) {
	monitored := s.rec.MonitoredSet()
	if len(monitored) == 0 {
		return
	}

	updates := make([]ExtensionStatus, 0, len(monitored))
	for _, group := range chunk(monitored, s.opts.BatchCap) {
		batch := s.fetcher.FetchBatch(ctx, group)
		for _, st := range batch {
			updates = append(updates, st)
		}
	}

	if len(updates) > 0 {
		s.store.ApplyBatch(updates)
	}

	go s.guard.Check(ctx)
}

func (s *Service) onRealtimeEvent(st ExtensionStatus) {
	s.store.Apply(st)
}

// =======================
// TEARDOWN
// =======================

// teardown is the guard's forced-logout hook. Listener detach and
// cache clear happen synchronously so no further notifications can
// reach a logged-out view; the timers wind down in the background
// because the trigger may originate inside one of their own ticks.
func (s *Service) teardown(reason string) {
	s.registry.Clear()
	s.store.Clear()
	s.loadedOnce.Store(false)

	go func() {
		s.poller.Stop()
		s.fallback.Stop()
		if s.realtime != nil {
			s.realtime.Unsubscribe()
		}
		s.guard.Stop()
	}()

	if s.opts.OnForcedLogout != nil {
		s.opts.OnForcedLogout(reason)
	}
}

// Shutdown stops every cadence and channel. For process exit.
func (s *Service) Shutdown() {
	s.poller.Stop()
	s.fallback.Stop()
	if s.realtime != nil {
		s.realtime.Unsubscribe()
	}
	s.guard.Stop()
	s.registry.Clear()
	s.store.Clear()
}

func chunk(items []string, size int) [][]string {
	if size <= 0 {
		return [][]string{items}
	}
	var out [][]string
	for len(items) > size {
		out = append(out, items[:size])
		items = items[size:]
	}
	if len(items) > 0 {
		out = append(out, items)
	}
	return out
}
