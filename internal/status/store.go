package status

import (
	"sync"
	"time"
)

// Store holds the last-known status per extension. It is the single
// source of truth between refreshes: all mutation goes through its
// entry points, which serialize derived-count recomputation and fan-out.
// Consumers always receive copies, never the store-owned snapshot.
type Store struct {
	mu       sync.RWMutex
	snap     Snapshot
	loaded   bool
	registry *Registry
	rec      *Reconciler
}

func NewStore(rec *Reconciler, registry *Registry) *Store {
	return &Store{
		snap:     Snapshot{Extensions: make(map[string]ExtensionStatus)},
		registry: registry,
		rec:      rec,
	}
}

// Get returns a copy of the current snapshot, or nil before the first
// load.
func (s *Store) Get() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.loaded {
		return nil
	}
	out := s.snap.clone()
	return &out
}

// Apply runs a single update through reconciliation and, if admitted,
// merges it and notifies listeners once.
func (s *Store) Apply(update ExtensionStatus) bool {
	return s.ApplyBatch([]ExtensionStatus{update}) > 0
}

// ApplyBatch merges a group of updates that arrived together. However
// many of them are admitted, listeners are notified exactly once,
// preventing redundant re-renders downstream.
func (s *Store) ApplyBatch(updates []ExtensionStatus) int {
	s.mu.Lock()

	applied := 0
	for _, u := range updates {
		prev, ok := s.snap.Extensions[u.Extension]
		if !s.rec.Admit(prev, ok, u) {
			continue
		}
		s.snap.Extensions[u.Extension] = u
		applied++
	}

	if applied == 0 {
		s.mu.Unlock()
		return 0
	}

	s.snap.LastUpdate = time.Now()
	s.snap.Error = ""
	s.snap.recompute()
	s.loaded = true
	snap := s.snap.clone()
	s.mu.Unlock()

	s.registry.Notify(snap)
	return applied
}

// ReplaceAll ingests a full-refresh result. Each entry still merges
// through the per-key recency rule, so a full refresh racing a newer
// realtime event cannot regress it. A fallback result (error set, no
// extensions) only marks the snapshot degraded and keeps previous
// entries: it carries no new information.
func (s *Store) ReplaceAll(incoming Snapshot) {
	s.mu.Lock()

	if incoming.Error != "" && len(incoming.Extensions) == 0 {
		s.snap.Error = incoming.Error
		s.snap.LastUpdate = time.Now()
		s.loaded = true
		snap := s.snap.clone()
		s.mu.Unlock()
		s.registry.Notify(snap)
		return
	}

	for ext, u := range incoming.Extensions {
		prev, ok := s.snap.Extensions[ext]
		if u.Extension == "" {
			u.Extension = ext
		}
		if !s.rec.Admit(prev, ok, u) {
			continue
		}
		s.snap.Extensions[ext] = u
	}

	s.snap.Error = ""
	s.snap.LastUpdate = time.Now()
	s.snap.recompute()
	s.loaded = true
	snap := s.snap.clone()
	s.mu.Unlock()

	s.registry.Notify(snap)
}

// Clear tears the snapshot down to its initial empty state. No
// notification is sent: teardown happens when monitoring stops and the
// listener set is being detached anyway.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap = Snapshot{Extensions: make(map[string]ExtensionStatus)}
	s.loaded = false
}

// IsOnline reports whether the extension currently counts as online.
func (s *Store) IsOnline(extension string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.snap.Extensions[extension]
	return ok && st.State.CountsAsOnline()
}

func (s *Store) OnlineCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.OnlineCount
}

func (s *Store) OnlineExtensions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.snap.OnlineExtensions...)
}
