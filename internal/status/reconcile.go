package status

import (
	"sync"
)

// Reconciler decides whether an incoming update may be applied over the
// stored value for the same extension. The rule is last-write-wins
// keyed on the embedded timestamp, never on provenance: a poll result
// can overwrite a realtime value if it is strictly newer, and vice
// versa. On an exact tie the incoming update wins, so a realtime event
// firing at the same instant as a poll referencing that moment
// supersedes it.
//
// The reconciler also owns the monitored key set. Updates for keys
// outside the set are discarded before they reach the store; multiple
// contexts can share one underlying push channel without leaking rows
// across tenants.
type Reconciler struct {
	mu        sync.RWMutex
	monitored map[string]struct{}
}

func NewReconciler() *Reconciler {
	return &Reconciler{monitored: make(map[string]struct{})}
}

// SetMonitored replaces the monitored key set.
func (r *Reconciler) SetMonitored(extensions []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.monitored = make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		r.monitored[ext] = struct{}{}
	}
}

// Monitored reports whether the extension is currently tracked. An
// empty set means nothing is tracked yet and every update is refused.
func (r *Reconciler) Monitored(extension string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.monitored[extension]
	return ok
}

// MonitoredSet returns a copy of the tracked keys.
func (r *Reconciler) MonitoredSet() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.monitored))
	for ext := range r.monitored {
		out = append(out, ext)
	}
	return out
}

// Admit applies the reconciliation rule. prev is the stored value for
// the same key, hasPrev reports whether one exists. The very first
// update for a key is always admitted regardless of timestamp.
func (r *Reconciler) Admit(prev ExtensionStatus, hasPrev bool, incoming ExtensionStatus) bool {
	if !r.Monitored(incoming.Extension) {
		return false
	}
	if !hasPrev {
		return true
	}
	// Not-older wins; strictly older updates must not regress state.
	return !incoming.LastChecked.Before(prev.LastChecked)
}
