package status

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Listener receives a read-only copy of the snapshot after every
// coalesced store mutation. Listeners are invoked synchronously.
type Listener func(Snapshot)

// Registry is the fan-out layer. One misbehaving listener must not
// prevent delivery to the others, so each callback runs behind a
// recover.
type Registry struct {
	mu        sync.RWMutex
	listeners map[uuid.UUID]Listener
	logger    *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		listeners: make(map[uuid.UUID]Listener),
		logger:    logger,
	}
}

// Add registers a listener and returns its unsubscribe func. The
// returned func is safe to call more than once.
func (r *Registry) Add(fn Listener) func() {
	id := uuid.New()

	r.mu.Lock()
	r.listeners[id] = fn
	r.mu.Unlock()

	return func() { r.Remove(id) }
}

func (r *Registry) Remove(id uuid.UUID) {
	r.mu.Lock()
	delete(r.listeners, id)
	r.mu.Unlock()
}

// Clear detaches every listener. Used on forced logout so no further
// updates reach a logged-out view.
func (r *Registry) Clear() {
	r.mu.Lock()
	n := len(r.listeners)
	r.listeners = make(map[uuid.UUID]Listener)
	r.mu.Unlock()

	if n > 0 {
		r.logger.Info("listener registry cleared", zap.Int("detached", n))
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.listeners)
}

// Notify fans the snapshot out to all registered listeners.
func (r *Registry) Notify(snap Snapshot) {
	r.mu.RLock()
	fns := make([]Listener, 0, len(r.listeners))
	for _, fn := range r.listeners {
		fns = append(fns, fn)
	}
	r.mu.RUnlock()

	for _, fn := range fns {
		r.dispatch(fn, snap)
	}
}

func (r *Registry) dispatch(fn Listener, snap Snapshot) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("status listener panicked", zap.Any("panic", rec))
		}
	}()
	fn(snap)
}
