package status

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Connection states of the push channel.
const (
	RealtimeIdle       = "idle"
	RealtimeConnecting = "connecting"
	RealtimeSubscribed = "subscribed"
	RealtimeError      = "error"
)

// changeEvent is the NOTIFY payload published by the row-change trigger
// on the extension-state table. It carries the full new record, not a
// diff, and is emitted per owner channel so filtering happens
// server-side.
type changeEvent struct {
	Op     string `json:"op"`
	Record struct {
		AgentID     string              `json:"agentId"`
		Extension   string              `json:"extension"`
		DisplayName string              `json:"displayName"`
		OwnerID     string              `json:"ownerId"`
		State       string              `json:"state"`
		Detail      *RegistrationDetail `json:"detail"`
		ChangedAt   time.Time           `json:"changedAt"`
	} `json:"record"`
}

// RealtimeSubscriber listens for push-based change events on a
// per-owner Postgres NOTIFY channel, independent of the polling
// cadence. Its only job is to shape each event into an ExtensionStatus
// and hand it downstream; the reconciler's monitored-key filter is the
// second line of defense behind the server-side channel filter.
//
// It implements no backoff loop of its own: when the listen connection
// drops, the next pool acquire re-dials through the pool.
type RealtimeSubscriber struct {
	pool    *pgxpool.Pool
	channel string
	logger  *zap.Logger
	onEvent func(ExtensionStatus)

	mu     sync.Mutex
	state  string
	cancel context.CancelFunc
	done   chan struct{}
}

func NewRealtimeSubscriber(pool *pgxpool.Pool, channel string, onEvent func(ExtensionStatus), logger *zap.Logger) *RealtimeSubscriber {
	return &RealtimeSubscriber{
		pool:    pool,
		channel: channel,
		logger:  logger,
		onEvent: onEvent,
		state:   RealtimeIdle,
	}
}

// Subscribe opens the push channel for the given owner. Idempotent
// while a subscription is active.
func (r *RealtimeSubscriber) Subscribe(ctx context.Context, ownerID string) {
	r.mu.Lock()
	if r.cancel != nil {
		r.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	done := r.done
	r.state = RealtimeConnecting
	r.mu.Unlock()

	go r.listen(runCtx, ownerID, done)
}

// Unsubscribe closes the push channel and waits for the listen loop to
// exit. Safe to call repeatedly.
func (r *RealtimeSubscriber) Unsubscribe() {
	r.mu.Lock()
	cancel := r.cancel
	done := r.done
	r.cancel = nil
	r.done = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	r.setState(RealtimeIdle)
}

// State returns the current connection state.
func (r *RealtimeSubscriber) State() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *RealtimeSubscriber) setState(s string) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

func (r *RealtimeSubscriber) listen(ctx context.Context, ownerID string, done chan struct{}) {
	defer close(done)

	// ownerID scopes the channel name; listening on the shared channel
	// would deliver every tenant's rows to every subscriber.
	channel := pgx.Identifier{r.channel + "_" + ownerID}.Sanitize()

	for ctx.Err() == nil {
		conn, err := r.pool.Acquire(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			r.setState(RealtimeError)
			r.logger.Warn("realtime: acquire listen connection", zap.Error(err))
			// Polling keeps the data eventually consistent regardless;
			// wait out the pool before dialing again.
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}

		if _, err := conn.Exec(ctx, "LISTEN "+channel); err != nil {
			conn.Release()
			if ctx.Err() != nil {
				return
			}
			r.setState(RealtimeError)
			r.logger.Warn("realtime: LISTEN failed", zap.String("channel", channel), zap.Error(err))
			continue
		}

		r.setState(RealtimeSubscribed)
		r.logger.Info("realtime subscribed",
			zap.String("owner", ownerID),
			zap.String("channel", channel),
		)

		r.consume(ctx, conn)
		conn.Release()
	}
}

func (r *RealtimeSubscriber) consume(ctx context.Context, conn *pgxpool.Conn) {
	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() == nil {
				r.setState(RealtimeError)
				r.logger.Warn("realtime: notification stream broken", zap.Error(err))
			}
			return
		}
		r.handle(n.Payload)
	}
}

func (r *RealtimeSubscriber) handle(payload string) {
	var ev changeEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		r.logger.Warn("realtime: malformed event payload", zap.Error(err))
		return
	}
	if ev.Op != "UPDATE" {
		return
	}

	st := ExtensionStatus{
		AgentID:     ev.Record.AgentID,
		Extension:   ev.Record.Extension,
		DisplayName: ev.Record.DisplayName,
		OwnerID:     ev.Record.OwnerID,
		State:       parseState(ev.Record.State),
		Detail:      ev.Record.Detail,
		LastChecked: ev.Record.ChangedAt,
		Provenance:  ProvenanceRealtime,
	}
	if st.LastChecked.IsZero() {
		st.LastChecked = time.Now()
	}

	r.onEvent(st)
}
