package status

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// TeardownFunc runs the forced-logout side effects: stop polling,
// detach listeners, drop the session, signal navigation. The guard
// guarantees it runs at most once per activation.
type TeardownFunc func(reason string)

// Guard watches for the suspended-account signal. It is consulted after
// every fetch and on its own slower cadence, and it must never get in
// the way of the status path: its own failures are swallowed.
type Guard struct {
	client   *http.Client
	checkURL string
	apiToken string
	interval time.Duration
	delay    time.Duration
	logger   *zap.Logger
	teardown TeardownFunc

	tripped atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type principalStatus struct {
	Suspended   bool `json:"suspended"`
	ForceLogout bool `json:"forceLogout"`
}

func NewGuard(checkURL, apiToken string, interval, delay time.Duration, teardown TeardownFunc, logger *zap.Logger) *Guard {
	return &Guard{
		client:   &http.Client{Timeout: 10 * time.Second},
		checkURL: checkURL,
		apiToken: apiToken,
		interval: interval,
		delay:    delay,
		logger:   logger,
		teardown: teardown,
	}
}

// Start launches the independent check cadence: one check shortly after
// activation, then one per interval. Idempotent while running.
func (g *Guard) Start(ctx context.Context) {
	g.mu.Lock()
	if g.cancel != nil {
		g.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	g.cancel = cancel
	g.done = make(chan struct{})
	done := g.done
	g.mu.Unlock()

	go g.run(runCtx, done)
}

func (g *Guard) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	select {
	case <-ctx.Done():
		return
	case <-time.After(g.delay):
		g.Check(ctx)
	}

	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.Check(ctx)
		}
	}
}

// Stop halts the cadence. Safe to call repeatedly.
func (g *Guard) Stop() {
	g.mu.Lock()
	cancel := g.cancel
	done := g.done
	g.cancel = nil
	g.done = nil
	g.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Reset re-arms the guard for a fresh session after a previous trip.
func (g *Guard) Reset() {
	g.tripped.Store(false)
}

// Tripped reports whether teardown has fired for this session.
func (g *Guard) Tripped() bool {
	return g.tripped.Load()
}

// Check queries the principal-status endpoint and trips teardown when
// the account is suspended. Check failures never interrupt polling;
// they are logged and dropped.
func (g *Guard) Check(ctx context.Context) {
	if g.checkURL == "" || g.tripped.Load() {
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.checkURL, nil)
	if err != nil {
		g.logger.Debug("suspend check request build failed", zap.Error(err))
		return
	}
	if g.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiToken)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Debug("suspend check failed", zap.Error(err))
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return
	}

	var ps principalStatus
	if err := json.Unmarshal(body, &ps); err != nil {
		g.logger.Debug("suspend check: malformed body", zap.Error(err))
		return
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized && ps.ForceLogout:
		g.Trip("unauthorized: force logout")
	case ps.Suspended:
		g.Trip("account suspended")
	}
}

// HandleUnauthorized is the fetcher's 401 hook.
func (g *Guard) HandleUnauthorized(forceLogout bool) {
	if forceLogout {
		g.Trip("unauthorized: force logout")
	}
}

// Trip runs teardown exactly once per armed session. Repeated triggers
// are no-ops, so a burst of failing requests cannot double-navigate.
func (g *Guard) Trip(reason string) {
	if !g.tripped.CompareAndSwap(false, true) {
		return
	}
	g.logger.Warn("session guard tripped", zap.String("reason", reason))
	if g.teardown != nil {
		g.teardown(reason)
	}
}
