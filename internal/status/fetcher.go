package status

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// UnauthorizedHandler is invoked when the upstream answers 401. The
// flag reports whether the response body carried an explicit
// forced-logout signal.
type UnauthorizedHandler func(forceLogout bool)

// Fetcher is the only component allowed to touch the upstream registrar
// API. Every call carries an explicit deadline; every failure collapses
// into the fallback snapshot shape instead of an error. It has no retry
// loop of its own: retries happen naturally on the next polling tick.
type Fetcher struct {
	client         *http.Client
	baseURL        string
	apiToken       string
	batchCap       int
	timeout        time.Duration
	logger         *zap.Logger
	onUnauthorized UnauthorizedHandler
}

func NewFetcher(baseURL, apiToken string, batchCap int, timeout time.Duration, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		client:   &http.Client{},
		baseURL:  baseURL,
		apiToken: apiToken,
		batchCap: batchCap,
		timeout:  timeout,
		logger:   logger,
	}
}

// OnUnauthorized installs the 401 hook. The session guard registers
// itself here so an upstream forced-logout signal reaches teardown.
func (f *Fetcher) OnUnauthorized(h UnauthorizedHandler) {
	f.onUnauthorized = h
}

// =======================
// WIRE TYPES
// =======================

type wireStatus struct {
	AgentID     string              `json:"agentId"`
	Extension   string              `json:"extension"`
	DisplayName string              `json:"displayName"`
	OwnerID     string              `json:"ownerId"`
	State       string              `json:"state"`
	Detail      *RegistrationDetail `json:"detail"`
	LastChecked time.Time           `json:"lastChecked"`
}

type wireSnapshot struct {
	Extensions map[string]wireStatus `json:"extensions"`
	LastUpdate time.Time             `json:"lastUpdate"`
	Error      string                `json:"error"`
}

type forceLogoutBody struct {
	ForceLogout bool `json:"forceLogout"`
}

// Stats mirrors the upstream monitoring stats endpoint.
type Stats struct {
	IsMonitoring bool      `json:"isMonitoring"`
	LastUpdate   time.Time `json:"lastUpdate"`
	CacheSize    int       `json:"cacheSize"`
	OnlineCount  int       `json:"onlineCount"`
}

// =======================
// FULL FETCH
// =======================

// FetchAll performs a full-state fetch. On any failure it returns the
// degraded snapshot: callers must read that as "no new information",
// never as "everyone offline".
func (f *Fetcher) FetchAll(ctx context.Context, force bool, prov Provenance) Snapshot {
	url := f.baseURL + "/status"
	if force {
		url += "?force=true"
	}

	body, ok := f.do(ctx, http.MethodGet, url, nil)
	if !ok {
		return Fallback("status fetch failed")
	}

	var ws wireSnapshot
	if err := json.Unmarshal(body, &ws); err != nil {
		f.logger.Warn("malformed status response", zap.Error(err))
		return Fallback("malformed status response")
	}

	snap := Snapshot{
		Extensions: make(map[string]ExtensionStatus, len(ws.Extensions)),
		LastUpdate: ws.LastUpdate,
		Error:      ws.Error,
	}
	for ext, w := range ws.Extensions {
		snap.Extensions[ext] = shape(ext, w, prov)
	}
	snap.recompute()
	return snap
}

// =======================
// BATCH FETCH
// =======================

// FetchBatch queries a bounded set of extensions. Requests above the
// cap are truncated, not rejected; chunking larger sets is the caller's
// job. A nil map means the call failed and carried no information.
func (f *Fetcher) FetchBatch(ctx context.Context, extensions []string) map[string]ExtensionStatus {
	if len(extensions) == 0 {
		return map[string]ExtensionStatus{}
	}
	if len(extensions) > f.batchCap {
		f.logger.Warn("batch request over cap, truncating",
			zap.Int("requested", len(extensions)),
			zap.Int("cap", f.batchCap),
		)
		extensions = extensions[:f.batchCap]
	}

	payload, _ := json.Marshal(map[string][]string{"extensions": extensions})
	body, ok := f.do(ctx, http.MethodPost, f.baseURL+"/status/batch", payload)
	if !ok {
		return nil
	}

	var ws map[string]wireStatus
	if err := json.Unmarshal(body, &ws); err != nil {
		f.logger.Warn("malformed batch response", zap.Error(err))
		return nil
	}

	out := make(map[string]ExtensionStatus, len(ws))
	for ext, w := range ws {
		out[ext] = shape(ext, w, ProvenanceFallback)
	}
	return out
}

// FetchOne queries a single extension.
func (f *Fetcher) FetchOne(ctx context.Context, extension string) (ExtensionStatus, bool) {
	body, ok := f.do(ctx, http.MethodGet, f.baseURL+"/status/"+extension, nil)
	if !ok {
		return ExtensionStatus{}, false
	}

	var w wireStatus
	if err := json.Unmarshal(body, &w); err != nil {
		f.logger.Warn("malformed single status response", zap.Error(err))
		return ExtensionStatus{}, false
	}
	return shape(extension, w, ProvenanceFallback), true
}

// =======================
// CONTROL PLANE
// =======================

// StartMonitoring and StopMonitoring toggle upstream server-side
// monitoring. Failures are logged and swallowed: the control plane is
// optional and the poll cycle does not depend on it.
func (f *Fetcher) StartMonitoring(ctx context.Context) {
	f.do(ctx, http.MethodPost, f.baseURL+"/status/start", nil)
}

func (f *Fetcher) StopMonitoring(ctx context.Context) {
	f.do(ctx, http.MethodPost, f.baseURL+"/status/stop", nil)
}

func (f *Fetcher) FetchStats(ctx context.Context) (Stats, bool) {
	body, ok := f.do(ctx, http.MethodGet, f.baseURL+"/status/stats", nil)
	if !ok {
		return Stats{}, false
	}

	var st Stats
	if err := json.Unmarshal(body, &st); err != nil {
		return Stats{}, false
	}
	return st, true
}

// =======================
// TRANSPORT
// =======================

func (f *Fetcher) do(ctx context.Context, method, url string, payload []byte) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		f.logger.Warn("build upstream request", zap.String("url", url), zap.Error(err))
		return nil, false
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if f.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+f.apiToken)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Warn("upstream request failed", zap.String("url", url), zap.Error(err))
		return nil, false
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		f.logger.Warn("read upstream response", zap.String("url", url), zap.Error(err))
		return nil, false
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		// Endpoint not deployed in this environment. A deployment
		// condition, not an error: no retry escalation, no alarm.
		f.logger.Debug("status endpoint not deployed", zap.String("url", url))
		return nil, false

	case resp.StatusCode == http.StatusUnauthorized:
		var fl forceLogoutBody
		_ = json.Unmarshal(body, &fl)
		f.logger.Warn("upstream unauthorized", zap.Bool("forceLogout", fl.ForceLogout))
		if f.onUnauthorized != nil {
			f.onUnauthorized(fl.ForceLogout)
		}
		return nil, false

	case resp.StatusCode < 200 || resp.StatusCode > 299:
		f.logger.Warn("upstream error status",
			zap.String("url", url),
			zap.Int("status", resp.StatusCode),
		)
		return nil, false
	}

	return body, true
}

func shape(ext string, w wireStatus, prov Provenance) ExtensionStatus {
	st := ExtensionStatus{
		AgentID:     w.AgentID,
		Extension:   w.Extension,
		DisplayName: w.DisplayName,
		OwnerID:     w.OwnerID,
		State:       parseState(w.State),
		Detail:      w.Detail,
		LastChecked: w.LastChecked,
		Provenance:  prov,
	}
	if st.Extension == "" {
		st.Extension = ext
	}
	if st.LastChecked.IsZero() {
		st.LastChecked = time.Now()
	}
	return st
}

// parseState collapses unknown upstream strings to offline rather than
// failing the whole payload.
func parseState(s string) State {
	switch State(s) {
	case StateOnline, StateOffline, StateBusy, StateAway:
		return State(s)
	case "registered", "reachable":
		return StateOnline
	case "in-call", "in-use":
		return StateBusy
	default:
		return StateOffline
	}
}
