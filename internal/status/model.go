package status

import (
	"sort"
	"time"
)

// =======================
// STATES
// =======================

type State string

const (
	StateOnline  State = "online"
	StateOffline State = "offline"
	StateBusy    State = "busy"
	StateAway    State = "away"
)

// CountsAsOnline reports whether the state contributes to OnlineCount.
// An agent on a call is still registered and reachable, so busy counts;
// away and offline do not.
func (s State) CountsAsOnline() bool {
	return s == StateOnline || s == StateBusy
}

// Provenance records how a status value was obtained. It is diagnostic
// only: reconciliation is strictly by timestamp, never by source.
type Provenance string

const (
	ProvenanceRealtime    Provenance = "realtime"
	ProvenanceFallback    Provenance = "fallback-poll"
	ProvenanceInitialLoad Provenance = "initial-load"
)

// =======================
// MODELS
// =======================

// RegistrationDetail is present only when the value came from a live
// SIP registration record.
type RegistrationDetail struct {
	EndpointID string    `json:"endpointId,omitempty"`
	RawStatus  string    `json:"rawStatus,omitempty"`
	URI        string    `json:"uri,omitempty"`
	UserAgent  string    `json:"userAgent,omitempty"`
	ExpiresAt  int64     `json:"expiresAt,omitempty"`
	LastSeen   time.Time `json:"lastSeen,omitempty"`
}

type ExtensionStatus struct {
	AgentID     string              `json:"agentId,omitempty"`
	Extension   string              `json:"extension"`
	DisplayName string              `json:"displayName,omitempty"`
	OwnerID     string              `json:"ownerId,omitempty"`
	State       State               `json:"state"`
	Detail      *RegistrationDetail `json:"detail,omitempty"`
	LastChecked time.Time           `json:"lastChecked"`
	Provenance  Provenance          `json:"provenance,omitempty"`
}

// Snapshot is the aggregate view handed to consumers. Counts and the
// online list are derived; they are recomputed on every mutation and
// never maintained by hand.
type Snapshot struct {
	Extensions       map[string]ExtensionStatus `json:"extensions"`
	OnlineCount      int                        `json:"onlineCount"`
	TotalExtensions  int                        `json:"totalExtensions"`
	OnlineExtensions []string                   `json:"onlineExtensions"`
	LastUpdate       time.Time                  `json:"lastUpdate"`
	Error            string                     `json:"error,omitempty"`
}

// Fallback builds the degraded snapshot shape returned when the
// upstream could not be reached: empty map, error set. Consumers must
// treat it as "no new information", not as "everyone offline".
func Fallback(reason string) Snapshot {
	return Snapshot{
		Extensions: map[string]ExtensionStatus{},
		LastUpdate: time.Now(),
		Error:      reason,
	}
}

func (s *Snapshot) recompute() {
	s.TotalExtensions = len(s.Extensions)
	s.OnlineCount = 0
	s.OnlineExtensions = s.OnlineExtensions[:0]
	for ext, st := range s.Extensions {
		if st.State.CountsAsOnline() {
			s.OnlineCount++
			s.OnlineExtensions = append(s.OnlineExtensions, ext)
		}
	}
	sort.Strings(s.OnlineExtensions)
}

// clone deep-copies the snapshot so consumers can never mutate the
// store-owned value.
func (s *Snapshot) clone() Snapshot {
	out := *s
	out.Extensions = make(map[string]ExtensionStatus, len(s.Extensions))
	for k, v := range s.Extensions {
		if v.Detail != nil {
			d := *v.Detail
			v.Detail = &d
		}
		out.Extensions[k] = v
	}
	out.OnlineExtensions = append([]string(nil), s.OnlineExtensions...)
	return out
}
