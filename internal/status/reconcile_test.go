package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReconcilerRejectsStaleUpdate(t *testing.T) {
	rec := NewReconciler()
	rec.SetMonitored([]string{"100"})

	t2 := time.Now()
	t1 := t2.Add(-time.Minute)
	t3 := t2.Add(time.Minute)

	stored := ExtensionStatus{Extension: "100", State: StateOnline, LastChecked: t2}

	older := ExtensionStatus{Extension: "100", State: StateOffline, LastChecked: t1}
	assert.False(t, rec.Admit(stored, true, older), "strictly older update must not regress state")

	newer := ExtensionStatus{Extension: "100", State: StateOffline, LastChecked: t3}
	assert.True(t, rec.Admit(stored, true, newer))
}

func TestReconcilerTieGoesToIncoming(t *testing.T) {
	rec := NewReconciler()
	rec.SetMonitored([]string{"100"})

	ts := time.Now()
	stored := ExtensionStatus{Extension: "100", State: StateOffline, LastChecked: ts, Provenance: ProvenanceFallback}
	incoming := ExtensionStatus{Extension: "100", State: StateOnline, LastChecked: ts, Provenance: ProvenanceRealtime}

	assert.True(t, rec.Admit(stored, true, incoming))
}

func TestReconcilerFirstUpdateAlwaysApplies(t *testing.T) {
	rec := NewReconciler()
	rec.SetMonitored([]string{"100"})

	// Even with a zero timestamp the first value for a key lands.
	incoming := ExtensionStatus{Extension: "100", State: StateOnline}
	assert.True(t, rec.Admit(ExtensionStatus{}, false, incoming))
}

func TestReconcilerDiscardsUnmonitoredKeys(t *testing.T) {
	rec := NewReconciler()
	rec.SetMonitored([]string{"100", "101"})

	foreign := ExtensionStatus{Extension: "200", State: StateOnline, LastChecked: time.Now()}
	assert.False(t, rec.Admit(ExtensionStatus{}, false, foreign))

	rec.SetMonitored([]string{"100", "101", "200"})
	assert.True(t, rec.Admit(ExtensionStatus{}, false, foreign))
}

func TestReconcilerEmptySetRefusesEverything(t *testing.T) {
	rec := NewReconciler()

	incoming := ExtensionStatus{Extension: "100", State: StateOnline, LastChecked: time.Now()}
	assert.False(t, rec.Admit(ExtensionStatus{}, false, incoming))
}

func TestReconcilerMonitoredSetCopy(t *testing.T) {
	rec := NewReconciler()
	rec.SetMonitored([]string{"100", "101"})

	set := rec.MonitoredSet()
	assert.ElementsMatch(t, []string{"100", "101"}, set)

	set[0] = "999"
	assert.True(t, rec.Monitored("100"), "mutating the returned slice must not affect the set")
}
