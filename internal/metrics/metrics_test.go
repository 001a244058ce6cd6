package metrics

import (
	"strings"
	"testing"
)

// TestNewRegistersCollectors verifies runtime collectors sit alongside the
// application instruments on the default constructor only.
func TestNewRegistersCollectors(t *testing.T) {
	names := func(m *Metrics) map[string]bool {
		m.SetsLogged.Inc()
		m.SessionsStarted.WithLabelValues("planned").Inc()
		families, err := m.Registry.Gather()
		if err != nil {
			t.Fatal(err)
		}
		out := map[string]bool{}
		for _, f := range families {
			out[f.GetName()] = true
		}
		return out
	}

	full := names(New())
	if !full["spotter_sets_logged_total"] || !full["go_goroutines"] {
		t.Errorf("New() families missing expected names: %v", full)
	}

	test := names(NewForTest())
	if !test["spotter_sessions_started_total"] {
		t.Error("NewForTest() missing application counter")
	}
	for name := range test {
		if strings.HasPrefix(name, "go_") || strings.HasPrefix(name, "process_") {
			t.Errorf("NewForTest() registered runtime family %s", name)
		}
	}
}
