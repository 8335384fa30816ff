package observability

import "testing"

func TestLatencyWindowSnapshot(t *testing.T) {
	w := NewLatencyWindow(4)

	for _, ms := range []float64{10, 20, 30, 40} {
		w.Observe("GET /v1/projects", ms)
	}
	w.ObserveIndicator("upstream_unavailable")
	w.ObserveIndicator("upstream_unavailable")

	snap := w.Snapshot()
	if len(snap.Routes) != 1 {
		t.Fatalf("len(Routes) = %d, want 1", len(snap.Routes))
	}
	stats := snap.Routes[0]
	if stats.Samples != 4 {
		t.Fatalf("Samples = %d, want 4", stats.Samples)
	}
	if stats.LastMS != 40 {
		t.Fatalf("LastMS = %v, want 40", stats.LastMS)
	}
	if stats.AvgMS != 25 {
		t.Fatalf("AvgMS = %v, want 25", stats.AvgMS)
	}
	if stats.TargetP95MS != 400 {
		t.Fatalf("TargetP95MS = %v, want 400", stats.TargetP95MS)
	}

	if len(snap.Indicators) != 1 || snap.Indicators[0].Count != 2 {
		t.Fatalf("Indicators = %v, want one entry with count 2", snap.Indicators)
	}
}

func TestLatencyWindowEvictsOldSamples(t *testing.T) {
	w := NewLatencyWindow(2)

	w.Observe("GET /v1/dashboard", 100)
	w.Observe("GET /v1/dashboard", 10)
	w.Observe("GET /v1/dashboard", 20)

	snap := w.Snapshot()
	if len(snap.Routes) != 1 {
		t.Fatalf("len(Routes) = %d, want 1", len(snap.Routes))
	}
	if got := snap.Routes[0].P99MS; got > 20 {
		t.Fatalf("P99MS = %v, want evicted 100ms sample gone", got)
	}
}

func TestLatencyWindowNilReceiver(t *testing.T) {
	var w *LatencyWindow
	w.Observe("GET /v1/projects", 5)
	w.ObserveIndicator("server_error")
	w.Reset()
	if snap := w.Snapshot(); len(snap.Routes) != 0 {
		t.Fatalf("nil window snapshot routes = %v, want empty", snap.Routes)
	}
}

func TestLatencyWindowIgnoresBadInput(t *testing.T) {
	w := NewLatencyWindow(4)
	w.Observe("", 5)
	w.Observe("GET /v1/projects", -1)
	w.ObserveIndicator("  ")

	snap := w.Snapshot()
	if len(snap.Routes) != 0 || len(snap.Indicators) != 0 {
		t.Fatalf("snapshot = %+v, want empty", snap)
	}
}
