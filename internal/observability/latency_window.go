package observability

import (
	"math"
	"sort"
	"strings"
	"sync"
	"time"
)

type RouteLatencyStats struct {
	Route       string  `json:"route"`
	Samples     int     `json:"samples"`
	LastMS      float64 `json:"last_ms"`
	AvgMS       float64 `json:"avg_ms"`
	P50MS       float64 `json:"p50_ms"`
	P95MS       float64 `json:"p95_ms"`
	P99MS       float64 `json:"p99_ms"`
	TargetP95MS float64 `json:"target_p95_ms,omitempty"`
}

type HealthIndicator struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type LatencySnapshot struct {
	GeneratedAt time.Time           `json:"generated_at"`
	WindowSize  int                 `json:"window_size"`
	Routes      []RouteLatencyStats `json:"routes"`
	Indicators  []HealthIndicator   `json:"indicators,omitempty"`
}

// LatencyWindow keeps a fixed-size ring of recent request latencies per
// route, cheap enough to serve on the dashboard without touching the
// Prometheus registry. All methods are safe on a nil receiver, so callers
// built without metrics need no guards.
type LatencyWindow struct {
	mu         sync.RWMutex
	maxSamples int
	routes     map[string]*latencyBuffer
	indicators map[string]int
}

type latencyBuffer struct {
	values []float64
	next   int
	filled bool
	last   float64
}

func NewLatencyWindow(maxSamples int) *LatencyWindow {
	if maxSamples <= 0 {
		maxSamples = 256
	}
	return &LatencyWindow{
		maxSamples: maxSamples,
		routes:     make(map[string]*latencyBuffer),
		indicators: make(map[string]int),
	}
}

func (w *LatencyWindow) Observe(route string, ms float64) {
	if w == nil || route == "" || ms < 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	buf, ok := w.routes[route]
	if !ok {
		buf = &latencyBuffer{
			values: make([]float64, w.maxSamples),
		}
		w.routes[route] = buf
	}
	buf.values[buf.next] = ms
	buf.last = ms
	buf.next++
	if buf.next >= len(buf.values) {
		buf.next = 0
		buf.filled = true
	}
}

func (w *LatencyWindow) ObserveIndicator(name string) {
	if w == nil {
		return
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.indicators[name]++
}

func (w *LatencyWindow) Snapshot() LatencySnapshot {
	if w == nil {
		return LatencySnapshot{GeneratedAt: time.Now().UTC()}
	}
	w.mu.RLock()
	defer w.mu.RUnlock()

	routes := make([]RouteLatencyStats, 0, len(w.routes))
	keys := make([]string, 0, len(w.routes))
	for route := range w.routes {
		keys = append(keys, route)
	}
	sort.Strings(keys)

	for _, route := range keys {
		buf := w.routes[route]
		if buf == nil {
			continue
		}
		n := buf.next
		if buf.filled {
			n = len(buf.values)
		}
		if n <= 0 {
			continue
		}
		samples := make([]float64, n)
		copy(samples, buf.values[:n])
		sort.Float64s(samples)

		sum := 0.0
		for _, v := range samples {
			sum += v
		}

		routes = append(routes, RouteLatencyStats{
			Route:       route,
			Samples:     n,
			LastMS:      round2(buf.last),
			AvgMS:       round2(sum / float64(n)),
			P50MS:       round2(quantile(samples, 0.50)),
			P95MS:       round2(quantile(samples, 0.95)),
			P99MS:       round2(quantile(samples, 0.99)),
			TargetP95MS: routeTargetP95MS(route),
		})
	}

	indicators := make([]HealthIndicator, 0, len(w.indicators))
	indicatorKeys := make([]string, 0, len(w.indicators))
	for name := range w.indicators {
		indicatorKeys = append(indicatorKeys, name)
	}
	sort.Strings(indicatorKeys)
	for _, name := range indicatorKeys {
		count := w.indicators[name]
		if count <= 0 {
			continue
		}
		indicators = append(indicators, HealthIndicator{
			Name:  name,
			Count: count,
		})
	}

	return LatencySnapshot{
		GeneratedAt: time.Now().UTC(),
		WindowSize:  w.maxSamples,
		Routes:      routes,
		Indicators:  indicators,
	}
}

func (w *LatencyWindow) Reset() {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.routes = make(map[string]*latencyBuffer)
	w.indicators = make(map[string]int)
}

func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	idx := q * float64(len(sorted)-1)
	lo := int(math.Floor(idx))
	hi := int(math.Ceil(idx))
	if lo == hi {
		return sorted[lo]
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// routeTargetP95MS returns the latency budget a route is expected to hold.
// Budgets follow the retry policies behind each route: a read gets three
// one-second attempts at worst, a write two three-second attempts.
func routeTargetP95MS(route string) float64 {
	switch route {
	case "GET /v1/projects", "GET /v1/creators":
		return 400
	case "GET /v1/projects/{projectID}/matches":
		return 600
	case "GET /v1/dashboard":
		return 300
	case "POST /v1/projects", "POST /v1/projects/{projectID}/bids":
		return 1200
	case "POST /v1/bids/{bidID}/accept":
		return 2500
	default:
		return 0
	}
}
