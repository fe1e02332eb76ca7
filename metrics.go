package triedex

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the prometheus collectors for one Index. A zero-value
// Metrics (as produced by newNopMetrics) records nothing and is always
// safe to call into; Register wires the real counters against a caller's
// registry.
type Metrics struct {
	inserts      prometheus.Counter
	flushes      prometheus.Counter
	bytesFlushed prometheus.Counter
	lookups      prometheus.Counter
	lookupMisses prometheus.Counter
	dirtyNodes   prometheus.GaugeFunc

	dirtyCountFn func() int
}

// NewMetrics builds the collector set for an Index, labeled with name (for
// deployments that run more than one Index in the same process). The
// dirty_nodes gauge that Register adds carries no such label. Pass the
// result to Open via Options.Metrics, then call Register with the opened
// Index to expose it.
func NewMetrics(name string) *Metrics {
	constLabels := prometheus.Labels{"index": name}

	return &Metrics{
		inserts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "triedex",
			Name:        "inserts_total",
			Help:        "Number of values inserted.",
			ConstLabels: constLabels,
		}),
		flushes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "triedex",
			Name:        "flushes_total",
			Help:        "Number of completed flushes.",
			ConstLabels: constLabels,
		}),
		bytesFlushed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "triedex",
			Name:        "bytes_flushed_total",
			Help:        "Bytes appended to the file across all flushes.",
			ConstLabels: constLabels,
		}),
		lookups: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "triedex",
			Name:        "lookups_total",
			Help:        "Number of Lookup calls.",
			ConstLabels: constLabels,
		}),
		lookupMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "triedex",
			Name:        "lookup_misses_total",
			Help:        "Number of Lookup calls for an absent key.",
			ConstLabels: constLabels,
		}),
	}
}

// Register attaches m's collectors to reg, including a dirty-node gauge
// backed by idx's live arena. Called once, after NewMetrics and before the
// Index is handed to callers.
func (m *Metrics) Register(reg *prometheus.Registry, idx *Index) error {
	m.dirtyCountFn = func() int { return idx.arena.dirtyCount() }
	m.dirtyNodes = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "triedex",
		Name:      "dirty_nodes",
		Help:      "Staged nodes not yet flushed to disk.",
	}, func() float64 { return float64(m.dirtyCountFn()) })

	collectors := []prometheus.Collector{
		m.inserts, m.flushes, m.bytesFlushed, m.lookups, m.lookupMisses, m.dirtyNodes,
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}

	return nil
}

func newNopMetrics() *Metrics { return &Metrics{} }

func (m *Metrics) observeInsert() {
	if m.inserts != nil {
		m.inserts.Inc()
	}
}

func (m *Metrics) observeFlush(bytes int) {
	if m.flushes != nil {
		m.flushes.Inc()
		m.bytesFlushed.Add(float64(bytes))
	}
}

func (m *Metrics) observeLookup(hit bool) {
	if m.lookups == nil {
		return
	}

	m.lookups.Inc()
	if !hit {
		m.lookupMisses.Inc()
	}
}
