package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors the engine reports to.
// A nil *Metrics records nothing.
type Metrics struct {
	searches  prometheus.Counter
	nodes     prometheus.Counter
	cacheHits prometheus.Counter
	ttProbes  prometheus.Gauge
	ttHits    prometheus.Gauge
	hashFull  prometheus.Gauge
	depth     prometheus.Histogram
	duration  prometheus.Histogram
}

// NewMetrics registers the engine collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		searches: f.NewCounter(prometheus.CounterOpts{
			Name: "chesscore_searches_total",
			Help: "Total searches run",
		}),
		nodes: f.NewCounter(prometheus.CounterOpts{
			Name: "chesscore_search_nodes_total",
			Help: "Total nodes visited by all searches",
		}),
		cacheHits: f.NewCounter(prometheus.CounterOpts{
			Name: "chesscore_search_cache_hits_total",
			Help: "Nodes that found a transposition entry for their own key",
		}),
		ttProbes: f.NewGauge(prometheus.GaugeOpts{
			Name: "chesscore_tt_probes",
			Help: "Transposition table probes since the table was last cleared",
		}),
		ttHits: f.NewGauge(prometheus.GaugeOpts{
			Name: "chesscore_tt_hits",
			Help: "Transposition table hits since the table was last cleared",
		}),
		hashFull: f.NewGauge(prometheus.GaugeOpts{
			Name: "chesscore_tt_hashfull_permille",
			Help: "Sampled transposition table occupancy in permille",
		}),
		depth: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "chesscore_search_depth",
			Help:    "Deepest completed iteration per search",
			Buckets: prometheus.LinearBuckets(0, 2, 16),
		}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "chesscore_search_duration_seconds",
			Help:    "Wall time per search",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
}

func (m *Metrics) observe(res Result, tt *TranspositionTable) {
	if m == nil {
		return
	}
	m.searches.Inc()
	m.nodes.Add(float64(res.Nodes))
	m.cacheHits.Add(float64(res.CacheHits))
	m.ttProbes.Set(float64(tt.Probes()))
	m.ttHits.Set(float64(tt.Hits()))
	m.hashFull.Set(float64(tt.HashFull()))
	m.depth.Observe(float64(res.Depth))
	m.duration.Observe(res.Elapsed.Seconds())
}
