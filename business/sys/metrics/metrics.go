// Package metrics exposes the ledger's mining and verification numbers to
// prometheus.
package metrics

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/csbeno10/Kripto/foundation/blockchain/chain"
	"github.com/csbeno10/Kripto/foundation/blockchain/pow"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "kripto"

// Mining holds the counters updated while blocks are mined and identity
// proofs are run.
type Mining struct {
	blocks   prometheus.Counter
	failures *prometheus.CounterVec
	duration prometheus.Histogram
	proofs   *prometheus.CounterVec
}

// NewMining constructs the mining metrics and registers them.
func NewMining(reg prometheus.Registerer) (*Mining, error) {
	m := Mining{
		blocks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mining",
			Name:      "blocks_total",
			Help:      "Number of blocks mined and appended to the chain.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mining",
			Name:      "failures_total",
			Help:      "Number of mining attempts that did not produce a block.",
		}, []string{"reason"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "mining",
			Name:      "duration_seconds",
			Help:      "Time taken to mine a block.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
		proofs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "identity",
			Name:      "proofs_total",
			Help:      "Number of identity proofs run.",
		}, []string{"result"}),
	}

	for _, c := range []prometheus.Collector{m.blocks, m.failures, m.duration, m.proofs} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return &m, nil
}

// Mined records the outcome of mining a block.
func (m *Mining) Mined(took time.Duration, err error) {
	if m == nil {
		return
	}

	if err == nil {
		m.blocks.Inc()
		m.duration.Observe(took.Seconds())
		return
	}

	m.failures.WithLabelValues(reason(err)).Inc()
}

// Proved records the outcome of an identity proof.
func (m *Mining) Proved(passed bool) {
	if m == nil {
		return
	}

	result := "failed"
	if passed {
		result = "passed"
	}
	m.proofs.WithLabelValues(result).Inc()
}

func reason(err error) string {
	switch {
	case errors.Is(err, pow.ErrMiningTimeout):
		return "timeout"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return "error"
}

// =============================================================================

// ChainReader is the behavior the chain collector needs from a chain.
type ChainReader interface {
	Len() int
	Audit() []*chain.VerificationError
}

// ChainCollector reports the height of the chain and the number of invariant
// failures found by verifying it on every scrape.
type ChainCollector struct {
	chain    ChainReader
	height   *prometheus.Desc
	failures *prometheus.Desc
}

// NewChainCollector constructs a collector for the chain.
func NewChainCollector(c ChainReader) *ChainCollector {
	return &ChainCollector{
		chain: c,
		height: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "chain", "height"),
			"Number of blocks in the chain including genesis.",
			nil, nil,
		),
		failures: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "chain", "verification_failures"),
			"Number of invariant failures found when verifying the chain.",
			[]string{"invariant"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (cc *ChainCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- cc.height
	ch <- cc.failures
}

// Collect implements prometheus.Collector.
func (cc *ChainCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(cc.height, prometheus.GaugeValue, float64(cc.chain.Len()))

	counts := make(map[chain.Invariant]int)
	for _, f := range cc.chain.Audit() {
		counts[f.Invariant]++
	}

	for inv, n := range counts {
		ch <- prometheus.MustNewConstMetric(cc.failures, prometheus.GaugeValue, float64(n), string(inv))
	}
}

// =============================================================================

// HTTP holds the counters updated by the web middleware.
type HTTP struct {
	requests *prometheus.CounterVec
	panics   prometheus.Counter
}

// NewHTTP constructs the web metrics and registers them.
func NewHTTP(reg prometheus.Registerer) (*HTTP, error) {
	h := HTTP{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Number of requests handled by status code.",
		}, []string{"code"}),
		panics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "panics_total",
			Help:      "Number of handler panics recovered.",
		}),
	}

	for _, c := range []prometheus.Collector{h.requests, h.panics} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return &h, nil
}

// Request records a handled request.
func (h *HTTP) Request(statusCode int) {
	if h == nil {
		return
	}
	h.requests.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Panic records a recovered panic.
func (h *HTTP) Panic() {
	if h == nil {
		return
	}
	h.panics.Inc()
}
