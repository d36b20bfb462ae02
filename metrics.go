package tapfreq

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 汇总一次运行的扫描指标。每次运行使用独立的注册表。
type Metrics struct {
	registry *prometheus.Registry

	blocks       prometheus.Counter
	tapscripts   prometheus.Counter
	truncated    prometheus.Counter
	opcodes      *prometheus.CounterVec
	blockSeconds prometheus.Histogram
}

// NewMetrics 创建指标及其注册表。
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		blocks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "tapfreq",
			Name:      "blocks_scanned_total",
			Help:      "Number of blocks scanned",
		}),
		tapscripts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "tapfreq",
			Name:      "tapscripts_total",
			Help:      "Number of tapscripts revealed by script path spends",
		}),
		truncated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "tapfreq",
			Name:      "tapscripts_truncated_total",
			Help:      "Number of tapscripts whose tokenization stopped at a malformed push",
		}),
		opcodes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tapfreq",
			Name:      "opcodes_total",
			Help:      "Number of non-push opcodes seen in tapscripts",
		}, []string{"opcode"}),
		blockSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tapfreq",
			Name:      "block_seconds",
			Help:      "Time spent reading and analyzing one block",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
	}
}

// Registry 返回指标注册表。
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveBlock 记录一个区块的处理结果。m 为 nil 时不做任何事。
func (m *Metrics) ObserveBlock(counts OpcodeFrequencies, stats ScriptStats, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.blocks.Inc()
	m.tapscripts.Add(float64(stats.Tapscripts))
	m.truncated.Add(float64(stats.Truncated))
	for label, n := range counts {
		m.opcodes.WithLabelValues(label).Add(float64(n))
	}
	m.blockSeconds.Observe(elapsed.Seconds())
}

// WriteTextfile 以 node_exporter 文本格式写出全部指标。
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
