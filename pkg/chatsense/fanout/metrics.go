package fanout

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus counters for fan-out runs.
type Metrics struct {
	ChunksTotal *prometheus.CounterVec
	RowsTotal   *prometheus.CounterVec
}

// NewMetrics creates and registers the fan-out metrics once per process.
//
// Metrics:
//   - chatsense_fanout_chunks_total{status} - chunks by outcome ("ok", "failed")
//   - chatsense_fanout_rows_total{status} - rows by chunk outcome
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			ChunksTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "chatsense_fanout_chunks_total",
					Help: "Total number of fan-out chunks by outcome",
				},
				[]string{"status"},
			),
			RowsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "chatsense_fanout_rows_total",
					Help: "Total number of rows processed by fan-out, by chunk outcome",
				},
				[]string{"status"},
			),
		}
	})
	return globalMetrics
}

// observe records a chunk outcome. A nil receiver is a no-op.
func (m *Metrics) observe(c Chunk, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "failed"
	}
	m.ChunksTotal.WithLabelValues(status).Inc()
	m.RowsTotal.WithLabelValues(status).Add(float64(c.Len()))
}

