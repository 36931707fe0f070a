package pipeline

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cognicore/chatsense/pkg/chatsense/lexicon"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus counters for processed messages.
type Metrics struct {
	MessagesTotal *prometheus.CounterVec
}

// NewMetrics creates and registers the pipeline metrics once per process.
//
// Metrics:
//   - chatsense_pipeline_messages_total{polarity} - processed messages by polarity
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			MessagesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "chatsense_pipeline_messages_total",
					Help: "Total number of processed messages by lexicon polarity",
				},
				[]string{"polarity"},
			),
		}
	})
	return globalMetrics
}

func (m *Metrics) observe(p lexicon.Polarity) {
	if m == nil {
		return
	}
	m.MessagesTotal.WithLabelValues(string(p)).Inc()
}
