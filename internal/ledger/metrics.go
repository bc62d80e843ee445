package ledger

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	txDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pollbook_ledger_tx_duration_seconds",
		Help:    "Duration of ledger transactions by backend and outcome",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5},
	}, []string{"backend", "outcome"})

	txConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pollbook_ledger_tx_conflicts_total",
		Help: "Transactions retried or aborted because a concurrent writer touched the same keys",
	}, []string{"backend"})
)

func observeTx(backend string, start time.Time, err error) {
	outcome := "committed"
	if err != nil {
		outcome = "aborted"
	}
	txDuration.WithLabelValues(backend, outcome).Observe(time.Since(start).Seconds())
}
