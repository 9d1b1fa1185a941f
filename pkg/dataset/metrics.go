package dataset

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// tableLoadsTotal counts table loads by dataset and result.
	tableLoadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fafquery_table_loads_total",
		Help: "Total table loads from disk by dataset and result",
	}, []string{"dataset", "result"}) // "ok" or "error"

	// tableLoadDuration tracks how long reading and converting a table takes.
	tableLoadDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fafquery_table_load_duration_seconds",
		Help:    "Table load duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
	}, []string{"dataset"})

	// tableRows reports the row count of the most recent load.
	tableRows = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fafquery_table_rows",
		Help: "Rows in the loaded table",
	}, []string{"dataset"})
)
