package setup

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// downloadsTotal counts archive downloads by dataset and result.
	downloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fafquery_setup_downloads_total",
		Help: "Total archive downloads by dataset and result",
	}, []string{"dataset", "result"}) // "ok" or "error"

	// downloadBytes counts bytes written by archive downloads.
	downloadBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fafquery_setup_download_bytes_total",
		Help: "Total bytes downloaded by dataset",
	}, []string{"dataset"})

	// conversionsTotal counts CSV to Parquet conversions by result.
	conversionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fafquery_setup_conversions_total",
		Help: "Total CSV to Parquet conversions by result",
	}, []string{"result"})
)
