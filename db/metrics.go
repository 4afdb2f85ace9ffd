package db

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	storeRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lfreader_store_retries_total",
		Help: "Number of store operations retried because the database was locked",
	}, []string{"op"})

	storeOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lfreader_store_operation_duration_seconds",
		Help:    "Duration of store operations including retries",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms up to ~4s
	}, []string{"op"})

	decodeErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lfreader_decode_errors_total",
		Help: "Rows whose stored columns could not be decoded",
	}, []string{"table"})
)
