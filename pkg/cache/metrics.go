package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	lookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rowsite_cache_lookups_total",
		Help: "Rows cache lookups by result (hit, miss, stale)",
	}, []string{"result"})

	storedBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rowsite_cache_stored_bytes_total",
		Help: "Bytes of encoded entries written to Redis",
	})

	redisErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rowsite_cache_errors_total",
		Help: "Redis cache errors by operation",
	}, []string{"op"})
)
