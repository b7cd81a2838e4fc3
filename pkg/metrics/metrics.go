// Package metrics holds the Prometheus collectors shared by stores and gateways.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "portfolio"

var (
	storeOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_operations_total",
		Help:      "Store actions by store, operation and result.",
	}, []string{"store", "operation", "result"})

	gatewayDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "gateway_call_duration_seconds",
		Help:      "Latency of remote gateway calls.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"collection", "operation"})

	assetUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "asset_uploads_total",
		Help:      "Asset uploads by bucket and result.",
	}, []string{"bucket", "result"})
)

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func ObserveStore(store, operation string, err error) {
	storeOperations.WithLabelValues(store, operation, result(err)).Inc()
}

func ObserveGateway(collection, operation string, started time.Time) {
	gatewayDuration.WithLabelValues(collection, operation).Observe(time.Since(started).Seconds())
}

func ObserveUpload(bucket string, err error) {
	assetUploads.WithLabelValues(bucket, result(err)).Inc()
}
