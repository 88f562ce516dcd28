package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "filedrop"

var (
	registerOnce sync.Once

	requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})

	requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and method.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	operationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "object_operations_total",
		Help:      "Object service operations by operation and result.",
	}, []string{"operation", "result"})

	bytesUploaded = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bytes_uploaded_total",
		Help:      "Payload bytes accepted by successful uploads.",
	})

	orphansTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orphaned_objects_total",
		Help:      "Objects left without a catalog record, by cause.",
	}, []string{"cause"})

	catalogRecords = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "catalog_records",
		Help:      "Live records in the catalog.",
	})
)

// InitMetrics registers the collectors with the default registry. Safe to call repeatedly.
func InitMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			requestsTotal,
			requestDuration,
			operationsTotal,
			bytesUploaded,
			orphansTotal,
			catalogRecords,
		)
	})
}

// Middleware records request counts and latency per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		requestsTotal.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		requestDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

// Register attaches the Prometheus metrics endpoint to the router.
func Register(router *gin.Engine, path string) {
	router.GET(path, gin.WrapH(promhttp.Handler()))
}

// ObserveOperation counts one object service call.
func ObserveOperation(operation, result string) {
	operationsTotal.WithLabelValues(operation, result).Inc()
}

// ObserveUpload adds n to the uploaded byte total.
func ObserveUpload(n int64) {
	bytesUploaded.Add(float64(n))
}

// ObserveOrphan counts an object left behind without a catalog record.
func ObserveOrphan(cause string) {
	orphansTotal.WithLabelValues(cause).Inc()
}

// SetCatalogRecords publishes the live record count.
func SetCatalogRecords(n int) {
	catalogRecords.Set(float64(n))
}
