package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counter metrics
var (
	// HTTP request counter by endpoint and status
	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diquis_http_requests_total",
			Help: "Total number of HTTP requests by endpoint and status",
		},
		[]string{"method", "path", "status"},
	)

	// RequestDurationHistogram records request duration in seconds
	RequestDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "diquis_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// Tenant operation counter
	TenantOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diquis_tenant_operations_total",
			Help: "Total number of tenant operations",
		},
		[]string{"operation"}, // operation can be "create", "update", "list", "get", etc.
	)

	// Provisioning outcome counter
	ProvisioningCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diquis_tenant_provisioning_total",
			Help: "Total number of tenant provisioning runs by outcome",
		},
		[]string{"outcome"},
	)

	// Database operation duration
	DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "diquis_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Validation/auth error counter
	ErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diquis_errors_total",
			Help: "Total number of handled errors by kind",
		},
		[]string{"kind"},
	)
)

// InitMetrics registers all collectors with the default registry.
func InitMetrics() {
	prometheus.MustRegister(
		HTTPRequestCounter,
		RequestDurationHistogram,
		TenantOperationCounter,
		ProvisioningCounter,
		DBOperationDuration,
		ErrorCounter,
	)
}

// RecordTenantOperation increments the tenant operation counter.
func RecordTenantOperation(operation string) {
	TenantOperationCounter.WithLabelValues(operation).Inc()
}

// RecordProvisioning increments the provisioning outcome counter.
func RecordProvisioning(outcome string) {
	ProvisioningCounter.WithLabelValues(outcome).Inc()
}

// RecordError increments the handled-error counter.
func RecordError(kind string) {
	ErrorCounter.WithLabelValues(kind).Inc()
}

// TrackDBOperation returns a function that records the duration of a
// database operation when called:
//
//	defer metrics.TrackDBOperation("query")(time.Now())
func TrackDBOperation(operation string) func(startTime time.Time) {
	return func(startTime time.Time) {
		DBOperationDuration.WithLabelValues(operation).Observe(time.Since(startTime).Seconds())
	}
}

// Middleware creates an Echo middleware function that records HTTP request metrics
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			status := c.Response().Status
			method := c.Request().Method
			path := c.Path()
			statusStr := strconv.Itoa(status)

			HTTPRequestCounter.WithLabelValues(method, path, statusStr).Inc()
			RequestDurationHistogram.WithLabelValues(method, path, statusStr).Observe(time.Since(start).Seconds())

			return err
		}
	}
}

// Handler returns an HTTP handler for exposing Prometheus metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
