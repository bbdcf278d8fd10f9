package metrics

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "filegate"

var (
	initOnce sync.Once

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method and route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// InitMetrics registers the HTTP collectors with the default registry. It is
// safe to call more than once.
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration)
	})
}

// Register attaches the Prometheus metrics endpoint to the router.
func Register(router gin.IRoutes, path string) {
	router.GET(path, gin.WrapH(promhttp.Handler()))
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
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// StorageObserver exports object store and upload metrics.
type StorageObserver struct {
	opDuration *prometheus.HistogramVec
	opErrors   *prometheus.CounterVec
	bytes      prometheus.Counter
	uploads    *prometheus.CounterVec
}

// NewStorageObserver registers storage metrics on reg, or on the default
// registerer when reg is nil. Re-registration reuses the existing collectors.
func NewStorageObserver(reg prometheus.Registerer) (*StorageObserver, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	opDuration, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "storage",
		Name:      "operation_duration_seconds",
		Help:      "Latency of object store operations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"}))
	if err != nil {
		return nil, err
	}
	opErrors, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "storage",
		Name:      "operation_errors_total",
		Help:      "Failed object store operations.",
	}, []string{"operation"}))
	if err != nil {
		return nil, err
	}
	bytes, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "storage",
		Name:      "uploaded_bytes_total",
		Help:      "Bytes successfully written to the object store.",
	}))
	if err != nil {
		return nil, err
	}
	uploads, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "uploads_total",
		Help:      "Upload attempts by category and outcome.",
	}, []string{"category", "outcome"}))
	if err != nil {
		return nil, err
	}

	return &StorageObserver{opDuration: opDuration, opErrors: opErrors, bytes: bytes, uploads: uploads}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("register storage metric: %w", err)
	}
	return c, nil
}

// ObserveOperation records latency and failure of one object store call.
func (o *StorageObserver) ObserveOperation(op string, duration time.Duration, err error) {
	if o == nil {
		return
	}
	o.opDuration.WithLabelValues(op).Observe(duration.Seconds())
	if err != nil {
		o.opErrors.WithLabelValues(op).Inc()
	}
}

// ObserveUpload adds to the uploaded byte total.
func (o *StorageObserver) ObserveUpload(sizeBytes int64) {
	if o == nil || sizeBytes <= 0 {
		return
	}
	o.bytes.Add(float64(sizeBytes))
}

// ObserveOutcome counts an upload attempt, e.g. ("IMAGE", "accepted").
func (o *StorageObserver) ObserveOutcome(category, outcome string) {
	if o == nil {
		return
	}
	o.uploads.WithLabelValues(category, outcome).Inc()
}
