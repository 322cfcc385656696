package main

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Transactional store operations, used as the op label on storeOpDuration.
const (
	opRecordActivity = "record_activity"
	opCreateGoal     = "create_goal"
	opApplyRestDay   = "apply_rest_day"
	opSetLockedDays  = "set_locked_days"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	badgesUnlockedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "badges_unlocked_total",
			Help: "Badges newly unlocked, by module",
		},
		[]string{"module"},
	)

	loadAdvisoriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "load_advisories_total",
			Help: "Load advisories emitted, by code",
		},
		[]string{"code"},
	)

	storeOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_operation_duration_seconds",
			Help:    "Duration of transactional store operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	realtimeConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "realtime_connections",
		Help: "Open websocket connections",
	})
)

// metricsMiddleware records request count and latency per matched route.
// Unmatched paths share the "unmatched" label to keep cardinality bounded.
func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}
