package crm

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "venue",
		Subsystem: "crm",
		Name:      "requests_total",
		Help:      "CRM API requests by operation and status class.",
	}, []string{"operation", "status"})

	requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "venue",
		Subsystem: "crm",
		Name:      "request_duration_seconds",
		Help:      "CRM API request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})
)

// RegisterMetrics adds the client's collectors to reg.
func RegisterMetrics(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{requestsTotal, requestDuration} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func observe(op, status string, started time.Time) {
	requestsTotal.WithLabelValues(op, status).Inc()
	requestDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

func statusClass(code int) string {
	return fmt.Sprintf("%dxx", code/100)
}
