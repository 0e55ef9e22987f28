package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Monitor records queue metrics. A nil *Monitor is valid and records nothing.
type Monitor struct {
	checkins         prometheus.Counter
	completions      *prometheus.CounterVec
	pastDueCleared   *prometheus.CounterVec
	broadcastFailure prometheus.Counter
	waitingLength    prometheus.Gauge
	observers        prometheus.Gauge
	completedWait    prometheus.Histogram
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

// NewMonitor registers the queue metrics with reg.
func NewMonitor(reg prometheus.Registerer) *Monitor {
	f := promauto.With(reg)
	return &Monitor{
		checkins: f.NewCounter(prometheus.CounterOpts{
			Name: "queue_checkins_total",
			Help: "Total patron check-ins",
		}),
		completions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_completions_total",
			Help: "Complete requests by result",
		}, []string{"result"}),
		pastDueCleared: f.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_pastdue_cleared_total",
			Help: "Clear past-due requests by result",
		}, []string{"result"}),
		broadcastFailure: f.NewCounter(prometheus.CounterOpts{
			Name: "queue_broadcast_failures_total",
			Help: "Observer sends that failed and removed the observer",
		}),
		waitingLength: f.NewGauge(prometheus.GaugeOpts{
			Name: "queue_waiting_length",
			Help: "Waiting patrons at the last queue read",
		}),
		observers: f.NewGauge(prometheus.GaugeOpts{
			Name: "queue_observers",
			Help: "Connected staff observers",
		}),
		completedWait: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "queue_completed_wait_seconds",
			Help:    "Wait time of completed visits",
			Buckets: prometheus.ExponentialBuckets(30, 2, 10),
		}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_http_requests_total",
			Help: "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "queue_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (m *Monitor) TrackCheckIn() {
	if m == nil {
		return
	}
	m.checkins.Inc()
}

// TrackCompletion records a complete request; result is one of
// completed, already_completed, not_found, error.
func (m *Monitor) TrackCompletion(result string, wait time.Duration) {
	if m == nil {
		return
	}
	m.completions.WithLabelValues(result).Inc()
	if result == "completed" {
		m.completedWait.Observe(wait.Seconds())
	}
}

func (m *Monitor) TrackPastDueCleared(result string) {
	if m == nil {
		return
	}
	m.pastDueCleared.WithLabelValues(result).Inc()
}

func (m *Monitor) TrackBroadcastFailure() {
	if m == nil {
		return
	}
	m.broadcastFailure.Inc()
}

func (m *Monitor) SetWaiting(n int) {
	if m == nil {
		return
	}
	m.waitingLength.Set(float64(n))
}

func (m *Monitor) SetObservers(n int) {
	if m == nil {
		return
	}
	m.observers.Set(float64(n))
}

func (m *Monitor) TrackRequest(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
