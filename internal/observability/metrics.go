package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "penne",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total admin HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "penne",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	messagesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "penne",
			Subsystem: "client",
			Name:      "messages_total",
			Help:      "Server messages dispatched, by component and action.",
		},
		[]string{"component", "action"},
	)
	invokesSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "penne",
			Subsystem: "client",
			Name:      "invokes_total",
			Help:      "Method invocations sent.",
		},
	)
	replies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "penne",
			Subsystem: "client",
			Name:      "replies_total",
			Help:      "Method replies received, by outcome.",
		},
		[]string{"outcome"},
	)
	invokeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "penne",
			Subsystem: "client",
			Name:      "invoke_duration_seconds",
			Help:      "Time from invoke to reply in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)
	signalsReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "penne",
			Subsystem: "client",
			Name:      "signals_total",
			Help:      "Signal invocations received, by signal name.",
		},
		[]string{"signal"},
	)
	handlerErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "penne",
			Subsystem: "client",
			Name:      "handler_errors_total",
			Help:      "Messages that failed to dispatch, by stage.",
		},
		[]string{"stage"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			messagesReceived,
			invokesSent,
			replies,
			invokeDuration,
			signalsReceived,
			handlerErrors,
		)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordMessage(component, action string) {
	RegisterMetrics()
	messagesReceived.WithLabelValues(component, action).Inc()
}

func RecordInvoke() {
	RegisterMetrics()
	invokesSent.Inc()
}

// RecordReply counts a reply. A zero duration marks a reply with no matching invoke
// and is not observed.
func RecordReply(outcome string, duration time.Duration) {
	RegisterMetrics()
	replies.WithLabelValues(outcome).Inc()
	if duration > 0 {
		invokeDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	}
}

func RecordSignal(name string) {
	RegisterMetrics()
	signalsReceived.WithLabelValues(name).Inc()
}

func RecordHandlerError(stage string) {
	RegisterMetrics()
	handlerErrors.WithLabelValues(stage).Inc()
}
