package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	WebhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crm",
			Subsystem: "engine",
			Name:      "webhook_events_total",
			Help:      "Inbound channel events by outcome",
		},
		[]string{"channel", "outcome"},
	)

	ProviderRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crm",
			Subsystem: "engine",
			Name:      "provider_requests_total",
			Help:      "Chat completion requests sent to LLM providers",
		},
		[]string{"provider", "status"},
	)

	ProviderRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "crm",
			Subsystem: "engine",
			Name:      "provider_request_duration_seconds",
			Help:      "LLM provider request duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"provider"},
	)

	ToolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crm",
			Subsystem: "engine",
			Name:      "tool_calls_total",
			Help:      "Tool invocations requested by the model",
		},
		[]string{"tool_name", "status"},
	)

	AutoReplyTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crm",
			Subsystem: "engine",
			Name:      "auto_reply_total",
			Help:      "Auto-responder outcomes",
		},
		[]string{"outcome"},
	)

	DeliveryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crm",
			Subsystem: "engine",
			Name:      "delivery_total",
			Help:      "Replies delivered back to channels",
		},
		[]string{"platform", "status"},
	)
)

func Handler() http.Handler {
	return promhttp.Handler()
}
