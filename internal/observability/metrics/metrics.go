package metrics

import "github.com/prometheus/client_golang/prometheus"

// AgentMetrics exposes counters/histograms for the scheduling assistant.
type AgentMetrics struct {
	chatTurns      *prometheus.CounterVec
	toolCalls      *prometheus.CounterVec
	backendLatency *prometheus.HistogramVec
	webhookEvents  *prometheus.CounterVec
	sideEffects    *prometheus.CounterVec
}

func NewAgentMetrics(reg prometheus.Registerer) *AgentMetrics {
	m := &AgentMetrics{
		chatTurns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "curelink",
			Subsystem: "agent",
			Name:      "chat_turns_total",
			Help:      "User messages processed by the agent loop",
		}, []string{"status"}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "curelink",
			Subsystem: "agent",
			Name:      "tool_calls_total",
			Help:      "Tool invocations requested by the generative backend",
		}, []string{"tool", "outcome"}),
		backendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "curelink",
			Subsystem: "agent",
			Name:      "backend_latency_seconds",
			Help:      "Latency of generative backend round trips",
			Buckets:   prometheus.DefBuckets,
		}, []string{"backend"}),
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "curelink",
			Subsystem: "slack",
			Name:      "webhook_events_total",
			Help:      "Inbound chat-platform webhook events",
		}, []string{"event_type", "status"}),
		sideEffects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "curelink",
			Subsystem: "bookings",
			Name:      "side_effects_total",
			Help:      "Booking side effects by integration and outcome",
		}, []string{"effect", "outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.chatTurns, m.toolCalls, m.backendLatency, m.webhookEvents, m.sideEffects)
	return m
}

func (m *AgentMetrics) ObserveChatTurn(status string) {
	if m == nil {
		return
	}
	m.chatTurns.WithLabelValues(status).Inc()
}

func (m *AgentMetrics) ObserveToolCall(tool, outcome string) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(tool, outcome).Inc()
}

func (m *AgentMetrics) ObserveBackendLatency(backend string, seconds float64) {
	if m == nil {
		return
	}
	m.backendLatency.WithLabelValues(backend).Observe(seconds)
}

func (m *AgentMetrics) ObserveWebhookEvent(eventType, status string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(eventType, status).Inc()
}

func (m *AgentMetrics) ObserveSideEffect(effect, outcome string) {
	if m == nil {
		return
	}
	m.sideEffects.WithLabelValues(effect, outcome).Inc()
}
