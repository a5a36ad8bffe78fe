package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if labelsMatch(metric, labels) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func labelsMatch(metric *dto.Metric, labels map[string]string) bool {
	matched := 0
	for _, pair := range metric.GetLabel() {
		if want, ok := labels[pair.GetName()]; ok && want == pair.GetValue() {
			matched++
		}
	}
	return matched == len(labels)
}

func TestAgentMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewAgentMetrics(reg)

	m.ObserveChatTurn("success")
	m.ObserveChatTurn("success")
	m.ObserveToolCall("book_appointment", "ok")
	m.ObserveBackendLatency("gemini", 0.4)
	m.ObserveWebhookEvent("app_mention", "queued")
	m.ObserveSideEffect("calendar", "skipped")

	assert.Equal(t, 2.0, counterValue(t, reg, "curelink_agent_chat_turns_total", map[string]string{"status": "success"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "curelink_agent_tool_calls_total", map[string]string{"tool": "book_appointment", "outcome": "ok"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "curelink_slack_webhook_events_total", map[string]string{"event_type": "app_mention"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "curelink_bookings_side_effects_total", map[string]string{"effect": "calendar", "outcome": "skipped"}))
}

func TestAgentMetricsNilSafe(t *testing.T) {
	var m *AgentMetrics
	m.ObserveChatTurn("error")
	m.ObserveToolCall("list_doctors", "error")
	m.ObserveBackendLatency("bedrock", 0.1)
	m.ObserveWebhookEvent("message", "ignored")
	m.ObserveSideEffect("email", "failed")
}
