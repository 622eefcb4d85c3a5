package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gatherCounter(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := registry.Gather()
	require.NoError(t, err)

	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			if matchLabels(metric, labels) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func matchLabels(metric *dto.Metric, labels map[string]string) bool {
	got := map[string]string{}
	for _, pair := range metric.GetLabel() {
		got[pair.GetName()] = pair.GetValue()
	}
	for name, value := range labels {
		if got[name] != value {
			return false
		}
	}
	return true
}

func TestEngineMetrics_CountersCarryLabels(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newEngineMetrics(registry, Config{ServiceName: "notify_engine", Environment: "test"})

	m.IncScheduled("EXPIRING_SOON_1")
	m.IncScheduled("EXPIRING_SOON_1")
	m.IncDeliveryAttempt(DeliveryOutcomeSent)
	m.IncDeliveryAttempt(DeliveryOutcomeExhausted)
	m.IncJobError(JobProcess)
	m.ObserveJobDuration(JobSchedule, 120*time.Millisecond)
	m.ObserveBatchSize(JobSchedule, 7)

	assert.Equal(t, 2.0, gatherCounter(t, registry, "notify_engine_scheduled_total", map[string]string{
		"type": "EXPIRING_SOON_1",
		"env":  "test",
	}))
	assert.Equal(t, 1.0, gatherCounter(t, registry, "notify_engine_delivery_attempts_total", map[string]string{
		"outcome": DeliveryOutcomeSent,
	}))
	assert.Equal(t, 1.0, gatherCounter(t, registry, "notify_engine_delivery_attempts_total", map[string]string{
		"outcome": DeliveryOutcomeExhausted,
	}))
	assert.Equal(t, 1.0, gatherCounter(t, registry, "notify_engine_job_errors_total", map[string]string{
		"job": JobProcess,
	}))
}

func TestEngineMetrics_DefaultLabels(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newEngineMetrics(registry, Config{})

	m.IncScheduled("EXPIRED")

	assert.Equal(t, 1.0, gatherCounter(t, registry, "notify_engine_scheduled_total", map[string]string{
		"service": "notify_engine",
		"env":     "unknown",
	}))
}
