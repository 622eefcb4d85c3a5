// Package metrics exposes prometheus instruments for the notification engine.
package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	DeliveryOutcomeSent      = "sent"
	DeliveryOutcomeFailed    = "failed"
	DeliveryOutcomeExhausted = "exhausted"
)

const (
	JobSchedule = "schedule_due"
	JobProcess  = "process_due"
)

// Config carries the constant labels stamped on every instrument.
type Config struct {
	ServiceName string
	Environment string
}

// EngineMetrics captures scheduling and delivery health signals.
type EngineMetrics struct {
	scheduled        *prometheus.CounterVec
	deliveryAttempts *prometheus.CounterVec
	jobDuration      *prometheus.HistogramVec
	jobErrors        *prometheus.CounterVec
	batchSize        *prometheus.HistogramVec
}

var (
	engineMetricsOnce sync.Once
	engineMetrics     *EngineMetrics
)

// Engine returns the singleton engine metrics registry.
func Engine() *EngineMetrics {
	return EngineWithConfig(Config{})
}

// EngineWithConfig returns the singleton engine metrics registry using config labels.
func EngineWithConfig(cfg Config) *EngineMetrics {
	engineMetricsOnce.Do(func() {
		engineMetrics = newEngineMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return engineMetrics
}

// ResetEngineMetricsForTest resets the engine metrics singleton for tests.
func ResetEngineMetricsForTest() {
	engineMetricsOnce = sync.Once{}
	engineMetrics = nil
}

func newEngineMetrics(registerer prometheus.Registerer, cfg Config) *EngineMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "notify_engine"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	m := &EngineMetrics{
		scheduled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "notify_engine_scheduled_total",
			Help:        "Notification records created by the scheduler, by kind.",
			ConstLabels: constLabels,
		}, []string{"type"}),
		deliveryAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "notify_engine_delivery_attempts_total",
			Help:        "Delivery attempts by outcome.",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "notify_engine_job_duration_seconds",
			Help:        "Engine job latency.",
			Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			ConstLabels: constLabels,
		}, []string{"job"}),
		jobErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "notify_engine_job_errors_total",
			Help:        "Engine job failures surfaced to the trigger.",
			ConstLabels: constLabels,
		}, []string{"job"}),
		batchSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "notify_engine_batch_size",
			Help:        "Records handled per job invocation.",
			Buckets:     []float64{0, 1, 5, 10, 25, 50, 100, 250},
			ConstLabels: constLabels,
		}, []string{"job"}),
	}

	registerer.MustRegister(m.scheduled, m.deliveryAttempts, m.jobDuration, m.jobErrors, m.batchSize)
	return m
}

func (m *EngineMetrics) IncScheduled(notificationType string) {
	m.scheduled.WithLabelValues(notificationType).Inc()
}

func (m *EngineMetrics) IncDeliveryAttempt(outcome string) {
	m.deliveryAttempts.WithLabelValues(outcome).Inc()
}

func (m *EngineMetrics) ObserveJobDuration(job string, d time.Duration) {
	m.jobDuration.WithLabelValues(job).Observe(d.Seconds())
}

func (m *EngineMetrics) IncJobError(job string) {
	m.jobErrors.WithLabelValues(job).Inc()
}

func (m *EngineMetrics) ObserveBatchSize(job string, n int) {
	m.batchSize.WithLabelValues(job).Observe(float64(n))
}
