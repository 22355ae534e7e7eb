package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики планирования. Регистрируются в default registry,
// экспортируются на /metrics каждым сервисом.
var (
	// PlansPublishedTotal — количество успешно построенных и опубликованных планов.
	PlansPublishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "conductor_plans_published_total",
		Help: "Total execution plans computed and published",
	})

	// PlansFailedTotal — количество запросов плана, завершившихся ошибкой валидации.
	PlansFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "conductor_plans_failed_total",
		Help: "Total plan requests rejected with validation errors",
	})

	// PlanJobs — распределение размера плана в jobs.
	PlanJobs = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "conductor_plan_jobs",
		Help:    "Number of jobs per published execution plan",
		Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
	})

	// PlanBatches — распределение глубины плана в батчах.
	PlanBatches = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "conductor_plan_batches",
		Help:    "Number of batches per published execution plan",
		Buckets: []float64{1, 2, 3, 5, 8, 13, 21},
	})

	// TriggerFiredTotal — количество срабатываний триггеров.
	TriggerFiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "conductor_trigger_fired_total",
		Help: "Total plan requests created by triggers",
	})

	// HTTPRequestDuration — длительность HTTP запросов по методу и статусу.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "conductor_http_request_duration_seconds",
		Help:    "HTTP request duration",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "status"})
)
