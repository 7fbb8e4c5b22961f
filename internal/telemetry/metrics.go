package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики генерации и выполнения сценариев.
var (
	// EventsGenerated — количество успешно сгенерированных событий.
	EventsGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fabrica_events_generated_total",
		Help: "Total events successfully generated and delivered to the sink",
	})

	// EventsFailed — количество отказов генерации.
	EventsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fabrica_events_failed_total",
		Help: "Total event generation failures",
	})

	// GenerationDuration — длительность генерации одного события,
	// включая запись в приёмник.
	GenerationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fabrica_generation_duration_seconds",
		Help:    "Time to generate a single event, sink delivery included",
		Buckets: prometheus.DefBuckets,
	})

	// ExecutionsTotal — завершённые выполнения сценариев по исходам.
	ExecutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fabrica_executions_total",
		Help: "Completed scenario executions by outcome",
	}, []string{"outcome"})

	// ExecutionsActive — количество выполняющихся сценариев.
	ExecutionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fabrica_executions_active",
		Help: "Scenario executions currently in flight",
	})

	// BatchThroughput — наблюдаемая скорость последней пакетной генерации.
	BatchThroughput = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fabrica_batch_throughput_events_per_second",
		Help: "Observed throughput of the most recent batch generation call",
	})
)
