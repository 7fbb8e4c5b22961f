// Fabrica Engine — выполняет запуски сценариев.
//
// Engine:
//   - Получает запросы на выполнение из RabbitMQ
//   - Периодически проверяет pending запуски в БД (fallback)
//   - Разрешает граф зависимостей и генерирует события по группам
//   - Принимает запросы на отмену через execution.cancel
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Fabrica/internal/engine"
	"github.com/shaiso/Fabrica/internal/executor"
	"github.com/shaiso/Fabrica/internal/generator"
	"github.com/shaiso/Fabrica/internal/mitre"
	"github.com/shaiso/Fabrica/internal/mq"
	"github.com/shaiso/Fabrica/internal/repo"
	"github.com/shaiso/Fabrica/internal/service"
	"github.com/shaiso/Fabrica/internal/sink"
	"github.com/shaiso/Fabrica/internal/telemetry"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting fabrica-engine")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// DB pool
	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	// Создаём репозитории
	templateRepo := repo.NewTemplateRepo(pool)
	scenarioRepo := repo.NewScenarioRepo(pool)
	executionRepo := repo.NewExecutionRepo(pool)

	// RabbitMQ
	var publisher *mq.Publisher
	var mqConn *mq.Connection
	var eventSink sink.EventLogSink = sink.NewMemory()

	mqURL := os.Getenv("RABBITMQ_URL")
	if mqURL == "" {
		mqURL = mq.DefaultURL()
	}

	mqConn, err = mq.NewConnection(mqURL, logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, running in polling-only mode", "error", err)
		mqConn = nil
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		// Создаём топологию
		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}

		publisher = mq.NewPublisher(mqConn, logger)
		eventSink = sink.NewAMQP(publisher)
	}

	// Собираем пайплайн валидации и движки
	pipeline := engine.NewPipeline(mitre.NewCatalog())

	gen := generator.New(generator.Config{
		Pipeline: pipeline,
		Sink:     eventSink,
		Logger:   logger,
	})

	exec := executor.New(executor.Config{
		Pipeline:  pipeline,
		Templates: templateRepo,
		Generator: gen,
		Logger:    logger,
	})

	svc := service.New(service.Config{
		Templates:  templateRepo,
		Scenarios:  scenarioRepo,
		Executions: executionRepo,
		Pipeline:   pipeline,
		Generator:  gen,
		Executor:   exec,
		Publisher:  publisher,
		Logger:     logger,
	})

	// Создаём движок
	eng := service.NewEngine(service.EngineConfig{
		Service:    svc,
		Executions: executionRepo,
		Conn:       mqConn,
		Logger:     logger,
	})

	// Запускаем движок
	if err := eng.Start(ctx); err != nil {
		logger.Error("failed to start engine", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8083"
	if v := os.Getenv("ENGINE_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()

	// Останавливаем движок
	eng.Stop()
	logger.Info("fabrica-engine stopped")
}
