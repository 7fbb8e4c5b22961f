// Fabrica API — HTTP-сервер управления шаблонами, сценариями,
// запусками и расписаниями.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shaiso/Fabrica/internal/api"
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

var (
	startTime = time.Now()
	reqTotal  = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fabrica_api_http_requests_total",
		Help: "Total HTTP requests handled by fabrica_api",
	})
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting fabrica-api")

	// Подключаемся к базе данных
	pool, err := repo.NewPool(context.Background())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("connected to database")

	// Создаём репозитории
	templateRepo := repo.NewTemplateRepo(pool)
	scenarioRepo := repo.NewScenarioRepo(pool)
	executionRepo := repo.NewExecutionRepo(pool)
	scheduleRepo := repo.NewScheduleRepo(pool)

	// RabbitMQ: без брокера события пишутся в память процесса,
	// а запуски подхватывает только polling fallback движка
	var publisher *mq.Publisher
	var eventSink sink.EventLogSink = sink.NewMemory()

	mqURL := os.Getenv("RABBITMQ_URL")
	if mqURL == "" {
		mqURL = mq.DefaultURL()
	}

	mqConn, err := mq.NewConnection(mqURL, logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, running in polling-only mode", "error", err)
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		if err := mq.SetupTopology(context.Background(), mqConn); err != nil {
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
		Schedules:  scheduleRepo,
		Pipeline:   pipeline,
		Generator:  gen,
		Executor:   exec,
		Publisher:  publisher,
		Logger:     logger,
	})

	// Создаём API handler
	handler := api.NewHandler(api.Config{
		Service: svc,
		Logger:  logger,
	})

	mux := http.NewServeMux()

	// Health и metrics
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		reqTotal.Inc()
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime))
	})
	mux.Handle("/metrics", promhttp.Handler())

	// Регистрируем API маршруты
	handler.RegisterRoutes(mux)

	addr := ":8080"
	if v := os.Getenv("API_PORT"); v != "" {
		addr = ":" + v
	}

	// Создаём HTTP сервер с возможностью graceful shutdown
	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	// Запускаем сервер в горутине
	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Ожидаем сигнал завершения
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	<-ctx.Done()
	logger.Info("shutting down")

	// Graceful shutdown с таймаутом 10 секунд
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
}
