package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Fabrica/internal/executor"
	"github.com/shaiso/Fabrica/internal/mq"
	"github.com/shaiso/Fabrica/internal/repo"
)

// Значения по умолчанию.
const (
	defaultPollInterval = 10 * time.Second
	defaultBatchSize    = 10
)

// Engine — event-driven движок выполнения сценариев.
//
// Движок:
//   - Получает запросы на выполнение из очереди RabbitMQ (event-driven)
//   - Периодически проверяет pending запуски в БД (polling fallback)
//   - Ведёт каждый запуск через ScenarioExecutor
//   - Принимает запросы на отмену через execution.cancel
type Engine struct {
	svc        *Service
	executions *repo.ExecutionRepo
	conn       *mq.Connection

	requestedConsumer *mq.Consumer
	cancelConsumer    *mq.Consumer

	pollInterval time.Duration
	batchSize    int

	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// EngineConfig — конфигурация Engine.
type EngineConfig struct {
	Service    *Service
	Executions *repo.ExecutionRepo
	Conn       *mq.Connection

	// PollInterval — интервал polling fallback (default: 10s).
	PollInterval time.Duration

	// BatchSize — количество запусков за один poll (default: 10).
	BatchSize int

	Logger *slog.Logger
}

// NewEngine создаёт Engine.
func NewEngine(cfg EngineConfig) *Engine {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		svc:          cfg.Service,
		executions:   cfg.Executions,
		conn:         cfg.Conn,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		logger:       logger,
	}
}

// Start запускает Engine.
//
// Запускает:
//   - Consumer для executions.requested
//   - Consumer для executions.cancel
//   - Polling горутину для fallback
func (e *Engine) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	e.cancelFunc = cancel

	e.logger.Info("starting engine",
		"poll_interval", e.pollInterval,
		"batch_size", e.batchSize,
	)

	if e.conn != nil {
		e.requestedConsumer = mq.NewConsumer(e.conn, e.logger, mq.ConsumerConfig{
			Queue:    string(mq.QueueExecutionsRequested),
			Handler:  e.handleExecutionRequested,
			Prefetch: e.batchSize,
		})

		e.cancelConsumer = mq.NewConsumer(e.conn, e.logger, mq.ConsumerConfig{
			Queue:    string(mq.QueueExecutionsCancel),
			Handler:  e.handleExecutionCancel,
			Prefetch: 1,
		})

		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			if err := e.requestedConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				e.logger.Error("requested consumer error", "error", err)
			}
		}()

		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			if err := e.cancelConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				e.logger.Error("cancel consumer error", "error", err)
			}
		}()
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.pollLoop(ctx)
	}()

	e.logger.Info("engine started")
	return nil
}

// Stop останавливает Engine и ждёт завершения горутин.
// Выполняющиеся сценарии получают отмену через контекст.
func (e *Engine) Stop() {
	e.logger.Info("stopping engine...")

	if e.cancelFunc != nil {
		e.cancelFunc()
	}

	if e.requestedConsumer != nil {
		e.requestedConsumer.Stop()
	}
	if e.cancelConsumer != nil {
		e.cancelConsumer.Stop()
	}

	e.wg.Wait()

	e.logger.Info("engine stopped",
		"active_executions", e.svc.Registry().Count(),
	)
}

// handleExecutionRequested обрабатывает запрос на выполнение.
//
// Сам запуск идёт в отдельной горутине: сценарий может выполняться
// десятки минут, и consumer не должен стоять всё это время.
func (e *Engine) handleExecutionRequested(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.ExecutionRequestedPayload](&delivery.Message)
	if err != nil {
		e.logger.Error("failed to parse execution.requested payload", "error", err)
		return err
	}

	e.logger.Debug("received execution.requested",
		"execution_id", payload.ExecutionID,
		"scenario_id", payload.ScenarioID,
	)

	exec, err := e.executions.GetByID(ctx, payload.ExecutionID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			e.logger.Warn("execution not found", "execution_id", payload.ExecutionID)
			return nil
		}
		return err
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.runExecution(ctx, exec.ID)
	}()

	return nil
}

// handleExecutionCancel обрабатывает запрос на отмену.
func (e *Engine) handleExecutionCancel(_ context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.ExecutionCancelPayload](&delivery.Message)
	if err != nil {
		e.logger.Error("failed to parse execution.cancel payload", "error", err)
		return err
	}

	if e.svc.Registry().Cancel(payload.ScenarioID) {
		e.logger.Info("execution cancelled by request", "scenario_id", payload.ScenarioID)
	} else {
		e.logger.Debug("cancel request for idle scenario", "scenario_id", payload.ScenarioID)
	}

	return nil
}

// pollLoop — цикл polling для fallback.
func (e *Engine) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	// Первый poll сразу при старте (подхватываем запуски, созданные
	// пока движок был выключен)
	e.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.poll(ctx)
		}
	}
}

// poll выполняет один цикл polling.
func (e *Engine) poll(ctx context.Context) {
	pending, err := e.executions.ListPending(ctx, e.batchSize)
	if err != nil {
		e.logger.Error("failed to list pending executions", "error", err)
		return
	}

	if len(pending) == 0 {
		return
	}

	e.logger.Debug("poll found pending executions", "count", len(pending))

	for i := range pending {
		exec := &pending[i]

		// Сценарий уже выполняется в этом процессе — запуск подождёт
		if e.svc.Registry().IsRunning(exec.ScenarioID) {
			continue
		}

		e.wg.Add(1)
		go func(id uuid.UUID) {
			defer e.wg.Done()
			e.runExecution(ctx, id)
		}(exec.ID)
	}
}

// runExecution ведёт один запуск от начала до конца.
// Retryable-исходы оставляют запуск в PENDING — его заберёт
// следующий poll.
func (e *Engine) runExecution(ctx context.Context, executionID uuid.UUID) {
	exec, err := e.executions.GetByID(ctx, executionID)
	if err != nil {
		e.logger.Error("failed to load execution", "execution_id", executionID, "error", err)
		return
	}

	if err := e.svc.RunExecution(ctx, exec); err != nil {
		switch {
		case errors.Is(err, ErrExecutionNotPending):
			e.logger.Debug("execution already claimed", "execution_id", executionID)
		case errors.Is(err, executor.ErrBusy), errors.Is(err, executor.ErrDuplicateRun):
			e.logger.Info("execution deferred", "execution_id", executionID, "reason", err)
		case errors.Is(err, context.Canceled):
			// Останов движка
		default:
			e.logger.Error("execution failed", "execution_id", executionID, "error", err)
		}
	}
}
