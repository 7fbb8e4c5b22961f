package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Fabrica/internal/domain"
	"github.com/shaiso/Fabrica/internal/mq"
	"github.com/shaiso/Fabrica/internal/repo"
)

// defaultBatchSize — максимум расписаний, обрабатываемых за один тик.
const defaultBatchSize = 50

// Scheduler — планировщик автоматических запусков сценариев.
//
// Каждый тик Scheduler забирает расписания с истекшим next_due_at,
// создаёт для них запуски в статусе PENDING и публикует
// execution.requested. Саму работу выполняет движок.
type Scheduler struct {
	schedules  *repo.ScheduleRepo
	scenarios  *repo.ScenarioRepo
	executions *repo.ExecutionRepo

	// publisher может быть nil — тогда запуски подхватывает только
	// polling fallback движка.
	publisher *mq.Publisher

	logger    *slog.Logger
	batchSize int
}

// Config — конфигурация Scheduler.
type Config struct {
	ScheduleRepo  *repo.ScheduleRepo
	ScenarioRepo  *repo.ScenarioRepo
	ExecutionRepo *repo.ExecutionRepo
	Publisher     *mq.Publisher
	Logger        *slog.Logger

	// BatchSize — максимум расписаний за тик (default: 50).
	BatchSize int
}

// New создаёт Scheduler.
func New(cfg Config) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	return &Scheduler{
		schedules:  cfg.ScheduleRepo,
		scenarios:  cfg.ScenarioRepo,
		executions: cfg.ExecutionRepo,
		publisher:  cfg.Publisher,
		logger:     logger,
		batchSize:  batchSize,
	}
}

// Tick обрабатывает один тик планировщика: находит все расписания
// с истекшим next_due_at и создаёт для них запуски.
//
// Ошибка одного расписания не блокирует остальные.
func (s *Scheduler) Tick(ctx context.Context) error {
	now := time.Now()

	due, err := s.schedules.ListDue(ctx, now, s.batchSize)
	if err != nil {
		return fmt.Errorf("list due schedules: %w", err)
	}
	if len(due) == 0 {
		return nil
	}

	s.logger.Debug("processing due schedules", "count", len(due))

	for i := range due {
		sched := &due[i]
		if err := s.processSchedule(ctx, sched, now); err != nil {
			s.logger.Error("failed to process schedule",
				"schedule_id", sched.ID,
				"scenario_id", sched.ScenarioID,
				"error", err,
			)
		}
	}
	return nil
}

// processSchedule обрабатывает одно расписание: создаёт запуск
// и сдвигает next_due_at.
//
// Расписание сдвигается даже если запуск не был создан (сценарий
// удалён или выключен) — иначе оно зависнет в каждом тике.
func (s *Scheduler) processSchedule(ctx context.Context, sched *domain.Schedule, now time.Time) error {
	executionID, runErr := s.triggerExecution(ctx, sched)

	nextDue, err := CalculateNextDue(sched, now)
	if err != nil {
		// Некорректное расписание выключается, чтобы не молотить впустую
		s.logger.Warn("disabling schedule with invalid timing",
			"schedule_id", sched.ID,
			"error", err,
		)
		if derr := s.schedules.SetEnabled(ctx, sched.ID, false); derr != nil {
			return fmt.Errorf("disable schedule: %w", derr)
		}
		return runErr
	}

	if executionID != uuid.Nil {
		sched.RecordRun(executionID, nextDue)
	} else {
		sched.NextDueAt = &nextDue
		sched.UpdatedAt = now
	}

	if err := s.schedules.Update(ctx, sched); err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	return runErr
}

// triggerExecution создаёт запуск сценария для расписания.
// Возвращает uuid.Nil без ошибки, если запуск не нужен (сценарий
// выключен) или невозможен (сценарий удалён).
func (s *Scheduler) triggerExecution(ctx context.Context, sched *domain.Schedule) (uuid.UUID, error) {
	sc, err := s.scenarios.GetByID(ctx, sched.ScenarioID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.logger.Warn("schedule references missing scenario",
				"schedule_id", sched.ID,
				"scenario_id", sched.ScenarioID,
			)
			return uuid.Nil, nil
		}
		return uuid.Nil, fmt.Errorf("get scenario: %w", err)
	}

	// Неактивные сценарии по расписанию не запускаются
	if !sc.IsActive {
		s.logger.Debug("skipping inactive scenario",
			"schedule_id", sched.ID,
			"scenario_id", sc.ID,
		)
		return uuid.Nil, nil
	}

	exec := &domain.Execution{
		ID:         uuid.New(),
		ScenarioID: sc.ID,
		Revision:   sc.Revision,
		Status:     domain.ExecutionStatusPending,
		Options:    sched.Options.Normalize(),
	}
	if err := s.executions.Create(ctx, exec); err != nil {
		return uuid.Nil, fmt.Errorf("create execution: %w", err)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishExecutionRequested(ctx, exec.ID, sc.ID); err != nil {
			s.logger.Warn("failed to publish execution.requested",
				"execution_id", exec.ID,
				"scenario_id", sc.ID,
				"error", err,
			)
			// Запись в БД есть — движок заберёт через polling
		}
	}

	s.logger.Info("scheduled execution created",
		"schedule_id", sched.ID,
		"execution_id", exec.ID,
		"scenario_id", sc.ID,
		"revision", exec.Revision,
	)

	return exec.ID, nil
}
