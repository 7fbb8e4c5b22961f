package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Fabrica/internal/domain"
	"github.com/shaiso/Fabrica/internal/scheduler"
)

// CreateSchedule валидирует и сохраняет расписание запусков сценария.
//
// Расписание задаётся либо cron-выражением, либо интервалом в секундах.
// Первое время запуска вычисляется сразу при создании.
func (s *Service) CreateSchedule(ctx context.Context, sched *domain.Schedule) error {
	if sched.ID == uuid.Nil {
		sched.ID = uuid.New()
	}
	if sched.Timezone == "" {
		sched.Timezone = "UTC"
	}

	if err := s.validateScheduleTiming(sched); err != nil {
		return err
	}

	// Сценарий должен существовать
	if _, err := s.scenarios.GetByID(ctx, sched.ScenarioID); err != nil {
		return err
	}

	nextDue, err := scheduler.CalculateInitialNextDue(sched)
	if err != nil {
		return fmt.Errorf("calculate next due: %w", err)
	}
	sched.NextDueAt = &nextDue

	now := time.Now()
	sched.CreatedAt = now
	sched.UpdatedAt = now

	return s.schedules.Create(ctx, sched)
}

// UpdateSchedule обновляет расписание и пересчитывает next_due_at.
func (s *Service) UpdateSchedule(ctx context.Context, sched *domain.Schedule) error {
	if err := s.validateScheduleTiming(sched); err != nil {
		return err
	}

	nextDue, err := scheduler.CalculateInitialNextDue(sched)
	if err != nil {
		return fmt.Errorf("calculate next due: %w", err)
	}
	sched.NextDueAt = &nextDue
	sched.UpdatedAt = time.Now()

	return s.schedules.Update(ctx, sched)
}

// GetSchedule возвращает расписание по ID.
func (s *Service) GetSchedule(ctx context.Context, id uuid.UUID) (*domain.Schedule, error) {
	return s.schedules.GetByID(ctx, id)
}

// ListSchedules возвращает все расписания.
func (s *Service) ListSchedules(ctx context.Context) ([]domain.Schedule, error) {
	return s.schedules.List(ctx)
}

// DeleteSchedule удаляет расписание.
func (s *Service) DeleteSchedule(ctx context.Context, id uuid.UUID) error {
	return s.schedules.Delete(ctx, id)
}

// SetScheduleEnabled включает или выключает расписание.
func (s *Service) SetScheduleEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	return s.schedules.SetEnabled(ctx, id, enabled)
}

// validateScheduleTiming проверяет cron-выражение и интервал.
func (s *Service) validateScheduleTiming(sched *domain.Schedule) error {
	if sched.CronExpr == "" && sched.IntervalSec <= 0 {
		return fmt.Errorf("%w: schedule requires cron_expr or interval_sec", ErrInvalidSchedule)
	}
	if sched.CronExpr != "" {
		if err := scheduler.ValidateCronExpr(sched.CronExpr); err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidSchedule, err)
		}
	}
	if _, err := time.LoadLocation(sched.Timezone); err != nil {
		return fmt.Errorf("%w: unknown timezone %q", ErrInvalidSchedule, sched.Timezone)
	}
	return nil
}
