package domain

import (
	"time"

	"github.com/google/uuid"
)

// Schedule — правило автоматического запуска сценария.
//
// Время срабатывания задаётся либо cron-выражением, либо интервалом
// в секундах; cron имеет приоритет. Планировщик сравнивает NextDueAt
// с текущим временем и создаёт запуск, когда срок подошёл. Для
// неактивного сценария запуск не создаётся, но срок всё равно сдвигается.
type Schedule struct {
	// ID — идентификатор расписания.
	ID uuid.UUID `json:"id"`

	// ScenarioID — запускаемый сценарий.
	ScenarioID uuid.UUID `json:"scenario_id"`

	// Name — человекочитаемое имя расписания.
	Name string `json:"name,omitempty"`

	// CronExpr — пятипольное cron-выражение
	// ("минуты часы дни месяцы дни_недели").
	CronExpr string `json:"cron_expr,omitempty"`

	// IntervalSec — период в секундах; действует, только когда
	// CronExpr пуст.
	IntervalSec int `json:"interval_sec,omitempty"`

	// Timezone — пояс, в котором трактуется cron-выражение
	// (default: "UTC").
	Timezone string `json:"timezone"`

	// Enabled — выключенное расписание планировщик не трогает.
	Enabled bool `json:"enabled"`

	// NextDueAt — ближайшее срабатывание (UTC).
	NextDueAt *time.Time `json:"next_due_at,omitempty"`

	// LastRunAt — время последнего срабатывания.
	LastRunAt *time.Time `json:"last_run_at,omitempty"`

	// LastExecutionID — запуск, созданный последним срабатыванием.
	LastExecutionID *uuid.UUID `json:"last_execution_id,omitempty"`

	// Options — параметры каждого создаваемого запуска.
	Options ExecutionOptions `json:"options"`

	// CreatedAt — время создания расписания.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего изменения.
	UpdatedAt time.Time `json:"updated_at"`
}

// IsCron возвращает true, если время задано cron-выражением.
func (s *Schedule) IsCron() bool {
	return s.CronExpr != ""
}

// IsInterval возвращает true, если время задано интервалом.
func (s *Schedule) IsInterval() bool {
	return s.CronExpr == "" && s.IntervalSec > 0
}

// IsDue возвращает true, если расписанию пора сработать.
func (s *Schedule) IsDue(now time.Time) bool {
	if !s.Enabled || s.NextDueAt == nil {
		return false
	}
	return !now.Before(*s.NextDueAt)
}

// RecordRun фиксирует созданный запуск и сдвигает следующее срабатывание.
func (s *Schedule) RecordRun(executionID uuid.UUID, nextDue time.Time) {
	now := time.Now()
	s.LastRunAt = &now
	s.LastExecutionID = &executionID
	s.NextDueAt = &nextDue
	s.UpdatedAt = now
}
