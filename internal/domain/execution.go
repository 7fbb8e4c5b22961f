package domain

import (
	"time"

	"github.com/google/uuid"
)

// Значения по умолчанию для ExecutionOptions.
const (
	// DefaultExecutionTimeout — предельная длительность одного выполнения.
	DefaultExecutionTimeout = time.Hour

	// DefaultDelayMultiplier — множитель задержек событий.
	DefaultDelayMultiplier = 1.0
)

// ExecutionOptions — параметры одного запуска сценария.
type ExecutionOptions struct {
	// ContinueOnError — продолжать ли выполнение после отказа события.
	// При false первый отказ прерывает запуск до старта следующих групп.
	ContinueOnError bool `json:"continue_on_error,omitempty"`

	// DelayMultiplier — множитель задержек событий (default: 1.0).
	// Меньше единицы — ускоренный прогон, больше — замедленный.
	DelayMultiplier float64 `json:"delay_multiplier,omitempty"`

	// Timeout — предельная длительность выполнения (default: 1h).
	// Истечение таймаута эквивалентно внешней отмене.
	Timeout time.Duration `json:"timeout,omitempty"`
}

// Normalize заполняет нулевые поля значениями по умолчанию.
func (o ExecutionOptions) Normalize() ExecutionOptions {
	if o.DelayMultiplier <= 0 {
		o.DelayMultiplier = DefaultDelayMultiplier
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultExecutionTimeout
	}
	return o
}

// ExecutionResult — итог одного выполнения сценария.
type ExecutionResult struct {
	// Success — завершились ли все события успешно.
	Success bool `json:"success"`

	// EventsGenerated — количество сгенерированных событий.
	EventsGenerated int `json:"events_generated"`

	// EventsFailed — количество отказов.
	EventsFailed int `json:"events_failed"`

	// Cancelled — true, если запуск был отменён (вручную или по таймауту).
	Cancelled bool `json:"cancelled,omitempty"`

	// Elapsed — длительность выполнения.
	Elapsed time.Duration `json:"elapsed"`

	// Error — описание причины неуспеха.
	Error string `json:"error,omitempty"`
}

// ScenarioProgress — снимок прогресса выполнения сценария.
type ScenarioProgress struct {
	// ScenarioID — выполняемый сценарий.
	ScenarioID uuid.UUID `json:"scenario_id"`

	// TotalEvents — общее количество событий сценария.
	TotalEvents int `json:"total_events"`

	// CompletedEvents — количество завершённых событий.
	CompletedEvents int `json:"completed_events"`

	// Phase — текущая фаза выполнения.
	Phase ExecutionStatus `json:"phase"`

	// LastError — последняя нефатальная ошибка (при ContinueOnError).
	LastError string `json:"last_error,omitempty"`
}

// Execution — запись об одном запуске сценария.
//
// Execution создаётся когда:
//   - Пользователь запускает сценарий вручную (через API/CLI)
//   - Scheduler создаёт запуск по расписанию
//
// Запись живёт в БД и обновляется движком по ходу выполнения.
type Execution struct {
	// ID — уникальный идентификатор запуска.
	ID uuid.UUID `json:"id"`

	// ScenarioID — выполняемый сценарий.
	ScenarioID uuid.UUID `json:"scenario_id"`

	// Revision — ревизия сценария на момент запуска.
	Revision int `json:"revision"`

	// Status — текущий статус.
	Status ExecutionStatus `json:"status"`

	// Options — параметры запуска.
	Options ExecutionOptions `json:"options"`

	// EventsGenerated — количество сгенерированных событий.
	EventsGenerated int `json:"events_generated"`

	// EventsFailed — количество отказов.
	EventsFailed int `json:"events_failed"`

	// StartedAt — время начала выполнения.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время завершения.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// Error — текст ошибки при статусе FAILED.
	Error string `json:"error,omitempty"`

	// CreatedAt — время создания записи.
	CreatedAt time.Time `json:"created_at"`
}

// Duration возвращает продолжительность выполнения.
// Возвращает 0, если запуск ещё не завершён.
func (e *Execution) Duration() time.Duration {
	if e.StartedAt == nil || e.FinishedAt == nil {
		return 0
	}
	return e.FinishedAt.Sub(*e.StartedAt)
}

// IsFinished возвращает true, если запуск завершён.
func (e *Execution) IsFinished() bool {
	return e.Status.IsTerminal()
}

// MarkRunning переводит запуск в статус RUNNING.
func (e *Execution) MarkRunning() {
	now := time.Now()
	e.Status = ExecutionStatusRunning
	e.StartedAt = &now
}

// ApplyResult переносит итог выполнения в запись.
func (e *Execution) ApplyResult(res *ExecutionResult) {
	now := time.Now()
	e.FinishedAt = &now
	e.EventsGenerated = res.EventsGenerated
	e.EventsFailed = res.EventsFailed
	e.Error = res.Error

	switch {
	case res.Cancelled:
		e.Status = ExecutionStatusCancelled
	case res.Success:
		e.Status = ExecutionStatusCompleted
	default:
		e.Status = ExecutionStatusFailed
	}
}

// MarkFailed переводит запуск в статус FAILED с ошибкой.
func (e *Execution) MarkFailed(err string) {
	now := time.Now()
	e.Status = ExecutionStatusFailed
	e.FinishedAt = &now
	e.Error = err
}
