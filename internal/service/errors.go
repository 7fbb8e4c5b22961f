package service

import "errors"

// Ошибки фасада.
var (
	// ErrExecutionNotPending — запуск уже обрабатывается или завершён.
	ErrExecutionNotPending = errors.New("execution is not pending")

	// ErrNotRunning — сценарий не выполняется, отменять нечего.
	ErrNotRunning = errors.New("scenario is not running")

	// ErrInvalidSchedule — расписание задано некорректно.
	ErrInvalidSchedule = errors.New("invalid schedule")
)
