package executor

import "errors"

// Ошибки выполнения сценариев.
var (
	// ErrBusy — ограничитель исчерпан, слот не получен за отведённое время.
	// Исход retryable: вызывающий код может повторить попытку позже.
	ErrBusy = errors.New("execution slots exhausted")

	// ErrDuplicateRun — сценарий уже выполняется.
	ErrDuplicateRun = errors.New("scenario is already running")

	// ErrScenarioRunning — операция недопустима, пока сценарий выполняется.
	ErrScenarioRunning = errors.New("scenario has an execution in flight")

	// ErrTerminateTimeout — выполнение не завершилось за отведённое
	// время после запроса принудительной остановки.
	ErrTerminateTimeout = errors.New("execution did not stop in time")

	// ErrValidationFailed — сценарий не прошёл валидацию.
	ErrValidationFailed = errors.New("scenario validation failed")
)
