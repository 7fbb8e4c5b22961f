package domain

// ExecutionStatus — статус выполнения сценария.
//
// Жизненный цикл:
//
//	PENDING → VALIDATING → RESOLVING → RUNNING → COMPLETED
//	                                           ↘ FAILED
//	                                           ↘ CANCELLED
type ExecutionStatus string

const (
	// ExecutionStatusPending — выполнение создано, но ещё не началось.
	ExecutionStatusPending ExecutionStatus = "PENDING"

	// ExecutionStatusValidating — идёт валидация сценария.
	ExecutionStatusValidating ExecutionStatus = "VALIDATING"

	// ExecutionStatusResolving — идёт раскладка графа зависимостей по группам.
	ExecutionStatusResolving ExecutionStatus = "RESOLVING"

	// ExecutionStatusRunning — группы событий выполняются.
	ExecutionStatusRunning ExecutionStatus = "RUNNING"

	// ExecutionStatusCompleted — все события сгенерированы.
	ExecutionStatusCompleted ExecutionStatus = "COMPLETED"

	// ExecutionStatusFailed — выполнение прервано ошибкой.
	ExecutionStatusFailed ExecutionStatus = "FAILED"

	// ExecutionStatusCancelled — выполнение отменено (вручную или по таймауту).
	ExecutionStatusCancelled ExecutionStatus = "CANCELLED"
)

// IsTerminal возвращает true, если статус финальный.
func (s ExecutionStatus) IsTerminal() bool {
	switch s {
	case ExecutionStatusCompleted, ExecutionStatusFailed, ExecutionStatusCancelled:
		return true
	default:
		return false
	}
}
