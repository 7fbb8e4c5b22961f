package engine

import "errors"

// Ошибки валидации шаблонов и экземпляров.
var (
	// ErrEmptyName — шаблон или сценарий без имени.
	ErrEmptyName = errors.New("name is empty")

	// ErrInvalidChannel — неизвестный канал журнала.
	ErrInvalidChannel = errors.New("invalid channel")

	// ErrEventIDOutOfRange — код события вне диапазона 1–65535.
	ErrEventIDOutOfRange = errors.New("event id out of range")

	// ErrInvalidLevel — уровень вне диапазона LogAlways..Verbose.
	ErrInvalidLevel = errors.New("invalid level")

	// ErrEmptySource — не указан источник события.
	ErrEmptySource = errors.New("source is empty")

	// ErrTimestampInFuture — время события в будущем.
	ErrTimestampInFuture = errors.New("timestamp is in the future")

	// ErrTimestampMissing — время события не задано.
	ErrTimestampMissing = errors.New("timestamp is not set")

	// ErrMalformedPayload — payload события не является корректным JSON.
	ErrMalformedPayload = errors.New("payload is not well-formed")
)

// Ошибки валидации параметров.
var (
	// ErrInvalidParameterSpec — некорректное объявление параметра.
	ErrInvalidParameterSpec = errors.New("invalid parameter spec")

	// ErrMissingParameter — обязательный параметр без значения.
	ErrMissingParameter = errors.New("required parameter missing")

	// ErrUndeclaredParameter — значение для необъявленного параметра.
	ErrUndeclaredParameter = errors.New("parameter not declared")

	// ErrParameterTypeMismatch — значение не парсится в объявленный тип.
	ErrParameterTypeMismatch = errors.New("parameter value does not match declared type")

	// ErrParameterPatternMismatch — значение не подходит под паттерн.
	ErrParameterPatternMismatch = errors.New("parameter value does not match pattern")
)

// Ошибки графа зависимостей.
var (
	// ErrNoEvents — сценарий не содержит событий.
	ErrNoEvents = errors.New("scenario has no events")

	// ErrEmptyEventID — событие без ID.
	ErrEmptyEventID = errors.New("event has empty ID")

	// ErrDuplicateEventID — несколько событий с одинаковым ID.
	ErrDuplicateEventID = errors.New("duplicate event ID")

	// ErrMissingDependency — событие зависит от несуществующего события.
	ErrMissingDependency = errors.New("event depends on unknown event")

	// ErrSelfDependency — событие зависит от самого себя.
	ErrSelfDependency = errors.New("event depends on itself")

	// ErrCyclicDependency — обнаружен цикл в зависимостях.
	ErrCyclicDependency = errors.New("cyclic dependency detected")
)

// Ошибки ссылок на ATT&CK.
var (
	// ErrMitreSyntax — ссылка не соответствует форме T####(.###).
	ErrMitreSyntax = errors.New("mitre technique id has invalid syntax")

	// ErrMitreUnknown — техника не найдена в каталоге.
	ErrMitreUnknown = errors.New("mitre technique not found")
)

// ErrNilReference — обязательная ссылка не передана (ошибка вызывающего
// кода, а не бизнес-исход).
var ErrNilReference = errors.New("required reference is nil")

// ValidationError — ошибка валидации с контекстом.
type ValidationError struct {
	EventID string // ID события, где произошла ошибка (пусто для шаблона)
	Field   string // поле, вызвавшее ошибку
	Message string // описание ошибки
	Err     error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	if e.EventID != "" {
		return "event " + e.EventID + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError создаёт новую ошибку валидации.
func NewValidationError(eventID, field, message string, err error) *ValidationError {
	return &ValidationError{
		EventID: eventID,
		Field:   field,
		Message: message,
		Err:     err,
	}
}
