package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventInstance — готовое к записи событие: шаблон с подставленными
// значениями параметров.
//
// Именно EventInstance уходит в приёмник (EventLogSink).
type EventInstance struct {
	// ID — уникальный идентификатор экземпляра.
	ID uuid.UUID `json:"id"`

	// TemplateID — шаблон, из которого создан экземпляр.
	TemplateID uuid.UUID `json:"template_id"`

	// Channel — журнал назначения.
	Channel Channel `json:"channel"`

	// EventID — числовой код события.
	EventID int `json:"event_id"`

	// Level — уровень важности.
	Level Level `json:"level"`

	// Source — источник события.
	Source string `json:"source"`

	// Timestamp — время события. Не может быть в будущем.
	Timestamp time.Time `json:"timestamp"`

	// Bindings — значения параметров, из которых собран payload.
	Bindings map[string]string `json:"bindings,omitempty"`

	// Payload — отрендеренное тело события (JSON).
	// Пустой payload означает, что рендеринг ещё не выполнялся.
	Payload []byte `json:"payload,omitempty"`
}

// GenerationResult — результат генерации одного события.
//
// Ошибки валидации, отказ приёмника и отсутствующие параметры — это
// бизнес-исходы (Success=false + Message), а не ошибки уровня API.
type GenerationResult struct {
	// Success — успешно ли сгенерировано событие.
	Success bool `json:"success"`

	// InstanceID — идентификатор экземпляра (если он был создан).
	InstanceID uuid.UUID `json:"instance_id,omitempty"`

	// Message — описание отказа при Success=false.
	Message string `json:"message,omitempty"`

	// Elapsed — время генерации, включая запись в приёмник.
	Elapsed time.Duration `json:"elapsed"`
}

// BatchResult — агрегированный результат пакетной генерации.
type BatchResult struct {
	// Requested — количество событий во входном наборе.
	Requested int `json:"requested"`

	// Succeeded — количество успешно сгенерированных событий.
	Succeeded int `json:"succeeded"`

	// Failed — количество отказов.
	Failed int `json:"failed"`

	// Chunks — количество обработанных чанков.
	Chunks int `json:"chunks"`

	// Elapsed — время обработки всего вызова.
	Elapsed time.Duration `json:"elapsed"`

	// Throughput — наблюдаемая скорость (событий в секунду).
	Throughput float64 `json:"throughput"`

	// Messages — сообщения об отказах (по одному на упавшее событие).
	Messages []string `json:"messages,omitempty"`
}
