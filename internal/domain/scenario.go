package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ScenarioDefinition — упорядоченная коллекция связанных зависимостями
// событий, генерируемая как единое целое.
//
// Сценарий версионируется: создаётся как "1.0", каждое обновление
// инкрементирует минорную часть ("1.1", "1.2", ...). Обновление и удаление
// допустимы только пока сценарий не выполняется.
type ScenarioDefinition struct {
	// ID — уникальный идентификатор сценария.
	ID uuid.UUID `json:"id"`

	// Name — имя сценария (например, "brute-force-then-logon").
	Name string `json:"name"`

	// Description — описание назначения сценария.
	Description string `json:"description,omitempty"`

	// MitreTechnique — ссылка на технику ATT&CK для сценария в целом.
	MitreTechnique string `json:"mitre_technique,omitempty"`

	// IsActive — флаг активности. Неактивные сценарии не запускаются
	// по расписанию.
	IsActive bool `json:"is_active"`

	// Revision — внутренний номер ревизии (1, 2, 3, ...).
	// Отображаемая версия вычисляется из него: "1.0", "1.1", ...
	Revision int `json:"revision"`

	// CreatedAt — время создания сценария.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего обновления.
	UpdatedAt time.Time `json:"updated_at"`

	// Events — события сценария в порядке объявления.
	Events []ScenarioEvent `json:"events"`
}

// Version возвращает отображаемую версию сценария ("1.0" для первой ревизии).
func (s *ScenarioDefinition) Version() string {
	rev := s.Revision
	if rev < 1 {
		rev = 1
	}
	return fmt.Sprintf("1.%d", rev-1)
}

// FindEvent возвращает событие сценария по его ID.
func (s *ScenarioDefinition) FindEvent(id string) *ScenarioEvent {
	for i := range s.Events {
		if s.Events[i].ID == id {
			return &s.Events[i]
		}
	}
	return nil
}

// ScenarioEvent — одно событие внутри сценария.
type ScenarioEvent struct {
	// ID — идентификатор события, уникальный в рамках сценария.
	// Используется в depends_on.
	ID string `json:"id"`

	// TemplateID — ссылка на шаблон события.
	TemplateID uuid.UUID `json:"template_id"`

	// Sequence — рекомендательный порядковый номер. Влияет только на
	// порядок обхода при раскладке по группам; фактический порядок
	// выполнения определяется зависимостями.
	Sequence int `json:"sequence"`

	// Delay — задержка перед генерацией события.
	Delay time.Duration `json:"delay,omitempty"`

	// DependsOn — ID событий этого же сценария, которые должны
	// завершиться до генерации.
	DependsOn []string `json:"depends_on,omitempty"`

	// Bindings — значения параметров шаблона для этого события.
	Bindings map[string]string `json:"bindings,omitempty"`
}
