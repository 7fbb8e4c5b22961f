package domain

import (
	"time"

	"github.com/google/uuid"
)

// Channel — журнал, в который попадает событие.
type Channel string

const (
	ChannelSecurity    Channel = "Security"
	ChannelSystem      Channel = "System"
	ChannelApplication Channel = "Application"
)

// IsValid возвращает true, если канал известен.
func (c Channel) IsValid() bool {
	switch c {
	case ChannelSecurity, ChannelSystem, ChannelApplication:
		return true
	default:
		return false
	}
}

// Level — уровень важности события.
//
// Порядок соответствует числовым уровням журнала событий:
// чем больше значение, тем менее критично событие.
type Level int

const (
	// LevelLogAlways — событие пишется всегда.
	LevelLogAlways Level = iota

	// LevelCritical — критическая ошибка.
	LevelCritical

	// LevelError — ошибка.
	LevelError

	// LevelWarning — предупреждение.
	LevelWarning

	// LevelInformational — информационное событие.
	LevelInformational

	// LevelVerbose — отладочное событие.
	LevelVerbose
)

// IsValid возвращает true, если уровень в допустимом диапазоне.
func (l Level) IsValid() bool {
	return l >= LevelLogAlways && l <= LevelVerbose
}

// String возвращает строковое представление уровня.
func (l Level) String() string {
	switch l {
	case LevelLogAlways:
		return "LogAlways"
	case LevelCritical:
		return "Critical"
	case LevelError:
		return "Error"
	case LevelWarning:
		return "Warning"
	case LevelInformational:
		return "Informational"
	case LevelVerbose:
		return "Verbose"
	default:
		return "Unknown"
	}
}

// Границы числового кода события.
const (
	MinEventID = 1
	MaxEventID = 65535
)

// ParameterType — объявленный тип параметра шаблона.
type ParameterType string

const (
	ParameterTypeString   ParameterType = "string"
	ParameterTypeInt      ParameterType = "int"
	ParameterTypeLong     ParameterType = "long"
	ParameterTypeDatetime ParameterType = "datetime"
	ParameterTypeBool     ParameterType = "bool"
	ParameterTypeGUID     ParameterType = "guid"
)

// IsValid возвращает true, если тип параметра известен.
func (t ParameterType) IsValid() bool {
	switch t {
	case ParameterTypeString, ParameterTypeInt, ParameterTypeLong,
		ParameterTypeDatetime, ParameterTypeBool, ParameterTypeGUID:
		return true
	default:
		return false
	}
}

// ParameterSpec — объявление одного параметра шаблона.
type ParameterSpec struct {
	// Name — имя параметра (например, "UserName", "LogonType").
	Name string `json:"name"`

	// Type — объявленный тип значения.
	Type ParameterType `json:"type"`

	// Required — обязательный ли параметр.
	Required bool `json:"required,omitempty"`

	// Pattern — регулярное выражение для дополнительной проверки значения.
	Pattern string `json:"pattern,omitempty"`
}

// EventTemplate — переиспользуемое параметризованное определение события.
//
// Шаблон после публикации неизменяем: правка создаёт новую версию,
// старые версии остаются доступны для уже сохранённых сценариев.
type EventTemplate struct {
	// ID — уникальный идентификатор шаблона.
	ID uuid.UUID `json:"id"`

	// Name — имя шаблона (например, "logon-success").
	Name string `json:"name"`

	// Channel — журнал назначения.
	Channel Channel `json:"channel"`

	// EventID — числовой код события (1–65535, например 4624).
	EventID int `json:"event_id"`

	// Level — уровень важности.
	Level Level `json:"level"`

	// Source — источник события (provider).
	Source string `json:"source"`

	// Parameters — объявленные параметры в порядке подстановки.
	Parameters []ParameterSpec `json:"parameters,omitempty"`

	// MitreTechnique — ссылка на технику ATT&CK (например, "T1078.002").
	MitreTechnique string `json:"mitre_technique,omitempty"`

	// Version — номер версии шаблона (1, 2, 3, ...).
	Version int `json:"version"`

	// CreatedAt — время создания версии.
	CreatedAt time.Time `json:"created_at"`
}

// FindParameter возвращает объявление параметра по имени.
func (t *EventTemplate) FindParameter(name string) *ParameterSpec {
	for i := range t.Parameters {
		if t.Parameters[i].Name == name {
			return &t.Parameters[i]
		}
	}
	return nil
}

// RequiredParameters возвращает имена обязательных параметров.
func (t *EventTemplate) RequiredParameters() []string {
	names := make([]string, 0, len(t.Parameters))
	for i := range t.Parameters {
		if t.Parameters[i].Required {
			names = append(names, t.Parameters[i].Name)
		}
	}
	return names
}
