package generator

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Fabrica/internal/domain"
	"github.com/shaiso/Fabrica/internal/engine"
)

// Render собирает экземпляр события из шаблона и биндингов параметров.
// Биндинги должны быть уже провалидированы: здесь значения только
// приводятся к типам из спецификации параметров.
func Render(tpl *domain.EventTemplate, bindings map[string]string) (*domain.EventInstance, error) {
	if tpl == nil {
		return nil, engine.ErrNilReference
	}

	now := time.Now().UTC()

	params := make(map[string]any, len(bindings))
	for name, value := range bindings {
		spec := tpl.FindParameter(name)
		if spec == nil {
			return nil, engine.NewValidationError("", name, "parameter not declared by template", engine.ErrUndeclaredParameter)
		}
		coerced, err := coerceValue(spec.Type, value)
		if err != nil {
			return nil, engine.NewValidationError("", name, err.Error(), engine.ErrParameterTypeMismatch)
		}
		params[name] = coerced
	}

	body := map[string]any{
		"event_id":   tpl.EventID,
		"channel":    string(tpl.Channel),
		"level":      tpl.Level.String(),
		"source":     tpl.Source,
		"timestamp":  now.Format(time.RFC3339Nano),
		"parameters": params,
	}
	if tpl.MitreTechnique != "" {
		body["mitre_technique"] = tpl.MitreTechnique
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal event payload: %w", err)
	}

	return &domain.EventInstance{
		ID:         uuid.New(),
		TemplateID: tpl.ID,
		Channel:    tpl.Channel,
		EventID:    tpl.EventID,
		Level:      tpl.Level,
		Source:     tpl.Source,
		Timestamp:  now,
		Bindings:   bindings,
		Payload:    payload,
	}, nil
}

// coerceValue приводит строковое значение к типу параметра.
// Значение уже прошло валидацию типа, поэтому ошибка разбора здесь
// означает рассинхрон с пайплайном валидации.
func coerceValue(pt domain.ParameterType, value string) (any, error) {
	switch pt {
	case domain.ParameterTypeInt:
		v, err := strconv.ParseInt(value, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("parse int %q: %w", value, err)
		}
		return v, nil
	case domain.ParameterTypeLong:
		v, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse long %q: %w", value, err)
		}
		return v, nil
	case domain.ParameterTypeBool:
		v, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("parse bool %q: %w", value, err)
		}
		return v, nil
	case domain.ParameterTypeDatetime, domain.ParameterTypeGUID, domain.ParameterTypeString:
		return value, nil
	default:
		return nil, fmt.Errorf("unknown parameter type %q", pt)
	}
}
