package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Fabrica/internal/domain"
)

// Синтаксис ссылки на технику ATT&CK: T1078 или T1078.002.
var mitreTechniqueRe = regexp.MustCompile(`^T\d{4}(\.\d{3})?$`)

// Кэш скомпилированных паттернов параметров. Паттерн повторяется на
// каждом значении пакета, а набор паттернов мал и стабилен — шаблоны
// после публикации не меняются.
var patternCache sync.Map // string -> *regexp.Regexp

// compilePattern возвращает скомпилированный паттерн из кэша.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	if cached, ok := patternCache.Load(pattern); ok {
		return cached.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	patternCache.Store(pattern, re)
	return re, nil
}

// MitreLookup — семантическая проверка существования техники ATT&CK.
//
// Синтаксис проверяется пайплайном, существование — делегируется
// внешнему каталогу.
type MitreLookup interface {
	ValidateTechniqueID(ctx context.Context, id string) bool
}

// Pipeline — пайплайн валидации шаблонов, экземпляров и сценариев.
type Pipeline struct {
	mitre MitreLookup
}

// NewPipeline создаёт пайплайн валидации.
// mitre может быть nil — тогда проверяется только синтаксис ссылок.
func NewPipeline(mitre MitreLookup) *Pipeline {
	return &Pipeline{mitre: mitre}
}

// ValidateTemplate проверяет шаблон события.
//
// Проверяет:
//   - Непустые имя и источник
//   - Канал, код и уровень в допустимых диапазонах
//   - Корректность каждого объявленного параметра
//   - Синтаксис ссылки на технику ATT&CK (если задана)
func (p *Pipeline) ValidateTemplate(t *domain.EventTemplate) error {
	if t == nil {
		return ErrNilReference
	}

	if t.Name == "" {
		return NewValidationError("", "name", "template has empty name", ErrEmptyName)
	}
	if !t.Channel.IsValid() {
		return NewValidationError("", "channel",
			fmt.Sprintf("unknown channel: %s", t.Channel), ErrInvalidChannel)
	}
	if t.EventID < domain.MinEventID || t.EventID > domain.MaxEventID {
		return NewValidationError("", "event_id",
			fmt.Sprintf("event id %d out of range [%d, %d]", t.EventID, domain.MinEventID, domain.MaxEventID),
			ErrEventIDOutOfRange)
	}
	if !t.Level.IsValid() {
		return NewValidationError("", "level",
			fmt.Sprintf("level %d out of range", t.Level), ErrInvalidLevel)
	}
	if t.Source == "" {
		return NewValidationError("", "source", "template has empty source", ErrEmptySource)
	}

	seen := make(map[string]bool, len(t.Parameters))
	for i := range t.Parameters {
		spec := &t.Parameters[i]
		if err := ValidateParameterSpec(spec); err != nil {
			return err
		}
		if seen[spec.Name] {
			return NewValidationError("", "parameters",
				fmt.Sprintf("duplicate parameter: %s", spec.Name), ErrInvalidParameterSpec)
		}
		seen[spec.Name] = true
	}

	if t.MitreTechnique != "" && !mitreTechniqueRe.MatchString(t.MitreTechnique) {
		return NewValidationError("", "mitre_technique",
			fmt.Sprintf("invalid technique id: %s", t.MitreTechnique), ErrMitreSyntax)
	}

	return nil
}

// ValidateParameterSpec проверяет объявление одного параметра.
func ValidateParameterSpec(spec *domain.ParameterSpec) error {
	if spec.Name == "" {
		return NewValidationError("", "parameters",
			"parameter has empty name", ErrInvalidParameterSpec)
	}
	if !spec.Type.IsValid() {
		return NewValidationError("", "parameters",
			fmt.Sprintf("parameter %s has unknown type: %s", spec.Name, spec.Type),
			ErrInvalidParameterSpec)
	}
	if spec.Pattern != "" {
		if _, err := compilePattern(spec.Pattern); err != nil {
			return NewValidationError("", "parameters",
				fmt.Sprintf("parameter %s has invalid pattern: %v", spec.Name, err),
				ErrInvalidParameterSpec)
		}
	}
	return nil
}

// ValidateInstance проверяет готовый к записи экземпляр события.
func (p *Pipeline) ValidateInstance(inst *domain.EventInstance) error {
	if inst == nil {
		return ErrNilReference
	}

	if !inst.Channel.IsValid() {
		return NewValidationError("", "channel",
			fmt.Sprintf("unknown channel: %s", inst.Channel), ErrInvalidChannel)
	}
	if inst.EventID < domain.MinEventID || inst.EventID > domain.MaxEventID {
		return NewValidationError("", "event_id",
			fmt.Sprintf("event id %d out of range", inst.EventID), ErrEventIDOutOfRange)
	}
	if !inst.Level.IsValid() {
		return NewValidationError("", "level",
			fmt.Sprintf("level %d out of range", inst.Level), ErrInvalidLevel)
	}
	if inst.Source == "" {
		return NewValidationError("", "source", "instance has empty source", ErrEmptySource)
	}
	if inst.Timestamp.IsZero() {
		return NewValidationError("", "timestamp", "timestamp is not set", ErrTimestampMissing)
	}
	if inst.Timestamp.After(time.Now()) {
		return NewValidationError("", "timestamp",
			fmt.Sprintf("timestamp %s is in the future", inst.Timestamp.Format(time.RFC3339)),
			ErrTimestampInFuture)
	}
	if len(inst.Payload) > 0 && !json.Valid(inst.Payload) {
		return NewValidationError("", "payload", "payload is not valid JSON", ErrMalformedPayload)
	}

	return nil
}

// ValidateBindings проверяет значения параметров против объявлений шаблона.
//
// Проверяет:
//   - Каждый обязательный параметр имеет непустое значение
//   - Каждое значение соответствует объявленному параметру
//   - Значение парсится в объявленный тип и подходит под паттерн
func (p *Pipeline) ValidateBindings(t *domain.EventTemplate, bindings map[string]string) error {
	if t == nil {
		return ErrNilReference
	}

	for i := range t.Parameters {
		spec := &t.Parameters[i]
		if spec.Required && bindings[spec.Name] == "" {
			return NewValidationError("", spec.Name,
				fmt.Sprintf("required parameter %s has no value", spec.Name), ErrMissingParameter)
		}
	}

	for name, value := range bindings {
		spec := t.FindParameter(name)
		if spec == nil {
			return NewValidationError("", name,
				fmt.Sprintf("parameter %s is not declared by template %s", name, t.Name),
				ErrUndeclaredParameter)
		}
		if err := validateParameterValue(spec, value); err != nil {
			return err
		}
	}

	return nil
}

// validateParameterValue проверяет одно значение против объявления.
func validateParameterValue(spec *domain.ParameterSpec, value string) error {
	if value == "" && !spec.Required {
		return nil
	}

	var parseErr error
	switch spec.Type {
	case domain.ParameterTypeString:
		// строка валидна всегда
	case domain.ParameterTypeInt:
		_, parseErr = strconv.ParseInt(value, 10, 32)
	case domain.ParameterTypeLong:
		_, parseErr = strconv.ParseInt(value, 10, 64)
	case domain.ParameterTypeDatetime:
		_, parseErr = time.Parse(time.RFC3339, value)
	case domain.ParameterTypeBool:
		_, parseErr = strconv.ParseBool(value)
	case domain.ParameterTypeGUID:
		_, parseErr = uuid.Parse(value)
	}
	if parseErr != nil {
		return NewValidationError("", spec.Name,
			fmt.Sprintf("value %q is not a valid %s", value, spec.Type),
			ErrParameterTypeMismatch)
	}

	if spec.Pattern != "" {
		// Паттерн уже проверен при валидации шаблона
		re, err := compilePattern(spec.Pattern)
		if err != nil {
			return NewValidationError("", spec.Name,
				fmt.Sprintf("invalid pattern: %v", err), ErrInvalidParameterSpec)
		}
		if !re.MatchString(value) {
			return NewValidationError("", spec.Name,
				fmt.Sprintf("value %q does not match pattern %s", value, spec.Pattern),
				ErrParameterPatternMismatch)
		}
	}

	return nil
}

// ValidateMitreReference проверяет ссылку на технику ATT&CK:
// сначала синтаксис, затем существование в каталоге.
func (p *Pipeline) ValidateMitreReference(ctx context.Context, id string) error {
	if !mitreTechniqueRe.MatchString(id) {
		return NewValidationError("", "mitre_technique",
			fmt.Sprintf("invalid technique id: %s", id), ErrMitreSyntax)
	}
	if p.mitre != nil && !p.mitre.ValidateTechniqueID(ctx, id) {
		return NewValidationError("", "mitre_technique",
			fmt.Sprintf("unknown technique: %s", id), ErrMitreUnknown)
	}
	return nil
}

// ValidateScenario выполняет полную валидацию сценария.
//
// Возвращает все найденные ошибки, а не только первую: цикл в графе
// и пустое имя не должны скрывать друг друга.
func (p *Pipeline) ValidateScenario(ctx context.Context, s *domain.ScenarioDefinition) []error {
	if s == nil {
		return []error{ErrNilReference}
	}

	var errs []error

	if s.Name == "" {
		errs = append(errs, NewValidationError("", "name", "scenario has empty name", ErrEmptyName))
	}
	if s.MitreTechnique != "" {
		if err := p.ValidateMitreReference(ctx, s.MitreTechnique); err != nil {
			errs = append(errs, err)
		}
	}
	if len(s.Events) == 0 {
		errs = append(errs, NewValidationError("", "events", "scenario has no events", ErrNoEvents))
		return errs
	}

	seen := make(map[string]bool, len(s.Events))
	for i := range s.Events {
		ev := &s.Events[i]
		if ev.ID == "" {
			errs = append(errs, NewValidationError("", "events",
				fmt.Sprintf("event %d has empty ID", i), ErrEmptyEventID))
			continue
		}
		if seen[ev.ID] {
			errs = append(errs, NewValidationError(ev.ID, "id",
				fmt.Sprintf("duplicate event ID: %s", ev.ID), ErrDuplicateEventID))
		}
		seen[ev.ID] = true
		if ev.TemplateID == uuid.Nil {
			errs = append(errs, NewValidationError(ev.ID, "template_id",
				"event has no template reference", ErrNilReference))
		}
	}

	errs = append(errs, p.ValidateDependencyGraph(s.Events)...)
	return errs
}

// ValidateDependencyGraph проверяет граф зависимостей сценария.
//
// Находит ссылки на несуществующие события, self-loops и циклы.
// Циклы репортятся по каждому затронутому событию.
func (p *Pipeline) ValidateDependencyGraph(events []domain.ScenarioEvent) []error {
	var errs []error

	g, err := buildGraph(events)
	if err != nil {
		return []error{err}
	}

	for i := range events {
		ev := &events[i]
		for _, dep := range ev.DependsOn {
			if dep == ev.ID {
				errs = append(errs, NewValidationError(ev.ID, "depends_on",
					"event depends on itself", ErrSelfDependency))
				continue
			}
			if _, ok := g.index[dep]; !ok {
				errs = append(errs, NewValidationError(ev.ID, "depends_on",
					fmt.Sprintf("depends on unknown event: %s", dep), ErrMissingDependency))
			}
		}
	}

	for _, id := range g.detectCycles() {
		errs = append(errs, NewValidationError(id, "depends_on",
			fmt.Sprintf("event %s participates in a dependency cycle", id), ErrCyclicDependency))
	}

	return errs
}
