package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Fabrica/internal/domain"
)

// fakeMitre — каталог для тестов: знает только перечисленные техники.
type fakeMitre struct {
	known map[string]bool
}

func (f *fakeMitre) ValidateTechniqueID(_ context.Context, id string) bool {
	return f.known[id]
}

func validTemplate() *domain.EventTemplate {
	return &domain.EventTemplate{
		ID:      uuid.New(),
		Name:    "logon-success",
		Channel: domain.ChannelSecurity,
		EventID: 4624,
		Level:   domain.LevelInformational,
		Source:  "Microsoft-Windows-Security-Auditing",
		Parameters: []domain.ParameterSpec{
			{Name: "UserName", Type: domain.ParameterTypeString, Required: true},
			{Name: "LogonType", Type: domain.ParameterTypeInt},
		},
	}
}

func TestValidateTemplate_Valid(t *testing.T) {
	p := NewPipeline(nil)
	if err := p.ValidateTemplate(validTemplate()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateTemplate_Errors(t *testing.T) {
	p := NewPipeline(nil)

	tests := []struct {
		name   string
		mutate func(*domain.EventTemplate)
		want   error
	}{
		{"empty name", func(tpl *domain.EventTemplate) { tpl.Name = "" }, ErrEmptyName},
		{"unknown channel", func(tpl *domain.EventTemplate) { tpl.Channel = "Setup" }, ErrInvalidChannel},
		{"event id zero", func(tpl *domain.EventTemplate) { tpl.EventID = 0 }, ErrEventIDOutOfRange},
		{"event id too big", func(tpl *domain.EventTemplate) { tpl.EventID = 70000 }, ErrEventIDOutOfRange},
		{"negative level", func(tpl *domain.EventTemplate) { tpl.Level = -1 }, ErrInvalidLevel},
		{"level too big", func(tpl *domain.EventTemplate) { tpl.Level = 6 }, ErrInvalidLevel},
		{"empty source", func(tpl *domain.EventTemplate) { tpl.Source = "" }, ErrEmptySource},
		{"unknown parameter type", func(tpl *domain.EventTemplate) {
			tpl.Parameters[0].Type = "decimal"
		}, ErrInvalidParameterSpec},
		{"duplicate parameter", func(tpl *domain.EventTemplate) {
			tpl.Parameters[1].Name = "UserName"
		}, ErrInvalidParameterSpec},
		{"broken pattern", func(tpl *domain.EventTemplate) {
			tpl.Parameters[0].Pattern = "["
		}, ErrInvalidParameterSpec},
		{"bad mitre syntax", func(tpl *domain.EventTemplate) {
			tpl.MitreTechnique = "T12.1"
		}, ErrMitreSyntax},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tpl := validTemplate()
			tt.mutate(tpl)

			err := p.ValidateTemplate(tpl)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestValidateTemplate_Nil(t *testing.T) {
	p := NewPipeline(nil)
	if err := p.ValidateTemplate(nil); !errors.Is(err, ErrNilReference) {
		t.Errorf("expected ErrNilReference, got %v", err)
	}
}

func TestValidateInstance(t *testing.T) {
	p := NewPipeline(nil)

	inst := &domain.EventInstance{
		ID:        uuid.New(),
		Channel:   domain.ChannelSecurity,
		EventID:   4625,
		Level:     domain.LevelWarning,
		Source:    "Microsoft-Windows-Security-Auditing",
		Timestamp: time.Now().Add(-time.Minute),
		Payload:   []byte(`{"user":"alice"}`),
	}
	if err := p.ValidateInstance(inst); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	future := *inst
	future.Timestamp = time.Now().Add(time.Hour)
	if err := p.ValidateInstance(&future); !errors.Is(err, ErrTimestampInFuture) {
		t.Errorf("expected ErrTimestampInFuture, got %v", err)
	}

	noTime := *inst
	noTime.Timestamp = time.Time{}
	if err := p.ValidateInstance(&noTime); !errors.Is(err, ErrTimestampMissing) {
		t.Errorf("expected ErrTimestampMissing, got %v", err)
	}

	badPayload := *inst
	badPayload.Payload = []byte(`{"user":`)
	if err := p.ValidateInstance(&badPayload); !errors.Is(err, ErrMalformedPayload) {
		t.Errorf("expected ErrMalformedPayload, got %v", err)
	}
}

func TestValidateBindings(t *testing.T) {
	p := NewPipeline(nil)
	tpl := &domain.EventTemplate{
		Name:    "logon-success",
		Channel: domain.ChannelSecurity,
		EventID: 4624,
		Level:   domain.LevelInformational,
		Source:  "test",
		Parameters: []domain.ParameterSpec{
			{Name: "UserName", Type: domain.ParameterTypeString, Required: true},
			{Name: "LogonType", Type: domain.ParameterTypeInt},
			{Name: "LogonGuid", Type: domain.ParameterTypeGUID},
			{Name: "Workstation", Type: domain.ParameterTypeString, Pattern: `^WS-\d+$`},
		},
	}

	ok := map[string]string{
		"UserName":    "alice",
		"LogonType":   "3",
		"LogonGuid":   uuid.NewString(),
		"Workstation": "WS-042",
	}
	if err := p.ValidateBindings(tpl, ok); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	tests := []struct {
		name     string
		bindings map[string]string
		want     error
	}{
		{"missing required", map[string]string{"LogonType": "3"}, ErrMissingParameter},
		{"undeclared parameter", map[string]string{"UserName": "alice", "Domain": "corp"}, ErrUndeclaredParameter},
		{"int type mismatch", map[string]string{"UserName": "alice", "LogonType": "three"}, ErrParameterTypeMismatch},
		{"guid type mismatch", map[string]string{"UserName": "alice", "LogonGuid": "not-a-guid"}, ErrParameterTypeMismatch},
		{"pattern mismatch", map[string]string{"UserName": "alice", "Workstation": "PC-1"}, ErrParameterPatternMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.ValidateBindings(tpl, tt.bindings)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestValidateBindings_PatternReusedAcrossCalls(t *testing.T) {
	p := NewPipeline(nil)
	tpl := &domain.EventTemplate{
		Name: "t", Channel: domain.ChannelSecurity, EventID: 4624, Source: "s",
		Parameters: []domain.ParameterSpec{
			{Name: "Workstation", Type: domain.ParameterTypeString, Pattern: `^WS-\d+$`},
		},
	}

	// Один и тот же паттерн гоняется многократно, как в пакетной
	// генерации: поведение не должно меняться от вызова к вызову
	for i := 0; i < 3; i++ {
		if err := p.ValidateBindings(tpl, map[string]string{"Workstation": "WS-1"}); err != nil {
			t.Fatalf("call %d: unexpected error: %v", i, err)
		}
		err := p.ValidateBindings(tpl, map[string]string{"Workstation": "PC-1"})
		if !errors.Is(err, ErrParameterPatternMismatch) {
			t.Fatalf("call %d: expected ErrParameterPatternMismatch, got %v", i, err)
		}
	}
}

func TestValidateBindings_OptionalEmptyValue(t *testing.T) {
	p := NewPipeline(nil)
	tpl := &domain.EventTemplate{
		Name: "t", Channel: domain.ChannelSystem, EventID: 1, Source: "s",
		Parameters: []domain.ParameterSpec{
			{Name: "Count", Type: domain.ParameterTypeInt},
		},
	}

	// Пустое значение необязательного параметра не проверяется по типу
	if err := p.ValidateBindings(tpl, map[string]string{"Count": ""}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateMitreReference(t *testing.T) {
	catalog := &fakeMitre{known: map[string]bool{"T1078": true, "T1078.002": true}}
	p := NewPipeline(catalog)
	ctx := context.Background()

	if err := p.ValidateMitreReference(ctx, "T1078.002"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := p.ValidateMitreReference(ctx, "T12.1"); !errors.Is(err, ErrMitreSyntax) {
		t.Errorf("expected ErrMitreSyntax, got %v", err)
	}
	if err := p.ValidateMitreReference(ctx, "T9999"); !errors.Is(err, ErrMitreUnknown) {
		t.Errorf("expected ErrMitreUnknown, got %v", err)
	}
}

func TestValidateMitreReference_SyntaxOnlyWithoutCatalog(t *testing.T) {
	p := NewPipeline(nil)
	if err := p.ValidateMitreReference(context.Background(), "T9999"); err != nil {
		t.Errorf("without catalog only syntax is checked, got %v", err)
	}
}

func TestValidateScenario_CollectsAllErrors(t *testing.T) {
	p := NewPipeline(nil)

	s := &domain.ScenarioDefinition{
		Name: "", // пустое имя
		Events: []domain.ScenarioEvent{
			{ID: "A", TemplateID: uuid.New(), DependsOn: []string{"B"}},
			{ID: "B", TemplateID: uuid.New(), DependsOn: []string{"A"}},
			{ID: "C", TemplateID: uuid.Nil}, // без шаблона
		},
	}

	errs := p.ValidateScenario(context.Background(), s)
	if len(errs) < 3 {
		t.Fatalf("expected at least 3 errors, got %d: %v", len(errs), errs)
	}

	var hasName, hasCycle, hasTemplate bool
	for _, err := range errs {
		if errors.Is(err, ErrEmptyName) {
			hasName = true
		}
		if errors.Is(err, ErrCyclicDependency) {
			hasCycle = true
		}
		if errors.Is(err, ErrNilReference) {
			hasTemplate = true
		}
	}
	if !hasName || !hasCycle || !hasTemplate {
		t.Errorf("expected name, cycle and template errors, got %v", errs)
	}
}

func TestValidateScenario_Valid(t *testing.T) {
	p := NewPipeline(nil)

	s := &domain.ScenarioDefinition{
		Name: "brute-force-then-logon",
		Events: []domain.ScenarioEvent{
			{ID: "fail-1", TemplateID: uuid.New()},
			{ID: "fail-2", TemplateID: uuid.New(), DependsOn: []string{"fail-1"}},
			{ID: "success", TemplateID: uuid.New(), DependsOn: []string{"fail-2"}},
		},
	}

	if errs := p.ValidateScenario(context.Background(), s); len(errs) != 0 {
		t.Errorf("expected no errors, got %v", errs)
	}
}

func TestValidateDependencyGraph_ReportsPerEvent(t *testing.T) {
	p := NewPipeline(nil)

	events := []domain.ScenarioEvent{
		{ID: "A", DependsOn: []string{"A"}},
		{ID: "B", DependsOn: []string{"ghost"}},
	}

	errs := p.ValidateDependencyGraph(events)
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %d: %v", len(errs), errs)
	}

	var hasSelf, hasMissing bool
	for _, err := range errs {
		if errors.Is(err, ErrSelfDependency) {
			hasSelf = true
		}
		if errors.Is(err, ErrMissingDependency) {
			hasMissing = true
		}
	}
	if !hasSelf || !hasMissing {
		t.Errorf("expected self and missing dependency errors, got %v", errs)
	}
}

func TestValidationError_Unwrap(t *testing.T) {
	err := NewValidationError("A", "depends_on", "event depends on itself", ErrSelfDependency)

	if !errors.Is(err, ErrSelfDependency) {
		t.Error("expected errors.Is to unwrap to ErrSelfDependency")
	}

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatal("expected errors.As to find ValidationError")
	}
	if verr.EventID != "A" || verr.Field != "depends_on" {
		t.Errorf("unexpected context: %+v", verr)
	}
}
