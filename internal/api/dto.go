package api

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Fabrica/internal/domain"
)

// Template DTOs

// CreateTemplateRequest — запрос на создание шаблона.
type CreateTemplateRequest struct {
	Name           string                 `json:"name"`
	Channel        string                 `json:"channel"`
	EventID        int                    `json:"event_id"`
	Level          int                    `json:"level"`
	Source         string                 `json:"source"`
	Parameters     []domain.ParameterSpec `json:"parameters,omitempty"`
	MitreTechnique string                 `json:"mitre_technique,omitempty"`
}

// TemplateResponse — ответ с шаблоном.
type TemplateResponse struct {
	ID             uuid.UUID              `json:"id"`
	Name           string                 `json:"name"`
	Channel        string                 `json:"channel"`
	EventID        int                    `json:"event_id"`
	Level          string                 `json:"level"`
	Source         string                 `json:"source"`
	Parameters     []domain.ParameterSpec `json:"parameters,omitempty"`
	MitreTechnique string                 `json:"mitre_technique,omitempty"`
	Version        int                    `json:"version"`
	CreatedAt      time.Time              `json:"created_at"`
}

// TemplateFromDomain конвертирует domain.EventTemplate в TemplateResponse.
func TemplateFromDomain(t domain.EventTemplate) TemplateResponse {
	return TemplateResponse{
		ID:             t.ID,
		Name:           t.Name,
		Channel:        string(t.Channel),
		EventID:        t.EventID,
		Level:          t.Level.String(),
		Source:         t.Source,
		Parameters:     t.Parameters,
		MitreTechnique: t.MitreTechnique,
		Version:        t.Version,
		CreatedAt:      t.CreatedAt,
	}
}

// ToDomain конвертирует запрос в domain.EventTemplate.
func (r CreateTemplateRequest) ToDomain() *domain.EventTemplate {
	return &domain.EventTemplate{
		Name:           r.Name,
		Channel:        domain.Channel(r.Channel),
		EventID:        r.EventID,
		Level:          domain.Level(r.Level),
		Source:         r.Source,
		Parameters:     r.Parameters,
		MitreTechnique: r.MitreTechnique,
	}
}

// Scenario DTOs

// ScenarioEventRequest — одно событие сценария в запросе.
type ScenarioEventRequest struct {
	ID         string            `json:"id"`
	TemplateID uuid.UUID         `json:"template_id"`
	Sequence   int               `json:"sequence,omitempty"`
	DelayMS    int64             `json:"delay_ms,omitempty"`
	DependsOn  []string          `json:"depends_on,omitempty"`
	Bindings   map[string]string `json:"bindings,omitempty"`
}

// CreateScenarioRequest — запрос на создание/обновление сценария.
type CreateScenarioRequest struct {
	Name           string                 `json:"name"`
	Description    string                 `json:"description,omitempty"`
	MitreTechnique string                 `json:"mitre_technique,omitempty"`
	IsActive       *bool                  `json:"is_active,omitempty"`
	Events         []ScenarioEventRequest `json:"events"`
}

// ToDomain конвертирует запрос в domain.ScenarioDefinition.
func (r CreateScenarioRequest) ToDomain() *domain.ScenarioDefinition {
	events := make([]domain.ScenarioEvent, len(r.Events))
	for i, ev := range r.Events {
		events[i] = domain.ScenarioEvent{
			ID:         ev.ID,
			TemplateID: ev.TemplateID,
			Sequence:   ev.Sequence,
			Delay:      time.Duration(ev.DelayMS) * time.Millisecond,
			DependsOn:  ev.DependsOn,
			Bindings:   ev.Bindings,
		}
	}

	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}

	return &domain.ScenarioDefinition{
		Name:           r.Name,
		Description:    r.Description,
		MitreTechnique: r.MitreTechnique,
		IsActive:       active,
		Events:         events,
	}
}

// ScenarioResponse — ответ со сценарием.
type ScenarioResponse struct {
	ID             uuid.UUID              `json:"id"`
	Name           string                 `json:"name"`
	Description    string                 `json:"description,omitempty"`
	MitreTechnique string                 `json:"mitre_technique,omitempty"`
	IsActive       bool                   `json:"is_active"`
	Version        string                 `json:"version"`
	Events         []domain.ScenarioEvent `json:"events"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// ScenarioFromDomain конвертирует domain.ScenarioDefinition в ScenarioResponse.
func ScenarioFromDomain(s domain.ScenarioDefinition) ScenarioResponse {
	return ScenarioResponse{
		ID:             s.ID,
		Name:           s.Name,
		Description:    s.Description,
		MitreTechnique: s.MitreTechnique,
		IsActive:       s.IsActive,
		Version:        s.Version(),
		Events:         s.Events,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

// SetActiveRequest — запрос на включение/выключение сценария.
type SetActiveRequest struct {
	Active bool `json:"active"`
}

// Execution DTOs

// ExecuteScenarioRequest — запрос на выполнение сценария.
type ExecuteScenarioRequest struct {
	ContinueOnError bool    `json:"continue_on_error,omitempty"`
	DelayMultiplier float64 `json:"delay_multiplier,omitempty"`
	TimeoutSec      int     `json:"timeout_sec,omitempty"`
}

// ToDomain конвертирует запрос в domain.ExecutionOptions.
func (r ExecuteScenarioRequest) ToDomain() domain.ExecutionOptions {
	return domain.ExecutionOptions{
		ContinueOnError: r.ContinueOnError,
		DelayMultiplier: r.DelayMultiplier,
		Timeout:         time.Duration(r.TimeoutSec) * time.Second,
	}
}

// ExecutionResponse — ответ с запуском.
type ExecutionResponse struct {
	ID              uuid.UUID  `json:"id"`
	ScenarioID      uuid.UUID  `json:"scenario_id"`
	Revision        int        `json:"revision"`
	Status          string     `json:"status"`
	EventsGenerated int        `json:"events_generated"`
	EventsFailed    int        `json:"events_failed"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
	Error           string     `json:"error,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// ExecutionFromDomain конвертирует domain.Execution в ExecutionResponse.
func ExecutionFromDomain(e domain.Execution) ExecutionResponse {
	return ExecutionResponse{
		ID:              e.ID,
		ScenarioID:      e.ScenarioID,
		Revision:        e.Revision,
		Status:          string(e.Status),
		EventsGenerated: e.EventsGenerated,
		EventsFailed:    e.EventsFailed,
		StartedAt:       e.StartedAt,
		FinishedAt:      e.FinishedAt,
		Error:           e.Error,
		CreatedAt:       e.CreatedAt,
	}
}

// Schedule DTOs

// CreateScheduleRequest — запрос на создание/обновление расписания.
type CreateScheduleRequest struct {
	Name        string                 `json:"name,omitempty"`
	CronExpr    string                 `json:"cron_expr,omitempty"`
	IntervalSec int                    `json:"interval_sec,omitempty"`
	Timezone    string                 `json:"timezone,omitempty"`
	Enabled     *bool                  `json:"enabled,omitempty"`
	Options     ExecuteScenarioRequest `json:"options,omitempty"`
}

// ToDomain конвертирует запрос в domain.Schedule.
func (r CreateScheduleRequest) ToDomain(scenarioID uuid.UUID) *domain.Schedule {
	enabled := true
	if r.Enabled != nil {
		enabled = *r.Enabled
	}

	return &domain.Schedule{
		ScenarioID:  scenarioID,
		Name:        r.Name,
		CronExpr:    r.CronExpr,
		IntervalSec: r.IntervalSec,
		Timezone:    r.Timezone,
		Enabled:     enabled,
		Options:     r.Options.ToDomain(),
	}
}

// SetEnabledRequest — запрос на включение/выключение расписания.
type SetEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

// ScheduleResponse — ответ с расписанием.
type ScheduleResponse struct {
	ID              uuid.UUID  `json:"id"`
	ScenarioID      uuid.UUID  `json:"scenario_id"`
	Name            string     `json:"name,omitempty"`
	CronExpr        string     `json:"cron_expr,omitempty"`
	IntervalSec     int        `json:"interval_sec,omitempty"`
	Timezone        string     `json:"timezone"`
	Enabled         bool       `json:"enabled"`
	NextDueAt       *time.Time `json:"next_due_at,omitempty"`
	LastRunAt       *time.Time `json:"last_run_at,omitempty"`
	LastExecutionID *uuid.UUID `json:"last_execution_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// ScheduleFromDomain конвертирует domain.Schedule в ScheduleResponse.
func ScheduleFromDomain(s domain.Schedule) ScheduleResponse {
	return ScheduleResponse{
		ID:              s.ID,
		ScenarioID:      s.ScenarioID,
		Name:            s.Name,
		CronExpr:        s.CronExpr,
		IntervalSec:     s.IntervalSec,
		Timezone:        s.Timezone,
		Enabled:         s.Enabled,
		NextDueAt:       s.NextDueAt,
		LastRunAt:       s.LastRunAt,
		LastExecutionID: s.LastExecutionID,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

// Generation DTOs

// GenerateRequest — запрос на генерацию события из шаблона.
type GenerateRequest struct {
	TemplateID uuid.UUID         `json:"template_id"`
	Bindings   map[string]string `json:"bindings,omitempty"`
}

// GenerateBatchRequest — запрос на пакетную генерацию из шаблона.
type GenerateBatchRequest struct {
	TemplateID uuid.UUID         `json:"template_id"`
	Bindings   map[string]string `json:"bindings,omitempty"`
	Count      int               `json:"count"`
}

// EventInstanceRequest — одно готовое событие в пакетном запросе.
type EventInstanceRequest struct {
	TemplateID uuid.UUID         `json:"template_id,omitempty"`
	Channel    string            `json:"channel"`
	EventID    int               `json:"event_id"`
	Level      int               `json:"level"`
	Source     string            `json:"source"`
	Timestamp  *time.Time        `json:"timestamp,omitempty"`
	Bindings   map[string]string `json:"bindings,omitempty"`
	Payload    json.RawMessage   `json:"payload,omitempty"`
}

// ToDomain конвертирует запрос в domain.EventInstance.
func (r EventInstanceRequest) ToDomain() *domain.EventInstance {
	inst := &domain.EventInstance{
		TemplateID: r.TemplateID,
		Channel:    domain.Channel(r.Channel),
		EventID:    r.EventID,
		Level:      domain.Level(r.Level),
		Source:     r.Source,
		Bindings:   r.Bindings,
		Payload:    r.Payload,
	}
	if r.Timestamp != nil {
		inst.Timestamp = *r.Timestamp
	}
	return inst
}

// GenerateInstancesRequest — запрос на пакетную генерацию готовых событий.
type GenerateInstancesRequest struct {
	Instances []EventInstanceRequest `json:"instances"`
}
