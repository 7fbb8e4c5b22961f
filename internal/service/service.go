package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Fabrica/internal/domain"
	"github.com/shaiso/Fabrica/internal/engine"
	"github.com/shaiso/Fabrica/internal/executor"
	"github.com/shaiso/Fabrica/internal/generator"
	"github.com/shaiso/Fabrica/internal/mq"
	"github.com/shaiso/Fabrica/internal/repo"
)

// Service — фасад над шаблонами, сценариями, запусками и генерацией.
type Service struct {
	templates  *repo.TemplateRepo
	scenarios  *repo.ScenarioRepo
	executions *repo.ExecutionRepo
	schedules  *repo.ScheduleRepo

	pipeline  *engine.Pipeline
	generator *generator.Engine
	executor  *executor.Executor

	// publisher может быть nil — тогда запуски подхватывает только
	// polling fallback движка.
	publisher *mq.Publisher

	logger *slog.Logger
}

// Config — конфигурация Service.
type Config struct {
	Templates  *repo.TemplateRepo
	Scenarios  *repo.ScenarioRepo
	Executions *repo.ExecutionRepo
	Schedules  *repo.ScheduleRepo

	Pipeline  *engine.Pipeline
	Generator *generator.Engine
	Executor  *executor.Executor

	Publisher *mq.Publisher

	Logger *slog.Logger
}

// New создаёт Service.
func New(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		templates:  cfg.Templates,
		scenarios:  cfg.Scenarios,
		executions: cfg.Executions,
		schedules:  cfg.Schedules,
		pipeline:   cfg.Pipeline,
		generator:  cfg.Generator,
		executor:   cfg.Executor,
		publisher:  cfg.Publisher,
		logger:     logger,
	}
}

// Registry возвращает реестр выполняющихся сценариев.
func (s *Service) Registry() *executor.Registry {
	return s.executor.Registry()
}

// --- Шаблоны ---

// CreateTemplate валидирует и сохраняет шаблон (версия 1).
func (s *Service) CreateTemplate(ctx context.Context, t *domain.EventTemplate) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if err := s.pipeline.ValidateTemplate(t); err != nil {
		return err
	}
	if t.MitreTechnique != "" {
		if err := s.pipeline.ValidateMitreReference(ctx, t.MitreTechnique); err != nil {
			return err
		}
	}
	return s.templates.Create(ctx, t)
}

// UpdateTemplate валидирует правку и сохраняет её следующей версией.
// Старые версии остаются доступны для уже сохранённых сценариев.
func (s *Service) UpdateTemplate(ctx context.Context, t *domain.EventTemplate) error {
	if _, err := s.templates.GetByID(ctx, t.ID); err != nil {
		return err
	}
	if err := s.pipeline.ValidateTemplate(t); err != nil {
		return err
	}
	if t.MitreTechnique != "" {
		if err := s.pipeline.ValidateMitreReference(ctx, t.MitreTechnique); err != nil {
			return err
		}
	}
	return s.templates.CreateVersion(ctx, t)
}

// GetTemplate возвращает шаблон: version <= 0 — последнюю версию.
func (s *Service) GetTemplate(ctx context.Context, id uuid.UUID, version int) (*domain.EventTemplate, error) {
	if version <= 0 {
		return s.templates.GetByID(ctx, id)
	}
	return s.templates.GetVersion(ctx, id, version)
}

// ListTemplates возвращает последние версии всех шаблонов.
func (s *Service) ListTemplates(ctx context.Context) ([]domain.EventTemplate, error) {
	return s.templates.List(ctx)
}

// DeleteTemplate удаляет шаблон со всеми версиями.
func (s *Service) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	return s.templates.Delete(ctx, id)
}

// --- Сценарии ---

// CreateScenario валидирует и сохраняет сценарий (версия "1.0").
func (s *Service) CreateScenario(ctx context.Context, sc *domain.ScenarioDefinition) error {
	if sc.ID == uuid.Nil {
		sc.ID = uuid.New()
	}
	if err := s.validateScenario(ctx, sc); err != nil {
		return err
	}
	return s.scenarios.Create(ctx, sc)
}

// UpdateScenario сохраняет правку следующей ревизией (минорный bump
// версии). Отклоняется, пока сценарий выполняется.
func (s *Service) UpdateScenario(ctx context.Context, sc *domain.ScenarioDefinition) error {
	if s.executor.Registry().IsRunning(sc.ID) {
		return executor.ErrScenarioRunning
	}
	if err := s.validateScenario(ctx, sc); err != nil {
		return err
	}
	return s.scenarios.Update(ctx, sc)
}

// DeleteScenario удаляет сценарий.
//
// Выполняющийся сценарий без force не удаляется. С force выполнение
// отменяется, удаление ждёт дерегистрации (ограниченный опрос).
func (s *Service) DeleteScenario(ctx context.Context, id uuid.UUID, force bool) error {
	registry := s.executor.Registry()
	if registry.IsRunning(id) {
		if !force {
			return executor.ErrScenarioRunning
		}
		if err := registry.Terminate(ctx, id, 0); err != nil {
			return fmt.Errorf("terminate execution: %w", err)
		}
	}
	return s.scenarios.Delete(ctx, id)
}

// GetScenario возвращает сценарий: revision <= 0 — последнюю ревизию.
func (s *Service) GetScenario(ctx context.Context, id uuid.UUID, revision int) (*domain.ScenarioDefinition, error) {
	if revision <= 0 {
		return s.scenarios.GetByID(ctx, id)
	}
	return s.scenarios.GetRevision(ctx, id, revision)
}

// ListScenarios возвращает все сценарии с последними ревизиями.
func (s *Service) ListScenarios(ctx context.Context) ([]domain.ScenarioDefinition, error) {
	return s.scenarios.List(ctx)
}

// SetScenarioActive включает или выключает сценарий.
func (s *Service) SetScenarioActive(ctx context.Context, id uuid.UUID, active bool) error {
	return s.scenarios.SetActive(ctx, id, active)
}

// validateScenario собирает все ошибки валидации в одну.
func (s *Service) validateScenario(ctx context.Context, sc *domain.ScenarioDefinition) error {
	errs := s.pipeline.ValidateScenario(ctx, sc)
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return fmt.Errorf("%w: %s", executor.ErrValidationFailed, strings.Join(msgs, "; "))
}

// --- Запуски ---

// ExecuteScenario создаёт запуск сценария и отдаёт его движку.
//
// Запись о запуске сохраняется в статусе PENDING, затем публикуется
// execution.requested. Если публикация не удалась, запуск подхватит
// polling fallback движка.
func (s *Service) ExecuteScenario(ctx context.Context, scenarioID uuid.UUID, opts domain.ExecutionOptions) (*domain.Execution, error) {
	sc, err := s.scenarios.GetByID(ctx, scenarioID)
	if err != nil {
		return nil, err
	}

	// Дубль отклоняется сразу, не дожидаясь движка
	if s.executor.Registry().IsRunning(scenarioID) {
		return nil, executor.ErrDuplicateRun
	}

	exec := &domain.Execution{
		ID:         uuid.New(),
		ScenarioID: sc.ID,
		Revision:   sc.Revision,
		Status:     domain.ExecutionStatusPending,
		Options:    opts.Normalize(),
	}
	if err := s.executions.Create(ctx, exec); err != nil {
		return nil, err
	}

	if s.publisher != nil {
		if err := s.publisher.PublishExecutionRequested(ctx, exec.ID, sc.ID); err != nil {
			s.logger.Warn("failed to publish execution.requested",
				"execution_id", exec.ID,
				"scenario_id", sc.ID,
				"error", err,
			)
			// Запись в БД есть — движок заберёт через polling
		}
	}

	s.logger.Info("execution requested",
		"execution_id", exec.ID,
		"scenario_id", sc.ID,
		"revision", exec.Revision,
	)

	return exec, nil
}

// RunExecution выполняет запуск сценария от начала до конца.
//
// Вызывается движком. Запуск атомарно переводится PENDING → RUNNING;
// второй обработчик того же запуска получает ErrExecutionNotPending.
// Retryable-исходы исполнителя (busy, duplicate) возвращают запуск
// в PENDING и отдаются наверх как ошибка.
func (s *Service) RunExecution(ctx context.Context, exec *domain.Execution) error {
	sc, err := s.scenarios.GetRevision(ctx, exec.ScenarioID, exec.Revision)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			exec.MarkFailed(fmt.Sprintf("scenario revision not found: %s r%d", exec.ScenarioID, exec.Revision))
			return s.executions.Update(ctx, exec)
		}
		return fmt.Errorf("get scenario revision: %w", err)
	}

	// Атомарный захват запуска
	if err := s.executions.MarkStatus(ctx, exec.ID, domain.ExecutionStatusPending, domain.ExecutionStatusRunning); err != nil {
		if errors.Is(err, repo.ErrInvalidState) {
			return ErrExecutionNotPending
		}
		return fmt.Errorf("claim execution: %w", err)
	}

	exec.MarkRunning()
	if err := s.executions.Update(ctx, exec); err != nil {
		s.logger.Warn("failed to persist running status", "execution_id", exec.ID, "error", err)
	}

	result, err := s.executor.Execute(ctx, exec.ID, sc, exec.Options, executor.LogProgress{Logger: s.logger})
	if err != nil {
		// Слот не получен или сценарий уже выполняется — возвращаем
		// запуск в PENDING для повторной попытки
		exec.Status = domain.ExecutionStatusPending
		exec.StartedAt = nil
		if uerr := s.executions.Update(ctx, exec); uerr != nil {
			s.logger.Error("failed to reset execution to pending", "execution_id", exec.ID, "error", uerr)
		}
		return err
	}

	exec.ApplyResult(result)
	if err := s.executions.Update(ctx, exec); err != nil {
		return fmt.Errorf("persist execution result: %w", err)
	}
	return nil
}

// CancelExecution отменяет выполняющийся сценарий.
//
// Если выполнение идёт в этом процессе, отмена подаётся напрямую.
// Иначе запрос уходит движку через execution.cancel.
func (s *Service) CancelExecution(ctx context.Context, scenarioID uuid.UUID) error {
	if s.executor.Registry().Cancel(scenarioID) {
		s.logger.Info("execution cancel signalled", "scenario_id", scenarioID)
		return nil
	}

	if s.publisher != nil {
		if err := s.publisher.PublishExecutionCancel(ctx, scenarioID); err != nil {
			return fmt.Errorf("publish execution.cancel: %w", err)
		}
		s.logger.Info("execution cancel published", "scenario_id", scenarioID)
		return nil
	}

	return ErrNotRunning
}

// GetExecution возвращает запуск по ID.
func (s *Service) GetExecution(ctx context.Context, id uuid.UUID) (*domain.Execution, error) {
	return s.executions.GetByID(ctx, id)
}

// ListExecutions возвращает запуски сценария, новые первыми.
func (s *Service) ListExecutions(ctx context.Context, scenarioID uuid.UUID, limit int) ([]domain.Execution, error) {
	return s.executions.ListByScenario(ctx, scenarioID, limit)
}

// --- Генерация ---

// GenerateEvent генерирует одно готовое событие.
func (s *Service) GenerateEvent(ctx context.Context, inst *domain.EventInstance) domain.GenerationResult {
	if inst != nil && inst.ID == uuid.Nil {
		inst.ID = uuid.New()
	}
	if inst != nil && inst.Timestamp.IsZero() {
		inst.Timestamp = time.Now().UTC()
	}
	return s.generator.GenerateOne(ctx, inst)
}

// GenerateFromTemplate генерирует событие из шаблона и биндингов.
func (s *Service) GenerateFromTemplate(ctx context.Context, templateID uuid.UUID, bindings map[string]string) (domain.GenerationResult, error) {
	tpl, err := s.templates.GetByID(ctx, templateID)
	if err != nil {
		return domain.GenerationResult{}, err
	}
	return s.generator.GenerateFromTemplate(ctx, tpl, bindings), nil
}

// GenerateEvents генерирует count событий из шаблона (пакетно).
func (s *Service) GenerateEvents(ctx context.Context, templateID uuid.UUID, bindings map[string]string, count int) (*domain.BatchResult, error) {
	tpl, err := s.templates.GetByID(ctx, templateID)
	if err != nil {
		return nil, err
	}
	return s.generator.GenerateBatch(ctx, tpl, bindings, count), nil
}

// GenerateInstances генерирует пакет готовых событий.
//
// Пустые идентификатор и метка времени экземпляра заполняются, как и
// при одиночной генерации.
func (s *Service) GenerateInstances(ctx context.Context, instances []*domain.EventInstance) *domain.BatchResult {
	now := time.Now().UTC()
	for _, inst := range instances {
		if inst == nil {
			continue
		}
		if inst.ID == uuid.Nil {
			inst.ID = uuid.New()
		}
		if inst.Timestamp.IsZero() {
			inst.Timestamp = now
		}
	}
	return s.generator.GenerateInstances(ctx, instances)
}
