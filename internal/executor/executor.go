package executor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Fabrica/internal/domain"
	"github.com/shaiso/Fabrica/internal/engine"
	"github.com/shaiso/Fabrica/internal/telemetry"
)

// TemplateStore — хранилище шаблонов событий (read-only).
type TemplateStore interface {
	GetTemplate(ctx context.Context, id uuid.UUID) (*domain.EventTemplate, error)
}

// EventGenerator — движок генерации одного события из шаблона.
type EventGenerator interface {
	GenerateFromTemplate(ctx context.Context, tpl *domain.EventTemplate, bindings map[string]string) domain.GenerationResult
}

// Executor выполняет сценарии.
//
// Машина состояний одного запуска:
//
//	VALIDATING → RESOLVING → RUNNING → {COMPLETED, FAILED, CANCELLED}
//
// Вход в RUNNING требует атомарной регистрации в реестре (дубль
// конкурентного запуска проигрывает гонку) и свободного слота
// ограничителя (ограниченное ожидание, иначе busy-исход).
type Executor struct {
	pipeline  *engine.Pipeline
	templates TemplateStore
	generator EventGenerator
	registry  *Registry
	throttle  *Throttle

	acquireWait time.Duration
	logger      *slog.Logger
}

// Config — конфигурация Executor.
type Config struct {
	// Pipeline — пайплайн валидации (обязателен).
	Pipeline *engine.Pipeline

	// Templates — хранилище шаблонов (обязательно).
	Templates TemplateStore

	// Generator — движок генерации событий (обязателен).
	Generator EventGenerator

	// Registry — реестр выполнений (опционально; default: новый).
	Registry *Registry

	// Throttle — ограничитель выполнений (опционально; default: 4 слота).
	Throttle *Throttle

	// AcquireWait — ожидание слота (default: 30s).
	AcquireWait time.Duration

	// Logger — логгер (default: slog.Default()).
	Logger *slog.Logger
}

// New создаёт Executor.
func New(cfg Config) *Executor {
	registry := cfg.Registry
	if registry == nil {
		registry = NewRegistry()
	}

	throttle := cfg.Throttle
	if throttle == nil {
		throttle = NewThrottle(DefaultScenarioSlots)
	}

	acquireWait := cfg.AcquireWait
	if acquireWait <= 0 {
		acquireWait = DefaultAcquireWait
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Executor{
		pipeline:    cfg.Pipeline,
		templates:   cfg.Templates,
		generator:   cfg.Generator,
		registry:    registry,
		throttle:    throttle,
		acquireWait: acquireWait,
		logger:      logger,
	}
}

// Registry возвращает реестр выполнений.
func (e *Executor) Registry() *Registry {
	return e.registry
}

// Execute выполняет один запуск сценария.
//
// Бизнес-исходы (ошибки валидации, отказы событий, отмена) приходят в
// ExecutionResult с nil error. Ошибка возвращается только для
// retryable-исходов (ErrDuplicateRun, ErrBusy), отмены до старта и
// нарушений контракта вызова.
func (e *Executor) Execute(
	ctx context.Context,
	executionID uuid.UUID,
	scenario *domain.ScenarioDefinition,
	opts domain.ExecutionOptions,
	progress ProgressSink,
) (*domain.ExecutionResult, error) {
	if scenario == nil {
		return nil, engine.ErrNilReference
	}

	start := time.Now()
	opts = opts.Normalize()
	if progress == nil {
		progress = NopProgress{}
	}

	logger := telemetry.WithScenarioID(e.logger, scenario.ID.String())
	logger = telemetry.WithExecutionID(logger, executionID.String())
	total := len(scenario.Events)

	// --- VALIDATING ---
	report(logger, progress, domain.ScenarioProgress{
		ScenarioID:  scenario.ID,
		TotalEvents: total,
		Phase:       domain.ExecutionStatusValidating,
	})

	templates, verrs := e.validate(ctx, scenario)
	if len(verrs) > 0 {
		msgs := make([]string, len(verrs))
		for i, err := range verrs {
			msgs[i] = err.Error()
		}
		logger.Warn("scenario validation failed", "errors", len(verrs))
		telemetry.ExecutionsTotal.WithLabelValues("failed").Inc()
		return &domain.ExecutionResult{
			Success: false,
			Elapsed: time.Since(start),
			Error:   fmt.Sprintf("%v: %s", ErrValidationFailed, strings.Join(msgs, "; ")),
		}, nil
	}

	// --- регистрация и слот ---
	runCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	if err := e.registry.TryRegister(scenario.ID, executionID, cancel); err != nil {
		logger.Warn("duplicate execution rejected")
		return nil, err
	}
	defer e.registry.Deregister(scenario.ID)

	if err := e.throttle.Acquire(ctx, e.acquireWait); err != nil {
		logger.Warn("execution slot not acquired", "error", err)
		return nil, err
	}
	defer e.throttle.Release()

	telemetry.ExecutionsActive.Inc()
	defer telemetry.ExecutionsActive.Dec()

	// --- RESOLVING ---
	report(logger, progress, domain.ScenarioProgress{
		ScenarioID:  scenario.ID,
		TotalEvents: total,
		Phase:       domain.ExecutionStatusResolving,
	})

	groups, err := engine.Resolve(scenario.Events)
	if err != nil {
		telemetry.ExecutionsTotal.WithLabelValues("failed").Inc()
		return &domain.ExecutionResult{
			Success: false,
			Elapsed: time.Since(start),
			Error:   fmt.Sprintf("resolve dependency graph: %v", err),
		}, nil
	}

	logger.Info("execution started",
		"events", total,
		"groups", len(groups),
		"continue_on_error", opts.ContinueOnError,
	)

	// --- RUNNING ---
	state := newRunState()
	cancelled := false

	for gi, group := range groups {
		// Отмена проверяется на границе каждой группы
		if runCtx.Err() != nil {
			cancelled = true
			break
		}

		logger.Debug("starting group", "group", gi, "events", group.IDs())

		var wg sync.WaitGroup
		for _, ev := range group {
			wg.Add(1)
			go func(ev *domain.ScenarioEvent) {
				defer wg.Done()
				e.runEvent(runCtx, logger, scenario, ev, templates[ev.ID], opts, state, progress)
			}(ev)
		}

		// Жёсткий барьер: следующая группа не стартует, пока каждое
		// событие текущей не достигло терминального исхода
		wg.Wait()

		if runCtx.Err() != nil {
			cancelled = true
			break
		}
		if !opts.ContinueOnError && state.failedCount() > 0 {
			break
		}
	}

	generated, failed, lastErr := state.snapshot()

	result := &domain.ExecutionResult{
		EventsGenerated: generated,
		EventsFailed:    failed,
		Cancelled:       cancelled,
		Elapsed:         time.Since(start),
	}

	var phase domain.ExecutionStatus
	switch {
	case cancelled:
		phase = domain.ExecutionStatusCancelled
		result.Error = "execution cancelled"
		telemetry.ExecutionsTotal.WithLabelValues("cancelled").Inc()
		logger.Info("execution cancelled", "generated", generated, "failed", failed)
	case failed > 0:
		phase = domain.ExecutionStatusFailed
		result.Error = lastErr
		telemetry.ExecutionsTotal.WithLabelValues("failed").Inc()
		logger.Warn("execution failed", "generated", generated, "failed", failed, "error", lastErr)
	default:
		phase = domain.ExecutionStatusCompleted
		result.Success = true
		telemetry.ExecutionsTotal.WithLabelValues("completed").Inc()
		logger.Info("execution completed", "generated", generated, "duration", result.Elapsed)
	}

	report(logger, progress, domain.ScenarioProgress{
		ScenarioID:      scenario.ID,
		TotalEvents:     total,
		CompletedEvents: generated,
		Phase:           phase,
		LastError:       lastErr,
	})

	return result, nil
}

// validate проверяет сценарий и загружает шаблоны его событий.
// Возвращает шаблоны по ID события и список ошибок валидации.
func (e *Executor) validate(ctx context.Context, scenario *domain.ScenarioDefinition) (map[string]*domain.EventTemplate, []error) {
	errs := e.pipeline.ValidateScenario(ctx, scenario)
	if len(errs) > 0 {
		return nil, errs
	}

	templates := make(map[string]*domain.EventTemplate, len(scenario.Events))
	for i := range scenario.Events {
		ev := &scenario.Events[i]

		tpl, err := e.templates.GetTemplate(ctx, ev.TemplateID)
		if err != nil {
			errs = append(errs, engine.NewValidationError(ev.ID, "template_id",
				fmt.Sprintf("template %s: %v", ev.TemplateID, err), err))
			continue
		}
		if err := e.pipeline.ValidateTemplate(tpl); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := e.pipeline.ValidateBindings(tpl, ev.Bindings); err != nil {
			errs = append(errs, engine.NewValidationError(ev.ID, "bindings", err.Error(), err))
			continue
		}
		templates[ev.ID] = tpl
	}

	return templates, errs
}

// runEvent выполняет одно событие: задержка, защитная проверка
// зависимостей, генерация, учёт исхода.
func (e *Executor) runEvent(
	ctx context.Context,
	logger *slog.Logger,
	scenario *domain.ScenarioDefinition,
	ev *domain.ScenarioEvent,
	tpl *domain.EventTemplate,
	opts domain.ExecutionOptions,
	state *runState,
	progress ProgressSink,
) {
	// Паника одного события не должна ломать агрегированное состояние
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("event generation panicked", "event_id", ev.ID, "panic", rec)
			state.fail(ev.ID, fmt.Sprintf("event %s: internal error", ev.ID))
		}
	}()

	// Задержка перед генерацией, масштабированная множителем
	if delay := time.Duration(float64(ev.Delay) * opts.DelayMultiplier); delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
	}

	// Отмена проверяется перед каждой единицей работы
	if ctx.Err() != nil {
		return
	}

	// Зависимость, отказавшая в более ранней группе — ожидаемый каскад
	// при continue_on_error: событие не генерируется и учитывается как
	// отказ. Зависимость вне completed- и failed-множеств — дефект
	// резолвера.
	if unmet, failedDeps := state.depStatus(ev); len(unmet) > 0 {
		if len(failedDeps) == len(unmet) {
			logger.Warn("event skipped after failed dependency",
				"event_id", ev.ID,
				"failed_deps", failedDeps,
			)
			state.fail(ev.ID, fmt.Sprintf("event %s: dependency failed: %s",
				ev.ID, strings.Join(failedDeps, ", ")))
			return
		}
		logger.Error("dependency invariant violated",
			"event_id", ev.ID,
			"unmet", unmet,
		)
		state.fail(ev.ID, fmt.Sprintf("event %s: dependencies not satisfied: %v", ev.ID, unmet))
		return
	}

	res := e.generator.GenerateFromTemplate(ctx, tpl, ev.Bindings)
	if !res.Success {
		logger.Warn("event generation failed", "event_id", ev.ID, "message", res.Message)
		state.fail(ev.ID, fmt.Sprintf("event %s: %s", ev.ID, res.Message))
		return
	}

	completed := state.complete(ev.ID)
	logger.Debug("event generated", "event_id", ev.ID, "elapsed", res.Elapsed)

	report(logger, progress, domain.ScenarioProgress{
		ScenarioID:      scenario.ID,
		TotalEvents:     len(scenario.Events),
		CompletedEvents: completed,
		Phase:           domain.ExecutionStatusRunning,
	})
}

// runState — потокобезопасное состояние одного выполнения.
type runState struct {
	mu        sync.Mutex
	completed map[string]bool
	failedIDs map[string]bool
	generated int
	failed    int
	lastErr   string
}

func newRunState() *runState {
	return &runState{
		completed: make(map[string]bool),
		failedIDs: make(map[string]bool),
	}
}

// complete отмечает событие завершённым и возвращает число завершённых.
func (s *runState) complete(eventID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed[eventID] = true
	s.generated++
	return s.generated
}

// fail учитывает отказ события.
func (s *runState) fail(eventID, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failedIDs[eventID] = true
	s.failed++
	s.lastErr = msg
}

// failedCount возвращает количество отказов.
func (s *runState) failedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failed
}

// depStatus возвращает зависимости события вне completed-множества и
// тех из них, что завершились отказом.
func (s *runState) depStatus(ev *domain.ScenarioEvent) (unmet, failedDeps []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, dep := range ev.DependsOn {
		if s.completed[dep] {
			continue
		}
		unmet = append(unmet, dep)
		if s.failedIDs[dep] {
			failedDeps = append(failedDeps, dep)
		}
	}
	return unmet, failedDeps
}

// snapshot возвращает счётчики и последнюю ошибку.
func (s *runState) snapshot() (generated, failed int, lastErr string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generated, s.failed, s.lastErr
}
