package executor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Fabrica/internal/domain"
	"github.com/shaiso/Fabrica/internal/engine"
)

// fakeStore — хранилище шаблонов для тестов.
type fakeStore struct {
	templates map[uuid.UUID]*domain.EventTemplate
}

func (s *fakeStore) GetTemplate(_ context.Context, id uuid.UUID) (*domain.EventTemplate, error) {
	tpl, ok := s.templates[id]
	if !ok {
		return nil, errors.New("template not found")
	}
	return tpl, nil
}

// fakeGenerator — генератор для тестов: записывает порядок событий
// и отказывает для перечисленных шаблонов.
type fakeGenerator struct {
	mu      sync.Mutex
	order   []string // имена шаблонов в порядке генерации
	failFor map[string]bool
	block   chan struct{} // если задан, генерация ждёт закрытия канала
}

func (g *fakeGenerator) GenerateFromTemplate(ctx context.Context, tpl *domain.EventTemplate, _ map[string]string) domain.GenerationResult {
	if g.block != nil {
		select {
		case <-g.block:
		case <-ctx.Done():
			return domain.GenerationResult{Success: false, Message: "cancelled"}
		}
	}

	g.mu.Lock()
	g.order = append(g.order, tpl.Name)
	g.mu.Unlock()

	if g.failFor[tpl.Name] {
		return domain.GenerationResult{Success: false, Message: "injected failure"}
	}
	return domain.GenerationResult{Success: true, InstanceID: uuid.New()}
}

func (g *fakeGenerator) generated() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.order...)
}

// testScenario собирает сценарий из событий с шаблоном на событие.
func testScenario(events ...domain.ScenarioEvent) (*domain.ScenarioDefinition, *fakeStore) {
	store := &fakeStore{templates: make(map[uuid.UUID]*domain.EventTemplate)}

	for i := range events {
		id := uuid.New()
		events[i].TemplateID = id
		store.templates[id] = &domain.EventTemplate{
			ID:      id,
			Name:    events[i].ID,
			Channel: domain.ChannelSecurity,
			EventID: 4624,
			Level:   domain.LevelInformational,
			Source:  "test",
		}
	}

	return &domain.ScenarioDefinition{
		ID:       uuid.New(),
		Name:     "test-scenario",
		Revision: 1,
		IsActive: true,
		Events:   events,
	}, store
}

func newTestExecutor(store *fakeStore, gen *fakeGenerator) *Executor {
	return New(Config{
		Pipeline:    engine.NewPipeline(nil),
		Templates:   store,
		Generator:   gen,
		AcquireWait: 100 * time.Millisecond,
	})
}

func TestExecute_Completes(t *testing.T) {
	scenario, store := testScenario(
		domain.ScenarioEvent{ID: "A"},
		domain.ScenarioEvent{ID: "B", DependsOn: []string{"A"}},
		domain.ScenarioEvent{ID: "C", DependsOn: []string{"B"}},
	)
	gen := &fakeGenerator{}
	exec := newTestExecutor(store, gen)

	result, err := exec.Execute(context.Background(), uuid.New(), scenario, domain.ExecutionOptions{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.Success {
		t.Errorf("expected success, got %+v", result)
	}
	if result.EventsGenerated != 3 || result.EventsFailed != 0 {
		t.Errorf("expected 3 generated, 0 failed, got %d/%d",
			result.EventsGenerated, result.EventsFailed)
	}

	order := gen.generated()
	if len(order) != 3 || order[0] != "A" || order[1] != "B" || order[2] != "C" {
		t.Errorf("expected dependency order A, B, C, got %v", order)
	}

	// Реестр чист после завершения
	if exec.Registry().IsRunning(scenario.ID) {
		t.Error("scenario should be deregistered after completion")
	}
}

func TestExecute_ValidationFailureIsBusinessOutcome(t *testing.T) {
	scenario, store := testScenario(
		domain.ScenarioEvent{ID: "A", DependsOn: []string{"B"}},
		domain.ScenarioEvent{ID: "B", DependsOn: []string{"A"}},
	)
	gen := &fakeGenerator{}
	exec := newTestExecutor(store, gen)

	result, err := exec.Execute(context.Background(), uuid.New(), scenario, domain.ExecutionOptions{}, nil)
	if err != nil {
		t.Fatalf("validation failure must not be an error: %v", err)
	}

	if result.Success {
		t.Error("expected failed result")
	}
	if !strings.Contains(result.Error, "validation") {
		t.Errorf("expected validation error text, got %q", result.Error)
	}
	if len(gen.generated()) != 0 {
		t.Error("no events should be generated for invalid scenario")
	}
}

func TestExecute_MissingTemplate(t *testing.T) {
	scenario, store := testScenario(domain.ScenarioEvent{ID: "A"})
	// Ломаем ссылку на шаблон
	scenario.Events[0].TemplateID = uuid.New()

	gen := &fakeGenerator{}
	exec := newTestExecutor(store, gen)

	result, err := exec.Execute(context.Background(), uuid.New(), scenario, domain.ExecutionOptions{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Success {
		t.Error("expected failure for missing template")
	}
}

func TestExecute_DuplicateRun(t *testing.T) {
	scenario, store := testScenario(domain.ScenarioEvent{ID: "A"})
	gen := &fakeGenerator{}
	exec := newTestExecutor(store, gen)

	// Сценарий уже зарегистрирован другим запуском
	if err := exec.Registry().TryRegister(scenario.ID, uuid.New(), func() {}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer exec.Registry().Deregister(scenario.ID)

	_, err := exec.Execute(context.Background(), uuid.New(), scenario, domain.ExecutionOptions{}, nil)
	if !errors.Is(err, ErrDuplicateRun) {
		t.Errorf("expected ErrDuplicateRun, got %v", err)
	}
}

func TestExecute_ConcurrentDuplicate_ExactlyOneProceeds(t *testing.T) {
	scenario, store := testScenario(domain.ScenarioEvent{ID: "A"})

	block := make(chan struct{})
	gen := &fakeGenerator{block: block}
	exec := newTestExecutor(store, gen)

	type outcome struct {
		result *domain.ExecutionResult
		err    error
	}
	results := make(chan outcome, 2)

	for i := 0; i < 2; i++ {
		go func() {
			res, err := exec.Execute(context.Background(), uuid.New(), scenario, domain.ExecutionOptions{}, nil)
			results <- outcome{res, err}
		}()
	}

	// Один запуск должен проиграть гонку регистрации
	first := <-results
	if !errors.Is(first.err, ErrDuplicateRun) {
		t.Fatalf("expected first finisher to lose with ErrDuplicateRun, got %v", first.err)
	}

	close(block)
	second := <-results
	if second.err != nil {
		t.Fatalf("winner should complete, got %v", second.err)
	}
	if !second.result.Success {
		t.Errorf("winner should succeed, got %+v", second.result)
	}
}

func TestExecute_ThrottleBusy(t *testing.T) {
	scenario, store := testScenario(domain.ScenarioEvent{ID: "A"})
	gen := &fakeGenerator{}

	throttle := NewThrottle(1)
	if !throttle.TryAcquire() {
		t.Fatal("slot should be available")
	}
	defer throttle.Release()

	exec := New(Config{
		Pipeline:    engine.NewPipeline(nil),
		Templates:   store,
		Generator:   gen,
		Throttle:    throttle,
		AcquireWait: 50 * time.Millisecond,
	})

	_, err := exec.Execute(context.Background(), uuid.New(), scenario, domain.ExecutionOptions{}, nil)
	if !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy, got %v", err)
	}

	// Неудавшийся запуск не должен оставаться в реестре
	if exec.Registry().IsRunning(scenario.ID) {
		t.Error("scenario should be deregistered after busy outcome")
	}
}

func TestExecute_StopsAfterFailedGroup(t *testing.T) {
	scenario, store := testScenario(
		domain.ScenarioEvent{ID: "A"},
		domain.ScenarioEvent{ID: "B", DependsOn: []string{"A"}},
	)
	gen := &fakeGenerator{failFor: map[string]bool{"A": true}}
	exec := newTestExecutor(store, gen)

	result, err := exec.Execute(context.Background(), uuid.New(), scenario, domain.ExecutionOptions{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Success {
		t.Error("expected failed result")
	}
	if result.EventsFailed != 1 {
		t.Errorf("expected 1 failed event, got %d", result.EventsFailed)
	}

	// B не должен стартовать: его группа идёт после отказавшей
	for _, name := range gen.generated() {
		if name == "B" {
			t.Error("event B must not run after group failure without continue_on_error")
		}
	}
}

func TestExecute_ContinueOnError(t *testing.T) {
	scenario, store := testScenario(
		domain.ScenarioEvent{ID: "A"},
		domain.ScenarioEvent{ID: "B"},
		domain.ScenarioEvent{ID: "C", DependsOn: []string{"B"}},
	)
	gen := &fakeGenerator{failFor: map[string]bool{"A": true}}
	exec := newTestExecutor(store, gen)

	result, err := exec.Execute(context.Background(), uuid.New(), scenario,
		domain.ExecutionOptions{ContinueOnError: true}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Success {
		t.Error("expected failed result with failures recorded")
	}
	if result.EventsGenerated != 2 || result.EventsFailed != 1 {
		t.Errorf("expected 2 generated, 1 failed, got %d/%d",
			result.EventsGenerated, result.EventsFailed)
	}
}

func TestExecute_ContinueOnError_FailedDependencyCascades(t *testing.T) {
	scenario, store := testScenario(
		domain.ScenarioEvent{ID: "A"},
		domain.ScenarioEvent{ID: "B", DependsOn: []string{"A"}},
		domain.ScenarioEvent{ID: "C"},
	)
	gen := &fakeGenerator{failFor: map[string]bool{"A": true}}
	exec := newTestExecutor(store, gen)

	result, err := exec.Execute(context.Background(), uuid.New(), scenario,
		domain.ExecutionOptions{ContinueOnError: true}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Success {
		t.Error("expected failed result")
	}
	// A отказал, B каскадно пропущен, C независим и генерируется
	if result.EventsGenerated != 1 || result.EventsFailed != 2 {
		t.Errorf("expected 1 generated, 2 failed, got %d/%d",
			result.EventsGenerated, result.EventsFailed)
	}
	for _, name := range gen.generated() {
		if name == "B" {
			t.Error("event B must not be generated after its dependency failed")
		}
	}
	// Пропуск после отказа зависимости — бизнес-исход, не нарушение
	// инварианта раскладки
	if !strings.Contains(result.Error, "dependency failed") {
		t.Errorf("expected dependency-failed message, got %q", result.Error)
	}
}

func TestExecute_CancelMidRun(t *testing.T) {
	scenario, store := testScenario(
		domain.ScenarioEvent{ID: "A"},
		domain.ScenarioEvent{ID: "B", DependsOn: []string{"A"}},
	)

	block := make(chan struct{})
	gen := &fakeGenerator{block: block}
	exec := newTestExecutor(store, gen)

	done := make(chan struct{})
	var result *domain.ExecutionResult
	var execErr error

	go func() {
		defer close(done)
		result, execErr = exec.Execute(context.Background(), uuid.New(), scenario, domain.ExecutionOptions{}, nil)
	}()

	// Ждём регистрации, затем отменяем
	deadline := time.Now().Add(2 * time.Second)
	for !exec.Registry().IsRunning(scenario.ID) {
		if time.Now().After(deadline) {
			t.Fatal("execution did not register in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !exec.Registry().Cancel(scenario.ID) {
		t.Fatal("cancel should find the running scenario")
	}

	<-done
	if execErr != nil {
		t.Fatalf("unexpected error: %v", execErr)
	}
	if !result.Cancelled {
		t.Errorf("expected cancelled result, got %+v", result)
	}
	if exec.Registry().IsRunning(scenario.ID) {
		t.Error("scenario should be deregistered after cancellation")
	}
}

func TestExecute_TimeoutActsAsCancellation(t *testing.T) {
	scenario, store := testScenario(
		domain.ScenarioEvent{ID: "A", Delay: time.Second},
		domain.ScenarioEvent{ID: "B", DependsOn: []string{"A"}},
	)
	gen := &fakeGenerator{}
	exec := newTestExecutor(store, gen)

	result, err := exec.Execute(context.Background(), uuid.New(), scenario,
		domain.ExecutionOptions{Timeout: 50 * time.Millisecond}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Cancelled {
		t.Errorf("timeout should surface as cancellation, got %+v", result)
	}
}

func TestExecute_NilScenario(t *testing.T) {
	gen := &fakeGenerator{}
	exec := newTestExecutor(&fakeStore{}, gen)

	_, err := exec.Execute(context.Background(), uuid.New(), nil, domain.ExecutionOptions{}, nil)
	if !errors.Is(err, engine.ErrNilReference) {
		t.Errorf("expected ErrNilReference, got %v", err)
	}
}

func TestExecute_DelayMultiplierSpeedsUp(t *testing.T) {
	scenario, store := testScenario(
		domain.ScenarioEvent{ID: "A", Delay: 500 * time.Millisecond},
	)
	gen := &fakeGenerator{}
	exec := newTestExecutor(store, gen)

	start := time.Now()
	result, err := exec.Execute(context.Background(), uuid.New(), scenario,
		domain.ExecutionOptions{DelayMultiplier: 0.01}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if elapsed := time.Since(start); elapsed > 400*time.Millisecond {
		t.Errorf("scaled delay should finish quickly, took %s", elapsed)
	}
}
