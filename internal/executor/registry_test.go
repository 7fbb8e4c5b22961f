package executor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestRegistry_TryRegister(t *testing.T) {
	r := NewRegistry()
	scenarioID := uuid.New()
	executionID := uuid.New()

	if err := r.TryRegister(scenarioID, executionID, func() {}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !r.IsRunning(scenarioID) {
		t.Error("scenario should be running after registration")
	}
	if got, ok := r.ExecutionID(scenarioID); !ok || got != executionID {
		t.Errorf("expected execution id %s, got %s (ok=%v)", executionID, got, ok)
	}

	// Повторная регистрация того же сценария отклоняется
	if err := r.TryRegister(scenarioID, uuid.New(), func() {}); !errors.Is(err, ErrDuplicateRun) {
		t.Errorf("expected ErrDuplicateRun, got %v", err)
	}

	r.Deregister(scenarioID)
	if r.IsRunning(scenarioID) {
		t.Error("scenario should not be running after deregistration")
	}
}

func TestRegistry_ConcurrentRegistration(t *testing.T) {
	r := NewRegistry()
	scenarioID := uuid.New()

	const workers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	var winners int

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.TryRegister(scenarioID, uuid.New(), func() {}); err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if winners != 1 {
		t.Errorf("exactly one registration must win, got %d", winners)
	}
	if r.Count() != 1 {
		t.Errorf("expected 1 running scenario, got %d", r.Count())
	}
}

func TestRegistry_Cancel(t *testing.T) {
	r := NewRegistry()
	scenarioID := uuid.New()

	cancelled := false
	if err := r.TryRegister(scenarioID, uuid.New(), func() { cancelled = true }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !r.Cancel(scenarioID) {
		t.Error("cancel should find the running scenario")
	}
	if !cancelled {
		t.Error("cancel func should be invoked")
	}

	// Отмена незарегистрированного сценария — no-op
	if r.Cancel(uuid.New()) {
		t.Error("cancel of idle scenario should return false")
	}
}

func TestRegistry_Terminate(t *testing.T) {
	r := NewRegistry()
	scenarioID := uuid.New()

	if err := r.TryRegister(scenarioID, uuid.New(), func() {}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Имитация выполнения: дерегистрация после отмены
	go func() {
		time.Sleep(150 * time.Millisecond)
		r.Deregister(scenarioID)
	}()

	if err := r.Terminate(context.Background(), scenarioID, time.Second); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRegistry_TerminateTimeout(t *testing.T) {
	r := NewRegistry()
	scenarioID := uuid.New()

	// Выполнение "зависло": никто не дерегистрирует
	if err := r.TryRegister(scenarioID, uuid.New(), func() {}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := r.Terminate(context.Background(), scenarioID, 150*time.Millisecond)
	if !errors.Is(err, ErrTerminateTimeout) {
		t.Errorf("expected ErrTerminateTimeout, got %v", err)
	}
}

func TestRegistry_TerminateIdleScenario(t *testing.T) {
	r := NewRegistry()

	if err := r.Terminate(context.Background(), uuid.New(), time.Second); err != nil {
		t.Errorf("terminating idle scenario should be a no-op, got %v", err)
	}
}

func TestThrottle_AcquireRelease(t *testing.T) {
	th := NewThrottle(2)

	ctx := context.Background()
	if err := th.Acquire(ctx, time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := th.Acquire(ctx, time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Слоты исчерпаны
	if err := th.Acquire(ctx, 50*time.Millisecond); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy, got %v", err)
	}

	th.Release()
	if err := th.Acquire(ctx, time.Second); err != nil {
		t.Errorf("slot should be available after release: %v", err)
	}

	th.Release()
	th.Release()
}

func TestThrottle_AcquireCancelledContext(t *testing.T) {
	th := NewThrottle(1)
	if !th.TryAcquire() {
		t.Fatal("slot should be available")
	}
	defer th.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Отмена вызывающего контекста — не busy-исход
	err := th.Acquire(ctx, time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestThrottle_MinimumWidth(t *testing.T) {
	th := NewThrottle(0)
	if th.Width() != 1 {
		t.Errorf("expected width 1, got %d", th.Width())
	}
}
