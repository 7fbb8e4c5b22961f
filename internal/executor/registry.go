package executor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTerminateWait — предельное ожидание дерегистрации при
// принудительной остановке.
const DefaultTerminateWait = 30 * time.Second

// terminatePollInterval — шаг опроса реестра при ожидании остановки.
const terminatePollInterval = 100 * time.Millisecond

// runEntry — запись о выполняющемся сценарии.
type runEntry struct {
	executionID uuid.UUID
	cancel      context.CancelFunc
	startedAt   time.Time
}

// Registry — реестр выполняющихся сценариев.
//
// Реестр — явно принадлежащая движку структура (map под мьютексом),
// не глобальное состояние. Регистрация атомарна: из двух конкурентных
// запусков одного сценария слот получает ровно один, второй немедленно
// получает ErrDuplicateRun.
type Registry struct {
	mu      sync.Mutex
	running map[uuid.UUID]*runEntry
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{running: make(map[uuid.UUID]*runEntry)}
}

// TryRegister атомарно регистрирует выполнение сценария.
// cancel — сигнал отмены этого запуска, используется Cancel.
func (r *Registry) TryRegister(scenarioID, executionID uuid.UUID, cancel context.CancelFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.running[scenarioID]; exists {
		return ErrDuplicateRun
	}
	r.running[scenarioID] = &runEntry{
		executionID: executionID,
		cancel:      cancel,
		startedAt:   time.Now(),
	}
	return nil
}

// Deregister снимает сценарий с учёта.
func (r *Registry) Deregister(scenarioID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.running, scenarioID)
}

// IsRunning возвращает true, если сценарий выполняется.
func (r *Registry) IsRunning(scenarioID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, exists := r.running[scenarioID]
	return exists
}

// ExecutionID возвращает идентификатор выполняющегося запуска сценария.
func (r *Registry) ExecutionID(scenarioID uuid.UUID) (uuid.UUID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.running[scenarioID]
	if !exists {
		return uuid.Nil, false
	}
	return entry.executionID, true
}

// Cancel подаёт сигнал отмены выполняющемуся сценарию.
// Возвращает false, если сценарий не выполняется.
func (r *Registry) Cancel(scenarioID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.running[scenarioID]
	if !exists {
		return false
	}
	entry.cancel()
	return true
}

// Count возвращает количество выполняющихся сценариев.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.running)
}

// Terminate отменяет выполнение и ждёт дерегистрации.
//
// Ожидание — ограниченный опрос: выполнение дорабатывает уже начатые
// генерации и снимается с учёта само. Возвращает ErrTerminateTimeout,
// если сценарий не остановился за wait.
func (r *Registry) Terminate(ctx context.Context, scenarioID uuid.UUID, wait time.Duration) error {
	if !r.Cancel(scenarioID) {
		return nil // уже не выполняется
	}

	if wait <= 0 {
		wait = DefaultTerminateWait
	}
	deadline := time.Now().Add(wait)

	ticker := time.NewTicker(terminatePollInterval)
	defer ticker.Stop()

	for {
		if !r.IsRunning(scenarioID) {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrTerminateTimeout
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
