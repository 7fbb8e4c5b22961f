package executor

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"
)

// Значения по умолчанию для ограничителей.
const (
	// DefaultScenarioSlots — одновременных выполнений сценариев.
	DefaultScenarioSlots = 4

	// DefaultGenerationSlots — одновременных генераций событий.
	DefaultGenerationSlots = 4

	// DefaultAcquireWait — предельное ожидание слота.
	DefaultAcquireWait = 30 * time.Second
)

// Throttle — ограничитель одновременного доступа к общему ресурсу.
//
// Обёртка над weighted-семафором: ожидание слота ограничено по времени,
// исчерпание репортится отдельным retryable-исходом ErrBusy.
type Throttle struct {
	sem   *semaphore.Weighted
	width int64
}

// NewThrottle создаёт ограничитель на width слотов.
func NewThrottle(width int64) *Throttle {
	if width <= 0 {
		width = 1
	}
	return &Throttle{
		sem:   semaphore.NewWeighted(width),
		width: width,
	}
}

// Width возвращает количество слотов.
func (t *Throttle) Width() int64 {
	return t.width
}

// Acquire занимает один слот, ожидая не дольше wait.
//
// Возвращает ErrBusy при истечении ожидания и ошибку контекста,
// если отменён сам ctx.
func (t *Throttle) Acquire(ctx context.Context, wait time.Duration) error {
	if wait <= 0 {
		wait = DefaultAcquireWait
	}

	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	if err := t.sem.Acquire(waitCtx, 1); err != nil {
		// Отмена вызывающего контекста — не "busy"
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrBusy
	}
	return nil
}

// TryAcquire занимает слот без ожидания.
func (t *Throttle) TryAcquire() bool {
	return t.sem.TryAcquire(1)
}

// Release освобождает слот.
func (t *Throttle) Release() {
	t.sem.Release(1)
}
