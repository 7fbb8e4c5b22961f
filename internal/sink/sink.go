// Package sink определяет приёмник сгенерированных событий.
//
// Приёмник — внешняя система, надёжно записывающая событие (журнал,
// брокер, коллектор). Единственная гарантия, на которую опирается
// Fabrica — доставка at-least-once: приёмник может быть медленным
// и может требовать повторной записи.
package sink

import (
	"context"
	"sync"

	"github.com/shaiso/Fabrica/internal/domain"
)

// EventLogSink — приёмник отрендеренных событий.
type EventLogSink interface {
	// WriteEvent записывает событие. Вызов может блокироваться.
	WriteEvent(ctx context.Context, inst *domain.EventInstance) error
}

// Memory — приёмник в памяти для тестов и локальной разработки.
type Memory struct {
	mu     sync.Mutex
	events []domain.EventInstance

	// failWith — если не nil, каждый WriteEvent возвращает эту ошибку.
	failWith error
}

// NewMemory создаёт приёмник в памяти.
func NewMemory() *Memory {
	return &Memory{}
}

// WriteEvent сохраняет копию события.
func (m *Memory) WriteEvent(_ context.Context, inst *domain.EventInstance) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return m.failWith
	}
	m.events = append(m.events, *inst)
	return nil
}

// Events возвращает копию записанных событий.
func (m *Memory) Events() []domain.EventInstance {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.EventInstance, len(m.events))
	copy(out, m.events)
	return out
}

// Len возвращает количество записанных событий.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

// FailWith включает (err != nil) или выключает (err == nil) отказ записи.
func (m *Memory) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}
