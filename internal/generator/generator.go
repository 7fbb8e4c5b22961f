package generator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shaiso/Fabrica/internal/domain"
	"github.com/shaiso/Fabrica/internal/engine"
	"github.com/shaiso/Fabrica/internal/executor"
	"github.com/shaiso/Fabrica/internal/sink"
	"github.com/shaiso/Fabrica/internal/telemetry"
)

// Параметры пакетной генерации по умолчанию.
const (
	// DefaultChunkSize — размер чанка пакетной генерации.
	DefaultChunkSize = 1000

	// DefaultChunkDelay — пауза между чанками.
	DefaultChunkDelay = 100 * time.Millisecond
)

// Engine — движок генерации событий.
//
// Экземпляр события проходит валидацию до записи: невалидное событие
// не доходит до приёмника. Запись в приёмник ограничена семафором:
// не больше DefaultGenerationSlots событий пишутся одновременно.
type Engine struct {
	pipeline *engine.Pipeline
	sink     sink.EventLogSink
	throttle *executor.Throttle

	chunkSize  int
	chunkDelay time.Duration
	logger     *slog.Logger
}

// Config — конфигурация движка генерации.
type Config struct {
	// Pipeline — пайплайн валидации (обязателен).
	Pipeline *engine.Pipeline

	// Sink — приёмник журнала событий (обязателен).
	Sink sink.EventLogSink

	// Throttle — ограничитель одновременных генераций
	// (опционально; default: DefaultGenerationSlots слотов).
	Throttle *executor.Throttle

	// ChunkSize — размер чанка пакетной генерации (default: 1000).
	ChunkSize int

	// ChunkDelay — пауза между чанками (default: 100ms).
	ChunkDelay time.Duration

	// Logger — логгер (default: slog.Default()).
	Logger *slog.Logger
}

// New создаёт движок генерации.
func New(cfg Config) *Engine {
	throttle := cfg.Throttle
	if throttle == nil {
		throttle = executor.NewThrottle(executor.DefaultGenerationSlots)
	}

	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	chunkDelay := cfg.ChunkDelay
	if chunkDelay < 0 {
		chunkDelay = DefaultChunkDelay
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		pipeline:   cfg.Pipeline,
		sink:       cfg.Sink,
		throttle:   throttle,
		chunkSize:  chunkSize,
		chunkDelay: chunkDelay,
		logger:     logger,
	}
}

// GenerateOne генерирует одно готовое событие.
//
// Невалидный экземпляр отсекается до записи в приёмник. Отказ приёмника
// и ошибка валидации — бизнес-исходы (Success=false), не ошибки API.
func (e *Engine) GenerateOne(ctx context.Context, inst *domain.EventInstance) domain.GenerationResult {
	start := time.Now()

	if err := e.pipeline.ValidateInstance(inst); err != nil {
		telemetry.EventsFailed.Inc()
		return domain.GenerationResult{
			Success: false,
			Message: fmt.Sprintf("validation: %v", err),
			Elapsed: time.Since(start),
		}
	}

	if err := e.throttle.Acquire(ctx, 0); err != nil {
		telemetry.EventsFailed.Inc()
		return domain.GenerationResult{
			Success: false,
			Message: fmt.Sprintf("acquire generation slot: %v", err),
			Elapsed: time.Since(start),
		}
	}
	defer e.throttle.Release()

	if err := e.sink.WriteEvent(ctx, inst); err != nil {
		telemetry.EventsFailed.Inc()
		e.logger.Warn("sink write failed",
			"instance_id", inst.ID,
			"event_id", inst.EventID,
			"error", err,
		)
		return domain.GenerationResult{
			Success:    false,
			InstanceID: inst.ID,
			Message:    fmt.Sprintf("write event: %v", err),
			Elapsed:    time.Since(start),
		}
	}

	elapsed := time.Since(start)
	telemetry.EventsGenerated.Inc()
	telemetry.GenerationDuration.Observe(elapsed.Seconds())

	return domain.GenerationResult{
		Success:    true,
		InstanceID: inst.ID,
		Elapsed:    elapsed,
	}
}

// GenerateFromTemplate собирает событие из шаблона и биндингов и
// генерирует его.
//
// Отсутствующий обязательный параметр проваливает генерацию до записи
// в приёмник.
func (e *Engine) GenerateFromTemplate(ctx context.Context, tpl *domain.EventTemplate, bindings map[string]string) domain.GenerationResult {
	start := time.Now()

	if err := e.pipeline.ValidateTemplate(tpl); err != nil {
		telemetry.EventsFailed.Inc()
		return domain.GenerationResult{
			Success: false,
			Message: fmt.Sprintf("template: %v", err),
			Elapsed: time.Since(start),
		}
	}
	if err := e.pipeline.ValidateBindings(tpl, bindings); err != nil {
		telemetry.EventsFailed.Inc()
		return domain.GenerationResult{
			Success: false,
			Message: fmt.Sprintf("bindings: %v", err),
			Elapsed: time.Since(start),
		}
	}

	inst, err := Render(tpl, bindings)
	if err != nil {
		telemetry.EventsFailed.Inc()
		return domain.GenerationResult{
			Success: false,
			Message: fmt.Sprintf("render: %v", err),
			Elapsed: time.Since(start),
		}
	}

	return e.GenerateOne(ctx, inst)
}

// GenerateBatch генерирует count событий из одного шаблона.
//
// Запрошенный объём режется на чанки по chunkSize; события внутри чанка
// генерируются конкурентно, между чанками выдерживается пауза.
// Количество чанков — ⌈count/chunkSize⌉. Отмена контекста прекращает
// обработку на границе чанка, уже собранные исходы сохраняются.
func (e *Engine) GenerateBatch(ctx context.Context, tpl *domain.EventTemplate, bindings map[string]string, count int) *domain.BatchResult {
	start := time.Now()

	result := &domain.BatchResult{Requested: count}
	if count <= 0 {
		result.Elapsed = time.Since(start)
		return result
	}

	// Шаблон и биндинги проверяются один раз на весь пакет
	if err := e.pipeline.ValidateTemplate(tpl); err != nil {
		result.Failed = count
		result.Messages = []string{fmt.Sprintf("template: %v", err)}
		result.Elapsed = time.Since(start)
		return result
	}
	if err := e.pipeline.ValidateBindings(tpl, bindings); err != nil {
		result.Failed = count
		result.Messages = []string{fmt.Sprintf("bindings: %v", err)}
		result.Elapsed = time.Since(start)
		return result
	}

	e.runChunked(ctx, result, count, func(gctx context.Context, _ int) domain.GenerationResult {
		inst, err := Render(tpl, bindings)
		if err != nil {
			return domain.GenerationResult{
				Success: false,
				Message: fmt.Sprintf("render: %v", err),
			}
		}
		return e.GenerateOne(gctx, inst)
	})

	result.Elapsed = time.Since(start)
	if secs := result.Elapsed.Seconds(); secs > 0 {
		result.Throughput = float64(result.Succeeded) / secs
		telemetry.BatchThroughput.Set(result.Throughput)
	}

	e.logger.Info("batch generation finished",
		"template", tpl.Name,
		"requested", result.Requested,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
		"chunks", result.Chunks,
		"throughput", fmt.Sprintf("%.1f", result.Throughput),
	)

	return result
}

// GenerateInstances генерирует пакет готовых событий.
//
// В отличие от GenerateBatch принимает разнородный список: каждый
// экземпляр валидируется и пишется независимо, чанки, конкуренция и
// отмена на границе чанка — те же. nil в списке учитывается как отказ.
func (e *Engine) GenerateInstances(ctx context.Context, instances []*domain.EventInstance) *domain.BatchResult {
	start := time.Now()

	result := &domain.BatchResult{Requested: len(instances)}
	if len(instances) == 0 {
		result.Elapsed = time.Since(start)
		return result
	}

	e.runChunked(ctx, result, len(instances), func(gctx context.Context, i int) domain.GenerationResult {
		inst := instances[i]
		if inst == nil {
			return domain.GenerationResult{
				Success: false,
				Message: fmt.Sprintf("instance %d: nil", i),
			}
		}
		return e.GenerateOne(gctx, inst)
	})

	result.Elapsed = time.Since(start)
	if secs := result.Elapsed.Seconds(); secs > 0 {
		result.Throughput = float64(result.Succeeded) / secs
		telemetry.BatchThroughput.Set(result.Throughput)
	}

	e.logger.Info("batch generation finished",
		"instances", result.Requested,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
		"chunks", result.Chunks,
		"throughput", fmt.Sprintf("%.1f", result.Throughput),
	)

	return result
}

// runChunked прогоняет count единиц работы чанками по chunkSize.
//
// Внутри чанка gen вызывается конкурентно, не шире ограничителя;
// между чанками выдерживается пауза. Отмена контекста прекращает
// обработку на границе чанка, счётчики уже обработанных единиц
// сохраняются в result.
func (e *Engine) runChunked(ctx context.Context, result *domain.BatchResult, count int, gen func(ctx context.Context, i int) domain.GenerationResult) {
	var (
		mu       sync.Mutex
		messages []string
	)
	succeeded := 0
	failed := 0

	for offset := 0; offset < count; offset += e.chunkSize {
		if ctx.Err() != nil {
			break
		}
		if offset > 0 && e.chunkDelay > 0 {
			select {
			case <-time.After(e.chunkDelay):
			case <-ctx.Done():
			}
			if ctx.Err() != nil {
				break
			}
		}

		size := e.chunkSize
		if rest := count - offset; rest < size {
			size = rest
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(int(e.throttle.Width()))
		for i := 0; i < size; i++ {
			idx := offset + i
			g.Go(func() error {
				res := gen(gctx, idx)
				mu.Lock()
				if res.Success {
					succeeded++
				} else {
					failed++
					messages = append(messages, res.Message)
				}
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()
		result.Chunks++
	}

	result.Succeeded = succeeded
	result.Failed = failed
	result.Messages = messages
}
