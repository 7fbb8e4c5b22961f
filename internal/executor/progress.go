package executor

import (
	"log/slog"

	"github.com/shaiso/Fabrica/internal/domain"
)

// ProgressSink — наблюдатель прогресса выполнения.
//
// Отчёты — fire-and-forget: наблюдатель не должен блокироваться и не
// влияет на корректность выполнения. Паника наблюдателя гасится.
type ProgressSink interface {
	Report(progress domain.ScenarioProgress)
}

// NopProgress — наблюдатель по умолчанию, ничего не делает.
type NopProgress struct{}

// Report реализует ProgressSink.
func (NopProgress) Report(domain.ScenarioProgress) {}

// LogProgress — наблюдатель, пишущий прогресс в лог.
type LogProgress struct {
	Logger *slog.Logger
}

// Report реализует ProgressSink.
func (p LogProgress) Report(progress domain.ScenarioProgress) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("scenario progress",
		"scenario_id", progress.ScenarioID,
		"phase", progress.Phase,
		"completed", progress.CompletedEvents,
		"total", progress.TotalEvents,
	)
}

// report отправляет снимок прогресса, защищаясь от паники наблюдателя:
// один плохой наблюдатель не должен ронять выполнение сценария.
func report(logger *slog.Logger, sink ProgressSink, progress domain.ScenarioProgress) {
	if sink == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			logger.Warn("progress observer panicked", "panic", rec)
		}
	}()
	sink.Report(progress)
}
