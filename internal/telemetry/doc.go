// Package telemetry содержит настройку structured logging и метрик.
//
// Логирование построено на log/slog: формат и уровень задаются
// переменными окружения LOG_FORMAT и LOG_LEVEL. Метрики — Prometheus,
// каждый сервис отдаёт их на /metrics.
package telemetry
