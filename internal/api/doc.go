// Package api — HTTP API Fabrica.
//
// Структура:
//   - handler.go           — Handler с зависимостями
//   - routes.go            — регистрация маршрутов
//   - response.go          — помощники ответов и маппинг ошибок
//   - middleware.go        — Recovery и Logging
//   - dto.go               — request/response структуры
//   - template_handler.go  — шаблоны событий
//   - scenario_handler.go  — сценарии
//   - execution_handler.go — запуски
//   - schedule_handler.go  — расписания
//   - generate_handler.go  — прямая генерация событий
package api
