// Package service — фасад Fabrica для вызывающего кода.
//
// Структура:
//   - service.go — операции над шаблонами, сценариями, запусками и генерацией
//   - engine.go  — event-driven движок выполнения (consumers + polling fallback)
//
// Фасад связывает репозитории, пайплайн валидации, генератор и
// исполнитель сценариев. HTTP API и CLI ходят только через него.
package service
