// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация сообщений в очереди
//   - consumer.go   — потребление сообщений из очередей
//
// Типы сообщений:
//   - execution.requested — запрошено выполнение сценария
//   - execution.cancel    — запрошена отмена выполнения
//   - event.generated     — сгенерировано событие
//
// Exchanges:
//   - fabrica.executions — команды выполнения сценариев
//   - fabrica.events     — сгенерированные события
//   - fabrica.dlq        — dead letter queue
package mq
