// Package cli реализует инструмент командной строки Fabrica.
//
// # Обзор
//
// CLI — клиентская утилита для взаимодействия с Fabrica API.
// Работает через HTTP, не импортирует внутренние пакеты системы.
// CLI используется для управления шаблонами, сценариями, запусками
// и расписаниями, а также для разовой генерации событий.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для Fabrica API. Инкапсулирует все HTTP-запросы,
// парсинг ответов (DataResponse, ListResponse, ErrorResponse)
// и обработку ошибок.
//
//	client := cli.NewClient("http://localhost:8080")
//	templates, err := client.ListTemplates()
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON (json.MarshalIndent) — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: fabrica template list --json | jq .
//
// ## Commands
//
// Cobra-команды организованы по ресурсам:
//   - template: list, create, show, update, delete
//   - scenario: list, create, show, update, delete, activate, deactivate
//   - execution: list, start, show, cancel
//   - schedule: list, create, show, delete, enable, disable
//   - generate: одно событие или пакет из шаблона
//
// Каждая группа создаётся через фабричную функцию (NewTemplateCmd и т.д.),
// принимающую clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli
