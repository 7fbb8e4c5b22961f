// Package engine содержит валидацию и раскладку сценария.
//
// Включает:
//   - validate.go — валидация шаблонов, экземпляров, биндингов и ссылок ATT&CK
//   - graph.go    — граф зависимостей: поиск циклов и раскладка по группам
//
// Engine отвечает за понимание структуры сценария и определение
// порядка генерации событий на основе их зависимостей.
package engine
