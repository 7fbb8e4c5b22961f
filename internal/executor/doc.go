// Package executor выполняет сценарии: от валидации до агрегированного
// результата.
//
// Включает:
//   - executor.go — машина состояний одного выполнения и барьеры групп
//   - registry.go — реестр выполняющихся сценариев (защита от дублей)
//   - throttle.go — ограничители одновременных выполнений и генераций
//   - progress.go — fire-and-forget отчёты о прогрессе
//
// Выполнение кооперативное: отмена — один сигнал на запуск, проверяемый
// на границах групп и перед каждым событием. Уже начатые генерации
// дорабатывают до конца, принудительно они не прерываются.
package executor
