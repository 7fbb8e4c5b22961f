// Package generator — движок генерации синтетических событий.
//
// Движок собирает экземпляр события из шаблона и биндингов (render.go),
// прогоняет его через пайплайн валидации и записывает в приёмник
// журнала. Одиночная генерация ограничена семафором ширины
// DefaultGenerationSlots; пакетная генерация режет запрошенный объём
// на чанки и выполняет события чанка конкурентно (generator.go).
package generator
