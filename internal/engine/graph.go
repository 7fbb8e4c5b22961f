package engine

import (
	"fmt"
	"sort"

	"github.com/shaiso/Fabrica/internal/domain"
)

// Group — множество событий, готовых к параллельной генерации:
// все их зависимости завершены в строго более ранних группах.
type Group []*domain.ScenarioEvent

// IDs возвращает идентификаторы событий группы.
func (g Group) IDs() []string {
	ids := make([]string, len(g))
	for i, ev := range g {
		ids[i] = ev.ID
	}
	return ids
}

// Цвета узлов при обходе графа.
const (
	nodeWhite uint8 = iota // не посещён
	nodeGrey               // на текущем пути обхода
	nodeBlack              // обход завершён
)

// graph — граф зависимостей событий одного сценария.
//
// Узлы хранятся в арене и адресуются индексами — обход не опирается
// на общие изменяемые множества и не использует рекурсию.
type graph struct {
	events []domain.ScenarioEvent

	// index — ID события → индекс в events.
	index map[string]int

	// deps — индексы зависимостей каждого узла.
	// Ссылки на неизвестные события и self-loops сюда не попадают,
	// они репортятся валидацией отдельно.
	deps [][]int

	// order — индексы узлов в порядке рекомендательных sequence.
	order []int
}

// buildGraph строит граф по событиям сценария.
func buildGraph(events []domain.ScenarioEvent) (*graph, error) {
	if len(events) == 0 {
		return nil, NewValidationError("", "events", "scenario has no events", ErrNoEvents)
	}

	g := &graph{
		events: events,
		index:  make(map[string]int, len(events)),
		deps:   make([][]int, len(events)),
		order:  make([]int, len(events)),
	}

	for i := range events {
		id := events[i].ID
		if id == "" {
			continue
		}
		if _, exists := g.index[id]; !exists {
			g.index[id] = i
		}
		g.order[i] = i
	}

	for i := range events {
		for _, dep := range events[i].DependsOn {
			if dep == events[i].ID {
				continue
			}
			if j, ok := g.index[dep]; ok {
				g.deps[i] = append(g.deps[i], j)
			}
		}
	}

	// Рекомендательный порядок обхода: по sequence, стабильно
	sort.SliceStable(g.order, func(a, b int) bool {
		return events[g.order[a]].Sequence < events[g.order[b]].Sequence
	})

	return g, nil
}

// detectCycles находит события, участвующие в циклах зависимостей.
//
// Итеративный DFS с явным стеком: узел, повторно встреченный серым
// (на текущем пути), замыкает цикл. Возвращает ID всех событий цикла
// в порядке объявления.
func (g *graph) detectCycles() []string {
	n := len(g.events)
	state := make([]uint8, n)
	inCycle := make([]bool, n)

	type frame struct {
		node int
		next int // индекс следующей необойдённой зависимости
	}

	for start := 0; start < n; start++ {
		if state[start] != nodeWhite {
			continue
		}

		stack := []frame{{node: start}}
		state[start] = nodeGrey

		for len(stack) > 0 {
			top := &stack[len(stack)-1]

			if top.next < len(g.deps[top.node]) {
				dep := g.deps[top.node][top.next]
				top.next++

				switch state[dep] {
				case nodeWhite:
					state[dep] = nodeGrey
					stack = append(stack, frame{node: dep})
				case nodeGrey:
					// Цикл: все узлы от dep до вершины стека
					for i := len(stack) - 1; i >= 0; i-- {
						inCycle[stack[i].node] = true
						if stack[i].node == dep {
							break
						}
					}
				}
				continue
			}

			state[top.node] = nodeBlack
			stack = stack[:len(stack)-1]
		}
	}

	var ids []string
	for i := range g.events {
		if inCycle[i] {
			ids = append(ids, g.events[i].ID)
		}
	}
	return ids
}

// Resolve раскладывает события сценария по упорядоченным группам.
//
// Инвариант результата: все зависимости события лежат в строго более
// ранней группе. Внутри группы взаимный порядок не определён —
// события одной группы можно генерировать параллельно.
//
// События обходятся в рекомендательном порядке sequence, поэтому при
// равных зависимостях раскладка стабильна. Ссылка на несуществующее
// событие — дефект данных: Resolve отказывает, а не отбрасывает её.
func Resolve(events []domain.ScenarioEvent) ([]Group, error) {
	g, err := buildGraph(events)
	if err != nil {
		return nil, err
	}

	// Дефекты графа блокируют раскладку
	for i := range events {
		ev := &events[i]
		if ev.ID == "" {
			return nil, NewValidationError("", "events", "event has empty ID", ErrEmptyEventID)
		}
		if g.index[ev.ID] != i {
			return nil, NewValidationError(ev.ID, "id",
				fmt.Sprintf("duplicate event ID: %s", ev.ID), ErrDuplicateEventID)
		}
		for _, dep := range ev.DependsOn {
			if dep == ev.ID {
				return nil, NewValidationError(ev.ID, "depends_on",
					"event depends on itself", ErrSelfDependency)
			}
			if _, ok := g.index[dep]; !ok {
				return nil, NewValidationError(ev.ID, "depends_on",
					fmt.Sprintf("depends on unknown event: %s", dep), ErrMissingDependency)
			}
		}
	}

	n := len(events)
	placed := make([]bool, n)    // событие уже в какой-то группе
	satisfied := make([]bool, n) // событие завершено в более ранней группе
	remaining := n

	var groups []Group

	for remaining > 0 {
		var members []int

		for _, i := range g.order {
			if placed[i] {
				continue
			}
			ready := true
			for _, dep := range g.deps[i] {
				if !satisfied[dep] {
					ready = false
					break
				}
			}
			if ready {
				members = append(members, i)
				placed[i] = true
			}
		}

		// Ни одно событие не готово — остался цикл
		if len(members) == 0 {
			return nil, NewValidationError("", "depends_on",
				"dependency cycle prevents resolution", ErrCyclicDependency)
		}

		group := make(Group, len(members))
		for k, i := range members {
			group[k] = &g.events[i]
		}
		groups = append(groups, group)

		// Барьер группы: зависимости следующей группы считаются
		// удовлетворёнными только после закрытия текущей
		for _, i := range members {
			satisfied[i] = true
		}
		remaining -= len(members)
	}

	return groups, nil
}
