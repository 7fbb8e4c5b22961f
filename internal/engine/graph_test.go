package engine

import (
	"errors"
	"testing"

	"github.com/shaiso/Fabrica/internal/domain"
)

func TestResolve_SimpleChain(t *testing.T) {
	events := []domain.ScenarioEvent{
		{ID: "A"},
		{ID: "B", DependsOn: []string{"A"}},
		{ID: "C", DependsOn: []string{"B"}},
	}

	groups, err := Resolve(events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(groups))
	}
	if groups[0][0].ID != "A" || groups[1][0].ID != "B" || groups[2][0].ID != "C" {
		t.Errorf("expected chain A, B, C, got %v, %v, %v",
			groups[0].IDs(), groups[1].IDs(), groups[2].IDs())
	}
}

func TestResolve_Diamond(t *testing.T) {
	// A → B → D
	// A → C → D
	events := []domain.ScenarioEvent{
		{ID: "A"},
		{ID: "B", DependsOn: []string{"A"}},
		{ID: "C", DependsOn: []string{"A"}},
		{ID: "D", DependsOn: []string{"B", "C"}},
	}

	groups, err := Resolve(events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(groups))
	}

	// B и C могут выполняться параллельно во второй группе
	if len(groups[1]) != 2 {
		t.Errorf("expected 2 events in middle group, got %d", len(groups[1]))
	}
	if groups[2][0].ID != "D" {
		t.Errorf("expected D in last group, got %v", groups[2].IDs())
	}
}

func TestResolve_DependenciesInEarlierGroups(t *testing.T) {
	events := []domain.ScenarioEvent{
		{ID: "A"},
		{ID: "B"},
		{ID: "C", DependsOn: []string{"A"}},
		{ID: "D", DependsOn: []string{"A", "B"}},
		{ID: "E", DependsOn: []string{"C", "D"}},
	}

	groups, err := Resolve(events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Инвариант: все зависимости события в строго более ранней группе
	groupOf := make(map[string]int)
	for gi, group := range groups {
		for _, ev := range group {
			groupOf[ev.ID] = gi
		}
	}

	for _, ev := range events {
		for _, dep := range ev.DependsOn {
			if groupOf[dep] >= groupOf[ev.ID] {
				t.Errorf("dependency %s of %s must be in a strictly earlier group (%d >= %d)",
					dep, ev.ID, groupOf[dep], groupOf[ev.ID])
			}
		}
	}
}

func TestResolve_IndependentEventsShareGroup(t *testing.T) {
	events := []domain.ScenarioEvent{
		{ID: "A"},
		{ID: "B"},
		{ID: "C"},
	}

	groups, err := Resolve(events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	if len(groups[0]) != 3 {
		t.Errorf("expected 3 events in group, got %d", len(groups[0]))
	}
}

func TestResolve_SequenceOrderWithinGroup(t *testing.T) {
	events := []domain.ScenarioEvent{
		{ID: "C", Sequence: 3},
		{ID: "A", Sequence: 1},
		{ID: "B", Sequence: 2},
	}

	groups, err := Resolve(events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ids := groups[0].IDs()
	if ids[0] != "A" || ids[1] != "B" || ids[2] != "C" {
		t.Errorf("expected sequence order A, B, C, got %v", ids)
	}
}

func TestResolve_CyclicDependency(t *testing.T) {
	events := []domain.ScenarioEvent{
		{ID: "A", DependsOn: []string{"C"}},
		{ID: "B", DependsOn: []string{"A"}},
		{ID: "C", DependsOn: []string{"B"}},
	}

	_, err := Resolve(events)
	if !errors.Is(err, ErrCyclicDependency) {
		t.Errorf("expected ErrCyclicDependency, got %v", err)
	}
}

func TestResolve_PartialCycle(t *testing.T) {
	// D вне цикла, но цикл A↔B всё равно блокирует раскладку
	events := []domain.ScenarioEvent{
		{ID: "A", DependsOn: []string{"B"}},
		{ID: "B", DependsOn: []string{"A"}},
		{ID: "D"},
	}

	_, err := Resolve(events)
	if !errors.Is(err, ErrCyclicDependency) {
		t.Errorf("expected ErrCyclicDependency, got %v", err)
	}
}

func TestResolve_SelfDependency(t *testing.T) {
	events := []domain.ScenarioEvent{
		{ID: "A", DependsOn: []string{"A"}},
	}

	_, err := Resolve(events)
	if !errors.Is(err, ErrSelfDependency) {
		t.Errorf("expected ErrSelfDependency, got %v", err)
	}
}

func TestResolve_MissingDependency(t *testing.T) {
	events := []domain.ScenarioEvent{
		{ID: "A", DependsOn: []string{"ghost"}},
	}

	_, err := Resolve(events)
	if !errors.Is(err, ErrMissingDependency) {
		t.Errorf("expected ErrMissingDependency, got %v", err)
	}
}

func TestResolve_DuplicateEventID(t *testing.T) {
	events := []domain.ScenarioEvent{
		{ID: "A"},
		{ID: "A"},
	}

	_, err := Resolve(events)
	if !errors.Is(err, ErrDuplicateEventID) {
		t.Errorf("expected ErrDuplicateEventID, got %v", err)
	}
}

func TestResolve_EmptyScenario(t *testing.T) {
	_, err := Resolve(nil)
	if !errors.Is(err, ErrNoEvents) {
		t.Errorf("expected ErrNoEvents, got %v", err)
	}
}

func TestResolve_EmptyEventID(t *testing.T) {
	events := []domain.ScenarioEvent{
		{ID: "A"},
		{ID: ""},
	}

	_, err := Resolve(events)
	if !errors.Is(err, ErrEmptyEventID) {
		t.Errorf("expected ErrEmptyEventID, got %v", err)
	}
}

func TestDetectCycles_ReportsAllMembers(t *testing.T) {
	events := []domain.ScenarioEvent{
		{ID: "A", DependsOn: []string{"C"}},
		{ID: "B", DependsOn: []string{"A"}},
		{ID: "C", DependsOn: []string{"B"}},
		{ID: "D"},
	}

	g, err := buildGraph(events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ids := g.detectCycles()
	if len(ids) != 3 {
		t.Fatalf("expected 3 cycle members, got %d: %v", len(ids), ids)
	}

	inCycle := make(map[string]bool, len(ids))
	for _, id := range ids {
		inCycle[id] = true
	}
	if !inCycle["A"] || !inCycle["B"] || !inCycle["C"] {
		t.Errorf("expected A, B, C in cycle, got %v", ids)
	}
	if inCycle["D"] {
		t.Error("D should not be reported as cycle member")
	}
}
