package statemachine

import "fmt"

// State is one phase of an entity's lifecycle. Next inspects the entity
// and returns the phase it has already moved on to, or nil when the
// entity rests in this one.
type State[T any] struct {
	Name string
	Next func(*T) *State[T]
}

// Machine derives the current phase of an entity from its data by walking
// state functions from a fixed start.
type Machine[T any] struct {
	start    *State[T]
	maxSteps int
}

// New creates a machine that starts every walk at start. maxSteps bounds a
// walk; 0 allows 64 transitions.
func New[T any](start *State[T], maxSteps int) *Machine[T] {
	if maxSteps <= 0 {
		maxSteps = 64
	}
	return &Machine[T]{start: start, maxSteps: maxSteps}
}

// Settle returns the phase entity rests in together with the phases
// passed through on the way, start first.
func (m *Machine[T]) Settle(entity *T) (*State[T], []string, error) {
	cur := m.start
	path := []string{cur.Name}
	for i := 0; i < m.maxSteps; i++ {
		if cur.Next == nil {
			return cur, path, nil
		}
		next := cur.Next(entity)
		if next == nil {
			return cur, path, nil
		}
		cur = next
		path = append(path, cur.Name)
	}
	return cur, path, fmt.Errorf("statemachine: no resting phase after %d steps from %s", m.maxSteps, m.start.Name)
}
