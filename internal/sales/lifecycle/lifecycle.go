// Package lifecycle holds the allowed status transitions of quotes and
// orders.
package lifecycle

import (
	"slices"

	"github.com/alvarodevdoo/erp/internal/shared"
)

// Machine is an allowed-transition table over a string status type.
type Machine[S ~string] struct {
	name  string
	edges map[S][]S
}

// NewMachine builds a Machine. Every status must appear as a key, with no
// targets for terminal states.
func NewMachine[S ~string](name string, edges map[S][]S) Machine[S] {
	return Machine[S]{name: name, edges: edges}
}

// Known reports whether s is a status of the machine.
func (m Machine[S]) Known(s S) bool {
	_, ok := m.edges[s]
	return ok
}

// Next lists the statuses reachable from s.
func (m Machine[S]) Next(s S) []S {
	return slices.Clone(m.edges[s])
}

// Terminal reports whether no transition leaves s.
func (m Machine[S]) Terminal(s S) bool {
	return m.Known(s) && len(m.edges[s]) == 0
}

// Check validates the transition from -> to.
func (m Machine[S]) Check(from, to S) error {
	if !m.Known(to) {
		return shared.Validation("unknown %s status %s", m.name, to)
	}
	if from == to {
		return shared.Validation("%s is already %s", m.name, to)
	}
	if !slices.Contains(m.edges[from], to) {
		return shared.Validation("cannot change %s status from %s to %s", m.name, from, to)
	}
	return nil
}
