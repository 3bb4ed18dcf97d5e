// Package roster holds the current set of representatives and applies
// operator edits. Mutations are all-or-nothing: a rejected edit leaves
// the roster exactly as it was. The orchestrator only invokes mutations
// between windows, never while a solve is in flight.
package roster

import (
	"sort"

	"appointment-dispatch/errors"
	"appointment-dispatch/models"
)

type Manager struct {
	reps map[string]*models.Representative
}

// NewManager builds a roster from the initial import. Representatives
// start at their home location. Duplicate identifiers in the import are
// rejected the same way a duplicate add is.
func NewManager(initial []*models.Representative) (*Manager, error) {
	m := &Manager{reps: make(map[string]*models.Representative, len(initial))}
	for _, rep := range initial {
		if err := m.Add(rep); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Add inserts a representative, positioning it at its home location.
func (m *Manager) Add(rep *models.Representative) error {
	if _, exists := m.reps[rep.ID]; exists {
		return &errors.DuplicateIdentifierError{ID: rep.ID}
	}
	rep.Location = rep.Home
	m.reps[rep.ID] = rep
	return nil
}

// Remove deletes every named representative, or none: if any identifier
// is unknown the whole edit is rejected and the error reports all
// missing names.
func (m *Manager) Remove(ids []string) error {
	var missing []string
	for _, id := range ids {
		if _, ok := m.reps[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &errors.UnknownIdentifierError{Missing: missing}
	}
	for _, id := range ids {
		delete(m.reps, id)
	}
	return nil
}

// AvailableFor returns the representatives whose availability flag for w
// is set, in ascending identifier order. Representatives removed by an
// earlier edit are gone from the roster and so never appear.
func (m *Manager) AvailableFor(w models.TimeWindow) []*models.Representative {
	var out []*models.Representative
	for _, rep := range m.reps {
		if rep.AvailableFor(w) {
			out = append(out, rep)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Get returns the representative with the given identifier, if present.
func (m *Manager) Get(id string) (*models.Representative, bool) {
	rep, ok := m.reps[id]
	return rep, ok
}

// All returns every representative in ascending identifier order.
func (m *Manager) All() []*models.Representative {
	out := make([]*models.Representative, 0, len(m.reps))
	for _, rep := range m.reps {
		out = append(out, rep)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Size reports the current roster size.
func (m *Manager) Size() int {
	return len(m.reps)
}
