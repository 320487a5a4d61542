package registry

import (
	"sort"

	"modelgw/internal/prompt"
	"modelgw/pkg/types"
)

// Entry pairs a model's metadata with its prompt format.
type Entry struct {
	Model    types.Model
	Template *prompt.Template
}

// Registry is an immutable set of servable models keyed by id.
type Registry struct {
	byID   map[string]Entry
	sorted []types.Model
}

// New builds a registry from entries. A later entry with the same id
// replaces an earlier one.
func New(entries ...Entry) *Registry {
	r := &Registry{byID: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		r.byID[e.Model.ID] = e
	}
	r.sorted = make([]types.Model, 0, len(r.byID))
	for _, e := range r.byID {
		r.sorted = append(r.sorted, e.Model)
	}
	sort.Slice(r.sorted, func(i, j int) bool { return r.sorted[i].ID < r.sorted[j].ID })
	return r
}

// Lookup returns the entry for id.
func (r *Registry) Lookup(id string) (Entry, bool) {
	if r == nil {
		return Entry{}, false
	}
	e, ok := r.byID[id]
	return e, ok
}

// Models returns the registered models sorted by id. The slice is a copy.
func (r *Registry) Models() []types.Model {
	if r == nil {
		return nil
	}
	out := make([]types.Model, len(r.sorted))
	copy(out, r.sorted)
	return out
}

// Len reports the number of registered models.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.byID)
}
