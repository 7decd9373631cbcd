package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownCatalog is returned when a catalog id is not registered.
var ErrUnknownCatalog = errors.New("unknown catalog")

// Definition binds a catalog id to the adapter that populates it.
type Definition struct {
	ID      string
	Name    string
	Adapter Adapter
	Limit   int
}

// Registry is the read-only catalog table, built once at start-up.
type Registry struct {
	byID  map[string]Definition
	order []string
}

func NewRegistry(defs ...Definition) (*Registry, error) {
	byID := make(map[string]Definition, len(defs))
	order := make([]string, 0, len(defs))
	for _, d := range defs {
		d.ID = strings.TrimSpace(d.ID)
		if d.ID == "" {
			return nil, fmt.Errorf("catalog id must not be empty")
		}
		if d.Adapter == nil {
			return nil, fmt.Errorf("catalog %q: adapter must not be nil", d.ID)
		}
		if d.Limit <= 0 {
			return nil, fmt.Errorf("catalog %q: limit must be positive, got %d", d.ID, d.Limit)
		}
		if _, ok := byID[d.ID]; ok {
			return nil, fmt.Errorf("duplicate catalog %q", d.ID)
		}
		if d.Name == "" {
			d.Name = d.ID
		}
		byID[d.ID] = d
		order = append(order, d.ID)
	}
	return &Registry{byID: byID, order: order}, nil
}

// Lookup never fails loudly: unknown ids report ok=false.
func (r *Registry) Lookup(id string) (Definition, bool) {
	if r == nil {
		return Definition{}, false
	}
	d, ok := r.byID[id]
	return d, ok
}

func (r *Registry) Has(id string) bool {
	_, ok := r.Lookup(id)
	return ok
}

// IDs returns catalog ids in registration order.
func (r *Registry) IDs() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.order...)
}

// Definitions returns every definition in registration order.
func (r *Registry) Definitions() []Definition {
	if r == nil {
		return nil
	}
	out := make([]Definition, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}
