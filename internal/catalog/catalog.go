// Package catalog holds the registry of assistant actions that runs can execute.
package catalog

import (
	"fmt"
	"slices"

	"github.com/hugo-lorenzo-mato/actionrun/internal/core"
)

// Catalog is an immutable registry of action definitions.
// It is built once at startup and only read afterwards, so it needs no locking.
type Catalog struct {
	order []string
	defs  map[string]core.ActionDefinition
}

var _ core.ActionLookup = (*Catalog)(nil)

// New builds a catalog from the given definitions in order.
// Empty and duplicate ids are rejected.
func New(defs ...core.ActionDefinition) (*Catalog, error) {
	c := &Catalog{
		order: make([]string, 0, len(defs)),
		defs:  make(map[string]core.ActionDefinition, len(defs)),
	}
	for _, d := range defs {
		if d.ID == "" {
			return nil, core.ErrValidation(core.CodeInvalidAction, "action id is required")
		}
		if _, exists := c.defs[d.ID]; exists {
			return nil, core.ErrValidation(core.CodeDuplicateAction,
				fmt.Sprintf("duplicate action id %q", d.ID))
		}
		if d.Name == "" {
			d.Name = d.ID
		}
		c.order = append(c.order, d.ID)
		c.defs[d.ID] = d.Clone()
	}
	return c, nil
}

// List returns a copy of every definition in catalog order.
func (c *Catalog) List() []core.ActionDefinition {
	out := make([]core.ActionDefinition, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.defs[id].Clone())
	}
	return out
}

// Find returns the definition with the exact id. A miss is reported via ok.
func (c *Catalog) Find(id string) (core.ActionDefinition, bool) {
	d, ok := c.defs[id]
	if !ok {
		return core.ActionDefinition{}, false
	}
	return d.Clone(), true
}

// IDs returns the action ids in catalog order.
func (c *Catalog) IDs() []string {
	return slices.Clone(c.order)
}

// Len returns the number of actions.
func (c *Catalog) Len() int {
	return len(c.order)
}
