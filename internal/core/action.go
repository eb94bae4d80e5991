package core

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"unicode/utf8"
)

// ActionDefinition describes an executable assistant action.
type ActionDefinition struct {
	ID          string        `json:"id" yaml:"id"`
	Name        string        `json:"name" yaml:"name"`
	Description string        `json:"description" yaml:"description"`
	Parameters  ParamContract `json:"parameters" yaml:"parameters"`
}

// ParamContract is the declared parameter contract of an action.
type ParamContract struct {
	Required   []string            `json:"required,omitempty" yaml:"required,omitempty"`
	Optional   []string            `json:"optional,omitempty" yaml:"optional,omitempty"`
	Enums      map[string][]string `json:"enums,omitempty" yaml:"enums,omitempty"`
	MaxLength  int                 `json:"maxLength,omitempty" yaml:"max_length,omitempty"`
	AlwaysFail bool                `json:"alwaysFail,omitempty" yaml:"always_fail,omitempty"`
}

// Clone returns a deep copy of the definition.
func (d ActionDefinition) Clone() ActionDefinition {
	cp := d
	cp.Parameters.Required = slices.Clone(d.Parameters.Required)
	cp.Parameters.Optional = slices.Clone(d.Parameters.Optional)
	if d.Parameters.Enums != nil {
		cp.Parameters.Enums = make(map[string][]string, len(d.Parameters.Enums))
		for k, v := range d.Parameters.Enums {
			cp.Parameters.Enums[k] = slices.Clone(v)
		}
	}
	return cp
}

// Validate checks a request context against the contract and returns
// human-readable warnings. An empty slice means the context satisfies it.
func (c ParamContract) Validate(ctx map[string]any) []string {
	var warnings []string

	for _, field := range c.Required {
		v, ok := ctx[field]
		if !ok || v == nil || v == "" {
			warnings = append(warnings, fmt.Sprintf("missing required field %q", field))
		}
	}

	for _, field := range slices.Sorted(maps.Keys(c.Enums)) {
		v, ok := ctx[field]
		if !ok {
			continue
		}
		s := fmt.Sprint(v)
		if !slices.Contains(c.Enums[field], s) {
			warnings = append(warnings, fmt.Sprintf("field %q must be one of: %s (got %q)",
				field, strings.Join(c.Enums[field], ", "), s))
		}
	}

	if c.MaxLength > 0 {
		for _, field := range slices.Sorted(maps.Keys(ctx)) {
			if s, ok := ctx[field].(string); ok && utf8.RuneCountInString(s) > c.MaxLength {
				warnings = append(warnings, fmt.Sprintf("field %q exceeds %d characters", field, c.MaxLength))
			}
		}
	}

	return warnings
}
