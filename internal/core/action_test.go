package core

import (
	"strings"
	"testing"
)

func TestParamContract_Validate(t *testing.T) {
	contract := ParamContract{
		Required:  []string{"content"},
		Enums:     map[string][]string{"priority": {"low", "high"}},
		MaxLength: 10,
	}

	tests := []struct {
		name     string
		ctx      map[string]any
		wantWarn []string
	}{
		{"valid", map[string]any{"content": "hello", "priority": "low"}, nil},
		{"missing required", map[string]any{}, []string{`missing required field "content"`}},
		{"bad enum", map[string]any{"content": "hi", "priority": "urgent"}, []string{`field "priority" must be one of`}},
		{"too long", map[string]any{"content": "hello world!"}, []string{`field "content" exceeds 10 characters`}},
		{"multibyte at limit", map[string]any{"content": "héllo wörl"}, nil},
		{"multibyte over limit", map[string]any{"content": "héllo wörld"}, []string{`field "content" exceeds 10 characters`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := contract.Validate(tt.ctx)
			if len(got) != len(tt.wantWarn) {
				t.Fatalf("got %d warnings %v, want %d", len(got), got, len(tt.wantWarn))
			}
			for i, want := range tt.wantWarn {
				if !strings.Contains(got[i], want) {
					t.Errorf("warning %d = %q, want it to contain %q", i, got[i], want)
				}
			}
		})
	}
}

func TestActionDefinition_Clone(t *testing.T) {
	def := ActionDefinition{
		ID: "lead:update_status",
		Parameters: ParamContract{
			Required: []string{"status"},
			Enums:    map[string][]string{"status": {"new", "lost"}},
		},
	}
	cp := def.Clone()
	cp.Parameters.Required[0] = "other"
	cp.Parameters.Enums["status"][0] = "won"

	if def.Parameters.Required[0] != "status" || def.Parameters.Enums["status"][0] != "new" {
		t.Fatal("clone shares slices with the original")
	}
}
