package catalog

import "github.com/hugo-lorenzo-mato/actionrun/internal/core"

// Builtin returns the definitions shipped with the engine.
func Builtin() []core.ActionDefinition {
	return []core.ActionDefinition{
		{
			ID:          "notes:add",
			Name:        "Add note",
			Description: "Attach a free-text note to the lead.",
			Parameters: core.ParamContract{
				Required:  []string{"content"},
				MaxLength: 2000,
			},
		},
		{
			ID:          "call:schedule",
			Name:        "Schedule call",
			Description: "Book an outbound assistant call with the lead.",
			Parameters: core.ParamContract{
				Required: []string{"scheduledAt"},
				Optional: []string{"assistantId", "timezone"},
			},
		},
		{
			ID:          "sms:send",
			Name:        "Send SMS",
			Description: "Send a text message to the lead's phone number.",
			Parameters: core.ParamContract{
				Required:  []string{"message"},
				MaxLength: 160,
			},
		},
		{
			ID:          "lead:tag",
			Name:        "Tag lead",
			Description: "Add a tag to the lead.",
			Parameters: core.ParamContract{
				Required: []string{"tag"},
			},
		},
		{
			ID:          "lead:update_status",
			Name:        "Update lead status",
			Description: "Move the lead to another pipeline status.",
			Parameters: core.ParamContract{
				Required: []string{"status"},
				Enums: map[string][]string{
					"status": {"new", "contacted", "qualified", "won", "lost"},
				},
			},
		},
		{
			ID:          "demo:fail",
			Name:        "Demo failure",
			Description: "Always fails. Used to exercise error handling in the dashboard.",
			Parameters: core.ParamContract{
				AlwaysFail: true,
			},
		},
	}
}

// Default returns a catalog with the built-in actions.
func Default() *Catalog {
	c, err := New(Builtin()...)
	if err != nil {
		panic(err) // builtin ids are unique
	}
	return c
}
