package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/actionrun/internal/engine"
	"github.com/hugo-lorenzo-mato/actionrun/internal/logging"
)

// planOwner scopes offline previews; no run is ever stored under it.
const planOwner = "cli"

var (
	planLead    string
	planSource  string
	planContext []string
	planJSON    bool
)

var planCmd = &cobra.Command{
	Use:   "plan <actionType>",
	Short: "Preview what executing an action would do",
	Long: `Preview an execute request against the catalog without creating a run.

Context values are given as key=value pairs:
  actionrun plan draft_email --lead L-42 --context tone=formal`,
	Args: cobra.ExactArgs(1),
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.Flags().StringVar(&planLead, "lead", "", "lead id the action targets")
	planCmd.Flags().StringVar(&planSource, "source", "", "request source (default from config)")
	planCmd.Flags().StringArrayVar(&planContext, "context", nil, "context value as key=value (repeatable)")
	planCmd.Flags().BoolVar(&planJSON, "json", false, "print the plan as JSON")
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	reqCtx, err := parseContextPairs(planContext)
	if err != nil {
		return err
	}

	a, err := buildApp(cfg, logging.NewNop())
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	plan, err := a.engine.Plan(cmd.Context(), planOwner, engine.ExecuteRequest{
		ActionType: args[0],
		Source:     planSource,
		LeadID:     planLead,
		Context:    reqCtx,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if planJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(plan)
	}

	st := newStyles(out)
	fmt.Fprintln(out, st.title.Render(plan.Summary))
	for i, step := range plan.Steps {
		fmt.Fprintf(out, "  %d. %s\n", i+1, step)
	}
	if len(plan.Warnings) > 0 {
		fmt.Fprintln(out, st.warn.Render("Warnings:"))
		for _, w := range plan.Warnings {
			fmt.Fprintf(out, "  - %s\n", w)
		}
	}
	if len(plan.Suggestions) > 0 {
		fmt.Fprintf(out, "%s %s\n", st.hint.Render("Did you mean:"), strings.Join(plan.Suggestions, ", "))
	}
	return nil
}

// parseContextPairs turns key=value flags into a context map. "true" and
// "false" become booleans.
func parseContextPairs(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --context %q, expected key=value", p)
		}
		switch v {
		case "true":
			out[k] = true
		case "false":
			out[k] = false
		default:
			out[k] = v
		}
	}
	return out, nil
}
