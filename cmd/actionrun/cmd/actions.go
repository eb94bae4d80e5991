package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var actionsJSON bool

var actionsCmd = &cobra.Command{
	Use:   "actions",
	Short: "List the action catalog",
	RunE:  runActions,
}

func init() {
	rootCmd.AddCommand(actionsCmd)
	actionsCmd.Flags().BoolVar(&actionsJSON, "json", false, "print the catalog as JSON")
}

func runActions(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cat, err := loadCatalog(cfg.Catalog.Path)
	if err != nil {
		return err
	}

	defs := cat.List()
	out := cmd.OutOrStdout()

	if actionsJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(defs)
	}

	st := newStyles(out)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tREQUIRED\tDESCRIPTION")
	for _, d := range defs {
		required := strings.Join(d.Parameters.Required, ",")
		if required == "" {
			required = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.ID, d.Name, required, d.Description)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(out, st.muted.Render(fmt.Sprintf("%d actions", len(defs))))
	return nil
}
