package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/actionrun/internal/catalog"
	"github.com/hugo-lorenzo-mato/actionrun/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize actionrun in the current directory",
	Long: `Initialize actionrun in the current directory.
Creates .actionrun/config.yaml and .actionrun/catalog.yaml with the built-in actions.`,
	RunE: runInit,
}

var (
	initForce bool
)

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing configuration")
}

func runInit(cmd *cobra.Command, _ []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, config.DefaultConfigDir)
	configPath := filepath.Join(dir, config.DefaultConfigName+"."+config.DefaultConfigFileExt)
	catalogPath := filepath.Join(dir, config.DefaultCatalogFile)

	if _, err := os.Stat(configPath); err == nil && !initForce {
		return fmt.Errorf("configuration already exists, use --force to overwrite")
	}

	if err := config.AtomicWrite(configPath, []byte(config.DefaultConfigYAML)); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	data, err := catalog.Marshal(catalog.Default())
	if err != nil {
		return fmt.Errorf("encoding catalog: %w", err)
	}
	if err := config.AtomicWrite(catalogPath, data); err != nil {
		return fmt.Errorf("writing catalog: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Initialized actionrun:")
	fmt.Fprintf(out, "  config:  %s\n", configPath)
	fmt.Fprintf(out, "  catalog: %s\n", catalogPath)
	fmt.Fprintln(out, "\nRun 'actionrun serve' to start the API.")
	return nil
}
