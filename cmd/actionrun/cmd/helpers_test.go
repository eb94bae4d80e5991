package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/viper"
)

// execute runs the root command with args inside a fresh working directory
// state and returns what it printed.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	viper.Reset()
	cfgFile = ""
	initForce = false
	actionsJSON = false
	planJSON = false
	planLead = ""
	planSource = ""
	planContext = nil

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}
