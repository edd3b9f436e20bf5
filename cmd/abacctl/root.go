// Package main implements abacctl, the engine's CLI, grounded on the
// teacher's cmd/cmd.go rootCmd/subcommand tree and persistent-flag
// pattern.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configFile string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "abacctl",
		Short: "Stateful ABAC policy engine command-line tools",
	}

	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to the config file")
	root.MarkPersistentFlagRequired("config") //nolint:errcheck

	root.AddCommand(newGenerateCmd())
	root.AddCommand(newValidateCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
