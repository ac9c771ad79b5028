// Package cli implements the daybed command line.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is reported by the version command and the hello endpoint. It is
// set at build time.
var Version = "dev"

type globalOptions struct {
	configPath string
}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "daybed",
		Short: "Schema-driven JSON document store",
		Long: `daybed stores JSON records validated against client supplied model definitions.

Register a model with PUT /definition/{model}, keep the returned token to
redefine it later, then POST and GET records on /{model}.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to the configuration file (default: ./daybed.yaml)")

	rootCmd.AddCommand(newServeCommand(opts))
	rootCmd.AddCommand(newDefinitionCommand(opts))
	rootCmd.AddCommand(newRecordCommand(opts))
	rootCmd.AddCommand(newMigrateCommand(opts))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "daybed %s\n", Version)
		},
	}
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}
