package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/asaidimu/go-daybed/config"
)

func newMigrateCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending SQL migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			switch a.config.Store.Driver {
			case config.DriverSQLite, config.DriverPostgres:
				fmt.Fprintf(cmd.OutOrStdout(), "%s store is up to date\n", a.config.Store.Driver)
			default:
				fmt.Fprintf(cmd.OutOrStdout(), "%s store has no migrations\n", a.config.Store.Driver)
			}
			return nil
		},
	}
}
