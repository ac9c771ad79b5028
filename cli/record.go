package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRecordCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Inspect stored records",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list <model>",
		Short: "Print the records of a model, one JSON document per line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			records, err := a.service.ListRecords(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, record := range records {
				fmt.Fprintln(cmd.OutOrStdout(), string(record))
			}
			return nil
		},
	})
	return cmd
}
