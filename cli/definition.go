package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newDefinitionCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "definition",
		Short: "Read and write model definitions",
	}
	cmd.AddCommand(newDefinitionGetCommand(opts))
	cmd.AddCommand(newDefinitionPutCommand(opts))
	return cmd
}

func newDefinitionGetCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <model>",
		Short: "Print the stored definition of a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			definition, err := a.service.Definition(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(definition))
			return nil
		},
	}
}

func newDefinitionPutCommand(opts *globalOptions) *cobra.Command {
	var file, token string

	cmd := &cobra.Command{
		Use:   "put <model>",
		Short: "Create or replace a model definition",
		Long: `Create or replace a model definition from a JSON or YAML file and print
the model's token. Replacing an existing definition requires --token.`,
		Example: `  daybed definition put books --file books.yaml
  daybed definition put books --file books.json --token 0123456789abcdef`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			definition, err := readDefinitionFile(file)
			if err != nil {
				return err
			}

			a, err := loadApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			issued, err := a.service.DefineModel(cmd.Context(), args[0], definition, token)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), issued)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "definition file (.json, .yaml or .yml)")
	cmd.Flags().StringVarP(&token, "token", "t", "", "token of the model, required to replace a definition")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// readDefinitionFile returns the definition in path as JSON. YAML files are
// converted; JSON files are passed through untouched.
func readDefinitionFile(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var value any
		if err := yaml.Unmarshal(raw, &value); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		out, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("failed to convert %s to JSON: %w", path, err)
		}
		return out, nil
	}
	return raw, nil
}
