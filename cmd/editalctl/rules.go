package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pslima001/govy-function-current-sub002/config"
	"github.com/pslima001/govy-function-current-sub002/service"
)

func newRulesCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect extraction rules",
	}
	cmd.AddCommand(newRulesValidateCommand(opts), newRulesShowCommand())
	return cmd
}

// newRulesValidateCommand checks the rules file against the schema and
// compiles every pattern.
func newRulesValidateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "validate",
		Short:   "Validate a rules file",
		Example: `  editalctl rules validate --rules rules.yaml`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ex, err := opts.extraction(service.Sources{}, "", "")
			if err != nil {
				return fmt.Errorf("invalid rules: %w", err)
			}
			source := opts.rulesPath
			if source == "" {
				source = "embedded rules"
			}
			ids := ex.Parameters()
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok, %d parameters (%s)\n", source, len(ids), strings.Join(ids, ", "))
			return nil
		},
	}
}

func newRulesShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the embedded default rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := cmd.OutOrStdout().Write(config.DefaultRules())
			return err
		},
	}
}
