package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pslima001/govy-function-current-sub002/config"
	"github.com/pslima001/govy-function-current-sub002/export"
	"github.com/pslima001/govy-function-current-sub002/pkg/logger"
	"github.com/pslima001/govy-function-current-sub002/service"
)

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	rulesPath string
	logLevel  string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "editalctl",
		Short: "Extract procurement parameters from edital files",
		Long: `editalctl runs the edital extraction engine over local files: plain text,
MinerU content lists, parsed layouts and DOCX documents. Results are printed
to stdout as JSON; logs go to stderr.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			logger.Init(&logger.Config{
				Level:  opts.logLevel,
				Format: "text",
				Output: cmd.ErrOrStderr(),
			})
		},
	}

	cmd.PersistentFlags().StringVar(&opts.rulesPath, "rules", "", "Rules file (default: embedded rules)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")

	cmd.AddCommand(
		newExtractCommand(opts),
		newItemsCommand(opts),
		newRulesCommand(opts),
	)
	return cmd
}

// extraction compiles the rules over the given sources. Overflow files are
// written under outDir.
func (o *rootOptions) extraction(sources service.Sources, outDir, format string) (*service.Extraction, error) {
	rules, err := config.LoadRules(o.rulesPath)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	cfg := config.Default().Extraction
	if format != "" {
		cfg.ExportFormat = format
	}
	return service.NewExtraction(rules, cfg, sources, export.DirSink{Dir: outDir})
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
