package main

import (
	"github.com/spf13/cobra"

	"github.com/pslima001/govy-function-current-sub002/model"
	"github.com/pslima001/govy-function-current-sub002/pkg/logger"
)

type extractOutput struct {
	DocumentRef string         `json:"document_ref"`
	Results     []model.Result `json:"results"`
}

func newExtractCommand(opts *rootOptions) *cobra.Command {
	var (
		in     inputFiles
		params []string
		outDir string
		format string
	)

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract parameters and print them as JSON",
		Long: `Runs the parameter extractors over local files. When more than two table
sources are given only the first two (content list, layout, docx order) are
read.`,
		Example: `  # All parameters from plain text
  editalctl extract --text edital.txt

  # Deadlines only, with layout tables for the delivery locations
  editalctl extract --text edital.txt --layout edital_parsed.json --params e001,pg001,l001`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc, sources, err := in.document()
			if err != nil {
				return err
			}
			ex, err := opts.extraction(sources, outDir, format)
			if err != nil {
				return err
			}

			ctx := logger.WithDocument(cmd.Context(), doc.Ref)
			results, err := ex.Extract(ctx, doc, params)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), extractOutput{DocumentRef: doc.Ref, Results: results})
		},
	}

	in.addFlags(cmd)
	cmd.Flags().StringSliceVar(&params, "params", nil, "Parameter ids to extract (default: all)")
	cmd.Flags().StringVar(&outDir, "out", "exports", "Directory for overflow files")
	cmd.Flags().StringVar(&format, "format", "", "Overflow file format: txt or xlsx")

	return cmd
}
