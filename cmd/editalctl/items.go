package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pslima001/govy-function-current-sub002/items"
	"github.com/pslima001/govy-function-current-sub002/model"
	"github.com/pslima001/govy-function-current-sub002/pkg/logger"
)

type itemsOutput struct {
	DocumentRef string `json:"document_ref"`
	items.Result
}

func newItemsCommand(opts *rootOptions) *cobra.Command {
	var (
		in    inputFiles
		trace bool
	)

	cmd := &cobra.Command{
		Use:     "items",
		Short:   "Run the three-layer item consensus and print it as JSON",
		Example: `  editalctl items --layout edital_parsed.json --docx edital.docx --text edital.txt`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc, sources, err := in.document()
			if err != nil {
				return err
			}
			ex, err := opts.extraction(sources, "", "")
			if err != nil {
				return err
			}

			ctx := logger.WithDocument(cmd.Context(), doc.Ref)
			res, err := ex.ExtractItems(ctx, doc)
			if err != nil {
				return err
			}
			if res.Items == nil {
				res.Items = []model.ConsensusItem{}
			}
			if trace {
				states := make([]string, len(res.Trace))
				for i, s := range res.Trace {
					states[i] = s.String()
				}
				fmt.Fprintln(cmd.ErrOrStderr(), "trace:", strings.Join(states, " -> "))
			}
			return printJSON(cmd.OutOrStdout(), itemsOutput{DocumentRef: doc.Ref, Result: res})
		},
	}

	in.addFlags(cmd)
	cmd.Flags().BoolVar(&trace, "trace", false, "Print the extraction state trace to stderr")

	return cmd
}
