package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/folio/internal/api"
	"github.com/jackzampolin/folio/internal/outline"
)

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a stored document",
	Long: `Print a stored document and its outline.

The id is the document's path relative to the batch root.

Examples:
  folio show W-1/completion.pdf
  folio show W-1/completion.pdf -o json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadServices(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		doc, err := s.Repository.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return api.OutputTo(cmd.OutOrStdout(), api.GetOutputFormat(), doc)
	},
}

// listEntry is one row of `folio list`.
type listEntry struct {
	ID         string  `json:"id" yaml:"id"`
	Collection string  `json:"collection,omitempty" yaml:"collection,omitempty"`
	Method     string  `json:"method" yaml:"method"`
	Entries    int     `json:"entries" yaml:"entries"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
	Pages      int     `json:"pages" yaml:"pages"`
}

var listCmd = &cobra.Command{
	Use:   "list [collection]",
	Short: "List stored documents",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadServices(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		var collection string
		if len(args) == 1 {
			collection = args[0]
		}
		docs, err := s.Repository.List(cmd.Context(), collection)
		if err != nil {
			return err
		}
		return api.OutputTo(cmd.OutOrStdout(), api.GetOutputFormat(), toListEntries(docs))
	},
}

func toListEntries(docs []*outline.Document) []listEntry {
	out := make([]listEntry, len(docs))
	for i, d := range docs {
		out[i] = listEntry{
			ID:         d.ID,
			Collection: d.CollectionID,
			Method:     d.Method,
			Entries:    len(d.Entries),
			Confidence: d.Confidence,
			Pages:      d.TotalPages,
		}
	}
	return out
}

func init() {
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(listCmd)
}
