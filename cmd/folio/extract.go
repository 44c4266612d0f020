package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/folio/internal/api"
	"github.com/jackzampolin/folio/internal/outline"
	"github.com/jackzampolin/folio/internal/pdfutil"
	"github.com/jackzampolin/folio/internal/router"
)

var (
	extractCollection string
	extractSave       bool
)

var extractCmd = &cobra.Command{
	Use:   "extract <pdf>",
	Short: "Extract the table of contents of one PDF",
	Long: `Extract the table of contents of a single PDF and print the document.

The collection groups documents for export and selects per-collection
category keywords. It defaults to the name of the file's directory.

Examples:
  folio extract report.pdf
  folio extract W-1/completion.pdf -o json
  folio extract report.pdf --collection W-1 --save`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadServices(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		path, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		collection := extractCollection
		if collection == "" {
			collection = filepath.Base(filepath.Dir(path))
		}

		doc, err := extractFile(cmd.Context(), s.Controller(), "", path, collection)
		if err != nil {
			return err
		}
		if extractSave {
			if err := s.Repository.Put(cmd.Context(), doc); err != nil {
				return fmt.Errorf("save %s: %w", doc.ID, err)
			}
		}
		return api.OutputTo(cmd.OutOrStdout(), api.GetOutputFormat(), doc)
	},
}

func init() {
	extractCmd.Flags().StringVar(&extractCollection, "collection", "", "collection (well) id")
	extractCmd.Flags().BoolVar(&extractSave, "save", false, "store the result in the repository")
	rootCmd.AddCommand(extractCmd)
}

// extractFile counts the pages of path and runs the controller over it.
func extractFile(ctx context.Context, ctrl *router.Controller, root, path, collection string) (*outline.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", path, outline.ErrUnreadable, err)
	}
	doc := outline.NewDocument(root, path, info.Size())
	doc.CollectionID = collection

	pages, err := pdfutil.PageCount(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", doc.ID, outline.ErrUnreadable, err)
	}
	return ctrl.ExtractOutline(ctx, doc, pages)
}

// collectionFor picks the collection of a batch document: the explicit flag,
// else the first directory of its id, else the batch root's name.
func collectionFor(flag, root, id string) string {
	if flag != "" {
		return flag
	}
	if i := strings.IndexByte(id, '/'); i > 0 {
		return id[:i]
	}
	return filepath.Base(root)
}
