package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/folio/internal/export"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export [collection]",
	Short: "Export stored outlines to an xlsx workbook",
	Long: `Export stored documents and their outline entries to an xlsx workbook
with a Documents sheet and an Outline sheet.

Without a collection every stored document is exported.

Examples:
  folio export W-1 --out w1.xlsx
  folio export                    # writes ~/.folio/exports/all.xlsx`,
	Args: cobra.MaximumNArgs(1),
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

		data, err := export.NewService(s.Repository, s.Logger).CollectionXLSX(cmd.Context(), collection)
		if err != nil {
			return err
		}

		out := exportOut
		if out == "" {
			out = s.Home.ExportPath(collection)
		}
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", out, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", out)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output file (default: {home}/exports/<collection>.xlsx)")
	rootCmd.AddCommand(exportCmd)
}
