package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/folio/internal/api"
	"github.com/jackzampolin/folio/internal/config"
	"github.com/jackzampolin/folio/internal/jobs"
	"github.com/jackzampolin/folio/internal/outline"
	"github.com/jackzampolin/folio/internal/svcctx"
)

var (
	batchCollection  string
	batchForce       bool
	batchWatchConfig bool
	batchWorkers     int
)

var batchCmd = &cobra.Command{
	Use:   "batch <dir>",
	Short: "Extract outlines for every PDF under a directory",
	Long: `Extract the table of contents of every PDF under a directory and store
the results in the repository.

Documents are keyed by their path relative to <dir>. Documents already in
the repository are skipped unless --force is set. A document that cannot be
read is reported and the batch continues.

Examples:
  folio batch ./reports
  folio batch ./reports --force --workers 4
  folio batch ./reports --watch-config   # pick up config edits mid-run`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadServices(cmd)
		if err != nil {
			return err
		}
		defer s.Close()
		ctx := cmd.Context()

		root, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		paths, err := findPDFs(root)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			return fmt.Errorf("no PDF files under %s", root)
		}

		if batchWatchConfig {
			s.Config.OnChange(func(cfg *config.Config) {
				if err := s.Reload(cfg); err != nil {
					s.Logger.Error("config reload failed", "error", err)
				}
			})
			s.Config.WatchConfig()
		}

		pool := s.Pool
		if batchWorkers > 0 {
			pool = jobs.NewBatchPool(jobs.BatchPoolConfig{Name: "documents", Logger: s.Logger, WorkerCount: batchWorkers})
		}

		s.Logger.Info("batch starting", "root", root, "documents", len(paths), "workers", pool.Status().Workers)
		start := time.Now()
		docs, results := runBatch(ctx, pool, root, paths)

		summary := api.NewBatchSummary()
		for i, r := range results {
			summary.Add(r.ID, docs[i], r.Err)
		}
		summary.Duration = time.Since(start)

		if cmd.Flags().Changed("output") {
			if err := api.OutputTo(cmd.OutOrStdout(), api.GetOutputFormat(), summary); err != nil {
				return err
			}
		} else {
			api.FormatBatchSummary(cmd.OutOrStdout(), summary)
		}
		return ctx.Err()
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchCollection, "collection", "", "collection (well) id for every document (default: first directory under <dir>)")
	batchCmd.Flags().BoolVar(&batchForce, "force", false, "re-extract documents already in the repository")
	batchCmd.Flags().BoolVar(&batchWatchConfig, "watch-config", false, "reload providers and thresholds when the config file changes")
	batchCmd.Flags().IntVar(&batchWorkers, "workers", 0, "worker count (default: defaults.max_workers or cores - 2)")
	rootCmd.AddCommand(batchCmd)
}

// runBatch extracts every path on pool using the services attached to ctx.
// Each document picks up the controller current when it starts, so a config
// reload applies to the rest of the batch. docs[i] is nil for skipped or
// failed documents.
func runBatch(ctx context.Context, pool *jobs.BatchPool, root string, paths []string) ([]*outline.Document, []jobs.ItemResult) {
	repo := svcctx.RepositoryFrom(ctx)
	logger := svcctx.LoggerFrom(ctx)
	docs := make([]*outline.Document, len(paths))
	items := make([]jobs.Item, len(paths))
	for i, path := range paths {
		id := outline.NewDocument(root, path, 0).ID
		items[i] = jobs.Item{
			ID: id,
			Run: func(ctx context.Context) error {
				if !batchForce {
					_, err := repo.Get(ctx, id)
					if err == nil {
						logger.Debug("already extracted", "doc_id", id)
						return nil
					}
					if !errors.Is(err, outline.ErrNotFound) {
						return err
					}
				}

				doc, err := extractFile(ctx, svcctx.ControllerFrom(ctx), root, path, collectionFor(batchCollection, root, id))
				if err != nil {
					return err
				}
				if err := repo.Put(ctx, doc); err != nil {
					return fmt.Errorf("save %s: %w", id, err)
				}
				docs[i] = doc
				return nil
			},
		}
	}
	results := pool.Run(ctx, items)
	for _, r := range results {
		if r.Err != nil {
			logger.Warn("document failed", "doc_id", r.ID, "error", r.Err)
		}
	}
	return docs, results
}

// findPDFs returns every *.pdf under root, sorted.
func findPDFs(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".pdf") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	sort.Strings(paths)
	return paths, nil
}
