package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/folio/internal/api"
	"github.com/jackzampolin/folio/internal/config"
	"github.com/jackzampolin/folio/internal/home"
	"github.com/jackzampolin/folio/internal/svcctx"
	"github.com/jackzampolin/folio/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
	logLevel     string

	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "folio",
	Short: "Table of contents extraction for technical report PDFs",
	Long: `Folio extracts and validates the table of contents of PDF reports.

Each document is classified as native or scanned and routed through a
cascade of extraction tiers:
  - Pattern parsers over the embedded text layer
  - Vision extraction of the outline pages
  - Pattern parsers over OCR text
  - LLM reconstruction of scrambled OCR outlines

Every accepted outline is validated and repaired against the document's
page count before it is stored.`,
	Version:       version.GitRelease,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := api.SetOutputFormat(outputFormat); err != nil {
			return err
		}
		var level slog.Level
		if err := level.UnmarshalText([]byte(logLevel)); err != nil {
			return fmt.Errorf("invalid --log-level: %w", err)
		}
		// Logs go to stderr so structured output on stdout stays parseable.
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.folio/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "folio home directory (default: $FOLIO_HOME or ~/.folio)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "info", "log level: debug, info, warn or error",
	)

	rootCmd.AddCommand(versionCmd)
}

func getHome() (*home.Dir, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, err
	}
	if err := h.EnsureExists(); err != nil {
		return nil, err
	}
	return h, nil
}

// loadServices builds the services for a command. The caller closes them.
func loadServices(cmd *cobra.Command) (*svcctx.Services, error) {
	h, err := getHome()
	if err != nil {
		return nil, err
	}

	path := cfgFile
	if path == "" && h.ConfigExists() {
		path = h.ConfigPath()
	}
	mgr, err := config.NewManager(path)
	if err != nil {
		return nil, err
	}

	s, err := svcctx.New(cmd.Context(), mgr, h, logger)
	if err != nil {
		return nil, err
	}
	cmd.SetContext(svcctx.WithServices(cmd.Context(), s))
	logger.Debug("services ready",
		"config", mgr.ConfigFileUsed(),
		"storage", mgr.Get().Storage.Driver,
		"llm", s.Registry.ListLLM(),
		"vision", s.Registry.ListVision(),
		"ocr", s.Registry.ListOCR())
	return s, nil
}
