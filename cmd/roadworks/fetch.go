package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/roadworks/internal/model"
	"github.com/nao1215/roadworks/internal/pipeline"
)

// NewFetchCmd creates the fetch command.
func NewFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download every XML file linked from the listing page",
		Long: `Fetch reads a saved copy of the dataset listing page, extracts every link
ending in .xml and downloads each one into the download directory.

Relative links are resolved against the base URL and duplicates are
dropped. Files that already exist in the download directory are skipped
without a request, so an interrupted fetch can simply be run again.
A failed download is reported and the remaining files are still fetched.

Examples:
  # Use the default listing page and directories
  roadworks fetch

  # Fetch from another saved page into a custom directory
  roadworks fetch --html page.html -d xml

  # Send an extra header to a mirror
  roadworks fetch -H "Authorization=Bearer <token>"`,
		Args: cobra.NoArgs,
		RunE: runFetchCmd,
	}

	addFetchFlags(cmd)
	addReportFlags(cmd)

	return cmd
}

// runFetchCmd executes the fetch command.
func runFetchCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateFetch(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd, cfg.Verbose)
	out := progressOutput(cmd, cfg)

	step := pipeline.NewFetchStep(newDownloader(cfg, logger, out), cfg.HTMLPath, cfg.BaseURL, cfg.DownloadDir)
	return runSteps(cmd, cfg, logger, model.RunKindFetch, step)
}
