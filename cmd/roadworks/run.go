package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/roadworks/internal/model"
	"github.com/nao1215/roadworks/internal/pipeline"
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch the dataset, then sort the downloaded files",
		Long: `Run performs fetch followed by sort. The sorter reads the download
directory, so after a successful run the download directory is empty and
every file sits in its format directory.

If the listing page cannot be read, nothing is sorted.

Examples:
  roadworks run
  roadworks run --html page.html --markdown -o report.md`,
		Args: cobra.NoArgs,
		RunE: runRunCmd,
	}

	addFetchFlags(cmd)
	addSortFlags(cmd)
	addReportFlags(cmd)

	return cmd
}

// runRunCmd executes the run command.
func runRunCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	cfg.SourceDir = cfg.DownloadDir

	if err := cfg.ValidateFetch(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if err := cfg.ValidateSort(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd, cfg.Verbose)
	out := progressOutput(cmd, cfg)

	return runSteps(cmd, cfg, logger, model.RunKindAll,
		pipeline.NewFetchStep(newDownloader(cfg, logger, out), cfg.HTMLPath, cfg.BaseURL, cfg.DownloadDir),
		pipeline.NewSortStep(newSorter(logger, out),
			cfg.SourceDir, cfg.NewFormatDir, cfg.OldFormatDir, cfg.UnknownFormatDir),
	)
}
