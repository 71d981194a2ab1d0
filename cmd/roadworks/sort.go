package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/roadworks/internal/config"
	"github.com/nao1215/roadworks/internal/model"
	"github.com/nao1215/roadworks/internal/pipeline"
)

// NewSortCmd creates the sort command.
func NewSortCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sort",
		Short: "Move XML files into directories by publication format",
		Long: `Sort reads the root element of every .xml file in the source directory
and moves the file into one of three directories:

  <Report>                new format directory
  <ha_planned_roadworks>  old format directory
  anything else           unknown format directory

Namespaces are ignored when matching the root element. Files that cannot
be parsed go to the unknown format directory. A file whose name is already
taken in the destination is stored with a numeric suffix, so nothing is
overwritten.

Examples:
  # Sort the default download directory
  roadworks sort

  # Sort another directory
  roadworks sort -s incoming --new-dir v2 --old-dir v1 --unknown-dir other`,
		Args: cobra.NoArgs,
		RunE: runSortCmd,
	}

	cmd.Flags().StringP("source-dir", "s", config.DefaultDownloadDir,
		"Directory containing the XML files to sort")
	addSortFlags(cmd)
	addReportFlags(cmd)

	return cmd
}

// runSortCmd executes the sort command.
func runSortCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateSort(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd, cfg.Verbose)
	out := progressOutput(cmd, cfg)

	step := pipeline.NewSortStep(newSorter(logger, out),
		cfg.SourceDir, cfg.NewFormatDir, cfg.OldFormatDir, cfg.UnknownFormatDir)
	return runSteps(cmd, cfg, logger, model.RunKindSort, step)
}
