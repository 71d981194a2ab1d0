package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/nao1215/roadworks/internal/database"
)

// defaultHistoryLimit is the number of runs listed when --limit is not given.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show previous runs from the run ledger",
		Long: `History lists the runs recorded in the run ledger, newest first.

With a run ID, the stored report of that run is printed in full. Any
unique prefix of the ID is accepted.

With --url, every recorded download attempt of that URL is listed.

Examples:
  # List recent runs
  roadworks history

  # Show one run as Markdown
  roadworks history 3f2c9a1b --markdown

  # See whether a file has been failing
  roadworks history --url https://example.org/roadworks_2016_01_04.xml`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Maximum number of runs to list (0 for all)")
	cmd.Flags().String("url", "",
		"List the recorded download attempts of a URL")
	cmd.Flags().String("db-dir", "",
		"Run ledger directory (default: XDG data directory)")
	cmd.Flags().BoolP("json", "j", false,
		"Print the run report as JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Print the run report as Markdown (mutually exclusive with --json)")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	// Reading the ledger never writes to it.
	cfg.SaveToDB = false
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd, cfg.Verbose)
	out := cmd.OutOrStdout()

	ledger, err := database.Open(cfg.DBDir, database.Options{CreateIfNotExists: false})
	if errors.Is(err, database.ErrLedgerNotFound) {
		fmt.Fprintln(out, "No runs recorded yet.")
		return nil
	}
	if err != nil {
		return err
	}
	defer ledger.Close()
	logger.Debug("run ledger opened", "db", ledger.Path())

	ctx := cmd.Context()

	if len(args) == 1 {
		runReport, err := ledger.GetRunReport(ctx, args[0])
		if err != nil {
			return err
		}
		return outputReport(cmd, cfg, runReport)
	}

	if url, _ := cmd.Flags().GetString("url"); url != "" { //nolint:errcheck // flag is defined above
		attempts, err := ledger.DownloadHistory(ctx, url)
		if err != nil {
			return err
		}
		return writeAttempts(cmd, url, attempts)
	}

	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	runs, err := ledger.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	return writeRuns(cmd, runs)
}

// writeRuns prints the run list as a Markdown table.
func writeRuns(cmd *cobra.Command, runs []database.RunSummary) error {
	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded yet.")
		return nil
	}

	rows := make([][]string, len(runs))
	for i, r := range runs {
		rows[i] = []string{
			shortID(r.ID),
			string(r.Kind),
			humanize.Time(r.StartedAt),
			runDuration(r),
			runStatus(r),
			strconv.Itoa(r.Downloaded),
			strconv.Itoa(r.Failed),
			strconv.Itoa(r.Sorted),
			strconv.Itoa(r.Unknown),
		}
	}

	return markdown.NewMarkdown(out).
		Table(markdown.TableSet{
			Header: []string{"ID", "Command", "Started", "Duration", "Status", "Downloaded", "Failed", "Sorted", "Unknown"},
			Rows:   rows,
		}).
		Build()
}

// writeAttempts prints the download attempts of one URL as a Markdown table.
func writeAttempts(cmd *cobra.Command, url string, attempts []database.DownloadAttempt) error {
	out := cmd.OutOrStdout()
	if len(attempts) == 0 {
		fmt.Fprintf(out, "No recorded downloads of %s\n", url)
		return nil
	}

	rows := make([][]string, len(attempts))
	for i, a := range attempts {
		rows[i] = []string{
			shortID(a.RunID),
			a.At.Local().Format("2006-01-02 15:04:05"),
			string(a.Status),
			a.Error,
		}
	}

	return markdown.NewMarkdown(out).
		PlainTextf("Download attempts of %s", url).
		PlainText("").
		Table(markdown.TableSet{
			Header: []string{"Run", "Time", "Status", "Error"},
			Rows:   rows,
		}).
		Build()
}

// shortID returns the first block of a run ID, which is what users type.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func runDuration(r database.RunSummary) string {
	if r.FinishedAt.IsZero() {
		return "-"
	}
	return r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
}

func runStatus(r database.RunSummary) string {
	switch {
	case r.Cancelled:
		return "cancelled"
	case r.Error != "":
		return "error"
	default:
		return "complete"
	}
}
