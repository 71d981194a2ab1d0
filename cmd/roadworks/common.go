package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/roadworks/internal/config"
	"github.com/nao1215/roadworks/internal/database"
	"github.com/nao1215/roadworks/internal/fetch"
	applog "github.com/nao1215/roadworks/internal/log"
	"github.com/nao1215/roadworks/internal/model"
	"github.com/nao1215/roadworks/internal/pipeline"
	"github.com/nao1215/roadworks/internal/report"
	"github.com/nao1215/roadworks/internal/sorter"
)

// addFetchFlags registers the link extraction and download flags.
func addFetchFlags(cmd *cobra.Command) {
	cmd.Flags().String("html", config.DefaultHTMLPath,
		"Saved HTML listing page to extract links from")
	cmd.Flags().StringP("base-url", "u", config.DefaultBaseURL,
		"URL the listing page was saved from, used to resolve relative links")
	cmd.Flags().StringP("download-dir", "d", config.DefaultDownloadDir,
		"Directory downloaded XML files are written to")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Give up on a download after this long without data")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with each download")
	cmd.Flags().StringToStringP("header", "H", nil,
		"Extra request header as key=value (repeatable)")
}

// addSortFlags registers the format sorter destination flags.
func addSortFlags(cmd *cobra.Command) {
	cmd.Flags().String("new-dir", config.DefaultNewFormatDir,
		"Destination for files rooted at <"+model.NewFormatRoot+">")
	cmd.Flags().String("old-dir", config.DefaultOldFormatDir,
		"Destination for files rooted at <"+model.OldFormatRoot+">")
	cmd.Flags().String("unknown-dir", config.DefaultUnknownFormatDir,
		"Destination for unrecognized and unparseable files")
}

// addReportFlags registers the report and ledger flags.
func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().Bool("no-ledger", false,
		"Do not record this run in the run ledger")
	cmd.Flags().String("db-dir", "",
		"Run ledger directory (default: XDG data directory)")
}

// buildConfig creates a Config from defaults, the configuration file and
// the flags the user actually set, in that order of precedence.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg.ConfigFilePath = configPath

	// An explicitly requested file must exist; the default locations are optional.
	if path := config.FindConfigFile(configPath); path != "" {
		file, err := config.LoadConfigFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		file.Apply(cfg)
	} else if configPath != "" {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	flags := []struct {
		name string
		dst  *string
	}{
		{"html", &cfg.HTMLPath},
		{"base-url", &cfg.BaseURL},
		{"download-dir", &cfg.DownloadDir},
		{"user-agent", &cfg.UserAgent},
		{"source-dir", &cfg.SourceDir},
		{"new-dir", &cfg.NewFormatDir},
		{"old-dir", &cfg.OldFormatDir},
		{"unknown-dir", &cfg.UnknownFormatDir},
		{"output", &cfg.ReportFile},
		{"db-dir", &cfg.DBDir},
	}
	for _, f := range flags {
		if !flagChanged(cmd, f.name) {
			continue
		}
		if *f.dst, err = cmd.Flags().GetString(f.name); err != nil {
			return nil, err
		}
	}

	if flagChanged(cmd, "timeout") {
		if cfg.Timeout, err = cmd.Flags().GetDuration("timeout"); err != nil {
			return nil, err
		}
	}
	if flagChanged(cmd, "header") {
		headers, err := cmd.Flags().GetStringToString("header")
		if err != nil {
			return nil, err
		}
		for k, v := range headers {
			cfg.Headers[k] = v
		}
	}
	if flagChanged(cmd, "no-ledger") {
		noLedger, err := cmd.Flags().GetBool("no-ledger")
		if err != nil {
			return nil, err
		}
		cfg.SaveToDB = !noLedger
	}

	if cmd.Flags().Lookup("json") != nil {
		if cfg.JSONReport, err = cmd.Flags().GetBool("json"); err != nil {
			return nil, err
		}
		if cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown"); err != nil {
			return nil, err
		}
	}

	cfg.Verbose = getVerboseFlag(cmd)

	return cfg, nil
}

// flagChanged reports whether the command defines the flag and the user set it.
func flagChanged(cmd *cobra.Command, name string) bool {
	f := cmd.Flags().Lookup(name)
	return f != nil && f.Changed
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// setupLogger creates the structured logger for a command. Logs always go
// to stderr so that stdout carries only progress lines and reports.
func setupLogger(cmd *cobra.Command, verbose bool) *slog.Logger {
	jsonLogs, err := cmd.Flags().GetBool("log-json")
	if err == nil && jsonLogs {
		return applog.NewSecureJSONLogger(cmd.ErrOrStderr(), verbose)
	}
	return applog.NewSecureLogger(cmd.ErrOrStderr(), verbose)
}

// progressOutput is where components print their progress lines. A JSON or
// Markdown report on stdout must stay machine readable, so progress moves
// to stderr in that case.
func progressOutput(cmd *cobra.Command, cfg *config.Config) io.Writer {
	if cfg.ReportFile == "" && (cfg.JSONReport || cfg.MarkdownReport) {
		return cmd.ErrOrStderr()
	}
	return cmd.OutOrStdout()
}

// newDownloader creates a Downloader from the configuration.
func newDownloader(cfg *config.Config, logger *slog.Logger, out io.Writer) *fetch.Downloader {
	return fetch.NewDownloader(
		fetch.WithTimeout(cfg.Timeout),
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithHeaders(cfg.Headers),
		fetch.WithLogger(logger),
		fetch.WithOutput(out),
	)
}

// newSorter creates a Sorter from the configuration.
func newSorter(logger *slog.Logger, out io.Writer) *sorter.Sorter {
	return sorter.New(
		sorter.WithLogger(logger),
		sorter.WithOutput(out),
	)
}

// runSteps executes the steps as one run, then prints and records the report.
// The returned error is the run's fatal error, if any; report and ledger
// problems are only logged.
func runSteps(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger, kind model.RunKind, steps ...pipeline.Step) error {
	ctx := cmd.Context()

	p := pipeline.New(pipeline.WithLogger(logger))
	p.AddSteps(steps...)

	runReport := model.NewRunReport(kind)
	logger.Debug("starting run", "id", runReport.ID, "kind", kind, "steps", p.StepNames())

	runErr := p.Execute(ctx, runReport)

	if err := outputReport(cmd, cfg, runReport); err != nil {
		logger.Error("report failed", "error", err)
	}

	// Record interrupted runs too.
	if err := saveRunReport(context.WithoutCancel(ctx), cfg, runReport, logger); err != nil {
		logger.Warn("failed to record run", "id", runReport.ID, "error", err)
	}

	return runErr
}

// outputReport writes the run report in the requested format.
func outputReport(cmd *cobra.Command, cfg *config.Config, runReport *model.RunReport) error {
	output := cmd.OutOrStdout()
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	var writer report.Writer
	switch {
	case cfg.JSONReport:
		writer = report.NewJSONWriter(output, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case cfg.MarkdownReport:
		writer = report.NewMarkdownWriter(output)
	default:
		writer = report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}

	// A report file still gets the short summary on the terminal.
	if cfg.ReportFile != "" {
		writer = report.NewMultiWriter(writer, report.NewSimpleWriter(cmd.OutOrStdout()))
	}

	_, err := writer.Write(runReport)
	return err
}

// saveRunReport records the run in the ledger if enabled.
func saveRunReport(ctx context.Context, cfg *config.Config, runReport *model.RunReport, logger *slog.Logger) error {
	if !cfg.SaveToDB {
		return nil
	}

	ledger, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open run ledger: %w", err)
	}
	defer ledger.Close()

	if err := ledger.SaveRunReport(ctx, runReport); err != nil {
		return err
	}

	logger.Debug("run recorded", "id", runReport.ID, "db", ledger.Path())
	return nil
}
