package config

import "errors"

// Configuration validation errors.
// These are returned by the Validate methods so callers can use errors.Is()
// while the CLI still prints a readable message.
var (
	// ErrNoHTMLPath is returned when no listing page path is configured.
	ErrNoHTMLPath = errors.New("no HTML listing page specified: use --html or paths.html")

	// ErrInvalidBaseURL is returned when the base URL is missing or not absolute.
	ErrInvalidBaseURL = errors.New("invalid base URL: must be an absolute http(s) URL")

	// ErrNoDownloadDir is returned when the download directory is empty.
	ErrNoDownloadDir = errors.New("no download directory specified")

	// ErrInvalidTimeout is returned when the download timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrNoSourceDir is returned when the sorter has no source directory.
	ErrNoSourceDir = errors.New("no source directory specified")

	// ErrNoDestinationDir is returned when one of the three sorter buckets is empty.
	ErrNoDestinationDir = errors.New("new, old and unknown format directories must all be specified")

	// ErrSourceIsDestination is returned when the source directory is also a destination.
	ErrSourceIsDestination = errors.New("source directory must differ from every destination directory")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrNoDBDir is returned when the run ledger is enabled without a directory.
	ErrNoDBDir = errors.New("run ledger enabled but no database directory specified")
)
