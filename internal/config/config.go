package config

import (
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// The paths mirror the layout the dataset was originally collected into:
// everything lives below a single data/ directory next to the listing page.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "roadworks"

	// DefaultHTMLPath is the saved copy of the dataset listing page.
	DefaultHTMLPath = "data/roadworks_page.html"

	// DefaultBaseURL is the address the listing page was saved from.
	// Relative links in the page are resolved against it.
	DefaultBaseURL = "https://www.data.gov.uk/dataset/5b3267d8-4307-4eef-a9af-3a4c28224694/highways_agency_planned_roadworks"

	// DefaultDownloadDir receives every fetched XML file, flat.
	DefaultDownloadDir = "data/downloaded_xml_files"

	// DefaultNewFormatDir receives files whose root element is Report.
	DefaultNewFormatDir = "data/new_format"

	// DefaultOldFormatDir receives files whose root element is ha_planned_roadworks.
	DefaultOldFormatDir = "data/old_format"

	// DefaultUnknownFormatDir receives unrecognized and unparseable files.
	DefaultUnknownFormatDir = "data/unknown_format"

	// DefaultTimeout bounds connecting, waiting for a response and each
	// silence while a body streams. It never bounds a whole download.
	DefaultTimeout = 30 * time.Second

	// DefaultUserAgent is a desktop browser User-Agent.
	// Some dataset mirrors refuse requests from non-browser clients.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

// Config holds all configuration options for roadworks.
// It is populated from the configuration file and CLI flags and passed
// explicitly to each command instead of living in package-level state.
type Config struct {
	// HTMLPath is the local HTML listing page to extract links from.
	HTMLPath string

	// BaseURL is used to resolve relative hrefs found in the listing page.
	// Must be an absolute URL.
	BaseURL string

	// DownloadDir is where fetched XML files are written.
	DownloadDir string

	// SourceDir is the directory the sorter classifies.
	// It is usually the same directory as DownloadDir.
	SourceDir string

	// NewFormatDir, OldFormatDir and UnknownFormatDir are the sorter's
	// three destination buckets.
	NewFormatDir     string
	OldFormatDir     string
	UnknownFormatDir string

	// Timeout is the idle timeout for downloads.
	Timeout time.Duration

	// UserAgent is the User-Agent header sent with every download.
	UserAgent string

	// Headers are extra request headers sent with every download.
	// Values are never logged in clear text (see internal/log).
	Headers map[string]string

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, .roadworks is searched in the current and home directories.
	ConfigFilePath string

	// JSONReport prints the run report as JSON. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport prints the run report as Markdown. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile redirects the run report to a file instead of stdout.
	ReportFile string

	// SaveToDB records the run report in the run ledger.
	SaveToDB bool

	// DBDir is the directory holding the run ledger database.
	// Defaults to the XDG data directory (~/.local/share/roadworks on Linux).
	DBDir string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		HTMLPath:         DefaultHTMLPath,
		BaseURL:          DefaultBaseURL,
		DownloadDir:      DefaultDownloadDir,
		SourceDir:        DefaultDownloadDir,
		NewFormatDir:     DefaultNewFormatDir,
		OldFormatDir:     DefaultOldFormatDir,
		UnknownFormatDir: DefaultUnknownFormatDir,
		Timeout:          DefaultTimeout,
		UserAgent:        DefaultUserAgent,
		Headers:          make(map[string]string),
		SaveToDB:         true,
		DBDir:            XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for roadworks.
// On Linux: ~/.local/share/roadworks
// On macOS: ~/Library/Application Support/roadworks
// On Windows: %LOCALAPPDATA%\roadworks
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// Validate checks the settings shared by every command.
func (c *Config) Validate() error {
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.SaveToDB && c.DBDir == "" {
		return ErrNoDBDir
	}
	return nil
}

// ValidateFetch checks the settings required by the link extractor and downloader.
func (c *Config) ValidateFetch() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.HTMLPath == "" {
		return ErrNoHTMLPath
	}
	if c.DownloadDir == "" {
		return ErrNoDownloadDir
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return ErrInvalidBaseURL
	}
	return nil
}

// ValidateSort checks the settings required by the format sorter.
// The source directory must not double as one of the destinations,
// otherwise a file could be visited again after it was moved.
func (c *Config) ValidateSort() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.SourceDir == "" {
		return ErrNoSourceDir
	}
	if c.NewFormatDir == "" || c.OldFormatDir == "" || c.UnknownFormatDir == "" {
		return ErrNoDestinationDir
	}
	src := filepath.Clean(c.SourceDir)
	for _, dst := range []string{c.NewFormatDir, c.OldFormatDir, c.UnknownFormatDir} {
		if filepath.Clean(dst) == src {
			return ErrSourceIsDestination
		}
	}
	return nil
}
