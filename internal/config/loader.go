package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".roadworks"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// PathsConfig holds the filesystem layout section of the configuration file.
type PathsConfig struct {
	HTML          string `yaml:"html,omitempty"`
	Download      string `yaml:"download,omitempty"`
	Source        string `yaml:"source,omitempty"`
	NewFormat     string `yaml:"newFormat,omitempty"`
	OldFormat     string `yaml:"oldFormat,omitempty"`
	UnknownFormat string `yaml:"unknownFormat,omitempty"`
}

// FetchConfig holds the download section of the configuration file.
type FetchConfig struct {
	// BaseURL is the address the listing page was saved from.
	BaseURL string `yaml:"baseURL,omitempty"`

	// Timeout is a Go duration string such as "30s".
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// UserAgent overrides the default browser User-Agent.
	UserAgent string `yaml:"userAgent,omitempty"`

	// Headers are additional request headers, e.g. an Authorization token
	// for a mirror that requires one.
	Headers map[string]string `yaml:"headers,omitempty"`
}

// LedgerConfig holds the run ledger section of the configuration file.
type LedgerConfig struct {
	// Disabled turns off recording of runs.
	Disabled bool `yaml:"disabled,omitempty"`

	// Dir overrides the XDG data directory.
	Dir string `yaml:"dir,omitempty"`
}

// File represents the structure of the .roadworks configuration file.
type File struct {
	Paths  PathsConfig  `yaml:"paths,omitempty"`
	Fetch  FetchConfig  `yaml:"fetch,omitempty"`
	Ledger LedgerConfig `yaml:"ledger,omitempty"`
}

// LoadConfigFile loads a configuration file in YAML format.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}
	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .roadworks in the current directory
// 3. Look for .roadworks in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	return ""
}

// Apply copies every non-zero value of the file onto cfg.
// CLI flags are applied afterwards by the caller so they win over the file.
func (cf *File) Apply(cfg *Config) {
	setString(&cfg.HTMLPath, cf.Paths.HTML)
	setString(&cfg.DownloadDir, cf.Paths.Download)
	setString(&cfg.NewFormatDir, cf.Paths.NewFormat)
	setString(&cfg.OldFormatDir, cf.Paths.OldFormat)
	setString(&cfg.UnknownFormatDir, cf.Paths.UnknownFormat)

	// The sorter reads what the downloader wrote unless told otherwise.
	if cf.Paths.Source != "" {
		cfg.SourceDir = cf.Paths.Source
	} else if cf.Paths.Download != "" {
		cfg.SourceDir = cf.Paths.Download
	}

	setString(&cfg.BaseURL, cf.Fetch.BaseURL)
	setString(&cfg.UserAgent, cf.Fetch.UserAgent)
	if cf.Fetch.Timeout > 0 {
		cfg.Timeout = cf.Fetch.Timeout
	}
	if len(cf.Fetch.Headers) > 0 {
		if cfg.Headers == nil {
			cfg.Headers = make(map[string]string)
		}
		for k, v := range cf.Fetch.Headers {
			cfg.Headers[k] = v
		}
	}

	if cf.Ledger.Disabled {
		cfg.SaveToDB = false
	}
	setString(&cfg.DBDir, cf.Ledger.Dir)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
