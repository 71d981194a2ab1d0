package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestNewConfig verifies that NewConfig returns a Config with all expected default values.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default paths match the data layout", func(t *testing.T) {
		t.Parallel()
		if cfg.HTMLPath != "data/roadworks_page.html" {
			t.Errorf("unexpected HTMLPath %q", cfg.HTMLPath)
		}
		if cfg.DownloadDir != "data/downloaded_xml_files" {
			t.Errorf("unexpected DownloadDir %q", cfg.DownloadDir)
		}
		if cfg.SourceDir != cfg.DownloadDir {
			t.Errorf("expected SourceDir to default to DownloadDir, got %q", cfg.SourceDir)
		}
		if cfg.NewFormatDir != "data/new_format" || cfg.OldFormatDir != "data/old_format" || cfg.UnknownFormatDir != "data/unknown_format" {
			t.Errorf("unexpected destination dirs: %q %q %q", cfg.NewFormatDir, cfg.OldFormatDir, cfg.UnknownFormatDir)
		}
	})

	t.Run("default Timeout is 30 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.Timeout != 30*time.Second {
			t.Errorf("expected Timeout to be 30s, got %v", cfg.Timeout)
		}
	})

	t.Run("default UserAgent looks like a browser", func(t *testing.T) {
		t.Parallel()
		if cfg.UserAgent != DefaultUserAgent {
			t.Errorf("expected default user agent, got %q", cfg.UserAgent)
		}
	})

	t.Run("ledger is enabled by default", func(t *testing.T) {
		t.Parallel()
		if !cfg.SaveToDB {
			t.Error("expected SaveToDB to be true")
		}
		if cfg.DBDir == "" {
			t.Error("expected DBDir to be set")
		}
	})

	t.Run("default config passes all validation", func(t *testing.T) {
		t.Parallel()
		if err := cfg.ValidateFetch(); err != nil {
			t.Errorf("ValidateFetch() = %v", err)
		}
		if err := cfg.ValidateSort(); err != nil {
			t.Errorf("ValidateSort() = %v", err)
		}
	})
}

// TestConfigValidate tests the Validate methods with various configurations.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		modify  func(*Config)
		check   func(*Config) error
		wantErr error
	}{
		{
			name:    "conflicting report formats",
			modify:  func(c *Config) { c.JSONReport, c.MarkdownReport = true, true },
			check:   (*Config).Validate,
			wantErr: ErrConflictingReportFormats,
		},
		{
			name:    "ledger without directory",
			modify:  func(c *Config) { c.DBDir = "" },
			check:   (*Config).Validate,
			wantErr: ErrNoDBDir,
		},
		{
			name:    "ledger disabled without directory is fine",
			modify:  func(c *Config) { c.DBDir, c.SaveToDB = "", false },
			check:   (*Config).Validate,
			wantErr: nil,
		},
		{
			name:    "missing html path",
			modify:  func(c *Config) { c.HTMLPath = "" },
			check:   (*Config).ValidateFetch,
			wantErr: ErrNoHTMLPath,
		},
		{
			name:    "missing download dir",
			modify:  func(c *Config) { c.DownloadDir = "" },
			check:   (*Config).ValidateFetch,
			wantErr: ErrNoDownloadDir,
		},
		{
			name:    "zero timeout",
			modify:  func(c *Config) { c.Timeout = 0 },
			check:   (*Config).ValidateFetch,
			wantErr: ErrInvalidTimeout,
		},
		{
			name:    "relative base url",
			modify:  func(c *Config) { c.BaseURL = "/dataset/roadworks" },
			check:   (*Config).ValidateFetch,
			wantErr: ErrInvalidBaseURL,
		},
		{
			name:    "missing source dir",
			modify:  func(c *Config) { c.SourceDir = "" },
			check:   (*Config).ValidateSort,
			wantErr: ErrNoSourceDir,
		},
		{
			name:    "missing unknown dir",
			modify:  func(c *Config) { c.UnknownFormatDir = "" },
			check:   (*Config).ValidateSort,
			wantErr: ErrNoDestinationDir,
		},
		{
			name:    "source doubles as destination",
			modify:  func(c *Config) { c.NewFormatDir = c.SourceDir + "/" },
			check:   (*Config).ValidateSort,
			wantErr: ErrSourceIsDestination,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := NewConfig()
			cfg.DBDir = t.TempDir()
			tt.modify(cfg)

			err := tt.check(cfg)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

// TestLoadConfigFile tests YAML loading and application onto a Config.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("missing file returns ErrConfigNotFound", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.yaml"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("invalid yaml returns error", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "bad.yaml")
		if err := os.WriteFile(path, []byte("paths: [unclosed"), 0600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadConfigFile(path); err == nil {
			t.Error("expected error for invalid yaml")
		}
	})

	t.Run("values are applied onto defaults", func(t *testing.T) {
		t.Parallel()

		content := `
paths:
  html: page.html
  download: out/xml
  newFormat: out/new
fetch:
  baseURL: https://example.org/dataset
  timeout: 45s
  headers:
    Authorization: Bearer abc
ledger:
  disabled: true
`
		path := filepath.Join(t.TempDir(), ".roadworks")
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		cfg := NewConfig()
		cf.Apply(cfg)

		if cfg.HTMLPath != "page.html" {
			t.Errorf("HTMLPath = %q", cfg.HTMLPath)
		}
		if cfg.DownloadDir != "out/xml" {
			t.Errorf("DownloadDir = %q", cfg.DownloadDir)
		}
		if cfg.SourceDir != "out/xml" {
			t.Errorf("expected SourceDir to follow download dir, got %q", cfg.SourceDir)
		}
		if cfg.NewFormatDir != "out/new" {
			t.Errorf("NewFormatDir = %q", cfg.NewFormatDir)
		}
		if cfg.OldFormatDir != DefaultOldFormatDir {
			t.Errorf("expected OldFormatDir default to be kept, got %q", cfg.OldFormatDir)
		}
		if cfg.BaseURL != "https://example.org/dataset" {
			t.Errorf("BaseURL = %q", cfg.BaseURL)
		}
		if cfg.Timeout != 45*time.Second {
			t.Errorf("Timeout = %v", cfg.Timeout)
		}
		if cfg.Headers["Authorization"] != "Bearer abc" {
			t.Errorf("Headers = %v", cfg.Headers)
		}
		if cfg.SaveToDB {
			t.Error("expected ledger to be disabled")
		}
	})

	t.Run("explicit source wins over download", func(t *testing.T) {
		t.Parallel()

		cf := &File{Paths: PathsConfig{Download: "a", Source: "b"}}
		cfg := NewConfig()
		cf.Apply(cfg)

		if cfg.SourceDir != "b" {
			t.Errorf("SourceDir = %q, want b", cfg.SourceDir)
		}
	})
}

// TestFindConfigFile tests config file discovery with an explicit path.
func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("explicit existing path is returned", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(path, []byte("{}"), 0600); err != nil {
			t.Fatal(err)
		}
		if got := FindConfigFile(path); got != path {
			t.Errorf("FindConfigFile() = %q, want %q", got, path)
		}
	})

	t.Run("explicit missing path returns empty", func(t *testing.T) {
		t.Parallel()

		if got := FindConfigFile(filepath.Join(t.TempDir(), "missing.yaml")); got != "" {
			t.Errorf("FindConfigFile() = %q, want empty", got)
		}
	})
}
