package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/roadworks/internal/config"
	"github.com/nao1215/roadworks/internal/report"
	"github.com/nao1215/roadworks/internal/sorter"
)

const (
	newFormatDoc = `<?xml version="1.0"?><Report xmlns="WebTeam"><HE_PLANNED_WORKS/></Report>`
	oldFormatDoc = `<?xml version="1.0"?><ha_planned_roadworks><ha_planned_works/></ha_planned_roadworks>`
	rssDoc       = `<?xml version="1.0"?><rss version="2.0"></rss>`
)

// newDatasetServer serves three XML files by base name, wherever they are
// linked from, and a 404 for anything else.
func newDatasetServer(t *testing.T) *httptest.Server {
	t.Helper()

	files := map[string]string{
		"new.xml": newFormatDoc,
		"old.xml": oldFormatDoc,
		"rss.xml": rssDoc,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := files[path.Base(r.URL.Path)]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(body)) //nolint:errcheck // test server
	}))
	t.Cleanup(srv.Close)
	return srv
}

// workspace lays out a listing page, an empty config file and the data
// directories below a temp dir.
type workspace struct {
	root       string
	configPath string
	html       string
	download   string
	newDir     string
	oldDir     string
	unknownDir string
	dbDir      string
}

func newWorkspace(t *testing.T) *workspace {
	t.Helper()

	root := t.TempDir()
	ws := &workspace{
		root:       root,
		configPath: filepath.Join(root, ".roadworks"),
		html:       filepath.Join(root, "page.html"),
		download:   filepath.Join(root, "data", "downloaded"),
		newDir:     filepath.Join(root, "data", "new"),
		oldDir:     filepath.Join(root, "data", "old"),
		unknownDir: filepath.Join(root, "data", "unknown"),
		dbDir:      filepath.Join(root, "db"),
	}

	page := `<html><body>
<a href="files/new.xml">Roadworks 2016 (XML)</a>
<a href="/files/old.xml">Roadworks 2012</a>
<a href="files/rss.xml">Feed</a>
<a href="files/new.xml">duplicate</a>
<a href="files/gone.xml">Removed</a>
<a href="files/readme.pdf">Readme</a>
</body></html>`
	if err := os.WriteFile(ws.html, []byte(page), 0600); err != nil {
		t.Fatalf("failed to write page: %v", err)
	}
	// An empty config file keeps the test away from ~/.roadworks.
	if err := os.WriteFile(ws.configPath, nil, 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return ws
}

func (ws *workspace) fetchArgs(baseURL string) []string {
	return []string{
		"--config", ws.configPath,
		"--html", ws.html,
		"--base-url", baseURL,
		"--download-dir", ws.download,
		"--db-dir", ws.dbDir,
	}
}

func (ws *workspace) sortArgs() []string {
	return []string{
		"--new-dir", ws.newDir,
		"--old-dir", ws.oldDir,
		"--unknown-dir", ws.unknownDir,
	}
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func assertFile(t *testing.T, path, want string) {
	t.Helper()

	got, err := os.ReadFile(path) //nolint:gosec // test path
	if err != nil {
		t.Errorf("expected %s: %v", path, err)
		return
	}
	if want != "" && string(got) != want {
		t.Errorf("%s: expected %q, got %q", path, want, string(got))
	}
}

// TestRunCmd tests fetch followed by sort against a local server.
func TestRunCmd(t *testing.T) {
	t.Parallel()

	srv := newDatasetServer(t)
	ws := newWorkspace(t)

	args := append([]string{"run"}, ws.fetchArgs(srv.URL+"/dataset/")...)
	args = append(args, ws.sortArgs()...)
	stdout, _, err := execute(t, args...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Relative hrefs resolve against the base URL path.
	if !strings.Contains(stdout, "Found 4 potential XML links") {
		t.Errorf("expected 4 deduplicated candidates:\n%s", stdout)
	}
	for _, want := range []string{
		"HTTP Error",
		"Moved to New Format",
		"ROADWORKS RUN SUMMARY",
	} {
		if !strings.Contains(stdout, want) {
			t.Errorf("expected %q in output:\n%s", want, stdout)
		}
	}

	assertFile(t, filepath.Join(ws.newDir, "new.xml"), newFormatDoc)
	assertFile(t, filepath.Join(ws.oldDir, "old.xml"), oldFormatDoc)
	assertFile(t, filepath.Join(ws.unknownDir, "rss.xml"), rssDoc)

	entries, err := os.ReadDir(ws.download)
	if err != nil {
		t.Fatalf("failed to read download dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected download dir to be emptied, found %d entries", len(entries))
	}

	history, _, err := execute(t, "history", "--config", ws.configPath, "--db-dir", ws.dbDir)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !strings.Contains(history, "| run ") || !strings.Contains(history, "complete") {
		t.Errorf("expected the run in history:\n%s", history)
	}
}

// TestFetchCmdJSON tests that a JSON report keeps stdout machine readable
// and that the recorded run can be looked up again.
func TestFetchCmdJSON(t *testing.T) {
	t.Parallel()

	srv := newDatasetServer(t)
	ws := newWorkspace(t)

	args := append([]string{"fetch", "--json"}, ws.fetchArgs(srv.URL+"/dataset/")...)
	stdout, stderr, err := execute(t, args...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stderr, "Starting downloads") {
		t.Errorf("expected progress on stderr:\n%s", stderr)
	}

	var got report.JSONReport
	if err := json.Unmarshal([]byte(stdout), &got); err != nil {
		t.Fatalf("stdout is not a JSON report: %v\n%s", err, stdout)
	}
	if got.Report.Fetch == nil || got.Report.Fetch.Downloaded != 3 || got.Report.Fetch.Failed != 1 {
		t.Fatalf("unexpected fetch summary %+v", got.Report.Fetch)
	}
	assertFile(t, filepath.Join(ws.download, "new.xml"), newFormatDoc)

	shown, _, err := execute(t, "history", got.Report.ID[:8], "--config", ws.configPath, "--db-dir", ws.dbDir)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !strings.Contains(shown, got.Report.ID) {
		t.Errorf("expected stored report:\n%s", shown)
	}

	attempts, _, err := execute(t, "history", "--url", srv.URL+"/dataset/files/gone.xml",
		"--config", ws.configPath, "--db-dir", ws.dbDir)
	if err != nil {
		t.Fatalf("history --url failed: %v", err)
	}
	if !strings.Contains(attempts, "failed") {
		t.Errorf("expected the failed attempt:\n%s", attempts)
	}
}

// TestFetchCmdSkipsExisting tests that a second fetch makes no downloads.
func TestFetchCmdSkipsExisting(t *testing.T) {
	t.Parallel()

	srv := newDatasetServer(t)
	ws := newWorkspace(t)
	args := append([]string{"fetch", "--no-ledger"}, ws.fetchArgs(srv.URL+"/dataset/")...)

	if _, _, err := execute(t, args...); err != nil {
		t.Fatalf("first fetch failed: %v", err)
	}
	stdout, _, err := execute(t, args...)
	if err != nil {
		t.Fatalf("second fetch failed: %v", err)
	}
	if strings.Count(stdout, "already exists. Skipping download.") != 3 {
		t.Errorf("expected three skipped files:\n%s", stdout)
	}
	if _, err := os.Stat(ws.dbDir); !os.IsNotExist(err) {
		t.Error("--no-ledger should not create the ledger")
	}
}

// TestSortCmdErrors tests fatal sort errors and the exit path.
func TestSortCmdErrors(t *testing.T) {
	t.Parallel()

	t.Run("missing source directory", func(t *testing.T) {
		t.Parallel()

		ws := newWorkspace(t)
		args := append([]string{"sort", "--config", ws.configPath, "--no-ledger",
			"--source-dir", filepath.Join(ws.root, "absent")}, ws.sortArgs()...)
		_, _, err := execute(t, args...)
		if !errors.Is(err, sorter.ErrSourceNotFound) {
			t.Fatalf("expected ErrSourceNotFound, got %v", err)
		}
	})

	t.Run("source equals destination", func(t *testing.T) {
		t.Parallel()

		ws := newWorkspace(t)
		args := append([]string{"sort", "--config", ws.configPath, "--no-ledger",
			"--source-dir", ws.newDir}, ws.sortArgs()...)
		_, _, err := execute(t, args...)
		if !errors.Is(err, config.ErrSourceIsDestination) {
			t.Fatalf("expected ErrSourceIsDestination, got %v", err)
		}
	})

	t.Run("conflicting report formats", func(t *testing.T) {
		t.Parallel()

		ws := newWorkspace(t)
		_, _, err := execute(t, "sort", "--config", ws.configPath, "--json", "--markdown")
		if !errors.Is(err, config.ErrConflictingReportFormats) {
			t.Fatalf("expected ErrConflictingReportFormats, got %v", err)
		}
	})
}

// TestSortCmdMarkdownFile tests writing a Markdown report to a file.
func TestSortCmdMarkdownFile(t *testing.T) {
	t.Parallel()

	ws := newWorkspace(t)
	if err := os.MkdirAll(ws.download, 0750); err != nil {
		t.Fatal(err)
	}
	for name, body := range map[string]string{"a.xml": newFormatDoc, "b.xml": "not xml at all"} {
		if err := os.WriteFile(filepath.Join(ws.download, name), []byte(body), 0600); err != nil {
			t.Fatal(err)
		}
	}

	reportPath := filepath.Join(ws.root, "reports", "sort.md")
	args := append([]string{"sort", "--config", ws.configPath, "--no-ledger",
		"--source-dir", ws.download, "--markdown", "-o", reportPath}, ws.sortArgs()...)
	stdout, _, err := execute(t, args...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	md, err := os.ReadFile(reportPath) //nolint:gosec // test path
	if err != nil {
		t.Fatalf("expected report file: %v", err)
	}
	if !strings.Contains(string(md), "# Roadworks Run Report") {
		t.Errorf("unexpected report:\n%s", md)
	}
	if !strings.Contains(stdout, "ROADWORKS RUN SUMMARY") {
		t.Errorf("expected terminal summary alongside the report file:\n%s", stdout)
	}
	assertFile(t, filepath.Join(ws.newDir, "a.xml"), newFormatDoc)
	assertFile(t, filepath.Join(ws.unknownDir, "b.xml"), "not xml at all")
}

// TestBuildConfigPrecedence tests defaults < config file < flags.
func TestBuildConfigPrecedence(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	configPath := filepath.Join(dir, "roadworks.yaml")
	content := `paths:
  html: from-file.html
  download: file-downloads
fetch:
  timeout: 5s
  headers:
    X-Mirror: file
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cmd := NewRootCmd()
	fetchCmd, _, err := cmd.Find([]string{"fetch"})
	if err != nil {
		t.Fatal(err)
	}
	if err := fetchCmd.ParseFlags([]string{"--config", configPath, "--html", "from-flag.html", "-H", "X-Extra=flag"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := buildConfig(fetchCmd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.HTMLPath != "from-flag.html" {
		t.Errorf("flag should win over file, got %q", cfg.HTMLPath)
	}
	if cfg.DownloadDir != "file-downloads" || cfg.SourceDir != "file-downloads" {
		t.Errorf("file should win over defaults, got download=%q source=%q", cfg.DownloadDir, cfg.SourceDir)
	}
	if cfg.Timeout.String() != "5s" {
		t.Errorf("expected timeout from file, got %v", cfg.Timeout)
	}
	if cfg.Headers["X-Mirror"] != "file" || cfg.Headers["X-Extra"] != "flag" {
		t.Errorf("expected merged headers, got %v", cfg.Headers)
	}
	if cfg.BaseURL != config.DefaultBaseURL {
		t.Errorf("expected default base URL, got %q", cfg.BaseURL)
	}

	t.Run("explicit missing config file", func(t *testing.T) {
		t.Parallel()

		cmd := NewRootCmd()
		sortCmd, _, err := cmd.Find([]string{"sort"})
		if err != nil {
			t.Fatal(err)
		}
		if err := sortCmd.ParseFlags([]string{"--config", filepath.Join(dir, "absent.yaml")}); err != nil {
			t.Fatal(err)
		}
		if _, err := buildConfig(sortCmd); err == nil || !strings.Contains(err.Error(), "configuration file not found") {
			t.Errorf("expected not found error, got %v", err)
		}
	})
}
