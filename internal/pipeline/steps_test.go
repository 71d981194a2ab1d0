package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"

	"github.com/nao1215/roadworks/internal/fetch"
	"github.com/nao1215/roadworks/internal/model"
	"github.com/nao1215/roadworks/internal/sorter"
)

type fetcherFunc func(ctx context.Context, htmlPath, baseURL, downloadDir string) (*model.FetchSummary, error)

func (f fetcherFunc) Run(ctx context.Context, htmlPath, baseURL, downloadDir string) (*model.FetchSummary, error) {
	return f(ctx, htmlPath, baseURL, downloadDir)
}

// TestFetchStep tests that the fetch summary is stored even on failure.
func TestFetchStep(t *testing.T) {
	t.Parallel()

	errHTML := errors.New("no page")
	step := NewFetchStep(fetcherFunc(func(_ context.Context, htmlPath, _, dir string) (*model.FetchSummary, error) {
		return &model.FetchSummary{HTMLPath: htmlPath, DownloadDir: dir}, errHTML
	}), "page.html", "https://example.org", "xml")

	if step.Name() != "fetch" {
		t.Errorf("unexpected name %q", step.Name())
	}

	report := model.NewRunReport(model.RunKindFetch)
	if err := step.Do(context.Background(), report); !errors.Is(err, errHTML) {
		t.Fatalf("expected errHTML, got %v", err)
	}
	if report.Fetch == nil || report.Fetch.HTMLPath != "page.html" || report.Fetch.DownloadDir != "xml" {
		t.Errorf("expected fetch summary on report, got %+v", report.Fetch)
	}
}

// TestFetchThenSort runs both stages against a local server and an in-memory filesystem.
func TestFetchThenSort(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/new.xml":
			_, _ = w.Write([]byte(`<Report xmlns="WebTeam"/>`)) //nolint:errcheck // test server
		case "/old.xml":
			_, _ = w.Write([]byte(`<ha_planned_roadworks/>`)) //nolint:errcheck // test server
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	fsys := afero.NewMemMapFs()
	page := `<html><body>
		<a href="/new.xml">New XML</a>
		<a href="/old.xml">Old XML</a>
		<a href="/gone.xml">Gone</a>
	</body></html>`
	if err := afero.WriteFile(fsys, "page.html", []byte(page), 0600); err != nil {
		t.Fatal(err)
	}

	downloadDir := filepath.Join("data", "xml")
	p := New()
	p.AddSteps(
		NewFetchStep(fetch.NewDownloader(fetch.WithFs(fsys), fetch.WithHTTPClient(srv.Client())), "page.html", srv.URL, downloadDir),
		NewSortStep(sorter.New(sorter.WithFs(fsys)), downloadDir, "data/new", "data/old", "data/unknown"),
	)

	report := model.NewRunReport(model.RunKindAll)
	if err := p.Execute(context.Background(), report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.Fetch.Downloaded != 2 || report.Fetch.Failed != 1 {
		t.Errorf("unexpected fetch counters: %+v", report.Fetch)
	}
	if report.Sort.MovedNew != 1 || report.Sort.MovedOld != 1 || report.Sort.Processed != 2 {
		t.Errorf("unexpected sort counters: %+v", report.Sort)
	}
	for _, path := range []string{"data/new/new.xml", "data/old/old.xml"} {
		if ok, _ := afero.Exists(fsys, path); !ok {
			t.Errorf("expected %s to exist", path)
		}
	}
}
