package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"

	applog "github.com/nao1215/roadworks/internal/log"
	"github.com/nao1215/roadworks/internal/model"
)

const (
	// chunkSize is the copy buffer size used while streaming a body to disk.
	chunkSize = 8192

	// partSuffix marks a download that is still being written.
	partSuffix = ".part"

	// defaultTimeout applies when WithTimeout is not given.
	defaultTimeout = 30 * time.Second

	// defaultUserAgent is a desktop browser User-Agent.
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

// Downloader fetches the XML files linked from a listing page.
type Downloader struct {
	// fs is where the listing page is read from and files are written to.
	fs afero.Fs

	// client performs the GET requests.
	client *http.Client

	// timeout bounds connecting, waiting for the response and every gap
	// between body reads. It never bounds the transfer as a whole.
	timeout time.Duration

	userAgent string

	// headers are extra request headers added to every download.
	headers map[string]string

	logger *slog.Logger

	// out receives the human-readable progress lines.
	out io.Writer
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithFs sets the filesystem used for the listing page and the downloads.
func WithFs(fsys afero.Fs) Option {
	return func(d *Downloader) {
		d.fs = fsys
	}
}

// WithHTTPClient sets the HTTP client. The client's own Timeout is used as
// is, and the idle timeout still applies on top of it.
func WithHTTPClient(client *http.Client) Option {
	return func(d *Downloader) {
		d.client = client
	}
}

// WithTimeout sets the idle timeout. Zero disables it.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Downloader) {
		d.timeout = timeout
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(d *Downloader) {
		if ua != "" {
			d.userAgent = ua
		}
	}
}

// WithHeaders adds request headers to every download.
func WithHeaders(headers map[string]string) Option {
	return func(d *Downloader) {
		d.headers = headers
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Downloader) {
		d.logger = logger
	}
}

// WithOutput sets the writer for progress lines. Defaults to io.Discard.
func WithOutput(w io.Writer) Option {
	return func(d *Downloader) {
		d.out = w
	}
}

// NewDownloader creates a Downloader working on the OS filesystem.
func NewDownloader(opts ...Option) *Downloader {
	d := &Downloader{
		fs:        afero.NewOsFs(),
		timeout:   defaultTimeout,
		userAgent: defaultUserAgent,
		logger:    slog.Default(),
		out:       io.Discard,
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.client == nil {
		d.client = newHTTPClient(d.timeout)
	}

	return d
}

// Run extracts the candidates from htmlPath and downloads each into downloadDir.
//
// A missing or unreadable listing page aborts the run before any download
// and is returned as an error. Failures on individual candidates are
// recorded in the summary and never abort the run.
func (d *Downloader) Run(ctx context.Context, htmlPath, baseURL, downloadDir string) (*model.FetchSummary, error) {
	summary := &model.FetchSummary{
		HTMLPath:    htmlPath,
		DownloadDir: downloadDir,
		Results:     make([]model.DownloadResult, 0),
	}

	if err := d.fs.MkdirAll(downloadDir, 0750); err != nil {
		return summary, fmt.Errorf("failed to create download directory %s: %w", downloadDir, err)
	}
	fmt.Fprintf(d.out, "Downloads will be saved to: %s\n", absPath(downloadDir))

	content, err := afero.ReadFile(d.fs, htmlPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return summary, fmt.Errorf("%w: %s", ErrHTMLNotFound, htmlPath)
		}
		return summary, fmt.Errorf("failed to read HTML file %s: %w", htmlPath, err)
	}

	extractor, err := NewLinkExtractor(baseURL, d.logger)
	if err != nil {
		return summary, err
	}
	candidates, err := extractor.Extract(bytes.NewReader(content))
	if err != nil {
		return summary, err
	}

	if len(candidates) == 0 {
		fmt.Fprintln(d.out, "No XML download links ending with '.xml' found in the HTML file.")
		return summary, nil
	}

	summary.Found = len(candidates)
	fmt.Fprintf(d.out, "\nFound %d potential XML links. Starting downloads...\n", len(candidates))
	d.logger.Info("starting downloads", "candidates", len(candidates), "dir", downloadDir)

	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Record(d.download(ctx, c, len(candidates), downloadDir))
	}

	fmt.Fprintf(d.out, "\n--- Download process finished. ---\n")
	fmt.Fprintf(d.out, "Check the '%s' directory for downloaded files.\n", absPath(downloadDir))

	return summary, nil
}

// download processes a single candidate. It never returns an error; the
// outcome is carried in the result.
func (d *Downloader) download(ctx context.Context, c model.Candidate, total int, downloadDir string) model.DownloadResult {
	result := model.DownloadResult{URL: c.URL}

	name, err := Filename(c.URL, c.Index)
	if err != nil {
		return d.fail(result, err)
	}
	result.Filename = name
	result.Path = filepath.Join(downloadDir, name)

	exists, err := afero.Exists(d.fs, result.Path)
	if err != nil {
		return d.fail(result, err)
	}
	if exists {
		fmt.Fprintf(d.out, "File '%s' already exists. Skipping download.\n", name)
		d.logger.Debug("file already exists, skipping", "path", result.Path)
		result.Status = model.DownloadStatusSkipped
		return result
	}

	fmt.Fprintf(d.out, "\n[%d/%d] Attempting to download: %s\n", c.Index+1, total, c.URL)

	n, err := d.fetchTo(ctx, c.URL, result.Path)
	if err != nil {
		return d.fail(result, err)
	}

	result.Status = model.DownloadStatusDownloaded
	result.Bytes = n
	fmt.Fprintf(d.out, "Successfully downloaded and saved to: %s (%s)\n", result.Path, humanize.Bytes(uint64(n))) //nolint:gosec // n is non-negative
	d.logger.Info("downloaded", "url", c.URL, "path", result.Path, "bytes", n)

	return result
}

// fail marks the result as failed and reports the cause.
func (d *Downloader) fail(result model.DownloadResult, err error) model.DownloadResult {
	result.Status = model.DownloadStatusFailed
	result.Error = err.Error()
	fmt.Fprintf(d.out, "%s for %s: %v\n", describeError(err), result.URL, err)
	d.logger.Warn("download failed", "url", result.URL, "error", err)
	return result
}

// newHTTPClient returns a client whose transport gives up on slow dials,
// TLS handshakes and response headers. Body reads are bounded by fetchTo.
func newHTTPClient(timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone() //nolint:forcetypeassert // DefaultTransport is always *http.Transport
	if timeout > 0 {
		transport.DialContext = (&net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}).DialContext
		transport.TLSHandshakeTimeout = timeout
		transport.ResponseHeaderTimeout = timeout
	}
	return &http.Client{Transport: transport}
}

// fetchTo downloads rawURL into target under the idle timeout.
// The request is cancelled once the server has sent nothing for d.timeout;
// a body that keeps arriving may take as long as it needs.
func (d *Downloader) fetchTo(ctx context.Context, rawURL, target string) (int64, error) {
	if d.timeout <= 0 {
		return d.stream(ctx, rawURL, target, nil)
	}

	reqCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	idleErr := &IdleTimeoutError{URL: rawURL, Idle: d.timeout}
	watchdog := time.AfterFunc(d.timeout, func() { cancel(idleErr) })
	defer watchdog.Stop()

	n, err := d.stream(reqCtx, rawURL, target, func() { watchdog.Reset(d.timeout) })
	if err != nil && errors.Is(context.Cause(reqCtx), idleErr) {
		return n, idleErr
	}
	return n, err
}

// stream performs the GET request and writes the body to target.
// The body goes to target+".part" first and is renamed on success, so an
// interrupted transfer never leaves a file that a later run would skip.
// progress, when set, is called after every read from the body.
func (d *Downloader) stream(ctx context.Context, rawURL, target string, progress func()) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", d.userAgent)
	for k, v := range d.headers {
		req.Header.Set(k, v)
	}
	d.logger.Debug("requesting", "url", rawURL, applog.Headers(d.headers))

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, &HTTPStatusError{URL: rawURL, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	part := target + partSuffix
	f, err := d.fs.Create(part)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", part, err)
	}

	var body io.Reader = resp.Body
	if progress != nil {
		body = &progressReader{r: resp.Body, progress: progress}
	}

	n, copyErr := io.CopyBuffer(f, body, make([]byte, chunkSize))
	closeErr := f.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = d.fs.Remove(part) //nolint:errcheck // Best effort cleanup
		return n, fmt.Errorf("failed to write %s: %w", target, err)
	}

	if err := d.fs.Rename(part, target); err != nil {
		_ = d.fs.Remove(part) //nolint:errcheck // Best effort cleanup
		return n, fmt.Errorf("failed to finalize %s: %w", target, err)
	}

	return n, nil
}

// progressReader calls progress after every Read.
type progressReader struct {
	r        io.Reader
	progress func()
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.progress()
	return n, err
}

// describeError names the kind of failure for progress output.
func describeError(err error) string {
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return "HTTP Error"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "Timeout Error"
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return "Connection Error"
	}
	return "Error"
}

// absPath returns the absolute form of p for display, or p itself.
func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
