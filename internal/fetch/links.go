package fetch

import (
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/roadworks/internal/model"
)

// xmlSuffix is the extension every downloadable resource must carry.
const xmlSuffix = ".xml"

// doubledSchemes maps scraping artifacts where the scheme was pasted twice
// to their single-scheme form.
var doubledSchemes = []struct {
	doubled string
	single  string
}{
	{"http:// http://", "http://"},
	{"https:// https://", "https://"},
}

// LinkExtractor finds XML download links in an HTML listing page.
type LinkExtractor struct {
	// baseURL is the URL the page was saved from.
	baseURL *url.URL

	// lower folds link text for the "xml" substring check.
	lower cases.Caser

	logger *slog.Logger
}

// NewLinkExtractor creates a LinkExtractor resolving relative links against baseURL.
func NewLinkExtractor(baseURL string, logger *slog.Logger) (*LinkExtractor, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidBaseURL, baseURL, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LinkExtractor{
		baseURL: u,
		lower:   cases.Lower(language.Und),
		logger:  logger,
	}, nil
}

// Extract parses the document and returns the deduplicated candidates in
// discovery order. Anchors that do not resolve to an .xml path are dropped.
func (e *LinkExtractor) Extract(content io.Reader) ([]model.Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	candidates := make([]model.Candidate, 0)
	seen := make(map[string]bool)

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		linkText := e.lower.String(a.Text())

		if !hasXMLSuffix(href) && !strings.Contains(linkText, "xml") {
			return
		}

		resolved, ok := e.resolve(href)
		if !ok {
			e.logger.Debug("skipping unresolvable link", "href", href)
			return
		}
		if !hasXMLSuffix(resolved.Path) {
			e.logger.Debug("skipping link without .xml path",
				"url", resolved.String(),
				"text", strings.TrimSpace(a.Text()),
			)
			return
		}

		full := resolved.String()
		if seen[full] {
			return
		}
		seen[full] = true
		candidates = append(candidates, model.Candidate{URL: full, Index: len(candidates)})
	})

	return candidates, nil
}

// resolve resolves href against the base URL.
// Doubled schemes are collapsed first; the URL parser rejects the space
// they leave in the host.
func (e *LinkExtractor) resolve(href string) (*url.URL, bool) {
	href = CollapseDoubledScheme(strings.TrimSpace(href))
	u, err := url.Parse(href)
	if err != nil {
		return nil, false
	}
	return e.baseURL.ResolveReference(u), true
}

// CollapseDoubledScheme rewrites "http:// http://" and "https:// https://"
// to a single scheme occurrence. Other URLs are returned unchanged.
func CollapseDoubledScheme(rawURL string) string {
	for _, s := range doubledSchemes {
		rawURL = strings.ReplaceAll(rawURL, s.doubled, s.single)
	}
	return rawURL
}

// hasXMLSuffix reports whether s ends in ".xml", ignoring case.
func hasXMLSuffix(s string) bool {
	return strings.HasSuffix(strings.ToLower(s), xmlSuffix)
}
