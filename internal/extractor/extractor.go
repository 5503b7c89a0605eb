// Package extractor turns a search hit's URL into a PageExtract: clean
// title, body, excerpt, and a best-effort published date. Fetching is
// SSRF-guarded, content-type is checked before parsing, and the result is
// sanitized before being rendered to markdown. Grounded on the teacher's
// veille/internal/pipeline.WebHandler (fetch, extract, clean) and
// veille/internal/pipeline.Pipeline.htmlToMarkdown (html-to-markdown/v2
// conversion), generalized to a one-shot per-URL call instead of a stored
// crawl job.
package extractor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"

	"github.com/lucenthq/lucent/extract"
	"github.com/lucenthq/lucent/internal/engine"
	"github.com/lucenthq/lucent/internal/safefetch"
)

const (
	defaultTimeout   = 8 * time.Second
	defaultMaxBytes  = 5 * 1024 * 1024
	defaultUserAgent = "lucent-extractor/1.0"
	excerptLen       = 280
)

// Extractor fetches and cleans one URL at a time.
type Extractor struct {
	client      *http.Client
	validateURL func(string) error
	userAgent   string
	maxBytes    int64
	sanitizer   *bluemonday.Policy
	md          *converter.Converter
	logger      *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithTimeout overrides the per-request timeout (default 8s).
func WithTimeout(d time.Duration) Option {
	return func(e *Extractor) { e.client.Timeout = d }
}

// WithUserAgent overrides the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(e *Extractor) { e.userAgent = ua }
}

// WithHTTPClient overrides the HTTP client used to fetch pages, bypassing
// the default SSRF guard. Used by tests that fetch from httptest servers
// on loopback addresses.
func WithHTTPClient(client *http.Client, validateURL func(string) error) Option {
	return func(e *Extractor) {
		e.client = client
		if validateURL != nil {
			e.validateURL = validateURL
		}
	}
}

// New creates an Extractor using an SSRF-guarded HTTP client.
func New(logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Extractor{
		client:      safefetch.NewClient(defaultTimeout),
		validateURL: safefetch.ValidateURL,
		userAgent:   defaultUserAgent,
		maxBytes:    defaultMaxBytes,
		sanitizer:   bluemonday.UGCPolicy(),
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
		logger: logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract fetches hit.URL and returns a PageExtract, or nil if anything
// along the way fails: a failed extraction is dropped by the caller, not
// propagated (spec.md §4.4).
func (e *Extractor) Extract(ctx context.Context, hit engine.SearchHit) *engine.PageExtract {
	log := e.logger.With("url", hit.URL)

	if err := e.validateURL(hit.URL); err != nil {
		log.DebugContext(ctx, "extractor: URL blocked", "error", err)
		return nil
	}

	body, err := e.fetch(ctx, hit.URL)
	if err != nil {
		log.DebugContext(ctx, "extractor: fetch failed", "error", err)
		return nil
	}

	result, err := extract.Extract(body, extract.Options{})
	if err != nil {
		log.DebugContext(ctx, "extractor: extraction failed", "error", err)
		return nil
	}

	cleanText := extract.CleanText(result.Text)
	if cleanText == "" {
		log.DebugContext(ctx, "extractor: extracted text is empty")
		return nil
	}

	title := strings.TrimSpace(result.Title)
	if title == "" {
		title = hit.Title
	}

	sanitizedHTML := e.sanitizer.Sanitize(result.HTML)
	bodyMD := e.htmlToMarkdown(sanitizedHTML, hit.URL, cleanText)

	page := &engine.PageExtract{
		URL:     hit.URL,
		Title:   title,
		Body:    bodyMD,
		Excerpt: excerpt(cleanText, excerptLen),
	}

	if t := parsePublishedDate(body, hit.PublishedHint); t != nil {
		page.PublishedDate = t
	}

	return page
}

func (e *Extractor) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http status %d", resp.StatusCode)
	}

	ct := resp.Header.Get("Content-Type")
	if ct != "" && !strings.Contains(strings.ToLower(ct), "html") {
		return nil, fmt.Errorf("non-HTML content-type: %s", ct)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, e.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// htmlToMarkdown converts sanitized HTML to markdown, falling back to
// fallback (plain text) if conversion fails or yields nothing.
func (e *Extractor) htmlToMarkdown(html, sourceURL, fallback string) string {
	if html == "" {
		return fallback
	}
	out, err := e.md.ConvertString(html, converter.WithDomain(sourceURL))
	if err != nil || strings.TrimSpace(out) == "" {
		return fallback
	}
	return strings.TrimSpace(out)
}

// excerpt truncates text to at most n runes, breaking on a word boundary
// where possible.
func excerpt(text string, n int) string {
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	cut := string(r[:n])
	if idx := strings.LastIndexAny(cut, " \t\n"); idx > n/2 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut) + "..."
}
