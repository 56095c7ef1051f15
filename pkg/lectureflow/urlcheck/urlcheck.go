// Package urlcheck validates the links in generated reference material.
//
// Generators invent URLs with some regularity; a references slide is only
// worth showing if its links resolve. The validator probes every markdown
// link concurrently, filters out broken ones, and reports whether enough
// survived for the slide to be usable.
package urlcheck

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// markdownLink matches [text](url) pairs.
var markdownLink = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)

// trustedDomains are known-good documentation hosts that get the benefit
// of the doubt on timeout, to avoid penalizing rate-limited probes.
var trustedDomains = map[string]bool{
	"docs.python.org":       true,
	"developer.mozilla.org": true,
	"en.wikipedia.org":      true,
	"github.com":            true,
	"stackoverflow.com":     true,
	"rust-lang.org":         true,
	"doc.rust-lang.org":     true,
	"crates.io":             true,
	"go.dev":                true,
	"pkg.go.dev":            true,
	"nodejs.org":            true,
	"npmjs.com":             true,
	"pypi.org":              true,
	"arxiv.org":             true,
	"doi.org":               true,
	"youtube.com":           true,
}

// Result reports the outcome of validating one references payload.
type Result struct {
	// FilteredText is the input with broken links replaced by
	// struck-through text.
	FilteredText string
	// TotalLinks is the number of links found.
	TotalLinks int
	// ValidLinks is the number that resolved.
	ValidLinks int
}

// NeedsRegeneration reports whether too few links survived for the slide
// to be worth showing: half or more of them broken.
func (r Result) NeedsRegeneration() bool {
	if r.TotalLinks == 0 {
		return false
	}
	return r.ValidLinks*2 <= r.TotalLinks
}

// Validator probes URLs with bounded concurrency.
type Validator struct {
	client      *http.Client
	timeout     time.Duration
	concurrency int
}

// Option configures a Validator.
type Option func(*Validator)

// WithTimeout sets the per-URL probe timeout.
func WithTimeout(d time.Duration) Option {
	return func(v *Validator) {
		if d > 0 {
			v.timeout = d
		}
	}
}

// WithConcurrency bounds the number of in-flight probes.
func WithConcurrency(n int) Option {
	return func(v *Validator) {
		if n > 0 {
			v.concurrency = n
		}
	}
}

// WithHTTPClient overrides the probe client (for tests).
func WithHTTPClient(c *http.Client) Option {
	return func(v *Validator) {
		if c != nil {
			v.client = c
		}
	}
}

// New creates a Validator with sensible defaults.
func New(opts ...Option) *Validator {
	v := &Validator{
		client:      &http.Client{},
		timeout:     10 * time.Second,
		concurrency: 5,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ValidateReferences checks every markdown link in text and returns the
// text with broken links filtered out. Probe failures never fail the
// call; a link that can't be verified is simply treated as broken.
func (v *Validator) ValidateReferences(ctx context.Context, text string) (Result, error) {
	urls := extractURLs(text)
	if len(urls) == 0 {
		return Result{FilteredText: text}, nil
	}

	var mu sync.Mutex
	valid := make(map[string]bool, len(urls))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(v.concurrency)
	for _, url := range urls {
		g.Go(func() error {
			ok := v.probe(ctx, url)
			mu.Lock()
			valid[url] = ok
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, fmt.Errorf("validate references: %w", err)
	}

	validCount := 0
	for _, ok := range valid {
		if ok {
			validCount++
		}
	}

	return Result{
		FilteredText: filterLinks(text, valid),
		TotalLinks:   len(urls),
		ValidLinks:   validCount,
	}, nil
}

// probe checks one URL with a HEAD request, falling back to GET when the
// server rejects HEAD. 2xx and 3xx count as valid.
func (v *Validator) probe(ctx context.Context, url string) bool {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	status, err := v.request(ctx, http.MethodHead, url)
	if err == nil && status == http.StatusMethodNotAllowed {
		status, err = v.request(ctx, http.MethodGet, url)
	}
	if err != nil {
		// Trusted hosts get the benefit of the doubt on timeout.
		if errors.Is(err, context.DeadlineExceeded) && trustedDomains[domainOf(url)] {
			return true
		}
		return false
	}
	return status < http.StatusBadRequest
}

func (v *Validator) request(ctx context.Context, method, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; lectureflow/1.0; +educational)")

	resp, err := v.client.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

// extractURLs pulls every http(s) link target from markdown text.
func extractURLs(text string) []string {
	var urls []string
	seen := make(map[string]bool)
	for _, m := range markdownLink.FindAllStringSubmatch(text, -1) {
		url := m[2]
		if strings.HasPrefix(url, "http") && !seen[url] {
			seen[url] = true
			urls = append(urls, url)
		}
	}
	return urls
}

// filterLinks rewrites markdown, keeping valid links and replacing broken
// ones with struck-through plain text.
func filterLinks(text string, valid map[string]bool) string {
	return markdownLink.ReplaceAllStringFunc(text, func(match string) string {
		m := markdownLink.FindStringSubmatch(match)
		if !strings.HasPrefix(m[2], "http") || valid[m[2]] {
			return match
		}
		return fmt.Sprintf("~~%s~~ (link unavailable)", m[1])
	})
}

// domainOf extracts the host from a URL, dropping a www. prefix and any
// explicit port.
func domainOf(url string) string {
	rest := url
	if i := strings.Index(rest, "//"); i >= 0 {
		rest = rest[i+2:]
	}
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	if i := strings.IndexByte(rest, ':'); i >= 0 {
		rest = rest[:i]
	}
	return strings.TrimPrefix(rest, "www.")
}
