package urlcheck

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestValidateReferences_FiltersBrokenLinks verifies broken links are
// struck through while working ones pass untouched.
func TestValidateReferences_FiltersBrokenLinks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/good" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	text := fmt.Sprintf("See [The Good Doc](%s/good) and [The Bad Doc](%s/bad).", srv.URL, srv.URL)
	v := New()

	result, err := v.ValidateReferences(context.Background(), text)
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalLinks)
	assert.Equal(t, 1, result.ValidLinks)
	assert.Contains(t, result.FilteredText, fmt.Sprintf("[The Good Doc](%s/good)", srv.URL))
	assert.Contains(t, result.FilteredText, "~~The Bad Doc~~ (link unavailable)")
	assert.True(t, result.NeedsRegeneration(), "half broken is too many")
}

// TestValidateReferences_NoLinks verifies text without links is returned
// unchanged.
func TestValidateReferences_NoLinks(t *testing.T) {
	v := New()
	result, err := v.ValidateReferences(context.Background(), "Plain prose, no links here.")
	require.NoError(t, err)
	assert.Equal(t, "Plain prose, no links here.", result.FilteredText)
	assert.Zero(t, result.TotalLinks)
	assert.False(t, result.NeedsRegeneration())
}

// TestValidateReferences_NonHTTPLinksIgnored verifies anchors and mailto
// targets are neither probed nor filtered.
func TestValidateReferences_NonHTTPLinksIgnored(t *testing.T) {
	v := New()
	text := "Jump to [the appendix](#appendix) or [email us](mailto:x@example.com)."

	result, err := v.ValidateReferences(context.Background(), text)
	require.NoError(t, err)
	assert.Equal(t, text, result.FilteredText)
	assert.Zero(t, result.TotalLinks)
}

// TestValidateReferences_GetFallbackOn405 verifies servers rejecting HEAD
// are retried with GET.
func TestValidateReferences_GetFallbackOn405(t *testing.T) {
	var gets atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		gets.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	v := New()
	result, err := v.ValidateReferences(context.Background(),
		fmt.Sprintf("[Doc](%s/page)", srv.URL))
	require.NoError(t, err)

	assert.Equal(t, 1, result.ValidLinks)
	assert.Equal(t, int32(1), gets.Load())
}

// TestValidateReferences_DuplicateURLsProbedOnce verifies deduplication.
func TestValidateReferences_DuplicateURLsProbedOnce(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	v := New()
	text := fmt.Sprintf("[One](%s/a) and [Two](%s/a)", srv.URL, srv.URL)
	result, err := v.ValidateReferences(context.Background(), text)
	require.NoError(t, err)

	assert.Equal(t, 1, result.TotalLinks, "duplicate targets count once")
	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, text, result.FilteredText)
}

// TestValidateReferences_Timeout verifies an unresponsive host counts as
// broken rather than hanging the validation.
func TestValidateReferences_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer srv.Close()

	v := New(WithTimeout(30 * time.Millisecond))
	result, err := v.ValidateReferences(context.Background(),
		fmt.Sprintf("[Slow](%s/slow)", srv.URL))
	require.NoError(t, err)
	assert.Zero(t, result.ValidLinks)
	assert.Contains(t, result.FilteredText, "~~Slow~~")
}

// TestValidateReferences_ConcurrencyBound verifies SetLimit holds.
func TestValidateReferences_ConcurrencyBound(t *testing.T) {
	var inFlight, peak atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	var text string
	for i := 0; i < 10; i++ {
		text += fmt.Sprintf("[Doc %d](%s/p%d) ", i, srv.URL, i)
	}

	v := New(WithConcurrency(2))
	result, err := v.ValidateReferences(context.Background(), text)
	require.NoError(t, err)
	assert.Equal(t, 10, result.ValidLinks)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

// TestResult_NeedsRegeneration covers the threshold.
func TestResult_NeedsRegeneration(t *testing.T) {
	testCases := []struct {
		name  string
		total int
		valid int
		want  bool
	}{
		{"no links", 0, 0, false},
		{"all valid", 4, 4, false},
		{"over half", 3, 2, false},
		{"exactly half", 4, 2, true},
		{"under half", 4, 1, true},
		{"none valid", 3, 0, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := Result{TotalLinks: tc.total, ValidLinks: tc.valid}
			assert.Equal(t, tc.want, r.NeedsRegeneration())
		})
	}
}

// TestDomainOf covers host extraction.
func TestDomainOf(t *testing.T) {
	assert.Equal(t, "go.dev", domainOf("https://go.dev/doc/"))
	assert.Equal(t, "example.com", domainOf("https://www.example.com"))
	assert.Equal(t, "github.com", domainOf("http://github.com/golang/go"))
	assert.Equal(t, "github.com", domainOf("https://github.com:443/golang/go"))
	assert.Equal(t, "example.com", domainOf("https://www.example.com:8080"))
}
