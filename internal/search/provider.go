package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/claimcheck/internal/util"
)

// ErrRateLimited is returned when the provider rejects a call for quota or
// rate reasons
var ErrRateLimited = errors.New("search provider rate limited")

// Provider defines the interface for web search providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// PageSize is the maximum number of results one call can return
	PageSize() int

	// MaxResults is the deepest result offset the provider serves
	MaxResults() int

	// Search returns one page of ranked results
	Search(ctx context.Context, q Query) ([]Result, error)
}

// Query is a single paginated search request
type Query struct {
	Text   string
	Offset int // 0-based index of the first result
	Count  int // Results wanted, capped at PageSize
}

// Result is one ranked search hit
type Result struct {
	URL           string
	Title         string
	Snippet       string // May contain inline HTML highlighting
	Rank          int    // 1-based position across all pages
	PublishedDate *time.Time
}

// Waiter throttles outbound calls per host
type Waiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// Config holds search provider configuration
type Config struct {
	// Provider name: "google", "brave"
	Provider string

	// APIKey for the provider
	APIKey string

	// EngineID is the Google Programmable Search engine ("cx")
	EngineID string

	// BaseURL for custom endpoints (tests, proxies)
	BaseURL string

	// Timeout per page request
	Timeout time.Duration

	UserAgent string

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string

	// Limiter is optional
	Limiter Waiter
}

// NewProvider creates a search provider based on configuration
func NewProvider(config Config) (Provider, error) {
	switch strings.ToLower(config.Provider) {
	case "google", "":
		return NewGoogleProvider(config)
	case "brave":
		return NewBraveProvider(config)
	default:
		return nil, fmt.Errorf("unknown search provider: %s (supported: google, brave)", config.Provider)
	}
}

func newHTTPClient(config Config) *http.Client {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: util.NewProxyFunc(config.HTTPProxy, config.HTTPSProxy, config.NoProxy),
		},
	}
}

// statusError converts a non-2xx provider response to an error
func statusError(provider string, status int, detail string) error {
	if status == http.StatusTooManyRequests {
		return fmt.Errorf("%s: %w (%d): %s", provider, ErrRateLimited, status, detail)
	}
	return fmt.Errorf("%s API error (%d): %s", provider, status, detail)
}

// parseDate accepts the date layouts providers commonly report
func parseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02", "Jan 2, 2006"} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
