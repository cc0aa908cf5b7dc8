package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	bravePageSize = 20
	braveMaxPages = 10
)

// BraveProvider queries the Brave Web Search API
type BraveProvider struct {
	apiKey     string
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    Waiter
}

type braveResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
			PageAge     string `json:"page_age"`
		} `json:"results"`
	} `json:"web"`
}

// NewBraveProvider creates a new Brave search provider
func NewBraveProvider(config Config) (*BraveProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Brave search API key is required")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "https://api.search.brave.com/res/v1/web/search"
	}

	return &BraveProvider{
		apiKey:     config.APIKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		userAgent:  config.UserAgent,
		httpClient: newHTTPClient(config),
		limiter:    config.Limiter,
	}, nil
}

// Name returns the provider name
func (p *BraveProvider) Name() string {
	return "brave"
}

// PageSize returns the per-call result limit
func (p *BraveProvider) PageSize() int {
	return bravePageSize
}

// MaxResults returns the deepest offset the API serves
func (p *BraveProvider) MaxResults() int {
	return bravePageSize * braveMaxPages
}

// Search fetches one page of results. Brave paginates by page index, so
// Offset is rounded down to a page boundary.
func (p *BraveProvider) Search(ctx context.Context, q Query) ([]Result, error) {
	page := q.Offset / bravePageSize
	if page >= braveMaxPages {
		return nil, nil
	}
	count := q.Count
	if count <= 0 || count > bravePageSize {
		count = bravePageSize
	}

	params := url.Values{}
	params.Set("q", q.Text)
	params.Set("count", strconv.Itoa(count))
	params.Set("offset", strconv.Itoa(page))
	reqURL := p.baseURL + "?" + params.Encode()

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx, reqURL); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Subscription-Token", p.apiKey)
	if p.userAgent != "" {
		httpReq.Header.Set("User-Agent", p.userAgent)
	}

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, statusError("brave", httpResp.StatusCode, string(body))
	}

	var resp braveResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	results := make([]Result, 0, len(resp.Web.Results))
	for i, item := range resp.Web.Results {
		if item.URL == "" {
			continue
		}
		results = append(results, Result{
			URL:           item.URL,
			Title:         item.Title,
			Snippet:       item.Description,
			Rank:          page*bravePageSize + i + 1,
			PublishedDate: parseDate(item.PageAge),
		})
	}

	return results, nil
}
