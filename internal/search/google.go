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
	"time"
)

const (
	googlePageSize   = 10
	googleMaxResults = 100
)

// GoogleProvider queries the Google Programmable Search JSON API
type GoogleProvider struct {
	apiKey     string
	engineID   string
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    Waiter
}

type googleResponse struct {
	Items []struct {
		Title       string `json:"title"`
		Link        string `json:"link"`
		Snippet     string `json:"snippet"`
		HTMLSnippet string `json:"htmlSnippet"`
		Pagemap     struct {
			Metatags []map[string]string `json:"metatags"`
		} `json:"pagemap"`
	} `json:"items"`
}

type googleError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// NewGoogleProvider creates a new Google search provider
func NewGoogleProvider(config Config) (*GoogleProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Google search API key is required")
	}
	if config.EngineID == "" {
		return nil, fmt.Errorf("Google search engine ID (cx) is required")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "https://www.googleapis.com/customsearch/v1"
	}

	return &GoogleProvider{
		apiKey:     config.APIKey,
		engineID:   config.EngineID,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		userAgent:  config.UserAgent,
		httpClient: newHTTPClient(config),
		limiter:    config.Limiter,
	}, nil
}

// Name returns the provider name
func (p *GoogleProvider) Name() string {
	return "google"
}

// PageSize returns the per-call result limit
func (p *GoogleProvider) PageSize() int {
	return googlePageSize
}

// MaxResults returns the deepest offset the API serves
func (p *GoogleProvider) MaxResults() int {
	return googleMaxResults
}

// Search fetches one page of results
func (p *GoogleProvider) Search(ctx context.Context, q Query) ([]Result, error) {
	count := q.Count
	if count <= 0 || count > googlePageSize {
		count = googlePageSize
	}
	// The API rejects start+num beyond 100
	if q.Offset+count > googleMaxResults {
		count = googleMaxResults - q.Offset
	}
	if count <= 0 {
		return nil, nil
	}

	params := url.Values{}
	params.Set("key", p.apiKey)
	params.Set("cx", p.engineID)
	params.Set("q", q.Text)
	params.Set("start", strconv.Itoa(q.Offset+1))
	params.Set("num", strconv.Itoa(count))
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
		detail := string(body)
		var apiErr googleError
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
			detail = apiErr.Error.Message
			// Daily quota exhaustion is reported as 403 rateLimitExceeded
			if httpResp.StatusCode == http.StatusForbidden && strings.Contains(strings.ToLower(detail), "quota") {
				return nil, statusError("google", http.StatusTooManyRequests, detail)
			}
		}
		return nil, statusError("google", httpResp.StatusCode, detail)
	}

	var resp googleResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	results := make([]Result, 0, len(resp.Items))
	for i, item := range resp.Items {
		if item.Link == "" {
			continue
		}
		snippet := item.HTMLSnippet
		if snippet == "" {
			snippet = item.Snippet
		}
		results = append(results, Result{
			URL:           item.Link,
			Title:         item.Title,
			Snippet:       snippet,
			Rank:          q.Offset + i + 1,
			PublishedDate: googlePublished(item.Pagemap.Metatags),
		})
	}

	return results, nil
}

func googlePublished(metatags []map[string]string) *time.Time {
	for _, tags := range metatags {
		for _, key := range []string{"article:published_time", "og:published_time", "datepublished", "date"} {
			if t := parseDate(tags[key]); t != nil {
				return t
			}
		}
	}
	return nil
}
