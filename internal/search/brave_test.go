package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestBraveProvider_Search_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Subscription-Token") != "brave-key" {
			t.Errorf("Expected subscription token header, got %q", r.Header.Get("X-Subscription-Token"))
		}
		if r.URL.Query().Get("offset") != "1" {
			t.Errorf("Expected page offset 1, got %s", r.URL.Query().Get("offset"))
		}
		_, _ = fmt.Fprint(w, `{"web": {"results": [
			{"title": "One", "url": "https://one.example", "description": "<strong>first</strong>", "page_age": "2024-02-03T00:00:00"},
			{"title": "Two", "url": "https://two.example", "description": "second"}
		]}}`)
	}))
	defer server.Close()

	provider, err := NewBraveProvider(Config{APIKey: "brave-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	results, err := provider.Search(context.Background(), Query{Text: "claim", Offset: 20, Count: 20})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if results[0].Rank != 21 {
		t.Errorf("Expected rank 21, got %d", results[0].Rank)
	}
	if results[0].PublishedDate == nil {
		t.Error("Expected page_age to be parsed")
	}
	if results[1].PublishedDate != nil {
		t.Error("Expected nil published date when page_age missing")
	}
}

func TestBraveProvider_Search_BeyondLastPage(t *testing.T) {
	provider, _ := NewBraveProvider(Config{APIKey: "k", BaseURL: "http://127.0.0.1:0"})
	results, err := provider.Search(context.Background(), Query{Text: "x", Offset: provider.MaxResults()})
	if err != nil || results != nil {
		t.Errorf("Expected empty result without a call, got %v, %v", results, err)
	}
}

func TestBraveProvider_Search_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	provider, _ := NewBraveProvider(Config{APIKey: "k", BaseURL: server.URL})
	_, err := provider.Search(context.Background(), Query{Text: "x"})
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("Expected ErrRateLimited, got %v", err)
	}
}
