package pipeline

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/claimcheck/internal/model"
)

func src(rawURL string, rel model.Relevance, score float64) model.CategorizedSource {
	return model.CategorizedSource{
		CandidateSource: model.CandidateSource{URL: rawURL, RelevanceScore: score},
		Relevance:       rel,
	}
}

func TestDisplaySources_SameDomainCap(t *testing.T) {
	var sources []model.CategorizedSource
	for i := 0; i < 15; i++ {
		sources = append(sources, src(fmt.Sprintf("https://news.example.com/%d", i), model.RelevanceSupporting, 1-float64(i)/15))
	}

	got := DisplaySources(sources, 10)
	require.Len(t, got, 1)
	assert.Equal(t, "https://news.example.com/0", got[0].URL)
}

func TestDisplaySources_CapPerStance(t *testing.T) {
	var sources []model.CategorizedSource
	for i := 0; i < 15; i++ {
		sources = append(sources, src(fmt.Sprintf("https://site%d.example/", i), model.RelevanceContradicting, 1-float64(i)/15))
	}

	got := DisplaySources(sources, 10)
	require.Len(t, got, 10)
	assert.Equal(t, "https://site0.example/", got[0].URL)
	assert.Equal(t, "https://site9.example/", got[9].URL)
}

func TestDisplaySources_WWWStripped(t *testing.T) {
	sources := []model.CategorizedSource{
		src("https://www.example.com/a", model.RelevanceNeutral, 0.9),
		src("https://example.com/b", model.RelevanceNeutral, 0.8),
		src("https://WWW.Example.com/c", model.RelevanceNeutral, 0.7),
	}

	got := DisplaySources(sources, 10)
	require.Len(t, got, 1)
	assert.Equal(t, "https://www.example.com/a", got[0].URL)
}

func TestDisplaySources_DomainDedupPerStance(t *testing.T) {
	sources := []model.CategorizedSource{
		src("https://example.com/a", model.RelevanceSupporting, 0.9),
		src("https://example.com/b", model.RelevanceContradicting, 0.8),
		src("https://example.com/c", model.RelevanceNeutral, 0.7),
		src("https://example.com/d", model.RelevanceSupporting, 0.6),
	}

	got := DisplaySources(sources, 10)
	require.Len(t, got, 3)
	assert.Equal(t, model.RelevanceSupporting, got[0].Relevance)
	assert.Equal(t, model.RelevanceContradicting, got[1].Relevance)
	assert.Equal(t, model.RelevanceNeutral, got[2].Relevance)
}

func TestDisplaySources_OrderAndRank(t *testing.T) {
	sources := []model.CategorizedSource{
		src("https://n.example/", model.RelevanceNeutral, 0.95),
		src("https://c1.example/", model.RelevanceContradicting, 0.5),
		src("https://s1.example/", model.RelevanceSupporting, 0.4),
		src("https://c2.example/", model.RelevanceContradicting, 0.9),
		src("https://s2.example/", model.RelevanceSupporting, 0.8),
	}

	got := DisplaySources(sources, 10)
	var urls []string
	for _, s := range got {
		urls = append(urls, s.URL)
	}
	assert.Equal(t, []string{
		"https://s2.example/",
		"https://s1.example/",
		"https://c2.example/",
		"https://c1.example/",
		"https://n.example/",
	}, urls)
}

func TestDisplaySources_UnknownLabelIsNeutral(t *testing.T) {
	got := DisplaySources([]model.CategorizedSource{src("https://x.example/", "maybe", 0.5)}, 10)
	require.Len(t, got, 1)
	assert.Equal(t, model.RelevanceNeutral, got[0].Relevance)
}

func TestDomain(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://www.example.com/path", "example.com"},
		{"http://News.BBC.co.uk/x", "news.bbc.co.uk"},
		{"https://example.com:8443/a", "example.com"},
		{"not a url", "not a url"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Domain(tt.in), "Domain(%q)", tt.in)
	}
}
