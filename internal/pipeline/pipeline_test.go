package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/claimcheck/internal/analyze"
	"github.com/ppiankov/claimcheck/internal/cache"
	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/score"
)

const coffeeClaim = "Coffee consumption has no link to reduced mortality risk in large studies."

type fakeRetriever struct {
	mu       sync.Mutex
	sources  []model.CandidateSource
	err      error
	calls    int
	extended int
}

func (f *fakeRetriever) Retrieve(ctx context.Context, query string, max int) ([]model.CandidateSource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.sources, f.err
}

func (f *fakeRetriever) RetrieveExtended(ctx context.Context, query string, max int) ([]model.CandidateSource, error) {
	f.mu.Lock()
	f.extended++
	f.mu.Unlock()
	return f.Retrieve(ctx, query, max)
}

// fakeAnalyzer labels sources by the "label:" prefix of their content
type fakeAnalyzer struct {
	mu        sync.Mutex
	err       error
	breakdown *score.Breakdown
	calls     int
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, claim string, sources []model.CandidateSource) (*analyze.Outcome, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}

	categorized := make([]model.CategorizedSource, len(sources))
	for i, s := range sources {
		rel, _, _ := strings.Cut(s.Content, ":")
		categorized[i] = model.CategorizedSource{CandidateSource: s, Relevance: model.Relevance(rel)}
	}
	counts := score.Count(categorized)
	breakdown := score.Normalize(counts)
	if f.breakdown != nil {
		breakdown = *f.breakdown
	}
	return &analyze.Outcome{
		Sources:       categorized,
		Counts:        counts,
		Breakdown:     breakdown,
		AccuracyScore: 22.5,
		Summary:       "Large cohort studies link coffee to lower mortality.",
		Translations:  map[string]string{"es": "resumen"},
	}, nil
}

// memCache is an in-memory ResultCache
type memCache struct {
	mu       sync.Mutex
	byKey    map[string]*model.AnalysisResult
	byID     map[string]*model.AnalysisResult
	getErr   error
	setErr   error
	setCalls int
}

func newMemCache() *memCache {
	return &memCache{byKey: map[string]*model.AnalysisResult{}, byID: map[string]*model.AnalysisResult{}}
}

func (c *memCache) Get(ctx context.Context, text string) (*model.AnalysisResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	r, ok := c.byKey[cache.Normalize(text)]
	if !ok {
		return nil, model.ErrNotFound
	}
	out := r.Clone()
	out.Cached = true
	return out, nil
}

func (c *memCache) Set(ctx context.Context, r *model.AnalysisResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setCalls++
	if c.setErr != nil {
		return c.setErr
	}
	c.byKey[cache.Normalize(r.ClaimText)] = r.Clone()
	c.byID[r.ID] = r.Clone()
	return nil
}

func (c *memCache) GetByID(ctx context.Context, id string) (*model.AnalysisResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.byID[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return r.Clone(), nil
}

// labelled builds sources whose content carries the stance label, each on
// its own domain
func labelled(counts map[model.Relevance]int) []model.CandidateSource {
	var out []model.CandidateSource
	for _, rel := range model.Relevances {
		for i := 0; i < counts[rel]; i++ {
			out = append(out, model.CandidateSource{
				URL:     fmt.Sprintf("https://%s-%d.example.org/article", rel, i),
				Title:   fmt.Sprintf("%s %d", rel, i),
				Content: string(rel) + ": study text",
			})
		}
	}
	total := len(out)
	for i := range out {
		out[i].RelevanceScore = 1 - float64(i)/float64(total)
	}
	return out
}

func coffeeSources() []model.CandidateSource {
	return labelled(map[model.Relevance]int{
		model.RelevanceContradicting: 12,
		model.RelevanceNeutral:       5,
		model.RelevanceSupporting:    3,
	})
}

func newTestPipeline(r *fakeRetriever, a *fakeAnalyzer, c ResultCache, cfg Config) *Pipeline {
	p := New(r, a, c, cfg, nil)
	p.now = func() time.Time { return time.Date(2026, 4, 1, 9, 30, 0, 0, time.FixedZone("CET", 3600)) }
	return p
}

func TestAnalyzeClaim_ScenarioA(t *testing.T) {
	r := &fakeRetriever{sources: coffeeSources()}
	a := &fakeAnalyzer{}
	c := newMemCache()
	p := newTestPipeline(r, a, c, DefaultConfig())

	result, err := p.AnalyzeClaim(context.Background(), coffeeClaim)
	require.NoError(t, err)

	assert.Equal(t, 15.0, result.AgreementScore)
	assert.Equal(t, 60.0, result.DisagreementScore)
	assert.Equal(t, 25.0, result.NeutralScore)
	assert.NoError(t, score.Verify(score.Breakdown{
		Agreement:    result.AgreementScore,
		Disagreement: result.DisagreementScore,
		Neutral:      result.NeutralScore,
	}))

	assert.False(t, result.Cached)
	assert.NotEmpty(t, result.ID)
	assert.Equal(t, coffeeClaim, result.ClaimText)
	assert.Equal(t, 20, result.TotalSourcesRetrieved)
	assert.Equal(t, time.UTC, result.AnalyzedAt.Location())
	assert.Equal(t, 22.5, result.AccuracyScore)
	assert.Equal(t, "resumen", result.Translations["es"])

	// 10 contradicting shown, all 5 neutral and all 3 supporting
	assert.Len(t, result.SourcesByRelevance(model.RelevanceContradicting), 10)
	assert.Len(t, result.SourcesByRelevance(model.RelevanceNeutral), 5)
	assert.Len(t, result.SourcesByRelevance(model.RelevanceSupporting), 3)
	assert.Equal(t, model.RelevanceSupporting, result.Sources[0].Relevance)

	assert.Equal(t, 1, c.setCalls)
}

func TestAnalyzeClaim_ScenarioB_CacheHit(t *testing.T) {
	r := &fakeRetriever{sources: coffeeSources()}
	a := &fakeAnalyzer{}
	c := newMemCache()
	p := newTestPipeline(r, a, c, DefaultConfig())
	ctx := context.Background()

	first, err := p.AnalyzeClaim(ctx, coffeeClaim)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := p.AnalyzeClaim(ctx, "  COFFEE consumption has no link to   reduced mortality risk in large studies.  ")
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.AgreementScore, second.AgreementScore)
	assert.Equal(t, first.DisagreementScore, second.DisagreementScore)
	assert.Equal(t, first.NeutralScore, second.NeutralScore)
	assert.Equal(t, first.AccuracyScore, second.AccuracyScore)

	assert.Equal(t, 1, r.calls)
	assert.Equal(t, 1, a.calls)
}

func TestAnalyzeClaim_ScenarioB_WithResultCache(t *testing.T) {
	store, err := cache.NewDiskStore(t.TempDir())
	require.NoError(t, err)
	rc := cache.NewResultCache(store, 7*24*time.Hour)
	t.Cleanup(func() { _ = rc.Close() })

	r := &fakeRetriever{sources: coffeeSources()}
	a := &fakeAnalyzer{}
	p := New(r, a, rc, DefaultConfig(), nil)
	ctx := context.Background()

	first, err := p.AnalyzeClaim(ctx, coffeeClaim)
	require.NoError(t, err)

	second, err := p.AnalyzeClaim(ctx, strings.ToUpper(coffeeClaim))
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Sources, second.Sources)
	assert.Equal(t, 1, r.calls)

	byID, err := p.GetAnalysis(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Summary, byID.Summary)
}

func TestAnalyzeClaim_ScenarioC_Validation(t *testing.T) {
	r := &fakeRetriever{sources: coffeeSources()}
	a := &fakeAnalyzer{}
	c := newMemCache()
	p := newTestPipeline(r, a, c, DefaultConfig())

	for _, text := range []string{"short", "", "   \t  ", strings.Repeat("x", model.MaxClaimLength+1)} {
		_, err := p.AnalyzeClaim(context.Background(), text)
		assert.True(t, errors.Is(err, model.ErrValidation), "text %q: %v", text, err)
	}
	assert.Equal(t, 0, r.calls)
	assert.Equal(t, 0, a.calls)
	assert.Equal(t, 0, c.setCalls)
}

func TestAnalyzeClaim_ScenarioD_NoSources(t *testing.T) {
	r := &fakeRetriever{}
	a := &fakeAnalyzer{}
	c := newMemCache()
	p := newTestPipeline(r, a, c, DefaultConfig())

	_, err := p.AnalyzeClaim(context.Background(), coffeeClaim)
	assert.True(t, errors.Is(err, model.ErrNoSources))
	assert.Equal(t, model.KindNoSources, model.KindOf(err))
	assert.Equal(t, 0, a.calls)
	assert.Equal(t, 0, c.setCalls)
}

func TestAnalyzeClaim_RetrievalError(t *testing.T) {
	r := &fakeRetriever{err: model.NewError(model.KindSourceRetrieval, "all pages failed", errors.New("503"))}
	a := &fakeAnalyzer{}
	c := newMemCache()
	p := newTestPipeline(r, a, c, DefaultConfig())

	_, err := p.AnalyzeClaim(context.Background(), coffeeClaim)
	assert.True(t, errors.Is(err, model.ErrSourceRetrieval))
	assert.Equal(t, 0, a.calls)
	assert.Equal(t, 0, c.setCalls)
}

func TestAnalyzeClaim_AnalysisErrorNotCached(t *testing.T) {
	r := &fakeRetriever{sources: coffeeSources()}
	a := &fakeAnalyzer{err: model.NewError(model.KindAnalysis, "categorize batch 2/5", errors.New("bad json"))}
	c := newMemCache()
	p := newTestPipeline(r, a, c, DefaultConfig())

	_, err := p.AnalyzeClaim(context.Background(), coffeeClaim)
	assert.True(t, errors.Is(err, model.ErrAnalysis))
	assert.Equal(t, 0, c.setCalls)
}

func TestAnalyzeClaim_CacheReadErrorIsMiss(t *testing.T) {
	r := &fakeRetriever{sources: coffeeSources()}
	a := &fakeAnalyzer{}
	c := newMemCache()
	c.getErr = errors.New("connection refused")
	p := newTestPipeline(r, a, c, DefaultConfig())

	result, err := p.AnalyzeClaim(context.Background(), coffeeClaim)
	require.NoError(t, err)
	assert.False(t, result.Cached)
	assert.Equal(t, 1, r.calls)
}

func TestAnalyzeClaim_CacheWriteErrorStillReturns(t *testing.T) {
	r := &fakeRetriever{sources: coffeeSources()}
	a := &fakeAnalyzer{}
	c := newMemCache()
	c.setErr = errors.New("disk full")
	p := newTestPipeline(r, a, c, DefaultConfig())

	result, err := p.AnalyzeClaim(context.Background(), coffeeClaim)
	require.NoError(t, err)
	assert.NotEmpty(t, result.ID)
	assert.Equal(t, 1, c.setCalls)
}

func TestAnalyzeClaim_NoCache(t *testing.T) {
	r := &fakeRetriever{sources: coffeeSources()}
	p := newTestPipeline(r, &fakeAnalyzer{}, nil, DefaultConfig())

	_, err := p.AnalyzeClaim(context.Background(), coffeeClaim)
	require.NoError(t, err)
	_, err = p.AnalyzeClaim(context.Background(), coffeeClaim)
	require.NoError(t, err)
	assert.Equal(t, 2, r.calls)
}

func TestAnalyzeClaim_RecomputesBrokenBreakdown(t *testing.T) {
	r := &fakeRetriever{sources: coffeeSources()}
	a := &fakeAnalyzer{breakdown: &score.Breakdown{Agreement: 15, Disagreement: 60, Neutral: 25.1}}
	p := newTestPipeline(r, a, nil, DefaultConfig())

	result, err := p.AnalyzeClaim(context.Background(), coffeeClaim)
	require.NoError(t, err)
	assert.Equal(t, 15.0, result.AgreementScore)
	assert.Equal(t, 60.0, result.DisagreementScore)
	assert.Equal(t, 25.0, result.NeutralScore)
}

func TestAnalyzeClaim_ExtendedMode(t *testing.T) {
	r := &fakeRetriever{sources: coffeeSources()}
	cfg := DefaultConfig()
	cfg.Extended = true
	p := newTestPipeline(r, &fakeAnalyzer{}, nil, cfg)

	_, err := p.AnalyzeClaim(context.Background(), coffeeClaim)
	require.NoError(t, err)
	assert.Equal(t, 1, r.extended)
}

func TestAnalyzeClaim_TotalIsPreDedup(t *testing.T) {
	sources := make([]model.CandidateSource, 15)
	for i := range sources {
		sources[i] = model.CandidateSource{
			URL:            fmt.Sprintf("https://www.same.example/page-%d", i),
			Content:        "supporting: text",
			RelevanceScore: 1 - float64(i)/15,
		}
	}
	p := newTestPipeline(&fakeRetriever{sources: sources}, &fakeAnalyzer{}, nil, DefaultConfig())

	result, err := p.AnalyzeClaim(context.Background(), coffeeClaim)
	require.NoError(t, err)
	assert.Equal(t, 15, result.TotalSourcesRetrieved)
	require.Len(t, result.Sources, 1)
	assert.Equal(t, "https://www.same.example/page-0", result.Sources[0].URL)
	assert.Equal(t, 100.0, result.AgreementScore)
}

func TestGetAnalysis(t *testing.T) {
	c := newMemCache()
	p := newTestPipeline(&fakeRetriever{}, &fakeAnalyzer{}, c, DefaultConfig())
	ctx := context.Background()

	_, err := p.GetAnalysis(ctx, "not-a-uuid")
	assert.True(t, errors.Is(err, model.ErrValidation))

	_, err = p.GetAnalysis(ctx, "6f1c7d8e-8c1b-4c5e-9a55-0d2f7e3b9a10")
	assert.True(t, errors.Is(err, model.ErrNotFound))

	stored := &model.AnalysisResult{ID: "6f1c7d8e-8c1b-4c5e-9a55-0d2f7e3b9a10", ClaimText: coffeeClaim}
	require.NoError(t, c.Set(ctx, stored))
	got, err := p.GetAnalysis(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, coffeeClaim, got.ClaimText)

	noCache := newTestPipeline(&fakeRetriever{}, &fakeAnalyzer{}, nil, DefaultConfig())
	_, err = noCache.GetAnalysis(ctx, stored.ID)
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestConfigFromModel(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Search.TargetResults = 40
	cfg.Search.Extended = true
	cfg.Analysis.DisplayPerStance = 5

	got := ConfigFromModel(cfg)
	assert.Equal(t, Config{TargetSources: 40, Extended: true, DisplayPerStance: 5}, got)
}
