// Package pipeline orchestrates one fact-check: cache lookup, source
// retrieval, analysis, display post-processing and persistence.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/claimcheck/internal/analyze"
	"github.com/ppiankov/claimcheck/internal/metrics"
	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/score"
	"github.com/ppiankov/claimcheck/internal/validate"
)

// SourceRetriever gathers candidate sources for a claim
type SourceRetriever interface {
	Retrieve(ctx context.Context, query string, max int) ([]model.CandidateSource, error)
	RetrieveExtended(ctx context.Context, query string, max int) ([]model.CandidateSource, error)
}

// ClaimAnalyzer labels sources and summarizes the verdict
type ClaimAnalyzer interface {
	Analyze(ctx context.Context, claim string, sources []model.CandidateSource) (*analyze.Outcome, error)
}

// ResultCache stores finished analyses. Misses return model.ErrNotFound.
type ResultCache interface {
	Get(ctx context.Context, claimText string) (*model.AnalysisResult, error)
	Set(ctx context.Context, result *model.AnalysisResult) error
	GetByID(ctx context.Context, id string) (*model.AnalysisResult, error)
}

// Config tunes the orchestrator
type Config struct {
	TargetSources    int  // Sources requested from the retriever
	Extended         bool // Use query variants
	DisplayPerStance int  // Displayed sources per stance after domain dedup
}

// DefaultConfig returns the default orchestrator settings
func DefaultConfig() Config {
	return Config{
		TargetSources:    100,
		DisplayPerStance: 10,
	}
}

// ConfigFromModel derives orchestrator settings from the app config
func ConfigFromModel(cfg *model.Config) Config {
	c := DefaultConfig()
	if cfg.Search.TargetResults > 0 {
		c.TargetSources = cfg.Search.TargetResults
	}
	if cfg.Analysis.DisplayPerStance > 0 {
		c.DisplayPerStance = cfg.Analysis.DisplayPerStance
	}
	c.Extended = cfg.Search.Extended
	return c
}

// Pipeline is the fact-check orchestrator
type Pipeline struct {
	retriever SourceRetriever
	analyzer  ClaimAnalyzer
	cache     ResultCache // nil disables caching
	config    Config
	logger    *slog.Logger

	now   func() time.Time
	newID func() string
}

// New creates a pipeline. cache may be nil.
func New(retriever SourceRetriever, analyzer ClaimAnalyzer, cache ResultCache, config Config, logger *slog.Logger) *Pipeline {
	if config.TargetSources <= 0 {
		config.TargetSources = 100
	}
	if config.DisplayPerStance <= 0 {
		config.DisplayPerStance = 10
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		retriever: retriever,
		analyzer:  analyzer,
		cache:     cache,
		config:    config,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// AnalyzeClaim fact-checks one claim. A fresh cached result is returned
// as is; otherwise sources are retrieved and analyzed and the result is
// cached. Failures before persistence never write to the cache.
func (p *Pipeline) AnalyzeClaim(ctx context.Context, text string) (*model.AnalysisResult, error) {
	start := time.Now()
	result, err := p.analyzeClaim(ctx, text)

	outcome := "ok"
	if err != nil {
		outcome = string(model.KindOf(err))
	}
	metrics.RecordAnalysis(outcome, result != nil && result.Cached, time.Since(start).Seconds())
	return result, err
}

func (p *Pipeline) analyzeClaim(ctx context.Context, text string) (*model.AnalysisResult, error) {
	claim, err := validate.Claim(text)
	if err != nil {
		return nil, err
	}
	log := p.logger.With("claim", claim)

	if cached := p.lookup(ctx, log, claim); cached != nil {
		log.Info("cache hit", "id", cached.ID)
		return cached, nil
	}

	sources, err := p.retrieve(ctx, claim)
	if err != nil {
		log.Error("source retrieval failed", "error", err)
		return nil, err
	}
	if len(sources) == 0 {
		return nil, model.NewError(model.KindNoSources, "search returned no usable sources", nil)
	}
	log.Info("sources retrieved", "count", len(sources))

	outcome, err := p.analyzer.Analyze(ctx, claim, sources)
	if err != nil {
		log.Error("analysis failed", "error", err)
		return nil, err
	}

	result := p.assemble(log, claim, len(sources), outcome)

	if p.cache != nil {
		if err := p.cache.Set(ctx, result); err != nil {
			log.Warn("cache write failed", "id", result.ID, "error", err)
		}
	}

	log.Info("analysis complete",
		"id", result.ID,
		"accuracy", result.AccuracyScore,
		"agreement", result.AgreementScore,
		"disagreement", result.DisagreementScore,
		"neutral", result.NeutralScore)
	return result, nil
}

// GetAnalysis returns a stored analysis by id
func (p *Pipeline) GetAnalysis(ctx context.Context, id string) (*model.AnalysisResult, error) {
	if err := validate.ID(id); err != nil {
		return nil, err
	}
	if p.cache == nil {
		return nil, model.NewError(model.KindNotFound, "analysis not found", nil)
	}

	result, err := p.cache.GetByID(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		return nil, model.NewError(model.KindNotFound, "analysis not found", err)
	}
	if err != nil {
		return nil, model.NewError(model.KindInternal, "load analysis", err)
	}
	return result, nil
}

// lookup returns a fresh cached result or nil. Read errors count as a miss.
func (p *Pipeline) lookup(ctx context.Context, log *slog.Logger, claim string) *model.AnalysisResult {
	if p.cache == nil {
		return nil
	}
	result, err := p.cache.Get(ctx, claim)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			log.Warn("cache read failed", "error", err)
		}
		return nil
	}
	return result
}

func (p *Pipeline) retrieve(ctx context.Context, claim string) ([]model.CandidateSource, error) {
	if p.config.Extended {
		return p.retriever.RetrieveExtended(ctx, claim, p.config.TargetSources)
	}
	return p.retriever.Retrieve(ctx, claim, p.config.TargetSources)
}

// assemble builds the final result from the analyzer outcome
func (p *Pipeline) assemble(log *slog.Logger, claim string, retrieved int, outcome *analyze.Outcome) *model.AnalysisResult {
	breakdown := outcome.Breakdown
	if err := score.Verify(breakdown); err != nil {
		log.Warn("score breakdown failed verification, recomputing", "error", err)
		breakdown = score.Normalize(score.Count(outcome.Sources))
	}

	return &model.AnalysisResult{
		ID:                    p.newID(),
		ClaimText:             claim,
		AccuracyScore:         outcome.AccuracyScore,
		AgreementScore:        breakdown.Agreement,
		DisagreementScore:     breakdown.Disagreement,
		NeutralScore:          breakdown.Neutral,
		Summary:               outcome.Summary,
		Translations:          outcome.Translations,
		Sources:               DisplaySources(outcome.Sources, p.config.DisplayPerStance),
		TotalSourcesRetrieved: retrieved,
		AnalyzedAt:            p.now().UTC(),
		Cached:                false,
	}
}
