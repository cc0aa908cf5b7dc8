// Package analyze labels retrieved sources against a claim with a language
// model and turns the labels into scores, a summary and translations.
package analyze

import (
	"context"
	"log/slog"

	"github.com/ppiankov/claimcheck/internal/llm"
	"github.com/ppiankov/claimcheck/internal/metrics"
	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/score"
)

// Config tunes the analyzer
type Config struct {
	// Batches is the number of parallel categorization calls
	Batches int

	// Languages are the summary translation targets; empty disables translation
	Languages []string

	// ExamplesPerStance bounds the titles given to the summary call
	ExamplesPerStance int
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Batches:           5,
		Languages:         []string{"es", "fr", "de", "ja", "zh"},
		ExamplesPerStance: 10,
	}
}

// ConfigFromModel converts model.Config to analyze.Config
func ConfigFromModel(cfg *model.Config) Config {
	c := DefaultConfig()
	if cfg.Analysis.Batches > 0 {
		c.Batches = cfg.Analysis.Batches
	}
	c.Languages = cfg.Analysis.Languages
	return c
}

// Outcome is everything the analyzer derives for one claim
type Outcome struct {
	// Sources holds every input source with its label, in input order
	Sources []model.CategorizedSource

	Counts    score.Counts
	Breakdown score.Breakdown

	AccuracyScore float64
	Summary       string

	// Translations is nil when translation was skipped or failed
	Translations map[string]string
}

// Analyzer drives the categorization, summary and translation calls
type Analyzer struct {
	provider llm.Provider
	config   Config
	logger   *slog.Logger
}

// New creates an analyzer over an LLM provider
func New(provider llm.Provider, config Config, logger *slog.Logger) *Analyzer {
	if config.Batches <= 0 {
		config.Batches = 1
	}
	if config.ExamplesPerStance <= 0 {
		config.ExamplesPerStance = 10
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{provider: provider, config: config, logger: logger}
}

// Analyze categorizes all sources, aggregates them and summarizes the
// verdict. Categorization or summary failures abort with an analysis
// error; translation failures only drop the translations.
func (a *Analyzer) Analyze(ctx context.Context, claim string, sources []model.CandidateSource) (*Outcome, error) {
	if len(sources) == 0 {
		return nil, model.NewError(model.KindNoSources, "no sources to analyze", nil)
	}

	categorized, err := a.categorize(ctx, claim, sources)
	if err != nil {
		return nil, err
	}

	counts := score.Count(categorized)
	breakdown := score.Normalize(counts)

	summary, err := a.summarize(ctx, claim, categorized, counts, breakdown)
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{
		Sources:       categorized,
		Counts:        counts,
		Breakdown:     breakdown,
		AccuracyScore: score.Accuracy(summary.AccuracyScore),
		Summary:       summary.Summary,
	}

	if len(a.config.Languages) > 0 {
		translations, err := a.translate(ctx, outcome.Summary)
		if err != nil {
			a.logger.Warn("summary translation failed",
				"error", model.NewError(model.KindTranslation, "translate summary", err))
		} else {
			outcome.Translations = translations
		}
	}

	return outcome, nil
}

// complete runs one structured call and decodes it strictly into out
func (a *Analyzer) complete(ctx context.Context, kind string, req llm.CompletionRequest, out any) error {
	resp, err := a.provider.Complete(ctx, req)
	if err != nil {
		metrics.RecordLLMCall(a.provider.Name(), kind, 0, err)
		return err
	}

	err = llm.DecodeStrict(req.Schema, resp.Text, out)
	metrics.RecordLLMCall(a.provider.Name(), kind, resp.TokensUsed, err)
	if err != nil {
		a.logger.Debug("undecodable model output", "kind", kind, "model", resp.Model, "text", resp.Text)
	}
	return err
}
