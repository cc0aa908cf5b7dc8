package model

import "time"

// AnalysisResult is the persisted and returned fact-check verdict
type AnalysisResult struct {
	ID                    string              `json:"id"`
	ClaimText             string              `json:"claimText"` // Original, unnormalized
	AccuracyScore         float64             `json:"accuracyScore"`
	AgreementScore        float64             `json:"agreementScore"`
	DisagreementScore     float64             `json:"disagreementScore"`
	NeutralScore          float64             `json:"neutralScore"`
	Summary               string              `json:"summary"`
	Translations          map[string]string   `json:"translations,omitempty"` // language code -> summary
	Sources               []CategorizedSource `json:"sources"`                // Display list, domain-deduplicated
	TotalSourcesRetrieved int                 `json:"totalSourcesRetrieved"`  // Before display filtering
	AnalyzedAt            time.Time           `json:"analyzedAt"`
	Cached                bool                `json:"cached"`
}

// SummaryIn returns the summary translated into lang, falling back to the
// original summary when no translation exists
func (r *AnalysisResult) SummaryIn(lang string) string {
	if lang != "" {
		if text, ok := r.Translations[lang]; ok && text != "" {
			return text
		}
	}
	return r.Summary
}

// SourcesByRelevance returns the displayed sources carrying the given label
func (r *AnalysisResult) SourcesByRelevance(rel Relevance) []CategorizedSource {
	var out []CategorizedSource
	for _, s := range r.Sources {
		if s.Relevance == rel {
			out = append(out, s)
		}
	}
	return out
}

// Clone returns a deep copy so callers can flip Cached without touching
// a stored entry
func (r *AnalysisResult) Clone() *AnalysisResult {
	if r == nil {
		return nil
	}
	c := *r
	if r.Sources != nil {
		c.Sources = make([]CategorizedSource, len(r.Sources))
		copy(c.Sources, r.Sources)
	}
	if r.Translations != nil {
		c.Translations = make(map[string]string, len(r.Translations))
		for k, v := range r.Translations {
			c.Translations[k] = v
		}
	}
	return &c
}

// CacheEntry wraps a result with its normalized lookup key
type CacheEntry struct {
	Key       string          `json:"key"`
	CreatedAt time.Time       `json:"createdAt"`
	Result    *AnalysisResult `json:"result"`
}
