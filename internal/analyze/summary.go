package analyze

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/claimcheck/internal/llm"
	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/score"
)

type summaryResponse struct {
	Summary       string  `json:"summary" description:"Two or three plain sentences"`
	AccuracyScore float64 `json:"accuracyScore" description:"Estimated accuracy of the claim from 0 to 100"`
}

type translationResponse struct {
	Translations []translationItem `json:"translations"`
}

type translationItem struct {
	Language string `json:"language" description:"ISO 639-1 code"`
	Text     string `json:"text"`
}

var (
	summarySchema     = llm.MustSchemaFor(summaryResponse{})
	translationSchema = llm.MustSchemaFor(translationResponse{})
)

const summarySystem = `You are a fact-checking assistant writing the verdict for a claim.
Write a neutral summary of two or three sentences describing what the sources say, and estimate how accurate the claim is on a 0-100 scale.
Base both only on the source breakdown provided.`

const translateSystem = `You translate short fact-check summaries. Keep the meaning and tone, do not add information.`

func (a *Analyzer) summarize(ctx context.Context, claim string, sources []model.CategorizedSource, counts score.Counts, b score.Breakdown) (*summaryResponse, error) {
	var resp summaryResponse
	err := a.complete(ctx, "summary", llm.CompletionRequest{
		System:     summarySystem,
		User:       a.summaryPrompt(claim, sources, counts, b),
		Schema:     summarySchema,
		SchemaName: "verdict",
	}, &resp)
	if err != nil {
		return nil, model.NewError(model.KindAnalysis, "summarize verdict", err)
	}
	if strings.TrimSpace(resp.Summary) == "" {
		return nil, model.NewError(model.KindAnalysis, "summarize verdict",
			fmt.Errorf("%w: empty summary", llm.ErrMalformedOutput))
	}
	resp.Summary = strings.TrimSpace(resp.Summary)
	return &resp, nil
}

func (a *Analyzer) summaryPrompt(claim string, sources []model.CategorizedSource, c score.Counts, b score.Breakdown) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Claim: %s\n\n", claim)
	fmt.Fprintf(&sb, "Sources analyzed: %d\n", c.Total())
	fmt.Fprintf(&sb, "Supporting: %d (%.1f%%)\n", c.Supporting, b.Agreement)
	fmt.Fprintf(&sb, "Contradicting: %d (%.1f%%)\n", c.Contradicting, b.Disagreement)
	fmt.Fprintf(&sb, "Neutral: %d (%.1f%%)\n", c.Neutral, b.Neutral)

	for _, rel := range model.Relevances {
		var titles []string
		for _, s := range sources {
			if s.Relevance == rel && s.Title != "" {
				titles = append(titles, s.Title)
				if len(titles) == a.config.ExamplesPerStance {
					break
				}
			}
		}
		if len(titles) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "\nExample %s sources:\n", rel)
		for _, t := range titles {
			fmt.Fprintf(&sb, "- %s\n", t)
		}
	}
	return sb.String()
}

// translate returns translations for the requested languages that the model
// produced. Unrequested or empty entries are dropped.
func (a *Analyzer) translate(ctx context.Context, summary string) (map[string]string, error) {
	var resp translationResponse
	err := a.complete(ctx, "translate", llm.CompletionRequest{
		System: translateSystem,
		User: fmt.Sprintf("Translate this summary into these languages: %s\n\nSummary: %s",
			strings.Join(a.config.Languages, ", "), summary),
		Schema:     translationSchema,
		SchemaName: "translations",
	}, &resp)
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(a.config.Languages))
	for _, lang := range a.config.Languages {
		wanted[strings.ToLower(lang)] = true
	}

	out := make(map[string]string, len(a.config.Languages))
	for _, t := range resp.Translations {
		lang := strings.ToLower(strings.TrimSpace(t.Language))
		text := strings.TrimSpace(t.Text)
		if !wanted[lang] || text == "" {
			continue
		}
		if _, dup := out[lang]; !dup {
			out[lang] = text
		}
	}
	if len(out) < len(wanted) {
		a.logger.Warn("partial summary translation", "requested", len(wanted), "received", len(out))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no usable translations", llm.ErrMalformedOutput)
	}
	return out, nil
}
