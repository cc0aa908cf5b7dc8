package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ppiankov/claimcheck/internal/model"
)

// renderResult prints a human-readable verdict
func renderResult(w io.Writer, r *model.AnalysisResult, lang string, showSources bool) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Claim:     %s\n", r.ClaimText)
	fmt.Fprintf(w, "Accuracy:  %.1f/100\n", r.AccuracyScore)
	fmt.Fprintf(w, "Sources:   %.1f%% supporting, %.1f%% contradicting, %.1f%% neutral (%d retrieved)\n",
		r.AgreementScore, r.DisagreementScore, r.NeutralScore, r.TotalSourcesRetrieved)
	if r.Cached {
		fmt.Fprintf(w, "Cached:    yes (analyzed %s)\n", r.AnalyzedAt.Format("2006-01-02 15:04 MST"))
	}
	fmt.Fprintf(w, "ID:        %s\n", r.ID)
	fmt.Fprintln(w)
	fmt.Fprintln(w, wrap(r.SummaryIn(lang), 78))

	if !showSources {
		return
	}
	for _, rel := range model.Relevances {
		sources := r.SourcesByRelevance(rel)
		if len(sources) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s (%d shown)\n", strings.ToUpper(string(rel)), len(sources))
		for _, s := range sources {
			fmt.Fprintf(w, "  - %s\n    %s\n", s.Title, s.URL)
		}
	}
}

// writeJSON writes v as indented JSON to path
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// wrap breaks text into lines of at most width characters on word
// boundaries
func wrap(text string, width int) string {
	var (
		b    strings.Builder
		line int
	)
	for _, word := range strings.Fields(text) {
		n := len([]rune(word))
		if line > 0 && line+1+n > width {
			b.WriteByte('\n')
			line = 0
		} else if line > 0 {
			b.WriteByte(' ')
			line++
		}
		b.WriteString(word)
		line += n
	}
	return b.String()
}
