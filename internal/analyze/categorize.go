package analyze

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/claimcheck/internal/llm"
	"github.com/ppiankov/claimcheck/internal/model"
	"golang.org/x/sync/errgroup"
)

type categorizeResponse struct {
	Sources []categorizedItem `json:"sources"`
}

type categorizedItem struct {
	URL       string `json:"url" description:"The source URL exactly as given"`
	Title     string `json:"title" description:"The source title exactly as given"`
	Relevance string `json:"relevance" enum:"supporting,contradicting,neutral"`
}

var categorizeSchema = llm.MustSchemaFor(categorizeResponse{})

const categorizeSystem = `You are a careful fact-checking assistant.
For every source you are given, decide whether its text supports the claim, contradicts the claim, or is neutral (off-topic, inconclusive or both ways).
Judge only from the text provided. Return one entry per source and copy each url and title exactly as given.`

// Batches splits n items into k contiguous near-equal ranges. Earlier
// batches take the remainder. Returns [start, end) pairs.
func Batches(n, k int) [][2]int {
	if n <= 0 {
		return nil
	}
	if k <= 0 {
		k = 1
	}
	if k > n {
		k = n
	}

	out := make([][2]int, 0, k)
	size, extra := n/k, n%k
	start := 0
	for i := 0; i < k; i++ {
		end := start + size
		if i < extra {
			end++
		}
		out = append(out, [2]int{start, end})
		start = end
	}
	return out
}

func (a *Analyzer) categorize(ctx context.Context, claim string, sources []model.CandidateSource) ([]model.CategorizedSource, error) {
	ranges := Batches(len(sources), a.config.Batches)
	labels := make([][]model.Relevance, len(ranges))
	matched := make([]int, len(ranges))

	g, gctx := errgroup.WithContext(ctx)
	for i, r := range ranges {
		g.Go(func() error {
			batch := sources[r[0]:r[1]]
			rels, n, err := a.categorizeBatch(gctx, claim, batch)
			if err != nil {
				return model.NewError(model.KindAnalysis, fmt.Sprintf("categorize batch %d/%d", i+1, len(ranges)), err)
			}
			labels[i] = rels
			matched[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	categorized := make([]model.CategorizedSource, 0, len(sources))
	total := 0
	for i, r := range ranges {
		total += matched[i]
		for j, src := range sources[r[0]:r[1]] {
			categorized = append(categorized, model.CategorizedSource{
				CandidateSource: src,
				Relevance:       labels[i][j],
			})
		}
	}

	if total != len(sources) {
		a.logger.Warn("model output did not cover every source, defaulting the rest to neutral",
			"sources", len(sources), "matched", total, "defaulted", len(sources)-total, "batches", len(ranges))
	}
	return categorized, nil
}

// categorizeBatch returns one label per input source, in input order, and
// how many of them the model actually labelled
func (a *Analyzer) categorizeBatch(ctx context.Context, claim string, batch []model.CandidateSource) ([]model.Relevance, int, error) {
	var resp categorizeResponse
	err := a.complete(ctx, "categorize", llm.CompletionRequest{
		System:     categorizeSystem,
		User:       categorizePrompt(claim, batch),
		Schema:     categorizeSchema,
		SchemaName: "categorized_sources",
	}, &resp)
	if err != nil {
		return nil, 0, err
	}

	labels, matched, err := matchLabels(batch, resp.Sources)
	if err != nil {
		return nil, 0, err
	}
	if matched != len(batch) || len(resp.Sources) != len(batch) {
		a.logger.Debug("batch coverage",
			"batch_size", len(batch), "returned", len(resp.Sources), "matched", matched)
	}
	return labels, matched, nil
}

// matchLabels assigns returned labels to inputs by URL, then by title.
// Unmatched inputs stay neutral; unmatched or repeated outputs are dropped.
func matchLabels(batch []model.CandidateSource, items []categorizedItem) ([]model.Relevance, int, error) {
	labels := make([]model.Relevance, len(batch))
	assigned := make([]bool, len(batch))
	for i := range labels {
		labels[i] = model.RelevanceNeutral
	}

	byURL := make(map[string]int, len(batch))
	byTitle := make(map[string][]int, len(batch))
	for i, src := range batch {
		if _, ok := byURL[urlKey(src.URL)]; !ok {
			byURL[urlKey(src.URL)] = i
		}
		t := titleKey(src.Title)
		byTitle[t] = append(byTitle[t], i)
	}

	matched := 0
	for _, item := range items {
		rel := model.Relevance(strings.ToLower(strings.TrimSpace(item.Relevance)))
		if !rel.Valid() {
			return nil, 0, fmt.Errorf("%w: invalid relevance %q", llm.ErrMalformedOutput, item.Relevance)
		}

		idx := -1
		if i, ok := byURL[urlKey(item.URL)]; ok && !assigned[i] {
			idx = i
		} else {
			for _, i := range byTitle[titleKey(item.Title)] {
				if !assigned[i] {
					idx = i
					break
				}
			}
		}
		if idx < 0 {
			continue
		}

		labels[idx] = rel
		assigned[idx] = true
		matched++
	}
	return labels, matched, nil
}

func urlKey(u string) string {
	return strings.TrimSuffix(strings.TrimSpace(u), "/")
}

func titleKey(t string) string {
	return strings.ToLower(strings.Join(strings.Fields(t), " "))
}

func categorizePrompt(claim string, batch []model.CandidateSource) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Claim: %s\n\nSources (%d):\n", claim, len(batch))
	for i, src := range batch {
		fmt.Fprintf(&b, "\n[%d] url: %s\ntitle: %s\ntext: %s\n", i+1, src.URL, src.Title, src.Content)
	}
	return b.String()
}
