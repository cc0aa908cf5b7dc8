package pipeline

import (
	"net/url"
	"sort"
	"strings"

	"github.com/ppiankov/claimcheck/internal/model"
)

// DisplaySources picks the sources shown to the user. Within each stance
// only the highest-ranked source per domain is kept and at most perStance
// remain. Stances are ordered supporting, contradicting, neutral.
func DisplaySources(sources []model.CategorizedSource, perStance int) []model.CategorizedSource {
	byStance := make(map[model.Relevance][]model.CategorizedSource, len(model.Relevances))
	for _, s := range sources {
		rel := s.Relevance
		if !rel.Valid() {
			rel = model.RelevanceNeutral
			s.Relevance = rel
		}
		byStance[rel] = append(byStance[rel], s)
	}

	out := make([]model.CategorizedSource, 0, min(len(sources), perStance*len(model.Relevances)))
	for _, rel := range model.Relevances {
		group := byStance[rel]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].RelevanceScore > group[j].RelevanceScore
		})

		seen := make(map[string]bool)
		kept := 0
		for _, s := range group {
			if kept >= perStance {
				break
			}
			domain := Domain(s.URL)
			if seen[domain] {
				continue
			}
			seen[domain] = true
			out = append(out, s)
			kept++
		}
	}
	return out
}

// Domain returns the lowercased host of rawURL without a leading "www.".
// Unparseable URLs are returned unchanged so they never collapse together.
func Domain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return rawURL
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
