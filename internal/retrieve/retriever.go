// Package retrieve gathers candidate sources for a claim from a paginated
// search provider.
package retrieve

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ppiankov/claimcheck/internal/extract"
	"github.com/ppiankov/claimcheck/internal/metrics"
	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/search"
	"github.com/ppiankov/claimcheck/internal/worker"
)

// ExtendedSuffixes are appended to the query in extended mode, in order
var ExtendedSuffixes = []string{" fact check", " evidence", " research", " debunked"}

// Config tunes retrieval
type Config struct {
	// Workers bounds parallel page requests
	Workers int

	// SnippetMaxChars bounds source content handed to the analyzer
	SnippetMaxChars int
}

// Retriever fans page queries out to a search provider and merges them
type Retriever struct {
	provider search.Provider
	pool     *worker.Pool
	config   Config
	enricher *Enricher
	logger   *slog.Logger
}

// New creates a retriever. enricher may be nil.
func New(provider search.Provider, config Config, enricher *Enricher, logger *slog.Logger) *Retriever {
	if config.Workers <= 0 {
		config.Workers = 10
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{
		provider: provider,
		pool:     worker.NewPool(config.Workers),
		config:   config,
		enricher: enricher,
		logger:   logger,
	}
}

// pageJob fetches one result page
type pageJob struct {
	provider search.Provider
	query    search.Query
}

// pageResult is the outcome of one page request
type pageResult struct {
	query   search.Query
	results []search.Result
	err     error
}

func (r *pageResult) GetError() error {
	return r.err
}

func (j *pageJob) Execute(ctx context.Context) worker.Result {
	if err := ctx.Err(); err != nil {
		return &pageResult{query: j.query, err: err}
	}
	results, err := j.provider.Search(ctx, j.query)
	metrics.RecordSearchPage(j.provider.Name(), err)
	return &pageResult{query: j.query, results: results, err: err}
}

// Retrieve returns up to max unique sources for query. Pages are requested
// in parallel and each failing page counts as empty; only when every page
// fails does the call fail with a source retrieval error.
func (r *Retriever) Retrieve(ctx context.Context, query string, max int) ([]model.CandidateSource, error) {
	results, err := r.search(ctx, query, max)
	if err != nil {
		return nil, err
	}

	sources := r.merge(nil, map[string]bool{}, results, max)
	return r.finish(ctx, sources), nil
}

// RetrieveExtended runs the base query and then suffix variants until max
// unique sources are collected. It fails only when no variant succeeded.
func (r *Retriever) RetrieveExtended(ctx context.Context, query string, max int) ([]model.CandidateSource, error) {
	var (
		sources   []model.CandidateSource
		seen      = map[string]bool{}
		succeeded bool
		lastErr   error
	)

	variants := make([]string, 0, len(ExtendedSuffixes)+1)
	variants = append(variants, query)
	for _, suffix := range ExtendedSuffixes {
		variants = append(variants, query+suffix)
	}

	for _, variant := range variants {
		if len(sources) >= max {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		results, err := r.search(ctx, variant, max)
		if err != nil {
			r.logger.Warn("query variant failed", "query", variant, "error", err)
			lastErr = err
			continue
		}
		succeeded = true
		sources = r.merge(sources, seen, results, max)
	}

	if !succeeded {
		return nil, lastErr
	}
	return r.finish(ctx, sources), nil
}

// search plans and runs the page requests for one query. Results come back
// in page order.
func (r *Retriever) search(ctx context.Context, query string, max int) ([]search.Result, error) {
	queries := PlanPages(query, max, r.provider.PageSize(), r.provider.MaxResults())
	if len(queries) == 0 {
		return nil, nil
	}

	jobs := make([]worker.Job, len(queries))
	for i, q := range queries {
		jobs[i] = &pageJob{provider: r.provider, query: q}
	}

	r.logger.Debug("searching", "provider", r.provider.Name(), "pages", len(queries), "workers", r.pool.Workers())
	results := r.pool.Run(ctx, jobs)

	var merged []search.Result
	for _, res := range results {
		page := res.(*pageResult)
		if page.err != nil {
			r.logger.Warn("search page failed",
				"provider", r.provider.Name(), "offset", page.query.Offset, "error", page.err)
			continue
		}
		merged = append(merged, page.results...)
	}

	if errs := worker.Errors(results); len(errs) == len(queries) {
		if errors.Is(errs[0], context.Canceled) || errors.Is(errs[0], context.DeadlineExceeded) {
			return nil, errs[0]
		}
		return nil, model.NewError(model.KindSourceRetrieval, "search provider failed on every page", errs[0])
	}
	return merged, nil
}

// merge appends results not yet seen by exact URL, up to max
func (r *Retriever) merge(sources []model.CandidateSource, seen map[string]bool, results []search.Result, max int) []model.CandidateSource {
	for _, res := range results {
		if len(sources) >= max {
			break
		}
		if res.URL == "" || seen[res.URL] {
			continue
		}
		seen[res.URL] = true
		sources = append(sources, model.CandidateSource{
			URL:           res.URL,
			Title:         extract.Snippet(res.Title),
			Content:       extract.Truncate(extract.Snippet(res.Snippet), r.config.SnippetMaxChars),
			PublishedDate: res.PublishedDate,
		})
	}
	return sources
}

// finish assigns position-derived relevance scores and enriches content
func (r *Retriever) finish(ctx context.Context, sources []model.CandidateSource) []model.CandidateSource {
	for i := range sources {
		sources[i].RelevanceScore = PositionScore(i, len(sources))
	}
	if r.enricher != nil && len(sources) > 0 {
		r.enricher.Enrich(ctx, sources)
	}
	metrics.SourcesRetrieved.Observe(float64(len(sources)))
	return sources
}

// PlanPages splits a request for max results into page queries
func PlanPages(text string, max, pageSize, providerMax int) []search.Query {
	if pageSize <= 0 {
		pageSize = 10
	}
	limit := max
	if providerMax > 0 && limit > providerMax {
		limit = providerMax
	}

	var queries []search.Query
	for offset := 0; offset < limit; offset += pageSize {
		count := pageSize
		if offset+count > limit {
			count = limit - offset
		}
		queries = append(queries, search.Query{Text: text, Offset: offset, Count: count})
	}
	return queries
}

// PositionScore maps a 0-based merged position to a descending score in (0, 1]
func PositionScore(pos, total int) float64 {
	if total <= 0 {
		return 0
	}
	return 1 - float64(pos)/float64(total)
}
