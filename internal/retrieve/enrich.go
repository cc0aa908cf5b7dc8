package retrieve

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/claimcheck/internal/extract"
	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/util"
	"github.com/ppiankov/claimcheck/internal/worker"
)

// EnrichConfig controls page enrichment
type EnrichConfig struct {
	// MaxSources is how many top-ranked sources are considered
	MaxSources int

	// MinSnippet is the content length below which a page is fetched
	MinSnippet int

	// MaxChars bounds the enriched content
	MaxChars int

	// RespectRobots consults robots.txt before fetching
	RespectRobots bool

	Workers int
}

// Enricher replaces short search snippets with extracted page text
type Enricher struct {
	fetcher   *Fetcher
	robots    *util.RobotsChecker
	limiter   *worker.Limiter
	extractor *extract.TextExtractor
	pool      *worker.Pool
	config    EnrichConfig
	logger    *slog.Logger
}

// NewEnricher creates an enricher. robots and limiter may be nil.
func NewEnricher(fetcher *Fetcher, robots *util.RobotsChecker, limiter *worker.Limiter, config EnrichConfig, logger *slog.Logger) *Enricher {
	if config.Workers <= 0 {
		config.Workers = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Enricher{
		fetcher:   fetcher,
		robots:    robots,
		limiter:   limiter,
		extractor: extract.NewTextExtractor(),
		pool:      worker.NewPool(config.Workers),
		config:    config,
		logger:    logger,
	}
}

// enrichJob fetches one source page
type enrichJob struct {
	enricher *Enricher
	source   *model.CandidateSource
}

// enrichResult reports whether the source content was replaced
type enrichResult struct {
	replaced bool
	err      error
}

func (r *enrichResult) GetError() error {
	return r.err
}

func (j *enrichJob) Execute(ctx context.Context) worker.Result {
	replaced, err := j.enricher.enrichOne(ctx, j.source)
	return &enrichResult{replaced: replaced, err: err}
}

// Enrich fetches pages for short-snippet sources among the first MaxSources
// and replaces their content when the page yields more text. Failures keep
// the original snippet. Returns the number of sources enriched.
func (e *Enricher) Enrich(ctx context.Context, sources []model.CandidateSource) int {
	var jobs []worker.Job
	for i := range sources {
		if e.config.MaxSources > 0 && i >= e.config.MaxSources {
			break
		}
		if utf8.RuneCountInString(sources[i].Content) >= e.config.MinSnippet {
			continue
		}
		jobs = append(jobs, &enrichJob{enricher: e, source: &sources[i]})
	}
	if len(jobs) == 0 {
		return 0
	}

	enriched := 0
	for _, res := range e.pool.Run(ctx, jobs) {
		r := res.(*enrichResult)
		if r.err != nil {
			e.logger.Debug("source enrichment skipped", "error", r.err)
			continue
		}
		if r.replaced {
			enriched++
		}
	}
	return enriched
}

func (e *Enricher) enrichOne(ctx context.Context, src *model.CandidateSource) (bool, error) {
	if e.robots != nil && e.config.RespectRobots {
		allowed, delay, err := e.robots.CanFetch(ctx, src.URL)
		if err != nil {
			return false, err
		}
		if !allowed {
			return false, nil
		}
		if e.limiter != nil {
			e.limiter.SetCrawlDelay(src.URL, delay)
		}
	}
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx, src.URL); err != nil {
			return false, err
		}
	}

	page, err := e.fetcher.FetchWithRetry(ctx, src.URL)
	if err != nil {
		return false, err
	}
	if ct := strings.ToLower(page.ContentType); ct != "" && !strings.Contains(ct, "html") {
		return false, nil
	}

	text, err := e.extractor.Extract(page.HTML)
	if err != nil {
		return false, err
	}
	if utf8.RuneCountInString(text) <= utf8.RuneCountInString(src.Content) {
		return false, nil
	}

	src.Content = extract.Truncate(text, e.config.MaxChars)
	return true, nil
}
