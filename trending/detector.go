package trending

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/switchwise/newspulse/core"
	"github.com/switchwise/newspulse/storage"
)

// DefaultThreshold is the minimum cosine similarity for two articles
// from different sources to count as covering the same story.
const DefaultThreshold = 0.78

// DefaultPageSize is the number of articles examined per page when no
// page size is given.
const DefaultPageSize = 100

// Detector finds stories covered by multiple independent sources.
type Detector struct {
	articleRepository storage.ArticleRepository
	threshold         float32
	logger            *slog.Logger
}

// Option configures a Detector.
type Option func(*Detector) error

// WithThreshold sets the similarity threshold for cross-source matches.
// Must be in (0, 1]. Default is DefaultThreshold.
func WithThreshold(threshold float32) Option {
	return func(d *Detector) error {
		if threshold <= 0 || threshold > 1 {
			return ErrInvalidThreshold
		}
		d.threshold = threshold
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(d *Detector) error {
		if logger == nil {
			logger = slog.Default()
		}
		d.logger = logger
		return nil
	}
}

// NewDetector creates a new trending detector.
func NewDetector(articleRepository storage.ArticleRepository, opts ...Option) (*Detector, error) {
	if articleRepository == nil {
		return nil, ErrArticleRepositoryRequired
	}

	d := &Detector{
		articleRepository: articleRepository,
		threshold:         DefaultThreshold,
		logger:            slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}

	return d, nil
}

// Detect finds trending articles published within [start, end].
// Both bounds are inclusive.
func (d *Detector) Detect(ctx context.Context, start, end time.Time, first, page int) ([]*core.TrendingArticle, error) {
	return d.DetectWithMonitor(ctx, start, end, first, page, nil)
}

// DetectWithMonitor finds trending articles with monitoring.
// The monitor receives callbacks at each stage of detection.
//
// Articles in the window are paginated before comparison: first is the
// page size (DefaultPageSize when <= 0) and page is 1-based (values
// below 1 are clamped to 1). Within the page, every pair of embedded
// articles from different sources is scored by cosine similarity; an
// article is trending when at least one article from another source
// scores at or above the threshold.
func (d *Detector) DetectWithMonitor(ctx context.Context, start, end time.Time, first, page int, monitor Monitor) ([]*core.TrendingArticle, error) {
	// Use noop monitor if none provided
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	if end.Before(start) {
		return nil, ErrInvalidDateRange
	}
	if first <= 0 {
		first = DefaultPageSize
	}
	if page < 1 {
		page = 1
	}

	monitor.Start(start, end)

	articles, err := d.articleRepository.GetArticlesByDateRange(ctx, start, end)
	if err != nil {
		d.logger.Error("error retrieving articles for window", "err", err)
		return nil, err
	}

	// Paginate before comparison so large windows stay bounded
	offset := (page - 1) * first
	if offset >= len(articles) {
		articles = nil
	} else {
		articles = articles[offset:]
		if len(articles) > first {
			articles = articles[:first]
		}
	}
	monitor.AfterArticleRetrieval(articles)

	// Only embedded articles can be compared
	embedded := make([]*core.Article, 0, len(articles))
	for _, article := range articles {
		if article.HasVector() {
			embedded = append(embedded, article)
		}
	}

	similar := make(map[core.ID][]core.SimilarArticle)
	for i := 0; i < len(embedded); i++ {
		for j := i + 1; j < len(embedded); j++ {
			a, b := embedded[i], embedded[j]
			if a.Source == b.Source {
				continue
			}

			score := core.CosineSimilarity(a.Vector, b.Vector)
			if score < d.threshold {
				continue
			}

			monitor.CrossSourceMatch(a.Id, b.Id, score)
			similar[a.Id] = append(similar[a.Id], core.SimilarArticle{ArticleId: b.Id, Score: score})
			similar[b.Id] = append(similar[b.Id], core.SimilarArticle{ArticleId: a.Id, Score: score})
		}
	}

	// Preserve window order for the result set
	results := make([]*core.TrendingArticle, 0, len(similar))
	for _, article := range embedded {
		matches, ok := similar[article.Id]
		if !ok {
			continue
		}

		// Best matches first
		sort.Slice(matches, func(i, j int) bool {
			return matches[i].Score > matches[j].Score
		})

		results = append(results, &core.TrendingArticle{
			Article: article,
			Similar: matches,
		})
	}

	d.logger.Info("trending detection complete",
		"window_articles", len(articles),
		"embedded", len(embedded),
		"trending", len(results))
	monitor.Finish(results)

	return results, nil
}
