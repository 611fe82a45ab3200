package search

import (
	"context"
	"log/slog"
	"sort"

	"github.com/switchwise/newspulse/ai"
	"github.com/switchwise/newspulse/core"
	"github.com/switchwise/newspulse/storage"
)

// minSimilarity is the floor applied to semantic matches before scoring.
const minSimilarity = 0.60

// verbatimBoost is added when every query word appears in the article text.
const verbatimBoost = 0.3

// Searcher provides semantic search over stored articles.
type Searcher struct {
	articleRepository storage.ArticleRepository
	embedder          ai.Embedder
	logger            *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(
	articleRepository storage.ArticleRepository,
	provider ai.Provider,
	opts ...Option,
) (*Searcher, error) {
	if articleRepository == nil {
		return nil, ErrArticleRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	s := &Searcher{
		articleRepository: articleRepository,
		embedder:          provider.Embedder(),
		logger:            slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// FindSimilar searches for articles similar to the query.
// Returns up to maxHits results, ranked by relevance score.
func (s *Searcher) FindSimilar(ctx context.Context, query string, maxHits int) ([]*core.SearchResult, error) {
	return s.FindSimilarWithMonitor(ctx, query, maxHits, nil)
}

// FindSimilarWithMonitor searches for articles similar to the query with monitoring.
// The monitor receives callbacks at each stage of the search process.
// Returns up to maxHits results, ranked by relevance score.
func (s *Searcher) FindSimilarWithMonitor(ctx context.Context, query string, maxHits int, monitor SearchMonitor) ([]*core.SearchResult, error) {
	// Use noop monitor if none provided
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	monitor.Start(query)

	embedding, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, err
	}

	matches, err := s.articleRepository.FindSimilar(ctx, embedding, minSimilarity, maxHits)
	if err != nil {
		s.logger.Error("error querying for similar articles", "err", err)
		return nil, err
	}

	semanticIds := make([]uint64, 0, len(matches))
	for _, match := range matches {
		semanticIds = append(semanticIds, uint64(match.Article.Id))
	}
	monitor.AfterSemanticSearch(semanticIds)

	// Score: similarity, plus a boost when the query appears verbatim
	results := make([]*core.SearchResult, 0, len(matches))
	for _, match := range matches {
		score := match.Score
		if containsAllQueryWords(match.Article.Title+"\n"+match.Article.Content, query) {
			score += verbatimBoost
			monitor.VerbatimHit(match.Article)
		}
		results = append(results, &core.SearchResult{
			Article: match.Article,
			Score:   score,
		})
	}

	// Sort by score descending
	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > maxHits {
		results = results[:maxHits]
	}
	monitor.Finish(results)

	return results, nil
}
