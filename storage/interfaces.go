package storage

import (
	"context"
	"time"

	"github.com/switchwise/newspulse/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// FindSimilar finds articles similar to the given vector.
	// Returns articles with similarity >= minSimilarity, up to limit results.
	// Results are ordered by similarity score (highest first).
	FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error)

	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// The context passed to fn may contain transaction state.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// ArticleRepository provides operations for managing articles.
type ArticleRepository interface {
	Repository
	// AddArticles adds one or more articles to storage.
	// Articles with ID=0 get content-based IDs derived from their URL,
	// so adding the same URL twice is an upsert, never a duplicate.
	// Sets InsertedAt timestamp if not already set.
	// Returns the articles with IDs and timestamps populated.
	AddArticles(ctx context.Context, articles ...*core.Article) ([]*core.Article, error)

	// UpdateArticles updates existing articles.
	// Updates the UpdatedAt timestamp automatically.
	// Returns ErrNotFound if any article doesn't exist.
	UpdateArticles(ctx context.Context, articles ...*core.Article) ([]*core.Article, error)

	// DeleteArticles removes articles by their IDs.
	// Also removes associated indices.
	// Returns ErrNotFound if any article doesn't exist.
	DeleteArticles(ctx context.Context, ids ...core.ID) error

	// GetArticle retrieves a single article by ID.
	// Returns ErrNotFound if the article doesn't exist.
	GetArticle(ctx context.Context, id core.ID) (*core.Article, error)

	// GetArticles retrieves multiple articles by their IDs.
	// Returns only the articles that exist (no error for missing articles).
	GetArticles(ctx context.Context, ids ...core.ID) ([]*core.Article, error)

	// GetArticlesByDateRange retrieves articles within a time range.
	// Returns articles where start <= PublishedAt <= end, ordered by
	// publication time ascending.
	GetArticlesByDateRange(ctx context.Context, start, end time.Time) ([]*core.Article, error)

	// CountArticlesByDateRange counts articles within a time range without
	// loading article payloads.
	CountArticlesByDateRange(ctx context.Context, start, end time.Time) (int, error)

	// GetRecentArticles retrieves the N most recently published articles,
	// ordered by publication time descending.
	GetRecentArticles(ctx context.Context, limit int) ([]*core.Article, error)
}

// CheckpointRepository persists processing progress for background processors.
type CheckpointRepository interface {
	// SaveCheckpoint persists a checkpoint for a processor type.
	SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error

	// LoadCheckpoint retrieves the checkpoint for a processor type.
	// Returns nil, nil if no checkpoint exists.
	LoadCheckpoint(ctx context.Context, processorType string) (*core.Checkpoint, error)
}
