package reembed

import (
	"context"
	"fmt"
	"time"

	"github.com/switchwise/newspulse/ai"
	"github.com/switchwise/newspulse/core"
	"github.com/switchwise/newspulse/storage"
)

// BatchProcessor handles embedding generation for batches of articles.
type BatchProcessor struct {
	repo           storage.ArticleRepository
	embedder       ai.Embedder
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewBatchProcessor creates a new batch processor.
// maxRetries: maximum number of retry attempts for embedding API calls
// retryBaseDelay: base delay for exponential backoff
func NewBatchProcessor(repo storage.ArticleRepository, embedder ai.Embedder, maxRetries int, retryBaseDelay time.Duration) *BatchProcessor {
	return &BatchProcessor{
		repo:           repo,
		embedder:       embedder,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
	}
}

// Process generates embeddings for a batch of articles and updates them in the database.
// Vectors are normalized after embedding to ensure compatibility with cosine similarity.
func (bp *BatchProcessor) Process(ctx context.Context, articles []*core.Article) error {
	if len(articles) == 0 {
		return nil
	}

	// Extract text content
	texts := make([]string, len(articles))
	for i, article := range articles {
		texts[i] = article.EmbeddingText()
	}

	// Generate embeddings with retry
	var embeddings [][]float32
	err := RetryWithBackoff(ctx, func() error {
		var err error
		embeddings, err = bp.embedder.EmbedTexts(ctx, texts)
		return err
	}, bp.maxRetries, bp.retryBaseDelay)

	if err != nil {
		return fmt.Errorf("failed to generate embeddings after %d attempts: %w", bp.maxRetries, err)
	}

	if len(embeddings) != len(articles) {
		return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(articles), len(embeddings))
	}

	// Normalize vectors and assign to articles
	for i := range articles {
		articles[i].Vector = core.NormalizeVector(embeddings[i])
	}

	// Update articles in database
	_, err = bp.repo.UpdateArticles(ctx, articles...)
	if err != nil {
		return fmt.Errorf("failed to update articles: %w", err)
	}

	return nil
}
