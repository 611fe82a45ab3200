package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/switchwise/newspulse/ai"
	"github.com/switchwise/newspulse/core"
	"github.com/switchwise/newspulse/storage"
)

// embeddingProcessorType keys the checkpoint record for this processor.
const embeddingProcessorType = "embeddings"

// embeddingProcessor generates embeddings for stored articles.
type embeddingProcessor struct {
	articleRepository    storage.ArticleRepository
	checkpointRepository storage.CheckpointRepository
	embedder             ai.Embedder
	lastID               core.ID
	logger               *slog.Logger
}

var _ processor = (*embeddingProcessor)(nil)

// newEmbeddingProcessor creates a new embedding processor.
func newEmbeddingProcessor(
	articleRepository storage.ArticleRepository,
	checkpointRepository storage.CheckpointRepository,
	embedder ai.Embedder,
	logger *slog.Logger,
) (processor, error) {
	if articleRepository == nil {
		return nil, fmt.Errorf("article repository required")
	}
	if checkpointRepository == nil {
		return nil, fmt.Errorf("checkpoint repository required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &embeddingProcessor{
		articleRepository:    articleRepository,
		checkpointRepository: checkpointRepository,
		embedder:             embedder,
		logger:               logger.With("processor", "embeddings"),
	}, nil
}

// process generates embeddings for the specified articles.
// Vectors are normalized before storage so similarity search can use
// dot products.
func (ep *embeddingProcessor) process(ctx context.Context, ids ...core.ID) error {
	ep.logger.Info("processing articles for embeddings", "articles", len(ids))

	// Sort first so checkpointing works correctly
	slices.Sort(ids)

	articles, err := ep.articleRepository.GetArticles(ctx, ids...)
	if err != nil {
		ep.logger.Error("error retrieving articles", "err", err)
		return err
	}
	if len(articles) == 0 {
		return nil
	}

	texts := make([]string, len(articles))
	for i, article := range articles {
		texts[i] = article.EmbeddingText()
	}

	ep.logger.Debug("generating embeddings for articles", "articles", len(texts))
	embeddings, err := ep.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		ep.logger.Error("error generating embeddings", "err", err)
		return err
	}

	if len(embeddings) != len(articles) {
		return fmt.Errorf("embedding result mismatch. expected %d, received %d", len(articles), len(embeddings))
	}

	for i := range embeddings {
		articles[i].Vector = core.NormalizeVector(embeddings[i])
	}

	updated, err := ep.articleRepository.UpdateArticles(ctx, articles...)
	if err != nil {
		return err
	}

	for _, article := range updated {
		if article.Id > ep.lastID {
			ep.lastID = article.Id
		}
	}

	return nil
}

// checkpoint persists the highest article ID embedded so far.
func (ep *embeddingProcessor) checkpoint() error {
	if ep.lastID == 0 {
		return nil
	}
	return ep.checkpointRepository.SaveCheckpoint(context.Background(), &core.Checkpoint{
		ProcessorType: embeddingProcessorType,
		LastId:        ep.lastID,
	})
}
