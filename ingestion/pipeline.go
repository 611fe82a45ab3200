package ingestion

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/switchwise/newspulse/ai"
	"github.com/switchwise/newspulse/core"
	"github.com/switchwise/newspulse/storage"
)

// Pipeline orchestrates the ingestion and processing of articles.
// It manages concurrent embedding generation after articles are stored.
type Pipeline struct {
	articleRepository    storage.ArticleRepository
	checkpointRepository storage.CheckpointRepository
	embeddingPool        *ants.Pool
	embeddingProc        processor
	logger               *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent processing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		// Release old pool
		if p.embeddingPool != nil {
			p.embeddingPool.Release()
		}

		embeddingPool, err := ants.NewPool(size)
		if err != nil {
			return err
		}

		p.embeddingPool = embeddingPool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	articleRepository storage.ArticleRepository,
	checkpointRepository storage.CheckpointRepository,
	provider ai.Provider,
	opts ...Option,
) (*Pipeline, error) {
	if articleRepository == nil {
		return nil, ErrArticleRepositoryRequired
	}
	if checkpointRepository == nil {
		return nil, ErrCheckpointRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	// Default logger
	logger := slog.Default()

	// Default pool size
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	embeddingPool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	// Create pipeline with defaults
	p := &Pipeline{
		articleRepository:    articleRepository,
		checkpointRepository: checkpointRepository,
		embeddingPool:        embeddingPool,
		logger:               logger,
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	// Create processor after options are applied (so it gets final config)
	embeddingProc, err := newEmbeddingProcessor(articleRepository, checkpointRepository, provider.Embedder(), p.logger)
	if err != nil {
		p.Release()
		return nil, err
	}

	p.embeddingProc = embeddingProc

	return p, nil
}

// IngestOptions holds optional parameters for ingestion.
type IngestOptions struct {
	Metadata map[string]string // Optional metadata merged into every article
}

// Ingest validates and stores articles, then processes them asynchronously.
// Articles without a publication time get the current time. The Source field
// is always derived from the URL. Embedding generation runs on the worker
// pool; errors during async processing are logged but do not fail ingestion.
// Returns the stored articles with IDs populated.
func (p *Pipeline) Ingest(ctx context.Context, articles []*core.Article, opts *IngestOptions) ([]*core.Article, error) {
	if opts == nil {
		opts = &IngestOptions{}
	}

	for _, article := range articles {
		if article != nil && article.PublishedAt.IsZero() {
			article.PublishedAt = time.Now().UTC()
		}
		if err := core.ValidateArticle(article); err != nil {
			return nil, err
		}
		article.Source = core.DomainOf(article.URL)

		if len(opts.Metadata) > 0 {
			if article.Metadata == nil {
				article.Metadata = make(map[string]string, len(opts.Metadata))
			}
			for k, v := range opts.Metadata {
				if _, exists := article.Metadata[k]; !exists {
					article.Metadata[k] = v
				}
			}
		}
	}

	// Add to storage
	added, err := p.articleRepository.AddArticles(ctx, articles...)
	if err != nil {
		return nil, err
	}

	if len(added) == 0 {
		return added, nil
	}

	// Extract IDs
	ids := make([]core.ID, len(added))
	for i, article := range added {
		ids[i] = article.Id
	}

	// Submit for async processing
	p.embeddingPool.Submit(func() {
		if err := p.embeddingProc.process(context.Background(), ids...); err != nil {
			p.logger.Error("error processing embeddings", "err", err)
			return
		}
		if err := p.embeddingProc.checkpoint(); err != nil {
			p.logger.Error("error applying embedding checkpoint", "err", err)
		}
	})

	return added, nil
}

// Release releases resources including the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.embeddingPool != nil {
		p.embeddingPool.Release()
	}
}
