package ingestion

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/switchwise/newspulse/ai"
	"github.com/switchwise/newspulse/ai/mock"
	"github.com/switchwise/newspulse/core"
	"github.com/switchwise/newspulse/storage"
	"github.com/switchwise/newspulse/storage/badger"
)

func setupTestRepositories(t *testing.T) (storage.ArticleRepository, storage.CheckpointRepository) {
	t.Helper()

	articleRepo, checkpointRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = backend.Close()
	})
	return articleRepo, checkpointRepo
}

func testArticle(url, title string) *core.Article {
	return &core.Article{
		URL:         url,
		Title:       title,
		Content:     "Body text for " + title + ".",
		PublishedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestNewPipeline_RequiresDependencies(t *testing.T) {
	articleRepo, checkpointRepo := setupTestRepositories(t)
	provider := mock.NewMockProvider()

	tests := []struct {
		name           string
		articleRepo    storage.ArticleRepository
		checkpointRepo storage.CheckpointRepository
		provider       ai.Provider
		wantErr        error
	}{
		{
			name:           "missing article repository",
			checkpointRepo: checkpointRepo,
			provider:       provider,
			wantErr:        ErrArticleRepositoryRequired,
		},
		{
			name:        "missing checkpoint repository",
			articleRepo: articleRepo,
			provider:    provider,
			wantErr:     ErrCheckpointRepositoryRequired,
		},
		{
			name:           "missing provider",
			articleRepo:    articleRepo,
			checkpointRepo: checkpointRepo,
			wantErr:        ErrAIProviderRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPipeline(tt.articleRepo, tt.checkpointRepo, tt.provider)
			assert.Nil(t, p)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestPipeline_Ingest(t *testing.T) {
	articleRepo, checkpointRepo := setupTestRepositories(t)
	provider := mock.NewMockProvider()

	p, err := NewPipeline(articleRepo, checkpointRepo, provider, WithPoolSize(1))
	require.NoError(t, err)
	defer p.Release()

	ctx := context.Background()
	articles := []*core.Article{
		testArticle("https://news.example.com/a", "First story"),
		testArticle("https://other.example.org/b", "Second story"),
	}

	added, err := p.Ingest(ctx, articles, nil)
	require.NoError(t, err)
	require.Len(t, added, 2)

	for _, article := range added {
		assert.NotZero(t, article.Id)
	}
	assert.Equal(t, "news.example.com", added[0].Source)
	assert.Equal(t, "other.example.org", added[1].Source)

	// Retrievable from storage
	got, err := articleRepo.GetArticle(ctx, added[0].Id)
	require.NoError(t, err)
	assert.Equal(t, "First story", got.Title)
}

func TestPipeline_Ingest_InvalidArticle(t *testing.T) {
	articleRepo, checkpointRepo := setupTestRepositories(t)
	provider := mock.NewMockProvider()

	p, err := NewPipeline(articleRepo, checkpointRepo, provider)
	require.NoError(t, err)
	defer p.Release()

	articles := []*core.Article{
		{URL: "https://news.example.com/a", Title: "", Content: "body"},
	}

	added, err := p.Ingest(context.Background(), articles, nil)
	assert.Nil(t, added)
	assert.ErrorIs(t, err, core.ErrInvalidArticle)
}

func TestPipeline_Ingest_DefaultsPublishedAt(t *testing.T) {
	articleRepo, checkpointRepo := setupTestRepositories(t)
	provider := mock.NewMockProvider()

	p, err := NewPipeline(articleRepo, checkpointRepo, provider)
	require.NoError(t, err)
	defer p.Release()

	article := testArticle("https://news.example.com/fresh", "Fresh story")
	article.PublishedAt = time.Time{}

	added, err := p.Ingest(context.Background(), []*core.Article{article}, nil)
	require.NoError(t, err)
	require.Len(t, added, 1)
	assert.False(t, added[0].PublishedAt.IsZero())
	assert.WithinDuration(t, time.Now().UTC(), added[0].PublishedAt, time.Minute)
}

func TestPipeline_Ingest_MergesMetadata(t *testing.T) {
	articleRepo, checkpointRepo := setupTestRepositories(t)
	provider := mock.NewMockProvider()

	p, err := NewPipeline(articleRepo, checkpointRepo, provider)
	require.NoError(t, err)
	defer p.Release()

	article := testArticle("https://news.example.com/meta", "Tagged story")
	article.Metadata = map[string]string{"category": "tech"}

	added, err := p.Ingest(context.Background(), []*core.Article{article}, &IngestOptions{
		Metadata: map[string]string{"category": "overridden", "batch": "42"},
	})
	require.NoError(t, err)
	require.Len(t, added, 1)

	// Article's own metadata wins
	assert.Equal(t, "tech", added[0].Metadata["category"])
	assert.Equal(t, "42", added[0].Metadata["batch"])
}

func TestEmbeddingProcessor_Process(t *testing.T) {
	articleRepo, checkpointRepo := setupTestRepositories(t)
	provider := mock.NewMockProvider()

	ctx := context.Background()
	added, err := articleRepo.AddArticles(ctx,
		testArticle("https://news.example.com/a", "First story"),
		testArticle("https://other.example.org/b", "Second story"),
	)
	require.NoError(t, err)
	require.Len(t, added, 2)

	proc, err := newEmbeddingProcessor(articleRepo, checkpointRepo, provider.Embedder(), slog.Default())
	require.NoError(t, err)

	err = proc.process(ctx, added[0].Id, added[1].Id)
	require.NoError(t, err)

	for _, a := range added {
		got, err := articleRepo.GetArticle(ctx, a.Id)
		require.NoError(t, err)
		assert.True(t, got.HasVector(), "article %d should have a vector", a.Id)

		// Stored vectors are unit length
		var norm float64
		for _, v := range got.Vector {
			norm += float64(v) * float64(v)
		}
		assert.InDelta(t, 1.0, norm, 0.001)
	}
}

func TestEmbeddingProcessor_Checkpoint(t *testing.T) {
	articleRepo, checkpointRepo := setupTestRepositories(t)
	provider := mock.NewMockProvider()

	ctx := context.Background()
	added, err := articleRepo.AddArticles(ctx,
		testArticle("https://news.example.com/a", "First story"),
		testArticle("https://other.example.org/b", "Second story"),
	)
	require.NoError(t, err)

	proc, err := newEmbeddingProcessor(articleRepo, checkpointRepo, provider.Embedder(), slog.Default())
	require.NoError(t, err)

	require.NoError(t, proc.process(ctx, added[0].Id, added[1].Id))
	require.NoError(t, proc.checkpoint())

	cp, err := checkpointRepo.LoadCheckpoint(ctx, embeddingProcessorType)
	require.NoError(t, err)
	require.NotNil(t, cp)

	want := added[0].Id
	if added[1].Id > want {
		want = added[1].Id
	}
	assert.Equal(t, want, cp.LastId)
}

func TestEmbeddingProcessor_Checkpoint_NothingProcessed(t *testing.T) {
	articleRepo, checkpointRepo := setupTestRepositories(t)
	provider := mock.NewMockProvider()

	proc, err := newEmbeddingProcessor(articleRepo, checkpointRepo, provider.Embedder(), slog.Default())
	require.NoError(t, err)

	require.NoError(t, proc.checkpoint())

	cp, err := checkpointRepo.LoadCheckpoint(context.Background(), embeddingProcessorType)
	require.NoError(t, err)
	assert.Nil(t, cp)
}
