package reembed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/switchwise/newspulse/ai/mock"
	"github.com/switchwise/newspulse/core"
)

func TestBatchProcessor_EmptyBatch(t *testing.T) {
	repo := setupTestRepository(t)
	embedder := mock.NewMockEmbedder()

	bp := NewBatchProcessor(repo, embedder, 3, time.Millisecond)
	assert.NoError(t, bp.Process(context.Background(), nil))
}

func TestBatchProcessor_EmbedsAndUpdates(t *testing.T) {
	repo := setupTestRepository(t)
	added := seedArticles(t, repo, 3)

	embedder := mock.NewMockEmbedder()
	bp := NewBatchProcessor(repo, embedder, 3, time.Millisecond)

	ctx := context.Background()
	require.NoError(t, bp.Process(ctx, added))

	for _, article := range added {
		got, err := repo.GetArticle(ctx, article.Id)
		require.NoError(t, err)
		require.True(t, got.HasVector())

		// Stored vectors are unit length
		var norm float64
		for _, v := range got.Vector {
			norm += float64(v) * float64(v)
		}
		assert.InDelta(t, 1.0, norm, 0.001)
	}
}

func TestBatchProcessor_RetriesTransientFailures(t *testing.T) {
	repo := setupTestRepository(t)
	added := seedArticles(t, repo, 2)

	calls := 0
	embedder := mock.NewMockEmbedder()
	inner := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("transient")
		}
		return inner.EmbedTexts(ctx, texts)
	}

	bp := NewBatchProcessor(repo, embedder, 3, time.Millisecond)
	require.NoError(t, bp.Process(context.Background(), added))
	assert.Equal(t, 2, calls)
}

func TestBatchProcessor_FailsAfterRetriesExhausted(t *testing.T) {
	repo := setupTestRepository(t)
	added := seedArticles(t, repo, 2)

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("persistent")
	}

	bp := NewBatchProcessor(repo, embedder, 2, time.Millisecond)
	err := bp.Process(context.Background(), added)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
}

func TestBatchProcessor_CountMismatch(t *testing.T) {
	repo := setupTestRepository(t)
	added := seedArticles(t, repo, 2)

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{1, 0, 0}}, nil
	}

	bp := NewBatchProcessor(repo, embedder, 1, time.Millisecond)
	err := bp.Process(context.Background(), added)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "mismatch")
}

func TestBatchProcessor_MissingArticleFailsUpdate(t *testing.T) {
	repo := setupTestRepository(t)

	ghost := &core.Article{
		Id:          12345,
		URL:         "https://news.example.com/ghost",
		Title:       "Never stored",
		Content:     "Body.",
		PublishedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}

	embedder := mock.NewMockEmbedder()
	bp := NewBatchProcessor(repo, embedder, 1, time.Millisecond)
	err := bp.Process(context.Background(), []*core.Article{ghost})
	assert.Error(t, err)
}
