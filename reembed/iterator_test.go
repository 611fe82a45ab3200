package reembed

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/switchwise/newspulse/core"
	"github.com/switchwise/newspulse/storage"
	"github.com/switchwise/newspulse/storage/badger"
)

func setupTestRepository(t *testing.T) storage.ArticleRepository {
	t.Helper()

	articleRepo, _, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = backend.Close()
	})
	return articleRepo
}

func seedArticles(t *testing.T, repo storage.ArticleRepository, n int) []*core.Article {
	t.Helper()

	articles := make([]*core.Article, n)
	for i := range articles {
		articles[i] = &core.Article{
			URL:         fmt.Sprintf("https://news.example.com/%d", i),
			Title:       fmt.Sprintf("Story %d", i),
			Content:     "Body text.",
			PublishedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Minute),
		}
	}

	added, err := repo.AddArticles(context.Background(), articles...)
	require.NoError(t, err)
	require.Len(t, added, n)
	return added
}

func TestArticleIterator_EmptyDatabase(t *testing.T) {
	repo := setupTestRepository(t)
	it := NewArticleIterator(repo, 10)

	calls := 0
	err := it.ForEach(context.Background(), func(articles []*core.Article) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Zero(t, calls)
}

func TestArticleIterator_BatchesAllArticles(t *testing.T) {
	repo := setupTestRepository(t)
	seedArticles(t, repo, 25)

	it := NewArticleIterator(repo, 10)

	var batchSizes []int
	total := 0
	err := it.ForEach(context.Background(), func(articles []*core.Article) error {
		batchSizes = append(batchSizes, len(articles))
		total += len(articles)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 25, total)
	assert.Equal(t, []int{10, 10, 5}, batchSizes)
}

func TestArticleIterator_DefaultBatchSize(t *testing.T) {
	repo := setupTestRepository(t)
	it := NewArticleIterator(repo, 0)
	assert.Equal(t, DefaultBatchSize, it.batchSize)
}

func TestArticleIterator_StopsOnError(t *testing.T) {
	repo := setupTestRepository(t)
	seedArticles(t, repo, 25)

	it := NewArticleIterator(repo, 10)

	wantErr := errors.New("batch failed")
	calls := 0
	err := it.ForEach(context.Background(), func(articles []*core.Article) error {
		calls++
		if calls == 2 {
			return wantErr
		}
		return nil
	})

	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 2, calls)
}

func TestArticleIterator_ContextCancelled(t *testing.T) {
	repo := setupTestRepository(t)
	seedArticles(t, repo, 25)

	ctx, cancel := context.WithCancel(context.Background())
	it := NewArticleIterator(repo, 10)

	calls := 0
	err := it.ForEach(ctx, func(articles []*core.Article) error {
		calls++
		cancel()
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
