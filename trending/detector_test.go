package trending

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/switchwise/newspulse/core"
	"github.com/switchwise/newspulse/storage"
	"github.com/switchwise/newspulse/storage/badger"
)

var windowStart = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
var windowEnd = time.Date(2025, 6, 2, 23, 59, 59, 0, time.UTC)

func setupTestRepository(t *testing.T) storage.ArticleRepository {
	t.Helper()

	articleRepo, _, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = backend.Close()
	})
	return articleRepo
}

func embeddedArticle(url, title string, published time.Time, vector []float32) *core.Article {
	return &core.Article{
		URL:         url,
		Title:       title,
		Content:     "Body text for " + title + ".",
		PublishedAt: published,
		Vector:      core.NormalizeVector(vector),
	}
}

func TestNewDetector(t *testing.T) {
	repo := setupTestRepository(t)

	t.Run("requires repository", func(t *testing.T) {
		d, err := NewDetector(nil)
		assert.Nil(t, d)
		assert.ErrorIs(t, err, ErrArticleRepositoryRequired)
	})

	t.Run("default threshold", func(t *testing.T) {
		d, err := NewDetector(repo)
		require.NoError(t, err)
		assert.InDelta(t, DefaultThreshold, d.threshold, 0.0001)
	})

	t.Run("custom threshold", func(t *testing.T) {
		d, err := NewDetector(repo, WithThreshold(0.9))
		require.NoError(t, err)
		assert.InDelta(t, 0.9, d.threshold, 0.0001)
	})

	t.Run("invalid threshold", func(t *testing.T) {
		for _, threshold := range []float32{0, -0.5, 1.5} {
			d, err := NewDetector(repo, WithThreshold(threshold))
			assert.Nil(t, d)
			assert.ErrorIs(t, err, ErrInvalidThreshold)
		}
	})
}

func TestDetect_CrossSourceStory(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	// Two sources covering the same story, one unrelated article
	shared := []float32{1, 0.1, 0}
	_, err := repo.AddArticles(ctx,
		embeddedArticle("https://alpha.example.com/story", "Story at alpha", windowStart.Add(time.Hour), shared),
		embeddedArticle("https://beta.example.org/story", "Story at beta", windowStart.Add(2*time.Hour), []float32{1, 0.12, 0}),
		embeddedArticle("https://gamma.example.net/other", "Unrelated", windowStart.Add(3*time.Hour), []float32{0, 0, 1}),
	)
	require.NoError(t, err)

	d, err := NewDetector(repo)
	require.NoError(t, err)

	results, err := d.Detect(ctx, windowStart, windowEnd, 0, 0)
	require.NoError(t, err)
	require.Len(t, results, 2)

	for _, result := range results {
		require.Len(t, result.Similar, 1)
		assert.GreaterOrEqual(t, result.Similar[0].Score, float32(DefaultThreshold))
		assert.NotEqual(t, result.Article.Id, result.Similar[0].ArticleId)
	}
}

func TestDetect_SameSourceNeverPaired(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	// Identical vectors, same source
	vec := []float32{1, 0, 0}
	_, err := repo.AddArticles(ctx,
		embeddedArticle("https://alpha.example.com/a", "First", windowStart.Add(time.Hour), vec),
		embeddedArticle("https://alpha.example.com/b", "Second", windowStart.Add(2*time.Hour), vec),
	)
	require.NoError(t, err)

	d, err := NewDetector(repo)
	require.NoError(t, err)

	results, err := d.Detect(ctx, windowStart, windowEnd, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestDetect_SkipsUnembedded(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	plain := &core.Article{
		URL:         "https://beta.example.org/plain",
		Title:       "No vector yet",
		Content:     "Body.",
		PublishedAt: windowStart.Add(time.Hour),
	}
	_, err := repo.AddArticles(ctx,
		embeddedArticle("https://alpha.example.com/a", "Embedded", windowStart.Add(time.Hour), []float32{1, 0, 0}),
		plain,
	)
	require.NoError(t, err)

	d, err := NewDetector(repo)
	require.NoError(t, err)

	results, err := d.Detect(ctx, windowStart, windowEnd, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestDetect_ThresholdFiltersWeakMatches(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	// Cosine similarity of these two is ~0.707, below the default threshold
	_, err := repo.AddArticles(ctx,
		embeddedArticle("https://alpha.example.com/a", "First", windowStart.Add(time.Hour), []float32{1, 0, 0}),
		embeddedArticle("https://beta.example.org/b", "Second", windowStart.Add(2*time.Hour), []float32{1, 1, 0}),
	)
	require.NoError(t, err)

	d, err := NewDetector(repo)
	require.NoError(t, err)

	results, err := d.Detect(ctx, windowStart, windowEnd, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, results)

	// A lower threshold admits the pair
	loose, err := NewDetector(repo, WithThreshold(0.5))
	require.NoError(t, err)

	results, err = loose.Detect(ctx, windowStart, windowEnd, 0, 0)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestDetect_WindowBoundsInclusive(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	vec := []float32{1, 0, 0}
	_, err := repo.AddArticles(ctx,
		embeddedArticle("https://alpha.example.com/edge", "At start", windowStart, vec),
		embeddedArticle("https://beta.example.org/edge", "At end", windowEnd, vec),
		embeddedArticle("https://gamma.example.net/late", "After end", windowEnd.Add(time.Second), vec),
	)
	require.NoError(t, err)

	d, err := NewDetector(repo)
	require.NoError(t, err)

	results, err := d.Detect(ctx, windowStart, windowEnd, 0, 0)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestDetect_Pagination(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	vec := []float32{1, 0, 0}
	_, err := repo.AddArticles(ctx,
		embeddedArticle("https://alpha.example.com/a", "First", windowStart.Add(1*time.Hour), vec),
		embeddedArticle("https://beta.example.org/b", "Second", windowStart.Add(2*time.Hour), vec),
		embeddedArticle("https://gamma.example.net/c", "Third", windowStart.Add(3*time.Hour), vec),
	)
	require.NoError(t, err)

	d, err := NewDetector(repo)
	require.NoError(t, err)

	// Page of two: first and second pair up
	results, err := d.Detect(ctx, windowStart, windowEnd, 2, 1)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	// Second page holds only the third article, nothing to pair with
	results, err = d.Detect(ctx, windowStart, windowEnd, 2, 2)
	require.NoError(t, err)
	assert.Empty(t, results)

	// Page past the data
	results, err = d.Detect(ctx, windowStart, windowEnd, 2, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestDetect_InvalidRange(t *testing.T) {
	repo := setupTestRepository(t)

	d, err := NewDetector(repo)
	require.NoError(t, err)

	results, err := d.Detect(context.Background(), windowEnd, windowStart, 0, 0)
	assert.Nil(t, results)
	assert.ErrorIs(t, err, ErrInvalidDateRange)
}

type recordingMonitor struct {
	started   bool
	retrieved int
	matches   int
	finished  int
}

func (m *recordingMonitor) Start(_, _ time.Time)                    { m.started = true }
func (m *recordingMonitor) AfterArticleRetrieval(a []*core.Article) { m.retrieved = len(a) }
func (m *recordingMonitor) CrossSourceMatch(_, _ core.ID, _ float32) {
	m.matches++
}
func (m *recordingMonitor) Finish(r []*core.TrendingArticle) { m.finished = len(r) }

func TestDetectWithMonitor(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	vec := []float32{1, 0, 0}
	_, err := repo.AddArticles(ctx,
		embeddedArticle("https://alpha.example.com/a", "First", windowStart.Add(time.Hour), vec),
		embeddedArticle("https://beta.example.org/b", "Second", windowStart.Add(2*time.Hour), vec),
	)
	require.NoError(t, err)

	d, err := NewDetector(repo)
	require.NoError(t, err)

	monitor := &recordingMonitor{}
	results, err := d.DetectWithMonitor(ctx, windowStart, windowEnd, 0, 0, monitor)
	require.NoError(t, err)

	assert.True(t, monitor.started)
	assert.Equal(t, 2, monitor.retrieved)
	assert.Equal(t, 1, monitor.matches)
	assert.Equal(t, len(results), monitor.finished)
}
