package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTestArticle() *Article {
	return &Article{
		URL:         "https://example.com/articles/storm-warning",
		Title:       "Storm warning issued for the coast",
		Content:     "Authorities issued a storm warning for coastal regions on Monday.",
		PublishedAt: time.Now().Add(-1 * time.Hour),
	}
}

func TestValidateArticle(t *testing.T) {
	t.Run("valid article", func(t *testing.T) {
		require.NoError(t, ValidateArticle(validTestArticle()))
	})

	t.Run("nil article", func(t *testing.T) {
		err := ValidateArticle(nil)
		assert.ErrorIs(t, err, ErrInvalidArticle)
	})

	tests := []struct {
		name    string
		mutate  func(*Article)
		wantErr error
	}{
		{
			name:    "empty URL",
			mutate:  func(a *Article) { a.URL = "" },
			wantErr: ErrInvalidURL,
		},
		{
			name:    "URL without host",
			mutate:  func(a *Article) { a.URL = "/relative/path" },
			wantErr: ErrInvalidURL,
		},
		{
			name:    "empty title",
			mutate:  func(a *Article) { a.Title = "" },
			wantErr: ErrEmptyTitle,
		},
		{
			name:    "empty content",
			mutate:  func(a *Article) { a.Content = "" },
			wantErr: ErrEmptyContent,
		},
		{
			name:    "future published date",
			mutate:  func(a *Article) { a.PublishedAt = time.Now().Add(24 * time.Hour) },
			wantErr: ErrInvalidTimestamp,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			article := validTestArticle()
			tt.mutate(article)

			err := ValidateArticle(article)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidArticle)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestIsValidTimestamp(t *testing.T) {
	assert.True(t, IsValidTimestamp(time.Time{}), "zero timestamp should be valid")
	assert.True(t, IsValidTimestamp(time.Now().Add(-time.Minute)))
	assert.False(t, IsValidTimestamp(time.Now().Add(time.Minute)))
}
