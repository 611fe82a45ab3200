package badger

import (
	"context"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/switchwise/newspulse/core"
	"github.com/switchwise/newspulse/storage"
)

// ArticleRepository implements storage.ArticleRepository for BadgerDB.
type ArticleRepository struct {
	backend *Backend
}

var _ storage.ArticleRepository = (*ArticleRepository)(nil)

// NewArticleRepository creates a new ArticleRepository.
func NewArticleRepository(backend *Backend) (*ArticleRepository, error) {
	return &ArticleRepository{
		backend: backend,
	}, nil
}

// Close releases repository resources.
func (r *ArticleRepository) Close() error {
	return nil
}

// FindSimilar delegates to the backend.
func (r *ArticleRepository) FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error) {
	return r.backend.FindSimilar(ctx, vector, minSimilarity, limit)
}

// WithTransaction delegates to the backend.
func (r *ArticleRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddArticles adds one or more articles to storage.
// Articles are keyed by a content hash of their URL, so re-adding an
// existing URL replaces the stored article and reuses its ID.
func (r *ArticleRepository) AddArticles(ctx context.Context, articles ...*core.Article) ([]*core.Article, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, article := range articles {
			if article.Id == 0 {
				article.Id = core.IDFromContent(article.URL)
			}

			key := makeArticleKey(article.Id)

			// An earlier version of the article may carry a stale date
			// index entry; remove it before writing the new one.
			old, err := r.readArticle(tx, key)
			if err != nil {
				return err
			}
			if old != nil {
				article.InsertedAt = old.InsertedAt
				if !old.PublishedAt.Equal(article.PublishedAt) {
					if err := tx.Delete(makeArticleDateKey(old.PublishedAt, old.Id)); err != nil {
						return err
					}
				}
			} else {
				article.InsertedAt = time.Now().UTC()
			}
			article.UpdatedAt = time.Now().UTC()

			// Store primary record
			value := storage.MarshalArticle(article)
			if err := tx.Set(key, value); err != nil {
				return err
			}

			// Update date index
			dateKey := makeArticleDateKey(article.PublishedAt, article.Id)
			if err := tx.Set(dateKey, storage.MarshalID(article.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return articles, err
}

// UpdateArticles updates existing articles.
func (r *ArticleRepository) UpdateArticles(ctx context.Context, articles ...*core.Article) ([]*core.Article, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, article := range articles {
			key := makeArticleKey(article.Id)

			// Read old article to detect changes
			old, err := r.readArticle(tx, key)
			if err != nil {
				return err
			}
			if old == nil {
				return storage.ErrNotFound
			}

			// Update timestamp
			article.UpdatedAt = time.Now().UTC()

			// Store updated article
			value := storage.MarshalArticle(article)
			if err := tx.Set(key, value); err != nil {
				return err
			}

			// Update date index if publication time changed
			if !old.PublishedAt.Equal(article.PublishedAt) {
				oldDateKey := makeArticleDateKey(old.PublishedAt, old.Id)
				if err := tx.Delete(oldDateKey); err != nil {
					return err
				}
				newDateKey := makeArticleDateKey(article.PublishedAt, article.Id)
				if err := tx.Set(newDateKey, storage.MarshalID(article.Id)); err != nil {
					return err
				}
			}
		}
		return tx.Commit()
	}, true)

	return articles, err
}

// DeleteArticles removes articles by their IDs.
func (r *ArticleRepository) DeleteArticles(ctx context.Context, ids ...core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeArticleKey(id)

			// Read article to get metadata for index cleanup
			article, err := r.readArticle(tx, key)
			if err != nil {
				return err
			}
			if article == nil {
				return storage.ErrNotFound
			}

			// Delete from date index
			dateKey := makeArticleDateKey(article.PublishedAt, article.Id)
			if err := tx.Delete(dateKey); err != nil {
				return err
			}

			// Delete primary record
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetArticle retrieves a single article by ID.
func (r *ArticleRepository) GetArticle(ctx context.Context, id core.ID) (*core.Article, error) {
	var result *core.Article
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeArticleKey(id)
		var err error
		result, err = r.readArticle(tx, key)
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetArticles retrieves multiple articles by their IDs.
func (r *ArticleRepository) GetArticles(ctx context.Context, ids ...core.ID) ([]*core.Article, error) {
	var result []*core.Article
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeArticleKey(id)
			article, err := r.readArticle(tx, key)
			if err != nil {
				return err
			}
			if article != nil {
				result = append(result, article)
			}
		}
		return nil
	}, false)
	return result, err
}

// GetArticlesByDateRange retrieves articles within a publication time range.
// Both bounds are inclusive.
func (r *ArticleRepository) GetArticlesByDateRange(ctx context.Context, start, end time.Time) ([]*core.Article, error) {
	var results []*core.Article
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return r.scanDateRange(tx, start, end, func(tx *badger.Txn, id core.ID) error {
			article, err := r.readArticle(tx, makeArticleKey(id))
			if err != nil {
				return err
			}
			if article != nil {
				results = append(results, article)
			}
			return nil
		})
	}, false)

	return results, err
}

// CountArticlesByDateRange counts articles within a publication time range
// without reading article payloads.
func (r *ArticleRepository) CountArticlesByDateRange(ctx context.Context, start, end time.Time) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return r.scanDateRange(tx, start, end, func(tx *badger.Txn, id core.ID) error {
			count++
			return nil
		})
	}, false)

	return count, err
}

// scanDateRange walks the date index between start and end (inclusive),
// invoking fn with each article ID in publication order.
func (r *ArticleRepository) scanDateRange(tx *badger.Txn, start, end time.Time, fn func(tx *badger.Txn, id core.ID) error) error {
	startKey := makePartialArticleDateKey(start)
	// The index stores microsecond timestamps; one microsecond past the end
	// bound makes the end inclusive.
	endBound := makePartialArticleDateKey(end.Add(1 * time.Microsecond))

	iter := tx.NewIterator(badger.DefaultIteratorOptions)
	defer iter.Close()

	for iter.Seek(startKey); iter.Valid(); iter.Next() {
		key := iter.Item().Key()
		if slices.Compare(key, endBound) >= 0 {
			break
		}

		// Read the ID from the index
		var articleID core.ID
		if err := iter.Item().Value(func(val []byte) error {
			var err error
			articleID, err = storage.UnmarshalID(val)
			return err
		}); err != nil {
			return err
		}

		if err := fn(tx, articleID); err != nil {
			return err
		}
	}
	return nil
}

// GetRecentArticles retrieves the N most recently published articles,
// ordered by publication time descending.
func (r *ArticleRepository) GetRecentArticles(ctx context.Context, limit int) ([]*core.Article, error) {
	var results []*core.Article
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		// Use reverse iterator to get most recent articles first
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true

		iter := tx.NewIterator(opts)
		defer iter.Close()

		// Seek to the last possible key in the date index
		startKey := makePartialArticleDateKey(time.Date(9999, 12, 31, 23, 59, 59, 999999999, time.UTC))

		prefix := []byte(articleDatePrefix + ":")

		count := 0
		for iter.Seek(startKey); iter.Valid() && count < limit; iter.Next() {
			key := iter.Item().Key()

			// Check if we're still in the date index
			if len(key) < len(prefix) || slices.Compare(key[:len(prefix)], prefix) != 0 {
				break
			}

			// Read the ID from the index
			var articleID core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				articleID, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			// Look up the full article
			article, err := r.readArticle(tx, makeArticleKey(articleID))
			if err != nil {
				return err
			}
			if article != nil {
				results = append(results, article)
				count++
			}
		}
		return nil
	}, false)

	return results, err
}

// readArticle reads and unmarshals an article by key.
// Returns nil, nil if the key does not exist.
func (r *ArticleRepository) readArticle(tx *badger.Txn, key []byte) (*core.Article, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var article *core.Article
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		article, unmarshalErr = storage.UnmarshalArticle(val)
		return unmarshalErr
	})
	return article, err
}
