// Copyright 2025 Switchwise
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package newspulse

import (
	"log/slog"

	"github.com/switchwise/newspulse/ai"
	"github.com/switchwise/newspulse/ai/openai"
	"github.com/switchwise/newspulse/ingestion"
	"github.com/switchwise/newspulse/search"
	"github.com/switchwise/newspulse/storage"
	"github.com/switchwise/newspulse/storage/badger"
	"github.com/switchwise/newspulse/trending"
)

// Database is the embedded article store plus its AI provider.
// It is the entry point for building pipelines, detectors, and searchers
// that share one storage backend.
type Database struct {
	backend        *badger.Backend
	articleRepo    storage.ArticleRepository
	checkpointRepo storage.CheckpointRepository
	provider       ai.Provider
	logger         *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig *ai.Config
	inMemory bool
}

// WithAIConfig sets the embedding service configuration.
func WithAIConfig(config *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		if config != nil {
			o.aiConfig = config
		}
	}
}

// WithInMemory opens the store without touching disk. Data is lost on Close.
func WithInMemory() DatabaseOption {
	return func(o *databaseOptions) {
		o.inMemory = true
	}
}

// NewDatabase opens (or creates) the article store at filePath.
func NewDatabase(filePath string, opts ...DatabaseOption) (*Database, error) {
	// Apply options
	options := &databaseOptions{
		aiConfig: ai.DefaultConfig(), // Default if not provided
	}
	for _, opt := range opts {
		opt(options)
	}

	// Open backend
	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	// Create article repository
	articleRepo, err := badger.NewArticleRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	// Create checkpoint repository
	checkpointRepo := badger.NewCheckpointRepository(backend)

	// Create AI provider with configured settings
	provider, err := openai.NewProvider(options.aiConfig)
	if err != nil {
		articleRepo.Close()
		backend.Close()
		return nil, err
	}

	return &Database{
		backend:        backend,
		articleRepo:    articleRepo,
		checkpointRepo: checkpointRepo,
		provider:       provider,
		logger:         slog.Default(),
	}, nil
}

func (db *Database) Close() error {
	// Close AI provider first
	if err := db.provider.Close(); err != nil {
		db.logger.Error("error closing AI provider", "err", err)
	}

	// Close repositories
	if err := db.articleRepo.Close(); err != nil {
		db.logger.Error("error closing article repository", "err", err)
		return err
	}

	// Close backend
	if err := db.backend.Close(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (db *Database) ArticleRepository() storage.ArticleRepository {
	return db.articleRepo
}

func (db *Database) CheckpointRepository() storage.CheckpointRepository {
	return db.checkpointRepo
}

func (db *Database) Provider() ai.Provider {
	return db.provider
}

func (db *Database) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	return ingestion.NewPipeline(db.articleRepo, db.checkpointRepo, db.provider, opts...)
}

func (db *Database) NewDetector(opts ...trending.Option) (*trending.Detector, error) {
	return trending.NewDetector(db.articleRepo, opts...)
}

func (db *Database) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	return search.NewSearcher(db.articleRepo, db.provider, opts...)
}
