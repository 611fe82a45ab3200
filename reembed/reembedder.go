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


package reembed

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/switchwise/newspulse/ai"
	"github.com/switchwise/newspulse/core"
	"github.com/switchwise/newspulse/storage"
)

// Config holds configuration for the reembedding operation.
type Config struct {
	// BatchSize is the number of articles to process in each batch
	BatchSize int

	// ReportInterval is how often to report progress (number of articles)
	ReportInterval int

	// MaxRetries is the maximum number of retry attempts for failed operations
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      100,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Reembedder orchestrates the reembedding of all articles in a database.
type Reembedder struct {
	repo      storage.ArticleRepository
	embedder  ai.Embedder
	config    *Config
	progress  io.Writer
	processor *BatchProcessor
	iterator  *ArticleIterator
}

// NewReembedder creates a new reembedder.
// progress: where to write progress output (typically os.Stderr)
func NewReembedder(repo storage.ArticleRepository, embedder ai.Embedder, config *Config, progress io.Writer) *Reembedder {
	if config == nil {
		config = DefaultConfig()
	}

	processor := NewBatchProcessor(repo, embedder, config.MaxRetries, config.RetryDelay)
	iterator := NewArticleIterator(repo, config.BatchSize)

	return &Reembedder{
		repo:      repo,
		embedder:  embedder,
		config:    config,
		progress:  progress,
		processor: processor,
		iterator:  iterator,
	}
}

// Run executes the reembedding operation.
// All articles in the database will be reembedded with the configured embedder.
// Progress is reported to the configured writer.
func (r *Reembedder) Run(ctx context.Context) error {
	// First, count total articles
	startTime := time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	endTime := time.Date(2100, 12, 31, 23, 59, 59, 0, time.UTC)

	totalArticles, err := r.repo.CountArticlesByDateRange(ctx, startTime, endTime)
	if err != nil {
		return fmt.Errorf("failed to count articles: %w", err)
	}

	if totalArticles == 0 {
		fmt.Fprintf(r.progress, "No articles found in database (0 articles)\n")
		return nil
	}

	fmt.Fprintf(r.progress, "Starting reembedding of %d articles (batch size: %d)\n",
		totalArticles, r.config.BatchSize)

	// Initialize progress tracker
	tracker := NewProgressTracker(r.progress, totalArticles, r.config.ReportInterval)
	tracker.Start()

	processed := 0

	// Process all articles in batches
	err = r.iterator.ForEach(ctx, func(articles []*core.Article) error {
		// Process this batch
		if err := r.processor.Process(ctx, articles); err != nil {
			return fmt.Errorf("failed to process batch: %w", err)
		}

		// Update progress
		processed += len(articles)
		tracker.Update(processed)

		return nil
	})

	if err != nil {
		return err
	}

	// Finish progress tracking
	tracker.Finish()

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Reembedding complete. Processed %d articles in %v (%.1f articles/sec)\n",
		totalArticles, elapsed.Round(time.Second), float64(totalArticles)/elapsed.Seconds())

	return nil
}
