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


package core

import (
	"fmt"
	"time"
)

// ValidateArticle validates an Article according to domain rules.
//
// Validation rules:
//   - URL must be non-empty and resolve to a host
//   - Title must not be empty
//   - Content must not be empty
//   - PublishedAt must not be in the future
//
// NOT validated (populated later):
//   - Vector (can be empty until the embedding processor runs)
//   - Source (derived from URL during ingestion)
//   - ID (0 is valid before content hashing)
func ValidateArticle(article *Article) error {
	if article == nil {
		return fmt.Errorf("%w: article is nil", ErrInvalidArticle)
	}

	if article.URL == "" || DomainOf(article.URL) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidArticle, ErrInvalidURL)
	}

	if article.Title == "" {
		return fmt.Errorf("%w: %w", ErrInvalidArticle, ErrEmptyTitle)
	}

	if article.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidArticle, ErrEmptyContent)
	}

	if !IsValidTimestamp(article.PublishedAt) {
		return fmt.Errorf("%w: %w", ErrInvalidArticle, ErrInvalidTimestamp)
	}

	return nil
}

// IsValidTimestamp checks if a timestamp is valid (not in the future).
// A zero timestamp is valid; ingestion substitutes the current time.
func IsValidTimestamp(ts time.Time) bool {
	return !ts.After(time.Now())
}
