package ingestion

import "errors"

var (
	// ErrArticleRepositoryRequired is returned when an article repository is not provided.
	ErrArticleRepositoryRequired = errors.New("article repository required")

	// ErrCheckpointRepositoryRequired is returned when a checkpoint repository is not provided.
	ErrCheckpointRepositoryRequired = errors.New("checkpoint repository required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")
)
