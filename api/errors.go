package api

import "errors"

var (
	// ErrArticleRepositoryRequired is returned when an article repository is not provided.
	ErrArticleRepositoryRequired = errors.New("article repository required")

	// ErrPipelineRequired is returned when an ingestion pipeline is not provided.
	ErrPipelineRequired = errors.New("ingestion pipeline required")

	// ErrDetectorRequired is returned when a trending detector is not provided.
	ErrDetectorRequired = errors.New("trending detector required")

	// ErrSearcherRequired is returned when a searcher is not provided.
	ErrSearcherRequired = errors.New("searcher required")

	// ErrInvalidTimeout is returned when a non-positive timeout is configured.
	ErrInvalidTimeout = errors.New("timeout must be positive")
)
