// Package ingestion provides pipeline orchestration for storing articles.
//
// The Pipeline type manages the ingestion workflow, including:
//   - Validating and adding articles to storage
//   - Generating embeddings asynchronously on a worker pool
//   - Checkpointing embedding progress
//
// Errors during async processing are logged but do not fail the ingestion
// operation.
package ingestion
