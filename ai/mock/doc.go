// Package mock provides test doubles for the ai package interfaces.
//
// The mock embedder produces deterministic vectors derived from the input
// text, so tests can rely on stable similarity relationships without calling
// an external embedding service.
package mock
