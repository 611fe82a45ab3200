package core

//go:generate go run ../cmd/musgen

import (
	"encoding/binary"
	"net/url"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// Articles derive their ID from content-based hashing of the URL.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Article represents a single news article.
// It may be enriched with an embedding vector after ingestion.
type Article struct {
	Id          ID
	URL         string
	Title       string
	Content     string
	Source      string            // Lowercased host of URL, used for cross-outlet comparison
	PublishedAt time.Time         // When the article was originally published
	InsertedAt  time.Time         // When the article was inserted into the database
	UpdatedAt   time.Time         // When the article was last updated
	Vector      []float32         // Embedding vector for semantic search (populated by the pipeline)
	Metadata    map[string]string // Optional metadata (e.g., "author", "feed", "language")
}

// HasVector reports whether the article has been embedded.
func (a *Article) HasVector() bool {
	return len(a.Vector) > 0
}

// EmbeddingText is the text representation used for embedding an article.
// Title and body are combined so headline-only matches still score.
func (a *Article) EmbeddingText() string {
	if a.Title == "" {
		return a.Content
	}
	return a.Title + "\n\n" + a.Content
}

// DomainOf extracts the lowercased host name from a raw URL.
// Returns an empty string when the URL cannot be parsed or has no host.
func DomainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// SimilarArticle references an article that scored above the similarity
// threshold against a trending reference article.
type SimilarArticle struct {
	ArticleId ID
	Score     float32
}

// TrendingArticle is a reference article together with the cross-outlet
// articles that cover the same story.
type TrendingArticle struct {
	Article *Article
	Similar []SimilarArticle
}

// SearchResult represents a search result with the full article and relevance score.
type SearchResult struct {
	Article *Article
	Score   float32
}

// Checkpoint records processing progress for a background processor.
type Checkpoint struct {
	ProcessorType string
	LastId        ID
	UpdatedAt     time.Time
}
