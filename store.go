package sheaf

import "context"

// Store abstracts chunk persistence with vector search capabilities.
//
// The write surface (StoreChunks, DeleteDocument, ReplaceDocument) is not
// safe for concurrent mutating calls from the same process; callers must
// serialize documents. The ingestion pipeline does so by construction.
type Store interface {
	// Exists reports whether any chunk is tagged with documentID.
	// It is an existence check only, never a content comparison.
	Exists(ctx context.Context, documentID string) (bool, error)

	// DeleteDocument removes all chunks tagged with documentID and
	// returns the number removed.
	DeleteDocument(ctx context.Context, documentID string) (int, error)

	// StoreChunks embeds and persists the chunks in order. Implementations
	// obtain embeddings from their configured EmbeddingProvider.
	StoreChunks(ctx context.Context, chunks []Chunk) error

	// ReplaceDocument atomically deletes every chunk tagged with documentID
	// and inserts the new set. Either both happen or neither does; it
	// returns the number of chunks deleted.
	ReplaceDocument(ctx context.Context, documentID string, chunks []Chunk) (int, error)

	// SearchChunks returns the topK most similar chunks to the embedding.
	SearchChunks(ctx context.Context, embedding []float32, topK int) ([]ScoredChunk, error)

	// Ping verifies connectivity. The pipeline calls it once before
	// processing any document; a failure aborts the whole batch.
	Ping(ctx context.Context) error

	// Init creates required tables and indexes. Idempotent.
	Init(ctx context.Context) error

	Close() error
}

// KeywordSearcher is an optional store capability: full-text search over
// chunk content. Backends that maintain a text index implement it alongside
// Store.
type KeywordSearcher interface {
	SearchChunksKeyword(ctx context.Context, query string, topK int) ([]ScoredChunk, error)
}

// EmbeddingProvider abstracts text embedding.
type EmbeddingProvider interface {
	// Embed returns embedding vectors for the given texts.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Name returns the provider name for logging and metrics.
	Name() string

	// Dimensions returns the embedding vector dimensionality.
	Dimensions() int
}
