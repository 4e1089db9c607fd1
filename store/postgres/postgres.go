// Package postgres implements sheaf.Store using PostgreSQL with pgvector
// for native vector similarity search and tsvector for full-text keyword
// search.
//
// The Store accepts an externally-owned *pgxpool.Pool via constructor
// injection. The caller creates and closes the pool.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ogersten/sheaf"
)

// Store implements sheaf.Store backed by PostgreSQL with pgvector.
// Vector search uses HNSW indexes with cosine distance.
type Store struct {
	pool     *pgxpool.Pool
	embedder sheaf.EmbeddingProvider
	cfg      pgConfig
}

// pgConfig holds store configuration set via Option functions.
type pgConfig struct {
	embeddingDimension int // 0 = untyped vector
	hnswM              int // 0 = pgvector default (16)
	hnswEFConstruction int // 0 = pgvector default (64)
	hnswEFSearch       int // 0 = pgvector default (40)
}

// Option configures a PostgreSQL Store.
type Option func(*Store)

// WithEmbedding sets the provider used to embed chunk text at insert time.
func WithEmbedding(p sheaf.EmbeddingProvider) Option {
	return func(s *Store) { s.embedder = p }
}

// WithEmbeddingDimension sets the vector column dimension (e.g. 1536, 768).
// When set, CREATE TABLE uses vector(N) instead of untyped vector, enabling
// better index optimization and catching dimension mismatches at insert time.
// Only affects new table creation (no ALTER on existing tables).
func WithEmbeddingDimension(dim int) Option {
	return func(s *Store) { s.cfg.embeddingDimension = dim }
}

// WithHNSWM sets the HNSW m parameter (max connections per node).
// Higher values improve recall at the cost of memory. Default: pgvector's 16.
// Only affects index creation (CREATE INDEX IF NOT EXISTS).
func WithHNSWM(m int) Option {
	return func(s *Store) { s.cfg.hnswM = m }
}

// WithEFConstruction sets the HNSW ef_construction parameter (build-time
// candidate list size). Higher values improve index quality at the cost of
// slower builds. Default: pgvector's 64.
// Only affects index creation (CREATE INDEX IF NOT EXISTS).
func WithEFConstruction(ef int) Option {
	return func(s *Store) { s.cfg.hnswEFConstruction = ef }
}

// WithEFSearch sets the HNSW ef_search parameter (query-time candidate list
// size). Higher values improve recall at the cost of latency. Default:
// pgvector's 40. Applied during Init().
func WithEFSearch(ef int) Option {
	return func(s *Store) { s.cfg.hnswEFSearch = ef }
}

var _ sheaf.Store = (*Store)(nil)
var _ sheaf.KeywordSearcher = (*Store)(nil)

// New creates a Store using an existing pgxpool.Pool.
// The caller owns the pool and is responsible for closing it.
func New(pool *pgxpool.Pool, opts ...Option) *Store {
	s := &Store{pool: pool}
	for _, o := range opts {
		o(s)
	}
	return s
}

// vectorType returns "vector" or "vector(N)" depending on config.
func (s *Store) vectorType() string {
	if s.cfg.embeddingDimension > 0 {
		return fmt.Sprintf("vector(%d)", s.cfg.embeddingDimension)
	}
	return "vector"
}

// hnswWithClause returns the WITH (...) clause for HNSW index creation,
// or an empty string if no tuning params are set.
func (s *Store) hnswWithClause() string {
	var parts []string
	if s.cfg.hnswM > 0 {
		parts = append(parts, fmt.Sprintf("m = %d", s.cfg.hnswM))
	}
	if s.cfg.hnswEFConstruction > 0 {
		parts = append(parts, fmt.Sprintf("ef_construction = %d", s.cfg.hnswEFConstruction))
	}
	if len(parts) == 0 {
		return ""
	}
	return " WITH (" + strings.Join(parts, ", ") + ")"
}

// Init creates the pgvector extension, the chunks table, and its indexes.
// Safe to call multiple times (all statements are idempotent).
func (s *Store) Init(ctx context.Context) error {
	vtype := s.vectorType()
	hnswWith := s.hnswWithClause()

	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			source_path TEXT NOT NULL,
			content TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			heading TEXT,
			has_table BOOLEAN NOT NULL DEFAULT FALSE,
			has_code_block BOOLEAN NOT NULL DEFAULT FALSE,
			image_refs JSONB,
			oversized BOOLEAN NOT NULL DEFAULT FALSE,
			ingested_at TEXT NOT NULL,
			embedding %s
		)`, vtype),
		`CREATE INDEX IF NOT EXISTS chunks_document_idx ON chunks(document_id)`,
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS chunks_embedding_idx ON chunks USING hnsw (embedding vector_cosine_ops)%s`, hnswWith),
		`CREATE INDEX IF NOT EXISTS chunks_fts_idx ON chunks USING gin(to_tsvector('english', content))`,
	}

	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: init: %w", err)
		}
	}

	if s.cfg.hnswEFSearch > 0 {
		if _, err := s.pool.Exec(ctx, fmt.Sprintf("SET hnsw.ef_search = %d", s.cfg.hnswEFSearch)); err != nil {
			return fmt.Errorf("postgres: set ef_search: %w", err)
		}
	}

	return nil
}

// Ping verifies connectivity to the database.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: ping: %w", err)
	}
	return nil
}

// Exists reports whether any chunk is tagged with documentID.
func (s *Store) Exists(ctx context.Context, documentID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM chunks WHERE document_id = $1)`, documentID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgres: exists: %w", err)
	}
	return exists, nil
}

// StoreChunks embeds and inserts the chunks in a single transaction.
func (s *Store) StoreChunks(ctx context.Context, chunks []sheaf.Chunk) error {
	if err := s.embedChunks(ctx, chunks); err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := insertChunks(ctx, tx, chunks); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit tx: %w", err)
	}
	return nil
}

// DeleteDocument removes all chunks tagged with documentID and returns the
// number removed.
func (s *Store) DeleteDocument(ctx context.Context, documentID string) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete document: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ReplaceDocument atomically swaps the chunk set for documentID. Embedding
// happens before the transaction opens, so an embedding failure leaves the
// prior chunk set untouched.
func (s *Store) ReplaceDocument(ctx context.Context, documentID string, chunks []sheaf.Chunk) (int, error) {
	if err := s.embedChunks(ctx, chunks); err != nil {
		return 0, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete old chunks: %w", err)
	}
	if err := insertChunks(ctx, tx, chunks); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("postgres: commit tx: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// SearchChunks performs HNSW-accelerated cosine similarity search.
func (s *Store) SearchChunks(ctx context.Context, embedding []float32, topK int) ([]sheaf.ScoredChunk, error) {
	embStr := serializeEmbedding(embedding)

	rows, err := s.pool.Query(ctx,
		`SELECT id, document_id, source_path, content, chunk_index, heading,
		        has_table, has_code_block, image_refs, oversized, ingested_at,
		        1 - (embedding <=> $1::vector) AS score
		 FROM chunks
		 WHERE embedding IS NOT NULL
		 ORDER BY embedding <=> $1::vector
		 LIMIT $2`,
		embStr, topK)
	if err != nil {
		return nil, fmt.Errorf("postgres: search chunks: %w", err)
	}
	defer rows.Close()

	var results []sheaf.ScoredChunk
	for rows.Next() {
		c, score, err := scanScoredChunk(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, sheaf.ScoredChunk{Chunk: c, Score: score})
	}
	return results, rows.Err()
}

// SearchChunksKeyword performs full-text keyword search over chunk content
// using PostgreSQL tsvector ranking.
func (s *Store) SearchChunksKeyword(ctx context.Context, query string, topK int) ([]sheaf.ScoredChunk, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, document_id, source_path, content, chunk_index, heading,
		        has_table, has_code_block, image_refs, oversized, ingested_at,
		        ts_rank(to_tsvector('english', content), plainto_tsquery('english', $1)) AS score
		 FROM chunks
		 WHERE to_tsvector('english', content) @@ plainto_tsquery('english', $1)
		 ORDER BY score DESC
		 LIMIT $2`,
		query, topK)
	if err != nil {
		return nil, fmt.Errorf("postgres: keyword search: %w", err)
	}
	defer rows.Close()

	var results []sheaf.ScoredChunk
	for rows.Next() {
		c, score, err := scanScoredChunk(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, sheaf.ScoredChunk{Chunk: c, Score: score})
	}
	return results, rows.Err()
}

// Close is a no-op. The caller owns the pool and manages its lifecycle.
func (s *Store) Close() error {
	return nil
}

// embedChunks fills Embedding on each chunk from the configured provider.
func (s *Store) embedChunks(ctx context.Context, chunks []sheaf.Chunk) error {
	if s.embedder == nil || len(chunks) == 0 {
		return nil
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vecs, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("postgres: embed chunks: %w", err)
	}
	if len(vecs) != len(chunks) {
		return fmt.Errorf("postgres: embed chunks: provider returned %d vectors for %d texts", len(vecs), len(chunks))
	}
	for i := range chunks {
		chunks[i].Embedding = vecs[i]
	}
	return nil
}

func insertChunks(ctx context.Context, tx pgx.Tx, chunks []sheaf.Chunk) error {
	for _, c := range chunks {
		var embStr *string
		if len(c.Embedding) > 0 {
			v := serializeEmbedding(c.Embedding)
			embStr = &v
		}
		var refsJSON []byte
		if len(c.ImageRefs) > 0 {
			refsJSON, _ = json.Marshal(c.ImageRefs)
		}
		var heading *string
		if h := c.MetaHeading(); h != "" {
			heading = &h
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO chunks
			 (id, document_id, source_path, content, chunk_index, heading,
			  has_table, has_code_block, image_refs, oversized, ingested_at, embedding)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12::vector)
			 ON CONFLICT (id) DO UPDATE SET
			   document_id = EXCLUDED.document_id,
			   source_path = EXCLUDED.source_path,
			   content = EXCLUDED.content,
			   chunk_index = EXCLUDED.chunk_index,
			   heading = EXCLUDED.heading,
			   has_table = EXCLUDED.has_table,
			   has_code_block = EXCLUDED.has_code_block,
			   image_refs = EXCLUDED.image_refs,
			   oversized = EXCLUDED.oversized,
			   ingested_at = EXCLUDED.ingested_at,
			   embedding = EXCLUDED.embedding`,
			c.ID, c.DocumentID, c.SourcePath, c.Text, c.Index, heading,
			c.HasTable, c.HasCodeBlock, refsJSON, c.Oversized, c.IngestedAt, embStr)
		if err != nil {
			return fmt.Errorf("postgres: insert chunk: %w", err)
		}
	}
	return nil
}

func scanScoredChunk(rows pgx.Rows) (sheaf.Chunk, float32, error) {
	var c sheaf.Chunk
	var heading *string
	var refsJSON []byte
	var score float32
	if err := rows.Scan(&c.ID, &c.DocumentID, &c.SourcePath, &c.Text, &c.Index, &heading,
		&c.HasTable, &c.HasCodeBlock, &refsJSON, &c.Oversized, &c.IngestedAt, &score); err != nil {
		return sheaf.Chunk{}, 0, fmt.Errorf("postgres: scan chunk: %w", err)
	}
	if heading != nil {
		c.Heading = *heading
	}
	if refsJSON != nil {
		_ = json.Unmarshal(refsJSON, &c.ImageRefs)
	}
	return c, score, nil
}

// serializeEmbedding formats a vector as pgvector's text literal.
func serializeEmbedding(embedding []float32) string {
	parts := make([]string, len(embedding))
	for i, v := range embedding {
		parts[i] = strconv.FormatFloat(float64(v), 'f', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
