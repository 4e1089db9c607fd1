// Package sqlite implements sheaf.Store using pure-Go SQLite
// with in-process brute-force vector search. Zero CGO required.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/ogersten/sheaf"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// StoreOption configures a SQLite Store.
type StoreOption func(*Store)

// WithLogger sets a structured logger for the store.
// When set, the store emits debug logs for every operation including
// timing, row counts, and key parameters. If not set, no logs are emitted.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// WithEmbedding sets the provider used to embed chunk text at insert time.
// Without one, chunks are stored without embeddings and vector search
// returns nothing for them.
func WithEmbedding(p sheaf.EmbeddingProvider) StoreOption {
	return func(s *Store) { s.embedder = p }
}

// Store implements sheaf.Store backed by a local SQLite file.
// Embeddings are stored as JSON text and vector search is done
// in-process using brute-force cosine similarity.
type Store struct {
	db       *sql.DB
	embedder sheaf.EmbeddingProvider
	logger   *slog.Logger
}

var _ sheaf.Store = (*Store)(nil)
var _ sheaf.KeywordSearcher = (*Store)(nil)

// nopLogger is a logger that discards all output.
var nopLogger = slog.New(discardHandler{})

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// New creates a Store using a local SQLite file at dbPath.
// It opens a single shared connection pool with SetMaxOpenConns(1) so that
// all goroutines serialize through one connection, eliminating SQLITE_BUSY
// errors caused by concurrent writers opening independent connections.
func New(dbPath string, opts ...StoreOption) *Store {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		// sql.Open only fails when the driver is not registered; with the
		// blank import above that never happens.
		panic(fmt.Sprintf("sqlite: open driver: %v", err))
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db, logger: nopLogger}
	for _, o := range opts {
		o(s)
	}
	s.logger.Debug("sqlite: store opened", "path", dbPath)
	return s
}

// Init creates all required tables and indexes.
func (s *Store) Init(ctx context.Context) error {
	start := time.Now()
	s.logger.Debug("sqlite: init started")

	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		source_path TEXT NOT NULL,
		content TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		heading TEXT,
		has_table INTEGER NOT NULL DEFAULT 0,
		has_code_block INTEGER NOT NULL DEFAULT 0,
		image_refs TEXT,
		oversized INTEGER NOT NULL DEFAULT 0,
		ingested_at TEXT NOT NULL,
		embedding TEXT
	)`)
	if err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	_, _ = s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id)`)

	// FTS5 full-text index for keyword search over chunks.
	_, _ = s.db.ExecContext(ctx, `CREATE VIRTUAL TABLE IF NOT EXISTS chunks_fts USING fts5(chunk_id UNINDEXED, content)`)

	s.logger.Info("sqlite: init completed", "duration", time.Since(start))
	return nil
}

// Ping verifies the database file is reachable and writable enough to query.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Error("sqlite: ping failed", "error", err)
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Exists reports whether any chunk is tagged with documentID.
func (s *Store) Exists(ctx context.Context, documentID string) (bool, error) {
	start := time.Now()
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM chunks WHERE document_id = ? LIMIT 1`, documentID,
	).Scan(&n)
	if err != nil {
		s.logger.Error("sqlite: exists check failed", "document_id", documentID, "error", err)
		return false, fmt.Errorf("exists: %w", err)
	}
	s.logger.Debug("sqlite: exists check", "document_id", documentID, "exists", n > 0, "duration", time.Since(start))
	return n > 0, nil
}

// StoreChunks embeds and inserts the chunks in a single transaction.
func (s *Store) StoreChunks(ctx context.Context, chunks []sheaf.Chunk) error {
	start := time.Now()
	s.logger.Debug("sqlite: store chunks", "count", len(chunks))

	if err := s.embedChunks(ctx, chunks); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := insertChunks(ctx, tx, chunks); err != nil {
		s.logger.Error("sqlite: store chunks failed", "error", err)
		return err
	}
	if err := tx.Commit(); err != nil {
		s.logger.Error("sqlite: store chunks commit failed", "error", err)
		return fmt.Errorf("commit tx: %w", err)
	}
	s.logger.Debug("sqlite: store chunks ok", "count", len(chunks), "duration", time.Since(start))
	return nil
}

// DeleteDocument removes all chunks tagged with documentID and their FTS
// entries, returning the number of chunks deleted.
func (s *Store) DeleteDocument(ctx context.Context, documentID string) (int, error) {
	start := time.Now()
	s.logger.Debug("sqlite: delete document", "document_id", documentID)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	n, err := deleteDocumentTx(ctx, tx, documentID)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		s.logger.Error("sqlite: delete document commit failed", "document_id", documentID, "error", err)
		return 0, err
	}
	s.logger.Debug("sqlite: delete document ok", "document_id", documentID, "deleted", n, "duration", time.Since(start))
	return n, nil
}

// ReplaceDocument atomically swaps the chunk set for documentID. Embedding
// happens before the transaction opens, so an embedding failure leaves the
// prior chunk set untouched.
func (s *Store) ReplaceDocument(ctx context.Context, documentID string, chunks []sheaf.Chunk) (int, error) {
	start := time.Now()
	s.logger.Debug("sqlite: replace document", "document_id", documentID, "chunks", len(chunks))

	if err := s.embedChunks(ctx, chunks); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	deleted, err := deleteDocumentTx(ctx, tx, documentID)
	if err != nil {
		return 0, err
	}
	if err := insertChunks(ctx, tx, chunks); err != nil {
		s.logger.Error("sqlite: replace document failed", "document_id", documentID, "error", err)
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		s.logger.Error("sqlite: replace document commit failed", "document_id", documentID, "error", err)
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	s.logger.Debug("sqlite: replace document ok", "document_id", documentID,
		"deleted", deleted, "inserted", len(chunks), "duration", time.Since(start))
	return deleted, nil
}

// SearchChunks performs brute-force cosine similarity search over chunks.
func (s *Store) SearchChunks(ctx context.Context, embedding []float32, topK int) ([]sheaf.ScoredChunk, error) {
	start := time.Now()
	s.logger.Debug("sqlite: search chunks", "top_k", topK, "embedding_dim", len(embedding))

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, source_path, content, chunk_index, heading,
		        has_table, has_code_block, image_refs, oversized, ingested_at, embedding
		 FROM chunks WHERE embedding IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}
	defer rows.Close()

	var results []sheaf.ScoredChunk
	scanned := 0

	for rows.Next() {
		c, embJSON, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		scanned++
		stored, err := deserializeEmbedding(embJSON)
		if err != nil {
			continue
		}
		results = append(results, sheaf.ScoredChunk{Chunk: c, Score: cosineSimilarity(embedding, stored)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > topK {
		results = results[:topK]
	}
	s.logger.Debug("sqlite: search chunks ok", "scanned", scanned, "returned", len(results), "duration", time.Since(start))
	return results, nil
}

// SearchChunksKeyword performs full-text keyword search over chunk content
// using SQLite FTS5. Results are sorted by relevance (FTS5 rank).
func (s *Store) SearchChunksKeyword(ctx context.Context, query string, topK int) ([]sheaf.ScoredChunk, error) {
	start := time.Now()
	s.logger.Debug("sqlite: search chunks keyword", "query", query, "top_k", topK)

	rows, err := s.db.QueryContext(ctx,
		`SELECT c.id, c.document_id, c.source_path, c.content, c.chunk_index, c.heading,
		        c.has_table, c.has_code_block, c.image_refs, c.oversized, c.ingested_at, c.embedding, f.rank
		 FROM chunks_fts f
		 JOIN chunks c ON c.id = f.chunk_id
		 WHERE chunks_fts MATCH ?
		 ORDER BY f.rank LIMIT ?`, query, topK)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	defer rows.Close()

	var results []sheaf.ScoredChunk
	for rows.Next() {
		var c sheaf.Chunk
		var heading, imageRefs, embJSON sql.NullString
		var hasTable, hasCode, oversized int
		var rank float64
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.SourcePath, &c.Text, &c.Index, &heading,
			&hasTable, &hasCode, &imageRefs, &oversized, &c.IngestedAt, &embJSON, &rank); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		fillChunkMeta(&c, heading, imageRefs, hasTable, hasCode, oversized)
		// FTS5 rank is negative (closer to 0 = better). Use -rank as score.
		score := float32(-rank)
		if score < 0 {
			score = 0
		}
		results = append(results, sheaf.ScoredChunk{Chunk: c, Score: score})
	}
	s.logger.Debug("sqlite: search chunks keyword ok", "returned", len(results), "duration", time.Since(start))
	return results, rows.Err()
}

// DB returns the underlying *sql.DB for direct queries in tooling.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	s.logger.Debug("sqlite: closing store")
	err := s.db.Close()
	if err != nil {
		s.logger.Error("sqlite: close failed", "error", err)
	}
	return err
}

// embedChunks fills Embedding on each chunk from the configured provider.
// A store without a provider leaves embeddings empty.
func (s *Store) embedChunks(ctx context.Context, chunks []sheaf.Chunk) error {
	if s.embedder == nil || len(chunks) == 0 {
		return nil
	}
	start := time.Now()
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vecs, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		s.logger.Error("sqlite: embed chunks failed", "provider", s.embedder.Name(), "error", err)
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(vecs) != len(chunks) {
		return fmt.Errorf("embed chunks: provider returned %d vectors for %d texts", len(vecs), len(chunks))
	}
	for i := range chunks {
		chunks[i].Embedding = vecs[i]
	}
	s.logger.Debug("sqlite: embed chunks ok", "provider", s.embedder.Name(),
		"count", len(chunks), "duration", time.Since(start))
	return nil
}

func insertChunks(ctx context.Context, tx *sql.Tx, chunks []sheaf.Chunk) error {
	for _, c := range chunks {
		var embJSON *string
		if len(c.Embedding) > 0 {
			v := serializeEmbedding(c.Embedding)
			embJSON = &v
		}
		var refsJSON *string
		if len(c.ImageRefs) > 0 {
			data, _ := json.Marshal(c.ImageRefs)
			v := string(data)
			refsJSON = &v
		}
		var heading *string
		if h := c.MetaHeading(); h != "" {
			heading = &h
		}
		_, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO chunks
			 (id, document_id, source_path, content, chunk_index, heading,
			  has_table, has_code_block, image_refs, oversized, ingested_at, embedding)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.DocumentID, c.SourcePath, c.Text, c.Index, heading,
			boolToInt(c.HasTable), boolToInt(c.HasCodeBlock), refsJSON,
			boolToInt(c.Oversized), c.IngestedAt, embJSON,
		)
		if err != nil {
			return fmt.Errorf("insert chunk: %w", err)
		}

		// Keep FTS index in sync.
		_, _ = tx.ExecContext(ctx, `DELETE FROM chunks_fts WHERE chunk_id = ?`, c.ID)
		if _, err := tx.ExecContext(ctx, `INSERT INTO chunks_fts(chunk_id, content) VALUES (?, ?)`, c.ID, c.Text); err != nil {
			return fmt.Errorf("insert chunk fts: %w", err)
		}
	}
	return nil
}

func deleteDocumentTx(ctx context.Context, tx *sql.Tx, documentID string) (int, error) {
	_, err := tx.ExecContext(ctx,
		`DELETE FROM chunks_fts WHERE chunk_id IN (SELECT id FROM chunks WHERE document_id = ?)`, documentID)
	if err != nil {
		return 0, fmt.Errorf("delete document fts: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = ?`, documentID)
	if err != nil {
		return 0, fmt.Errorf("delete document chunks: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// scanChunk reads one row from the full chunk column set, returning the raw
// embedding JSON separately.
func scanChunk(rows *sql.Rows) (sheaf.Chunk, string, error) {
	var c sheaf.Chunk
	var heading, imageRefs sql.NullString
	var embJSON string
	var hasTable, hasCode, oversized int
	if err := rows.Scan(&c.ID, &c.DocumentID, &c.SourcePath, &c.Text, &c.Index, &heading,
		&hasTable, &hasCode, &imageRefs, &oversized, &c.IngestedAt, &embJSON); err != nil {
		return sheaf.Chunk{}, "", fmt.Errorf("scan chunk: %w", err)
	}
	fillChunkMeta(&c, heading, imageRefs, hasTable, hasCode, oversized)
	return c, embJSON, nil
}

func fillChunkMeta(c *sheaf.Chunk, heading, imageRefs sql.NullString, hasTable, hasCode, oversized int) {
	if heading.Valid {
		c.Heading = heading.String
	}
	if imageRefs.Valid {
		_ = json.Unmarshal([]byte(imageRefs.String), &c.ImageRefs)
	}
	c.HasTable = hasTable != 0
	c.HasCodeBlock = hasCode != 0
	c.Oversized = oversized != 0
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// --- Vector math ---

// cosineSimilarity computes the cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return float32(dot / denom)
}

// serializeEmbedding converts []float32 to a JSON array string.
func serializeEmbedding(embedding []float32) string {
	data, _ := json.Marshal(embedding)
	return string(data)
}

// deserializeEmbedding parses a JSON array string back to []float32.
func deserializeEmbedding(s string) ([]float32, error) {
	var v []float32
	err := json.Unmarshal([]byte(s), &v)
	return v, err
}
