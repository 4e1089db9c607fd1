package observer

import (
	"context"
	"errors"
	"testing"
	"time"

	sheaf "github.com/ogersten/sheaf"
)

// stubStore lets tests verify the wrapper delegates and propagates errors.
type stubStore struct {
	existsCalled bool
	pingErr      error
}

func (s *stubStore) Exists(context.Context, string) (bool, error) {
	s.existsCalled = true
	return true, nil
}
func (s *stubStore) DeleteDocument(context.Context, string) (int, error) { return 2, nil }
func (s *stubStore) StoreChunks(context.Context, []sheaf.Chunk) error    { return nil }
func (s *stubStore) ReplaceDocument(_ context.Context, _ string, chunks []sheaf.Chunk) (int, error) {
	return len(chunks), nil
}
func (s *stubStore) SearchChunks(context.Context, []float32, int) ([]sheaf.ScoredChunk, error) {
	return nil, nil
}
func (s *stubStore) Ping(context.Context) error { return s.pingErr }
func (s *stubStore) Init(context.Context) error { return nil }
func (s *stubStore) Close() error               { return nil }

type stubEmbedder struct{ calls int }

func (e *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	return make([][]float32, len(texts)), nil
}
func (e *stubEmbedder) Name() string    { return "stub" }
func (e *stubEmbedder) Dimensions() int { return 8 }

// The global OTEL providers default to no-ops, so instruments work without Init.
func mustInstruments(t *testing.T) *Instruments {
	t.Helper()
	inst, err := NewInstruments()
	if err != nil {
		t.Fatal(err)
	}
	return inst
}

func TestObservedStoreDelegates(t *testing.T) {
	stub := &stubStore{}
	store := WrapStore(stub, "sqlite", mustInstruments(t))

	exists, err := store.Exists(context.Background(), "LM358")
	if err != nil || !exists {
		t.Errorf("exists = %v, %v", exists, err)
	}
	if !stub.existsCalled {
		t.Error("wrapper did not delegate to inner store")
	}

	n, err := store.ReplaceDocument(context.Background(), "LM358", make([]sheaf.Chunk, 3))
	if err != nil || n != 3 {
		t.Errorf("replace = %d, %v", n, err)
	}
}

func TestObservedStorePropagatesErrors(t *testing.T) {
	stub := &stubStore{pingErr: errors.New("down")}
	store := WrapStore(stub, "postgres", mustInstruments(t))
	if err := store.Ping(context.Background()); err == nil {
		t.Error("ping error swallowed by wrapper")
	}
}

func TestObservedEmbeddingDelegates(t *testing.T) {
	stub := &stubEmbedder{}
	emb := WrapEmbedding(stub, "text-embedding-3-small", mustInstruments(t))

	if emb.Name() != "stub" || emb.Dimensions() != 8 {
		t.Error("identity methods not delegated")
	}
	vecs, err := emb.Embed(context.Background(), []string{"a", "b"})
	if err != nil || len(vecs) != 2 {
		t.Errorf("embed = %v, %v", vecs, err)
	}
	if stub.calls != 1 {
		t.Errorf("inner called %d times", stub.calls)
	}
}

func TestRecordBatchHandlesAllOutcomes(t *testing.T) {
	report := sheaf.NewBatchReport([]sheaf.Outcome{
		{DocumentID: "A", Kind: sheaf.OutcomeCreated, ChunkCount: 5, Duration: time.Second},
		{DocumentID: "B", Kind: sheaf.OutcomeFailed, Err: "boom"},
	}, time.Now(), time.Now())

	// Must not panic against no-op instruments.
	RecordBatch(context.Background(), mustInstruments(t), report)
}
