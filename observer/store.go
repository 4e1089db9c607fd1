package observer

import (
	"context"
	"time"

	sheaf "github.com/ogersten/sheaf"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ObservedStore wraps a sheaf.Store with OTEL instrumentation. Every
// operation gets a span plus count and duration metrics tagged with the
// operation name and backend.
type ObservedStore struct {
	inner   sheaf.Store
	inst    *Instruments
	backend string
}

// WrapStore returns an instrumented store. backend names the implementation
// for metric attribution ("sqlite", "postgres").
func WrapStore(inner sheaf.Store, backend string, inst *Instruments) *ObservedStore {
	return &ObservedStore{inner: inner, inst: inst, backend: backend}
}

var _ sheaf.Store = (*ObservedStore)(nil)

func (o *ObservedStore) Exists(ctx context.Context, documentID string) (bool, error) {
	ctx, finish := o.startOp(ctx, "exists", AttrDocumentID.String(documentID))
	exists, err := o.inner.Exists(ctx, documentID)
	finish(err)
	return exists, err
}

func (o *ObservedStore) DeleteDocument(ctx context.Context, documentID string) (int, error) {
	ctx, finish := o.startOp(ctx, "delete_document", AttrDocumentID.String(documentID))
	n, err := o.inner.DeleteDocument(ctx, documentID)
	finish(err)
	return n, err
}

func (o *ObservedStore) StoreChunks(ctx context.Context, chunks []sheaf.Chunk) error {
	ctx, finish := o.startOp(ctx, "store_chunks", AttrChunkCount.Int(len(chunks)))
	err := o.inner.StoreChunks(ctx, chunks)
	finish(err)
	if err == nil {
		o.recordOversized(ctx, chunks)
	}
	return err
}

func (o *ObservedStore) ReplaceDocument(ctx context.Context, documentID string, chunks []sheaf.Chunk) (int, error) {
	ctx, finish := o.startOp(ctx, "replace_document",
		AttrDocumentID.String(documentID), AttrChunkCount.Int(len(chunks)))
	n, err := o.inner.ReplaceDocument(ctx, documentID, chunks)
	finish(err)
	if err == nil {
		o.recordOversized(ctx, chunks)
	}
	return n, err
}

func (o *ObservedStore) SearchChunks(ctx context.Context, embedding []float32, topK int) ([]sheaf.ScoredChunk, error) {
	ctx, finish := o.startOp(ctx, "search_chunks")
	results, err := o.inner.SearchChunks(ctx, embedding, topK)
	finish(err)
	return results, err
}

func (o *ObservedStore) Ping(ctx context.Context) error {
	ctx, finish := o.startOp(ctx, "ping")
	err := o.inner.Ping(ctx)
	finish(err)
	return err
}

func (o *ObservedStore) Init(ctx context.Context) error {
	ctx, finish := o.startOp(ctx, "init")
	err := o.inner.Init(ctx)
	finish(err)
	return err
}

func (o *ObservedStore) Close() error {
	return o.inner.Close()
}

// startOp opens a span for one store operation and returns a finish func
// that closes it and records the operation metrics.
func (o *ObservedStore) startOp(ctx context.Context, op string, extra ...attribute.KeyValue) (context.Context, func(error)) {
	attrs := append([]attribute.KeyValue{
		AttrStoreOp.String(op),
		AttrStoreBackend.String(o.backend),
	}, extra...)

	ctx, span := o.inst.Tracer.Start(ctx, "store."+op, trace.WithAttributes(attrs...))
	start := time.Now()

	return ctx, func(err error) {
		durationMs := float64(time.Since(start).Milliseconds())
		status := "ok"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()

		o.inst.StoreOperations.Add(ctx, 1, metric.WithAttributes(
			AttrStoreOp.String(op),
			AttrStoreBackend.String(o.backend),
			attribute.String("status", status),
		))
		o.inst.StoreDuration.Record(ctx, durationMs, metric.WithAttributes(
			AttrStoreOp.String(op),
			AttrStoreBackend.String(o.backend),
		))
	}
}

func (o *ObservedStore) recordOversized(ctx context.Context, chunks []sheaf.Chunk) {
	var n int64
	for _, c := range chunks {
		if c.Oversized {
			n++
		}
	}
	if n > 0 {
		o.inst.OversizedChunks.Add(ctx, n, metric.WithAttributes(
			AttrStoreBackend.String(o.backend),
		))
	}
}
