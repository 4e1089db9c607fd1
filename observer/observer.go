// Package observer provides OTEL-based observability for sheaf ingestion.
//
// It wraps Store and EmbeddingProvider with instrumented versions that emit
// traces, metrics, and logs via OpenTelemetry, and records batch-level
// ingestion metrics from a BatchReport. Users export to any OTEL-compatible
// backend by setting standard OTEL env vars.
package observer

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	sheaf "github.com/ogersten/sheaf"
)

const scopeName = "github.com/ogersten/sheaf/observer"

// Instruments holds all OTEL instruments used by the observer wrappers.
type Instruments struct {
	Tracer trace.Tracer
	Meter  metric.Meter
	Logger otellog.Logger

	// Counters
	Documents       metric.Int64Counter
	Chunks          metric.Int64Counter
	OversizedChunks metric.Int64Counter
	StoreOperations metric.Int64Counter
	EmbedRequests   metric.Int64Counter

	// Histograms
	IngestDuration metric.Float64Histogram
	StoreDuration  metric.Float64Histogram
	EmbedDuration  metric.Float64Histogram
}

// Init sets up OTEL trace, metric, and log providers with OTLP HTTP exporters.
// Configuration comes from standard OTEL env vars (OTEL_EXPORTER_OTLP_ENDPOINT, etc.).
// Returns a shutdown function that must be called on application exit.
func Init(ctx context.Context) (*Instruments, func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName("sheaf")),
		resource.WithFromEnv(),
	)
	if err != nil {
		return nil, nil, err
	}

	// Trace provider
	traceExp, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	// Metric provider
	metricExp, err := otlpmetrichttp.New(ctx)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, nil, err
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	// Log provider
	logExp, err := otlploghttp.New(ctx)
	if err != nil {
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
		return nil, nil, err
	}
	lp := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExp)),
		sdklog.WithResource(res),
	)
	global.SetLoggerProvider(lp)

	inst, err := NewInstruments()
	if err != nil {
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
		_ = lp.Shutdown(ctx)
		return nil, nil, err
	}

	shutdown := func(ctx context.Context) error {
		return errors.Join(
			tp.Shutdown(ctx),
			mp.Shutdown(ctx),
			lp.Shutdown(ctx),
		)
	}

	return inst, shutdown, nil
}

// NewInstruments builds instruments against the globally registered OTEL
// providers. Without Init, those are no-op providers, which makes the
// wrappers safe to use in tests.
func NewInstruments() (*Instruments, error) {
	tracer := otel.Tracer(scopeName)
	meter := otel.Meter(scopeName)
	logger := global.GetLoggerProvider().Logger(scopeName)

	documents, err := meter.Int64Counter("ingest.documents",
		metric.WithDescription("Documents processed, by outcome"),
		metric.WithUnit("{document}"))
	if err != nil {
		return nil, err
	}

	chunks, err := meter.Int64Counter("ingest.chunks",
		metric.WithDescription("Chunks written to the store"),
		metric.WithUnit("{chunk}"))
	if err != nil {
		return nil, err
	}

	oversized, err := meter.Int64Counter("ingest.oversized_chunks",
		metric.WithDescription("Atomic chunks exceeding the hard size limit"),
		metric.WithUnit("{chunk}"))
	if err != nil {
		return nil, err
	}

	storeOps, err := meter.Int64Counter("store.operations",
		metric.WithDescription("Store operation count"),
		metric.WithUnit("{operation}"))
	if err != nil {
		return nil, err
	}

	embedRequests, err := meter.Int64Counter("embedding.requests",
		metric.WithDescription("Embedding request count"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, err
	}

	ingestDuration, err := meter.Float64Histogram("ingest.duration",
		metric.WithDescription("Per-document ingestion duration"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}

	storeDuration, err := meter.Float64Histogram("store.duration",
		metric.WithDescription("Store operation duration"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}

	embedDuration, err := meter.Float64Histogram("embedding.duration",
		metric.WithDescription("Embedding call duration"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}

	return &Instruments{
		Tracer:          tracer,
		Meter:           meter,
		Logger:          logger,
		Documents:       documents,
		Chunks:          chunks,
		OversizedChunks: oversized,
		StoreOperations: storeOps,
		EmbedRequests:   embedRequests,
		IngestDuration:  ingestDuration,
		StoreDuration:   storeDuration,
		EmbedDuration:   embedDuration,
	}, nil
}

// RecordBatch records per-document metrics from a finished batch report.
func RecordBatch(ctx context.Context, inst *Instruments, report sheaf.BatchReport) {
	for _, o := range report.Outcomes {
		attrs := metric.WithAttributes(
			AttrDocumentID.String(o.DocumentID),
			AttrOutcome.String(string(o.Kind)),
		)
		inst.Documents.Add(ctx, 1, attrs)
		if o.ChunkCount > 0 {
			inst.Chunks.Add(ctx, int64(o.ChunkCount), attrs)
		}
		inst.IngestDuration.Record(ctx, float64(o.Duration.Milliseconds()), attrs)
	}
}
