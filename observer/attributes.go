package observer

import "go.opentelemetry.io/otel/attribute"

// Attribute keys for ingestion observability spans and metrics.
var (
	AttrDocumentID = attribute.Key("ingest.document_id")
	AttrOutcome    = attribute.Key("ingest.outcome")
	AttrChunkCount = attribute.Key("ingest.chunk_count")

	AttrStoreOp      = attribute.Key("store.operation")
	AttrStoreBackend = attribute.Key("store.backend")

	AttrEmbedModel      = attribute.Key("embedding.model")
	AttrEmbedProvider   = attribute.Key("embedding.provider")
	AttrEmbedTextCount  = attribute.Key("embedding.text_count")
	AttrEmbedDimensions = attribute.Key("embedding.dimensions")
)
