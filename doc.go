// Package sheaf turns folders of technical markdown documents into bounded,
// semantically coherent chunks and writes them to a vector-searchable store.
//
// It provides modular, interface-driven building blocks: a two-stage
// structural chunking engine, a folder discovery scanner, an incremental
// ingestion pipeline with per-document failure isolation, embedding
// providers, and chunk store backends.
//
// # Quick Start
//
//	store := sqlite.New("sheaf.db", sqlite.WithEmbedding(emb))
//	pipe := ingest.NewPipeline(store,
//		ingest.WithTargetSize(1500),
//		ingest.WithForceUpdate(false),
//	)
//	report, err := pipe.Run(ctx, "/data/datasheets")
//
// # Core Interfaces
//
// The root package defines the contracts that all components implement:
//
//   - [Store]: chunk persistence with existence checks, atomic replace,
//     and vector search
//   - [EmbeddingProvider]: text-to-vector embedding, invoked by stores
//     at insert time
//
// Documents are processed strictly sequentially: the store write API is a
// single-writer surface, and the pipeline never interleaves two documents.
package sheaf
