package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	sheaf "github.com/ogersten/sheaf"
)

// Pipeline drives incremental ingestion: discovery, duplicate resolution,
// chunking, and store writes, one document at a time in discovery order.
//
// Execution is strictly sequential. The store's mutating API is not safe
// for concurrent calls from one process, so no two documents are ever
// resolved, chunked, or written concurrently.
type Pipeline struct {
	store         sheaf.Store
	target        int
	overlap       int
	force         bool
	slowThreshold time.Duration
	logger        *slog.Logger
}

// DefaultTargetSize is the target chunk size used when none is configured.
const DefaultTargetSize = 1500

// DefaultSlowThreshold is the per-document soft performance target.
const DefaultSlowThreshold = 30 * time.Second

// nopLogger discards all output.
var nopLogger = slog.New(discardHandler{})

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// NewPipeline creates a Pipeline with sensible defaults.
func NewPipeline(store sheaf.Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:         store,
		target:        DefaultTargetSize,
		overlap:       -1, // resolved to 15% of target at split time
		slowThreshold: DefaultSlowThreshold,
		logger:        nopLogger,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run ingests every document under root and returns the batch report.
//
// Only two conditions abort a run before any document is processed: an
// invalid root path and a store that fails its connectivity check. Every
// other failure is captured in that document's outcome; the loop always
// continues with the next document.
func (p *Pipeline) Run(ctx context.Context, root string) (sheaf.BatchReport, error) {
	started := time.Now()

	found, err := Discover(root)
	if err != nil {
		return sheaf.BatchReport{}, err
	}
	if err := p.store.Ping(ctx); err != nil {
		return sheaf.BatchReport{}, &sheaf.ErrStore{Op: "ping", Err: err}
	}

	p.logger.Info("batch started", "root", root, "documents", len(found), "force_update", p.force)

	outcomes := make([]sheaf.Outcome, 0, len(found))
	for i, d := range found {
		p.logger.Info("processing document", "document", d.Doc.ID, "position", i+1, "total", len(found))

		var outcome sheaf.Outcome
		if d.Err != nil {
			// Folder-level validation failure: reported, never batch-fatal.
			outcome = sheaf.Outcome{
				DocumentID: d.Doc.ID,
				Kind:       sheaf.OutcomeFailed,
				Err:        d.Err.Error(),
			}
			p.logger.Warn("invalid document folder", "document", d.Doc.ID, "error", d.Err)
		} else {
			outcome = p.ingestOne(ctx, d.Doc)
		}
		outcomes = append(outcomes, outcome)
	}

	report := sheaf.NewBatchReport(outcomes, started, time.Now())
	p.logger.Info("batch finished",
		"created", report.Created(),
		"replaced", report.Replaced(),
		"skipped", report.Skipped(),
		"failed", report.Failed(),
		"chunks", report.TotalChunks(),
		"duration", report.TotalDuration(),
	)
	return report, nil
}

// ingestOne runs one document through resolve -> chunk -> write and reports
// its outcome. Errors at any stage terminate this document only.
func (p *Pipeline) ingestOne(ctx context.Context, doc sheaf.Document) sheaf.Outcome {
	start := time.Now()

	finish := func(o sheaf.Outcome) sheaf.Outcome {
		o.DocumentID = doc.ID
		o.Duration = time.Since(start)
		if o.Duration > p.slowThreshold && (o.Kind == sheaf.OutcomeCreated || o.Kind == sheaf.OutcomeReplaced) {
			o.Slow = true
			p.logger.Warn("document exceeded performance target",
				"document", doc.ID, "duration", o.Duration, "threshold", p.slowThreshold)
		}
		return o
	}
	fail := func(err error) sheaf.Outcome {
		p.logger.Error("ingestion failed", "document", doc.ID, "error", err)
		return finish(sheaf.Outcome{Kind: sheaf.OutcomeFailed, Err: err.Error()})
	}

	action, err := ResolveDuplicate(ctx, p.store, doc.ID, p.force)
	if err != nil {
		return fail(err)
	}
	if action == ActionSkip {
		p.logger.Info("document already ingested, skipping", "document", doc.ID)
		return finish(sheaf.Outcome{
			Kind:       sheaf.OutcomeSkipped,
			SkipReason: "document already exists in store (use force update to overwrite)",
		})
	}

	chunks, err := p.chunkDocument(doc)
	if err != nil {
		return fail(err)
	}

	switch action {
	case ActionReplace:
		// Delete and insert commit together; a failure leaves the prior
		// chunk set in place.
		deleted, err := p.store.ReplaceDocument(ctx, doc.ID, chunks)
		if err != nil {
			return fail(&sheaf.ErrStore{Op: "replace", Err: err})
		}
		p.logger.Info("document replaced", "document", doc.ID,
			"chunks", len(chunks), "superseded", deleted)
		return finish(sheaf.Outcome{Kind: sheaf.OutcomeReplaced, ChunkCount: len(chunks)})

	default:
		if err := p.store.StoreChunks(ctx, chunks); err != nil {
			return fail(&sheaf.ErrStore{Op: "insert", Err: err})
		}
		p.logger.Info("document ingested", "document", doc.ID, "chunks", len(chunks))
		return finish(sheaf.Outcome{Kind: sheaf.OutcomeCreated, ChunkCount: len(chunks)})
	}
}

// chunkDocument reads, segments, and assembles one document's chunks.
func (p *Pipeline) chunkDocument(doc sheaf.Document) ([]sheaf.Chunk, error) {
	content, err := readMarkdown(doc.MarkdownPath)
	if err != nil {
		return nil, err
	}

	info := ValidateStructure(content)
	p.logger.Debug("markdown structure",
		"document", doc.ID,
		"headings", info.HasHeadings,
		"tables", info.HasTables,
		"code_blocks", info.HasCodeBlocks,
		"malformed_table_hint", info.MalformedTableHint,
	)

	groups := Segment(content)
	chunks, err := Assemble(doc, groups, p.target, p.overlap)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", doc.ID, err)
	}

	p.logChunkStats(doc.ID, chunks)
	p.warnChunkIssues(doc, content, chunks)
	return chunks, nil
}

// logChunkStats emits count and size statistics for one document's chunks.
func (p *Pipeline) logChunkStats(docID string, chunks []sheaf.Chunk) {
	total, minLen, maxLen := 0, len(chunks[0].Text), 0
	for _, c := range chunks {
		n := len(c.Text)
		total += n
		if n < minLen {
			minLen = n
		}
		if n > maxLen {
			maxLen = n
		}
	}
	p.logger.Debug("chunking complete",
		"document", docID,
		"chunks", len(chunks),
		"avg_chars", total/len(chunks),
		"min_chars", minLen,
		"max_chars", maxLen,
	)
}

// warnChunkIssues surfaces the non-fatal signals: oversized atomic groups
// and image references that resolved to nothing on disk.
func (p *Pipeline) warnChunkIssues(doc sheaf.Document, content string, chunks []sheaf.Chunk) {
	for _, c := range chunks {
		if c.Oversized {
			p.logger.Warn("oversized atomic group kept whole",
				"document", doc.ID, "chunk_index", c.Index,
				"chars", len(c.Text), "hard_max", HardMax(p.target))
		}
	}
	if _, unresolved := resolveChunkImages(content, doc); len(unresolved) > 0 {
		p.logger.Warn("unresolved image references",
			"document", doc.ID, "refs", unresolved)
	}
}
