package ingest

import (
	"log/slog"
	"time"
)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithTargetSize sets the target chunk size in characters (default 1500).
func WithTargetSize(n int) Option {
	return func(p *Pipeline) { p.target = n }
}

// WithOverlap sets the chunk overlap in characters. When not set, the
// overlap defaults to 15% of the target size.
func WithOverlap(n int) Option {
	return func(p *Pipeline) { p.overlap = n }
}

// WithForceUpdate makes the pipeline replace existing documents instead of
// skipping them.
func WithForceUpdate(force bool) Option {
	return func(p *Pipeline) { p.force = force }
}

// WithSlowThreshold sets the per-document duration above which an outcome is
// flagged slow in the batch report (default 30s).
func WithSlowThreshold(d time.Duration) Option {
	return func(p *Pipeline) { p.slowThreshold = d }
}

// WithLogger sets a structured logger for the pipeline. When set, the
// pipeline emits progress, chunk statistics, and warnings for unresolved
// image references and oversized atomic groups. If not set, no logs are
// emitted.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}
