package sheaf

import (
	"fmt"
	"strings"
	"time"
)

// OutcomeKind classifies the terminal state of one document's ingestion.
type OutcomeKind string

const (
	OutcomeCreated  OutcomeKind = "created"
	OutcomeSkipped  OutcomeKind = "skipped"
	OutcomeReplaced OutcomeKind = "replaced"
	OutcomeFailed   OutcomeKind = "failed"
)

// Outcome records one document's ingestion attempt. Err is set only when
// Kind is OutcomeFailed; SkipReason only when Kind is OutcomeSkipped.
type Outcome struct {
	DocumentID string        `json:"document_id"`
	Kind       OutcomeKind   `json:"kind"`
	ChunkCount int           `json:"chunk_count,omitempty"`
	Duration   time.Duration `json:"duration"`
	Err        string        `json:"error,omitempty"`
	SkipReason string        `json:"skip_reason,omitempty"`
	Slow       bool          `json:"slow,omitempty"`
}

// BatchReport aggregates the outcomes of one ingestion run, in processing
// order. It is pure data; rendering belongs to the caller.
type BatchReport struct {
	Outcomes   []Outcome `json:"outcomes"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// NewBatchReport builds a report over the given outcomes.
func NewBatchReport(outcomes []Outcome, started, finished time.Time) BatchReport {
	return BatchReport{Outcomes: outcomes, StartedAt: started, FinishedAt: finished}
}

func (r BatchReport) count(k OutcomeKind) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Kind == k {
			n++
		}
	}
	return n
}

// Created returns the number of newly ingested documents.
func (r BatchReport) Created() int { return r.count(OutcomeCreated) }

// Replaced returns the number of force-updated documents.
func (r BatchReport) Replaced() int { return r.count(OutcomeReplaced) }

// Skipped returns the number of documents skipped as duplicates.
func (r BatchReport) Skipped() int { return r.count(OutcomeSkipped) }

// Failed returns the number of documents whose ingestion failed.
func (r BatchReport) Failed() int { return r.count(OutcomeFailed) }

// TotalChunks sums chunk counts across all outcomes.
func (r BatchReport) TotalChunks() int {
	n := 0
	for _, o := range r.Outcomes {
		n += o.ChunkCount
	}
	return n
}

// TotalDuration is the wall-clock time of the whole run.
func (r BatchReport) TotalDuration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// AvgDuration is the mean per-document processing time.
func (r BatchReport) AvgDuration() time.Duration {
	if len(r.Outcomes) == 0 {
		return 0
	}
	var sum time.Duration
	for _, o := range r.Outcomes {
		sum += o.Duration
	}
	return sum / time.Duration(len(r.Outcomes))
}

// SlowOutcomes returns the outcomes flagged as exceeding the performance
// threshold, in processing order.
func (r BatchReport) SlowOutcomes() []Outcome {
	var slow []Outcome
	for _, o := range r.Outcomes {
		if o.Slow {
			slow = append(slow, o)
		}
	}
	return slow
}

// SuccessRate returns the created+replaced share as a percentage.
func (r BatchReport) SuccessRate() float64 {
	if len(r.Outcomes) == 0 {
		return 0
	}
	return float64(r.Created()+r.Replaced()) / float64(len(r.Outcomes)) * 100
}

// Summary renders a human-readable report for CLI output.
func (r BatchReport) Summary() string {
	var b strings.Builder
	line := strings.Repeat("=", 60)
	fmt.Fprintf(&b, "%s\nIngestion Batch Summary\n%s\n", line, line)
	fmt.Fprintf(&b, "Total Documents: %d\n", len(r.Outcomes))
	fmt.Fprintf(&b, "  Created:  %d\n", r.Created())
	fmt.Fprintf(&b, "  Replaced: %d\n", r.Replaced())
	fmt.Fprintf(&b, "  Skipped:  %d\n", r.Skipped())
	fmt.Fprintf(&b, "  Failed:   %d\n", r.Failed())
	fmt.Fprintf(&b, "\nTotal Chunks: %d\n", r.TotalChunks())
	fmt.Fprintf(&b, "Total Duration: %.2fs\n", r.TotalDuration().Seconds())
	fmt.Fprintf(&b, "Success Rate: %.1f%%\n", r.SuccessRate())

	if slow := r.SlowOutcomes(); len(slow) > 0 {
		fmt.Fprintf(&b, "Slow Documents: %d\n", len(slow))
		for _, o := range slow {
			fmt.Fprintf(&b, "  - %s (%.2fs)\n", o.DocumentID, o.Duration.Seconds())
		}
	}
	if r.Failed() > 0 {
		b.WriteString("Failed Documents:\n")
		for _, o := range r.Outcomes {
			if o.Kind == OutcomeFailed {
				fmt.Fprintf(&b, "  - %s: %s\n", o.DocumentID, o.Err)
			}
		}
	}
	b.WriteString(line)
	return b.String()
}
