package ingest

import (
	"regexp"
	"strings"

	sheaf "github.com/ogersten/sheaf"
)

var inlineHeadingRe = regexp.MustCompile(`^#+\s*`)

// Assemble composes the segmenter and splitter output into the final ordered
// chunk sequence for one document. Indices are sequential across groups,
// starting at 0 with no gaps. Heading context and table/code flags are
// copied down from the owning group; since atomic groups are never
// sub-split, the flags are exact.
//
// A document that yields zero groups is an error, never an empty sequence.
func Assemble(doc sheaf.Document, groups []Group, target, overlap int) ([]sheaf.Chunk, error) {
	if len(groups) == 0 {
		return nil, sheaf.ErrEmptyDocument
	}

	ingestedAt := sheaf.ISOTime(doc.DiscoveredAt)
	hardMax := HardMax(target)

	var chunks []sheaf.Chunk
	idx := 0
	for _, g := range groups {
		for _, seg := range Split(g, target, overlap) {
			if strings.TrimSpace(seg) == "" {
				continue
			}
			refs, _ := resolveChunkImages(seg, doc)
			chunks = append(chunks, sheaf.Chunk{
				ID:           sheaf.NewID(),
				DocumentID:   doc.ID,
				SourcePath:   doc.MarkdownPath,
				Text:         seg,
				Index:        idx,
				Heading:      groupHeading(g, seg),
				HasTable:     g.Kind == GroupTable,
				HasCodeBlock: g.Kind == GroupCode,
				ImageRefs:    refs,
				Oversized:    g.Atomic() && len(g.Text) > hardMax,
				IngestedAt:   ingestedAt,
			})
			idx++
		}
	}
	if len(chunks) == 0 {
		return nil, sheaf.ErrEmptyDocument
	}
	return chunks, nil
}

// groupHeading returns the group's heading context, falling back to the
// first heading line inside the segment text when the scan had none.
func groupHeading(g Group, seg string) string {
	if g.Heading != "" {
		return g.Heading
	}
	for _, line := range strings.Split(seg, "\n") {
		if trimmed := strings.TrimSpace(line); headingRe.MatchString(trimmed) {
			return inlineHeadingRe.ReplaceAllString(trimmed, "")
		}
	}
	return ""
}
