package ingest

import (
	"regexp"
	"strings"
)

// GroupKind classifies a structural group.
type GroupKind int

const (
	// GroupPlain is heading- and paragraph-delimited prose.
	GroupPlain GroupKind = iota

	// GroupTable is a pipe-table region. Atomic: never sub-split.
	GroupTable

	// GroupCode is a fenced block. Atomic: never sub-split.
	GroupCode
)

// Group is a contiguous, boundary-aligned span of document text produced by
// the structural scan. Groups exist only for the duration of one document's
// chunking; their order is the document's read order.
type Group struct {
	Text    string
	Heading string
	Kind    GroupKind
}

// Atomic reports whether the group must be kept whole regardless of size.
func (g Group) Atomic() bool { return g.Kind != GroupPlain }

var headingRe = regexp.MustCompile(`^#{1,6}\s`)

// tableSeparatorRe matches a table header-separator row like |---|:--:|.
var tableSeparatorRe = regexp.MustCompile(`^\s*\|?[\s\-:|]+\|[\s\-:|]*$`)

// Segment splits raw markdown into an ordered sequence of structural groups.
//
// The scan runs top to bottom, maintaining a current-heading register that
// updates on every heading line. Boundaries are heading lines, fenced-block
// markers (``` or ~~~, paired), pipe-table regions with a header-separator
// row, and blank lines between paragraphs. Fenced blocks and tables are
// emitted as single atomic groups regardless of size. Heading lines stay in
// the emitted text so consumers can recover section context without a
// side-channel lookup.
//
// An unterminated fence swallows the remainder of the document into that
// code group; this is best-effort, never an error.
func Segment(raw string) []Group {
	lines := strings.Split(raw, "\n")

	var groups []Group
	var current []string
	heading := ""
	// Set after a heading line opens a new group; one blank line is then
	// allowed before the section's first paragraph without flushing the
	// heading into a group of its own.
	headingPending := false

	flush := func() {
		text := strings.TrimRight(strings.Join(current, "\n"), "\n")
		if strings.TrimSpace(text) != "" {
			groups = append(groups, Group{Text: text, Heading: heading, Kind: GroupPlain})
		}
		current = current[:0]
		headingPending = false
	}

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		// Fenced block: atomic group from opening to closing marker.
		if marker := fenceMarker(trimmed); marker != "" {
			flush()
			fence := []string{line}
			i++
			for ; i < len(lines); i++ {
				fence = append(fence, lines[i])
				if closesFence(strings.TrimSpace(lines[i]), marker) {
					break
				}
			}
			groups = append(groups, Group{
				Text:    strings.Join(fence, "\n"),
				Heading: heading,
				Kind:    GroupCode,
			})
			continue
		}

		// Table region: contiguous pipe lines with a separator row.
		if isTableLine(trimmed) {
			end := i
			hasSeparator := false
			for end < len(lines) && isTableLine(strings.TrimSpace(lines[end])) {
				if tableSeparatorRe.MatchString(lines[end]) {
					hasSeparator = true
				}
				end++
			}
			if hasSeparator && end-i >= 2 {
				flush()
				groups = append(groups, Group{
					Text:    strings.Join(lines[i:end], "\n"),
					Heading: heading,
					Kind:    GroupTable,
				})
				i = end - 1
				continue
			}
			// Pipe lines without a separator row are ordinary prose.
		}

		if headingRe.MatchString(trimmed) {
			flush()
			heading = strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
			current = append(current, line)
			headingPending = true
			continue
		}

		if trimmed == "" {
			if headingPending && onlyHeading(current) {
				// Keep the heading attached to the section's first
				// paragraph instead of emitting it alone.
				continue
			}
			flush()
			continue
		}

		current = append(current, line)
		headingPending = false
	}
	flush()

	return groups
}

// fenceMarker returns the fence marker ("```" or "~~~") if the line opens a
// fenced block, or "" otherwise.
func fenceMarker(trimmed string) string {
	switch {
	case strings.HasPrefix(trimmed, "```"):
		return "```"
	case strings.HasPrefix(trimmed, "~~~"):
		return "~~~"
	}
	return ""
}

// closesFence reports whether the line terminates a block opened with marker.
// A closing fence is the marker possibly followed by whitespace only.
func closesFence(trimmed, marker string) bool {
	return trimmed == marker || (strings.HasPrefix(trimmed, marker) &&
		strings.TrimSpace(strings.TrimPrefix(trimmed, marker)) == "")
}

func isTableLine(trimmed string) bool {
	return strings.HasPrefix(trimmed, "|") && strings.Count(trimmed, "|") >= 2
}

func onlyHeading(current []string) bool {
	n := 0
	for _, l := range current {
		if strings.TrimSpace(l) != "" {
			n++
		}
	}
	return n == 1
}
