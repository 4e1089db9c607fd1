package ingest

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	sheaf "github.com/ogersten/sheaf"
)

// readMarkdown loads a document's markdown content. A missing, non-UTF-8,
// or blank file is a per-document failure.
func readMarkdown(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read markdown: %w", err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("markdown file is not valid UTF-8: %s", path)
	}
	content := string(data)
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("%w: %s", sheaf.ErrEmptyDocument, path)
	}
	return content, nil
}

// StructureInfo summarizes a document's markdown structure. It feeds debug
// logging during chunking; nothing downstream depends on it.
type StructureInfo struct {
	HasHeadings        bool
	HasTables          bool
	HasCodeBlocks      bool
	MalformedTableHint bool
}

// ValidateStructure inspects markdown content for the structural features
// the segmenter cares about and flags tables whose rows disagree on column
// count.
func ValidateStructure(content string) StructureInfo {
	var info StructureInfo
	pipeCounts := map[int]bool{}
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case headingRe.MatchString(line):
			info.HasHeadings = true
		case strings.HasPrefix(trimmed, "```"), strings.HasPrefix(trimmed, "~~~"):
			info.HasCodeBlocks = true
		case isTableLine(trimmed):
			info.HasTables = true
			pipeCounts[strings.Count(trimmed, "|")] = true
		}
	}
	// Allow one variation for the separator row.
	info.MalformedTableHint = len(pipeCounts) > 2
	return info
}
