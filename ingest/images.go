package ingest

import (
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	sheaf "github.com/ogersten/sheaf"
)

// imageExtensions is the fixed allow-list used by discovery and reference
// resolution.
var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".svg":  true,
	".bmp":  true,
	".webp": true,
}

var imageParser = goldmark.New()

// ExtractImageRefs returns the destinations of all markdown image references
// in source, in document order. Duplicates are preserved.
func ExtractImageRefs(source string) []string {
	src := []byte(source)
	root := imageParser.Parser().Parse(text.NewReader(src))

	var refs []string
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if img, ok := n.(*ast.Image); ok {
			if dest := string(img.Destination); dest != "" {
				refs = append(refs, dest)
			}
		}
		return ast.WalkContinue, nil
	})
	return refs
}

// resolveChunkImages maps the image references found in chunkText to the
// document's discovered image paths. References resolve by file name first
// (the common case for relative references), then by full path. References
// that match nothing are returned as unresolved; they are warnings for the
// caller, never failures, and the reference text in the chunk stays as-is.
func resolveChunkImages(chunkText string, doc sheaf.Document) (resolved, unresolved []string) {
	refs := ExtractImageRefs(chunkText)
	if len(refs) == 0 {
		return nil, nil
	}

	byName := make(map[string]string, len(doc.ImagePaths))
	byPath := make(map[string]string, len(doc.ImagePaths))
	for _, p := range doc.ImagePaths {
		byName[filepath.Base(p)] = p
		byPath[p] = p
	}

	seen := make(map[string]bool)
	for _, ref := range refs {
		// Undo URL-encoded spaces before matching against real paths.
		cleaned := strings.ReplaceAll(ref, "%20", " ")

		abs, ok := byName[filepath.Base(cleaned)]
		if !ok {
			abs, ok = byPath[filepath.Clean(cleaned)]
		}
		if !ok {
			unresolved = append(unresolved, ref)
			continue
		}
		if !seen[abs] {
			seen[abs] = true
			resolved = append(resolved, abs)
		}
	}
	return resolved, unresolved
}
