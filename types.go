package sheaf

import (
	"time"
	"unicode/utf8"
)

// --- Domain types ---

// Document is one ingestible unit: a folder holding exactly one markdown
// file plus any number of images. The folder name is the document identifier
// and must be unique within a batch.
type Document struct {
	ID           string    `json:"id"`
	Dir          string    `json:"dir"`
	MarkdownPath string    `json:"markdown_path"`
	ImagePaths   []string  `json:"image_paths,omitempty"`
	DiscoveredAt time.Time `json:"discovered_at"`
}

// Chunk is the final bounded unit of text stored for retrieval.
// Index runs 0..N-1 within a document with no gaps. Text never exceeds the
// hard maximum unless the chunk is a single atomic group (table or fenced
// block), in which case Oversized is set and the text is kept whole.
type Chunk struct {
	ID           string    `json:"id"`
	DocumentID   string    `json:"document_id"`
	SourcePath   string    `json:"source_path"`
	Text         string    `json:"text"`
	Index        int       `json:"chunk_index"`
	Heading      string    `json:"heading,omitempty"`
	HasTable     bool      `json:"has_table"`
	HasCodeBlock bool      `json:"has_code_block"`
	ImageRefs    []string  `json:"image_refs,omitempty"`
	Oversized    bool      `json:"oversized,omitempty"`
	IngestedAt   string    `json:"ingested_at"`
	Embedding    []float32 `json:"-"`
}

// ScoredChunk is a chunk with its similarity score from a search.
type ScoredChunk struct {
	Chunk
	Score float32 `json:"score"`
}

// HeadingMaxLen caps the heading metadata field persisted by stores.
const HeadingMaxLen = 100

// MetaHeading returns the heading trimmed to the store schema limit. The
// trim never cuts inside a multibyte rune. Chunk text itself is never
// trimmed.
func (c Chunk) MetaHeading() string {
	if len(c.Heading) <= HeadingMaxLen {
		return c.Heading
	}
	cut := HeadingMaxLen
	for cut > 0 && !utf8.RuneStart(c.Heading[cut]) {
		cut--
	}
	return c.Heading[:cut]
}
