package ingest

import (
	"errors"
	"strings"
	"testing"
	"time"

	sheaf "github.com/ogersten/sheaf"
)

func testDoc() sheaf.Document {
	return sheaf.Document{
		ID:           "TL072",
		Dir:          "/data/sheets/TL072",
		MarkdownPath: "/data/sheets/TL072/TL072.md",
		ImagePaths:   []string{"/data/sheets/TL072/images/pinout.png"},
		DiscoveredAt: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}
}

func TestAssembleIndexContiguity(t *testing.T) {
	groups := []Group{
		{Text: strings.Repeat("Long paragraph text. ", 200), Heading: "A"},
		{Text: "| a | b |\n|---|---|\n| 1 | 2 |", Heading: "A", Kind: GroupTable},
		{Text: strings.Repeat("More prose here. ", 150), Heading: "B"},
	}
	chunks, err := Assemble(testDoc(), groups, 500, 75)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) < 4 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d has index %d; indices must be contiguous from 0", i, c.Index)
		}
		if c.DocumentID != "TL072" {
			t.Errorf("chunk %d missing document back-reference", i)
		}
		if strings.TrimSpace(c.Text) == "" {
			t.Errorf("chunk %d has empty text", i)
		}
	}
}

func TestAssembleMetadataCopiedFromGroup(t *testing.T) {
	groups := []Group{
		{Text: "Plain paragraph.", Heading: "Specs"},
		{Text: "| a | b |\n|---|---|\n| 1 | 2 |", Heading: "Specs", Kind: GroupTable},
		{Text: "```c\nint x;\n```", Heading: "Usage", Kind: GroupCode},
	}
	chunks, err := Assemble(testDoc(), groups, 1500, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if chunks[0].HasTable || chunks[0].HasCodeBlock {
		t.Error("plain chunk flagged as table/code")
	}
	if !chunks[1].HasTable || chunks[1].HasCodeBlock {
		t.Error("table chunk flags wrong")
	}
	if !chunks[2].HasCodeBlock || chunks[2].HasTable {
		t.Error("code chunk flags wrong")
	}
	if chunks[1].Heading != "Specs" || chunks[2].Heading != "Usage" {
		t.Error("heading context not copied from group")
	}
}

func TestAssembleOversizedAtomicKeptWhole(t *testing.T) {
	bigTable := "| col |\n|-----|\n" + strings.Repeat("| row data |\n", 330)
	bigTable = strings.TrimRight(bigTable, "\n")
	if len(bigTable) < 4000 {
		t.Fatalf("fixture too small: %d", len(bigTable))
	}
	groups := []Group{{Text: bigTable, Kind: GroupTable}}

	chunks, err := Assemble(testDoc(), groups, 1500, 225)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 1 {
		t.Fatalf("oversized table must stay one chunk, got %d", len(chunks))
	}
	if !chunks[0].Oversized {
		t.Error("oversized atomic chunk not flagged")
	}
	if chunks[0].Text != bigTable {
		t.Error("oversized table text truncated or altered")
	}
}

func TestAssembleEmptyDocument(t *testing.T) {
	_, err := Assemble(testDoc(), nil, 1500, 225)
	if !errors.Is(err, sheaf.ErrEmptyDocument) {
		t.Errorf("expected ErrEmptyDocument, got %v", err)
	}
}

func TestAssembleImageRefs(t *testing.T) {
	groups := []Group{
		{Text: "See ![pinout](images/pinout.png) and ![missing](gone.png)."},
	}
	chunks, err := Assemble(testDoc(), groups, 1500, 0)
	if err != nil {
		t.Fatal(err)
	}
	c := chunks[0]
	if len(c.ImageRefs) != 1 || c.ImageRefs[0] != "/data/sheets/TL072/images/pinout.png" {
		t.Errorf("resolved refs = %v", c.ImageRefs)
	}
	// Unresolved references stay untouched in the text.
	if !strings.Contains(c.Text, "![missing](gone.png)") {
		t.Error("unresolved reference text was altered")
	}
}

func TestAssembleHeadingFallbackFromText(t *testing.T) {
	groups := []Group{{Text: "## Inline Heading\nBody."}}
	chunks, err := Assemble(testDoc(), groups, 1500, 0)
	if err != nil {
		t.Fatal(err)
	}
	if chunks[0].Heading != "Inline Heading" {
		t.Errorf("heading fallback = %q", chunks[0].Heading)
	}
}

func TestAssembleTimestampIsISO(t *testing.T) {
	groups := []Group{{Text: "Text."}}
	chunks, err := Assemble(testDoc(), groups, 1500, 0)
	if err != nil {
		t.Fatal(err)
	}
	if chunks[0].IngestedAt != "2026-03-14T09:30:00Z" {
		t.Errorf("ingested_at = %q", chunks[0].IngestedAt)
	}
}
