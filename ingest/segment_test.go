package ingest

import (
	"strings"
	"testing"
)

func TestSegmentHeadingRegister(t *testing.T) {
	raw := "# Overview\n\nIntro paragraph.\n\nSecond paragraph.\n\n## Pinout\n\nPin details."
	groups := Segment(raw)
	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d: %#v", len(groups), groups)
	}
	if groups[0].Heading != "Overview" || groups[1].Heading != "Overview" {
		t.Errorf("first two groups should carry the Overview heading, got %q and %q",
			groups[0].Heading, groups[1].Heading)
	}
	if groups[2].Heading != "Pinout" {
		t.Errorf("expected Pinout heading, got %q", groups[2].Heading)
	}
	if !strings.HasPrefix(groups[0].Text, "# Overview") {
		t.Error("heading line should be retained in group text")
	}
}

func TestSegmentNoHeadings(t *testing.T) {
	raw := "First paragraph.\n\nSecond paragraph."
	groups := Segment(raw)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	for _, g := range groups {
		if g.Heading != "" {
			t.Errorf("expected empty heading context, got %q", g.Heading)
		}
		if g.Kind != GroupPlain {
			t.Errorf("expected plain group, got %v", g.Kind)
		}
	}
}

func TestSegmentFencedBlockAtomic(t *testing.T) {
	raw := "# Code\n\nBefore.\n\n```c\nint main() {\n\n  return 0;\n}\n```\n\nAfter."
	groups := Segment(raw)

	var code *Group
	for i := range groups {
		if groups[i].Kind == GroupCode {
			if code != nil {
				t.Fatal("expected exactly one code group")
			}
			code = &groups[i]
		}
	}
	if code == nil {
		t.Fatal("no code group emitted")
	}
	// The blank line inside the fence must not split the block.
	if !strings.Contains(code.Text, "return 0;") || !strings.HasPrefix(code.Text, "```c") {
		t.Errorf("fence content mangled: %q", code.Text)
	}
	if code.Heading != "Code" {
		t.Errorf("fence should carry heading context, got %q", code.Heading)
	}
}

func TestSegmentUnterminatedFence(t *testing.T) {
	raw := "Intro.\n\n```python\nprint('hi')\nno closing marker"
	groups := Segment(raw)
	last := groups[len(groups)-1]
	if last.Kind != GroupCode {
		t.Fatalf("expected trailing code group, got kind %v", last.Kind)
	}
	if !strings.Contains(last.Text, "no closing marker") {
		t.Error("unterminated fence should swallow the rest of the document")
	}
}

func TestSegmentTableAtomic(t *testing.T) {
	table := "| Pin | Name |\n|-----|------|\n| 1 | VCC |\n| 2 | GND |"
	raw := "## Pins\n\n" + table + "\n\nTrailing text."
	groups := Segment(raw)

	var tbl *Group
	for i := range groups {
		if groups[i].Kind == GroupTable {
			tbl = &groups[i]
		}
	}
	if tbl == nil {
		t.Fatal("no table group emitted")
	}
	if tbl.Text != table {
		t.Errorf("table text altered:\n%q\nwant\n%q", tbl.Text, table)
	}
	if tbl.Heading != "Pins" {
		t.Errorf("table should carry heading context, got %q", tbl.Heading)
	}
}

func TestSegmentPipeLinesWithoutSeparatorArePlain(t *testing.T) {
	raw := "| just | one line |\n\nRegular text."
	groups := Segment(raw)
	for _, g := range groups {
		if g.Kind == GroupTable {
			t.Errorf("pipe lines without separator row must not form a table: %q", g.Text)
		}
	}
}

func TestSegmentOrderIsReadOrder(t *testing.T) {
	raw := "# A\n\none\n\n# B\n\ntwo\n\n# C\n\nthree"
	groups := Segment(raw)
	var seq []string
	for _, g := range groups {
		seq = append(seq, g.Heading)
	}
	want := []string{"A", "B", "C"}
	if len(seq) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(seq))
	}
	for i := range want {
		if seq[i] != want[i] {
			t.Errorf("group %d heading = %q, want %q", i, seq[i], want[i])
		}
	}
}

func TestSegmentHeadingStaysWithFirstParagraph(t *testing.T) {
	raw := "# Title\n\nBody right after heading."
	groups := Segment(raw)
	if len(groups) != 1 {
		t.Fatalf("expected heading and first paragraph in one group, got %d groups", len(groups))
	}
	if !strings.Contains(groups[0].Text, "# Title") || !strings.Contains(groups[0].Text, "Body") {
		t.Errorf("group text missing heading or body: %q", groups[0].Text)
	}
}

func TestSegmentIndentedHeading(t *testing.T) {
	// Headings indented up to three spaces are still headings.
	raw := "   ## Indented Section\n\nBody text."
	groups := Segment(raw)
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	if groups[0].Heading != "Indented Section" {
		t.Errorf("heading = %q, want %q", groups[0].Heading, "Indented Section")
	}
}

func TestSegmentEmpty(t *testing.T) {
	if groups := Segment(""); len(groups) != 0 {
		t.Errorf("expected no groups for empty input, got %d", len(groups))
	}
	if groups := Segment("\n\n   \n"); len(groups) != 0 {
		t.Errorf("expected no groups for whitespace input, got %d", len(groups))
	}
}
