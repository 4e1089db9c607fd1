package ingest

import (
	"strings"
	"testing"
	"unicode/utf8"
)

// reconstruct undoes the declared overlap: segment i>0 drops
// min(overlap, len(segment[i-1])-1) leading bytes.
func reconstruct(segs []string, overlap int) string {
	var b strings.Builder
	for i, s := range segs {
		if i == 0 {
			b.WriteString(s)
			continue
		}
		ov := overlap
		if ov >= len(segs[i-1]) {
			ov = len(segs[i-1]) - 1
		}
		b.WriteString(s[ov:])
	}
	return b.String()
}

func TestSplitRoundTrip(t *testing.T) {
	inputs := []string{
		"short text",
		strings.Repeat("The quick brown fox jumps over the lazy dog. ", 100),
		strings.Repeat("line one\nline two\n\nparagraph break\n", 60),
		strings.Repeat("x", 5000),
		"word " + strings.Repeat("verylongtokenwithoutanyspaces", 80),
	}
	for _, target := range []int{100, 500, 1500} {
		overlap := DefaultOverlap(target)
		for _, in := range inputs {
			g := Group{Text: in}
			segs := Split(g, target, overlap)
			if got := reconstruct(segs, overlap); got != in {
				t.Errorf("target %d: round trip failed: got %d bytes, want %d",
					target, len(got), len(in))
			}
		}
	}
}

func TestSplitAtomicPassthrough(t *testing.T) {
	table := strings.Repeat("| a | b |\n", 500)
	for _, kind := range []GroupKind{GroupTable, GroupCode} {
		g := Group{Text: table, Kind: kind}
		segs := Split(g, 100, 15)
		if len(segs) != 1 {
			t.Fatalf("atomic group split into %d segments", len(segs))
		}
		if segs[0] != table {
			t.Error("atomic group text altered")
		}
	}
}

func TestSplitRespectsTargetSize(t *testing.T) {
	text := strings.Repeat("Sentence number one here. ", 200)
	segs := Split(Group{Text: text}, 300, 45)
	if len(segs) < 2 {
		t.Fatalf("expected multiple segments, got %d", len(segs))
	}
	for i, s := range segs {
		if len(s) > 300 {
			t.Errorf("segment %d exceeds target: %d chars", i, len(s))
		}
	}
}

func TestSplitPrefersBlankLineBoundary(t *testing.T) {
	para := strings.Repeat("a", 80)
	text := para + "\n\n" + para + "\n\n" + para
	segs := Split(Group{Text: text}, 100, 0)
	if !strings.HasSuffix(segs[0], "\n\n") {
		t.Errorf("first cut should land after the blank line, got %q...", segs[0][:20])
	}
}

func TestSplitPrefersSentenceOverSpace(t *testing.T) {
	// No newlines; one sentence terminal well inside the window.
	text := "First sentence ends here. " + strings.Repeat("word ", 100)
	segs := Split(Group{Text: text}, 50, 0)
	if segs[0] != "First sentence ends here. " {
		t.Errorf("expected cut after sentence terminal, got %q", segs[0])
	}
}

func TestSplitHardCutWithoutBoundaries(t *testing.T) {
	text := strings.Repeat("z", 250)
	segs := Split(Group{Text: text}, 100, 10)
	if len(segs[0]) != 100 {
		t.Errorf("expected hard cut at target, got %d chars", len(segs[0]))
	}
	if got := reconstruct(segs, 10); got != text {
		t.Error("round trip failed on boundary-free text")
	}
}

func TestSplitOverlapSharesContext(t *testing.T) {
	text := strings.Repeat("abcdefghij ", 100)
	overlap := 20
	segs := Split(Group{Text: text}, 200, overlap)
	if len(segs) < 2 {
		t.Fatal("expected multiple segments")
	}
	for i := 1; i < len(segs); i++ {
		prev := segs[i-1]
		if !strings.HasPrefix(segs[i], prev[len(prev)-overlap:]) {
			t.Errorf("segment %d does not start with previous segment's tail", i)
		}
	}
}

func TestSplitMultibyteHardCutStaysValidUTF8(t *testing.T) {
	// Boundary-free CJK text forces the hard-cut path; 3-byte runes never
	// divide the 50-byte window evenly.
	g := Group{Text: strings.Repeat("電", 100)}
	segs := Split(g, 50, 0)
	if len(segs) < 2 {
		t.Fatalf("expected multiple segments, got %d", len(segs))
	}
	for i, s := range segs {
		if !utf8.ValidString(s) {
			t.Errorf("segment %d is not valid UTF-8 (len %d)", i, len(s))
		}
		if len(s) > 50 {
			t.Errorf("segment %d exceeds target: %d bytes", i, len(s))
		}
	}
	if strings.Join(segs, "") != g.Text {
		t.Error("zero-overlap concatenation does not reproduce the group text")
	}
}

func TestSplitMultibyteOverlapStaysValidUTF8(t *testing.T) {
	g := Group{Text: strings.Repeat("質", 120)}
	segs := Split(g, 50, 10)
	if len(segs) < 3 {
		t.Fatalf("expected several segments, got %d", len(segs))
	}
	for i, s := range segs {
		if !utf8.ValidString(s) {
			t.Errorf("segment %d is not valid UTF-8 (len %d)", i, len(s))
		}
		if !strings.Contains(g.Text, s) {
			t.Errorf("segment %d is not a contiguous span of the group text", i)
		}
	}
	last := segs[len(segs)-1]
	if !strings.HasSuffix(g.Text, last) {
		t.Error("final segment does not end the group text")
	}
}

func TestSplitShortTextSingleSegment(t *testing.T) {
	segs := Split(Group{Text: "fits"}, 100, 15)
	if len(segs) != 1 || segs[0] != "fits" {
		t.Errorf("short text should pass through unchanged: %#v", segs)
	}
}

func TestHardMaxRatio(t *testing.T) {
	if got := HardMax(1500); got != 2000 {
		t.Errorf("HardMax(1500) = %d, want 2000", got)
	}
}

func TestDefaultOverlapIs15Percent(t *testing.T) {
	if got := DefaultOverlap(1000); got != 150 {
		t.Errorf("DefaultOverlap(1000) = %d, want 150", got)
	}
}
