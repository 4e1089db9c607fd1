package sheaf

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestMetaHeadingShortPassthrough(t *testing.T) {
	c := Chunk{Heading: "Absolute Maximum Ratings"}
	if got := c.MetaHeading(); got != "Absolute Maximum Ratings" {
		t.Errorf("MetaHeading() = %q", got)
	}
}

func TestMetaHeadingTrimsToCap(t *testing.T) {
	c := Chunk{Heading: strings.Repeat("x", 250)}
	got := c.MetaHeading()
	if len(got) != HeadingMaxLen {
		t.Errorf("trimmed heading length = %d, want %d", len(got), HeadingMaxLen)
	}
	if c.Heading != strings.Repeat("x", 250) {
		t.Error("MetaHeading must not mutate the chunk")
	}
}

func TestMetaHeadingTrimsAtRuneBoundary(t *testing.T) {
	// 40 three-byte runes; the 100-byte cap falls mid-rune at byte 100.
	c := Chunk{Heading: strings.Repeat("測", 40)}
	got := c.MetaHeading()
	if !utf8.ValidString(got) {
		t.Errorf("trimmed heading is not valid UTF-8: %q", got)
	}
	if len(got) != 99 {
		t.Errorf("trimmed heading length = %d, want 99", len(got))
	}
}
