package ingest

import (
	"strings"
	"unicode/utf8"
)

// HardMax returns the hard chunk ceiling for a target size, the ~4/3 ratio
// of the reference configuration (1500 target, 2000 ceiling).
func HardMax(target int) int { return target * 4 / 3 }

// DefaultOverlap returns the default overlap for a target size (15%).
func DefaultOverlap(target int) int { return target * 15 / 100 }

// Split subdivides a structural group into sub-segments no longer than
// target characters, except for atomic groups (tables, fenced blocks) which
// are always returned whole in a single sub-segment.
//
// Each cut prefers, in order: a blank-line boundary, a single newline, a
// sentence terminal (". "), a plain space, and only then an arbitrary
// character position. After a cut, the next sub-segment starts overlap
// characters before the previous end so neighboring chunks share context.
// The overlap is clamped below the previous sub-segment's length so the
// cursor always advances.
//
// Cuts and rewinds always land on rune starts, so every sub-segment of
// valid UTF-8 input is itself valid UTF-8.
//
// Invariant: concatenating the sub-segments with their overlaps removed
// reproduces the group text byte for byte. Overlap removal for segment i>0
// drops min(overlap, len(segment[i-1])-1) leading bytes, shortened when
// that offset would fall inside a multibyte rune.
func Split(g Group, target, overlap int) []string {
	if g.Atomic() || target < 1 || len(g.Text) <= target {
		return []string{g.Text}
	}
	if overlap < 0 {
		overlap = DefaultOverlap(target)
	}

	text := g.Text
	var segs []string
	pos := 0
	for pos < len(text) {
		end := pos + target
		if end >= len(text) {
			segs = append(segs, text[pos:])
			break
		}

		cut := boundaryCut(text[pos:end], target)
		// A hard cut lands at an arbitrary byte offset; back it off so the
		// segment never ends inside a multibyte rune.
		for cut > 1 && !utf8.RuneStart(text[pos+cut]) {
			cut--
		}
		seg := text[pos : pos+cut]
		segs = append(segs, seg)

		if pos+cut >= len(text) {
			break
		}
		ov := overlap
		if ov >= len(seg) {
			ov = len(seg) - 1
		}
		// The rewound start must also be a rune start; shorten the overlap
		// until it is.
		for ov > 0 && !utf8.RuneStart(text[pos+cut-ov]) {
			ov--
		}
		pos += cut - ov
	}
	return segs
}

// boundaryCut returns the cut position within the target-sized window,
// choosing the best boundary available.
func boundaryCut(w string, target int) int {
	// Blank-line boundary: cut after the "\n\n".
	if idx := strings.LastIndex(w, "\n\n"); idx > 0 {
		return idx + 2
	}
	// Single newline.
	if idx := strings.LastIndexByte(w, '\n'); idx > 0 {
		return idx + 1
	}
	// Sentence terminal. The trailing space stays with the first segment.
	if idx := strings.LastIndex(w, ". "); idx > 0 {
		return idx + 2
	}
	// Plain space.
	if idx := strings.LastIndexByte(w, ' '); idx > 0 {
		return idx + 1
	}
	// No boundary at all: hard cut at the limit.
	return target
}
