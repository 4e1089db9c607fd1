package sheaf

import (
	"testing"
	"time"
)

func TestNewIDUniqueAndSortable(t *testing.T) {
	a := NewID()
	b := NewID()
	if a == b {
		t.Fatal("consecutive IDs collided")
	}
	if len(a) != 36 {
		t.Errorf("unexpected ID format: %q", a)
	}
	// UUIDv7 sorts by generation time.
	if !(a < b) {
		t.Errorf("IDs not time-ordered: %q then %q", a, b)
	}
}

func TestISOTime(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*3600)
	in := time.Date(2026, 3, 14, 16, 30, 0, 0, loc)
	if got := ISOTime(in); got != "2026-03-14T09:30:00Z" {
		t.Errorf("ISOTime = %q", got)
	}
}
