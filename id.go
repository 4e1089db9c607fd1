package sheaf

import (
	"time"

	"github.com/google/uuid"
)

// NewID generates a globally unique, time-sortable UUIDv7 (RFC 9562).
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// NowUnix returns current time as Unix seconds.
func NowUnix() int64 {
	return time.Now().Unix()
}

// ISOTime formats t as an ISO-8601 UTC timestamp, the format stores persist
// in chunk metadata.
func ISOTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
