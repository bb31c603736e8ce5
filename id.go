package aegis

import (
	"time"

	"github.com/google/uuid"
)

// NewID generates a globally unique, time-sortable UUIDv7 (RFC 9562).
// ExecutionRecord carries no ID; the durable store keys runs by an
// integer row id.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// NowUTC returns the current wall-clock time in UTC, used for every
// timestamp recorded on events and execution records.
func NowUTC() time.Time {
	return time.Now().UTC()
}
